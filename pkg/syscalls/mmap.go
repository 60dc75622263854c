// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux && 386
// +build linux,386

package syscalls

import (
	"golang.org/x/sys/unix"

	"github.com/nebelwelt/fbt/pkg/abort"
	"github.com/nebelwelt/fbt/pkg/arch"
	"github.com/nebelwelt/fbt/pkg/fbtlog"
	"github.com/nebelwelt/fbt/pkg/verdict"
)

// Config controls the handful of authorizer-visible build choices the
// original translator made with preprocessor flags. A real deployment
// builds one Config at startup from pkg/config and shares it across every
// TLD in the process.
type Config struct {
	// AllowRuntimeAlloc, when true, lets an mmap/mprotect that both
	// requests PROT_EXEC and has no file backing succeed by admitting the
	// resulting range into V, instead of being treated as an address the
	// guest has no business making executable. Corresponds to the
	// SECU_ALLOW_RUNTIME_ALLOC build flag.
	AllowRuntimeAlloc bool
}

// AuthMmap validates an mmap(2): the requested range must not collide with
// a translator-owned region, and if the configuration allows runtime code
// generation, a PROT_EXEC|MAP_ANONYMOUS request is admitted to V instead of
// granted unmodified.
func AuthMmap(tld *TLD, syscallNr uintptr, args arch.SyscallArguments, a6 *uintptr, isSysenter bool, retval *uintptr) verdict.Verdict {
	mustBe(syscallNr, unix.SYS_MMAP, "mmap")
	return authMmapCommon(tld, args, a6, retval, false)
}

// AuthMmap2 is identical to AuthMmap except for the syscall number it
// expects and that its offset argument is in page units, which this
// authorizer never interprets itself (the stub does).
func AuthMmap2(tld *TLD, syscallNr uintptr, args arch.SyscallArguments, a6 *uintptr, isSysenter bool, retval *uintptr) verdict.Verdict {
	mustBe(syscallNr, unix.SYS_MMAP2, "mmap2")
	return authMmapCommon(tld, args, a6, retval, true)
}

func authMmapCommon(tld *TLD, args arch.SyscallArguments, a6 *uintptr, retval *uintptr, isMmap2 bool) verdict.Verdict {
	start := args[0].Pointer()
	size := args[1].SizeT()
	prot := args[2].Value
	flags := args[3].Value
	fd := args[4].Value

	if tld.Config.AllowRuntimeAlloc && prot&unix.PROT_EXEC != 0 && flags&unix.MAP_ANONYMOUS != 0 {
		var mapped uintptr
		var err error
		clearedFlags := flags &^ uintptr(unix.MAP_FIXED)
		if isMmap2 {
			mapped, err = tld.Stub.Mmap2(start, uintptr(size), prot, clearedFlags, fd, *a6)
		} else {
			mapped, err = tld.Stub.Mmap(start, uintptr(size), prot, clearedFlags, fd, *a6)
		}
		if err != nil {
			*retval = errnoEPERM
			return verdict.Emulated
		}
		tld.Regions.AdmitExecutable(mapped, uintptr(size))
		*retval = mapped
		return verdict.Emulated
	}

	if start != 0 && tld.Regions.OverlapsTranslator(start, uintptr(size)) {
		fbtlog.Warningf("mmap at %#x/%d overlaps translator-internal region; %s", start, size, tld.Regions.String())
		abort.Suicide("guest attempted to mmap over translator-internal memory")
		*retval = errnoEPERM
		return verdict.Denied
	}
	return verdict.Granted
}
