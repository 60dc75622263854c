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

// AuthMprotect validates an mprotect(2): the target range must not
// overlap a translator-owned region, and a request that adds PROT_EXEC is
// recorded in V when runtime code generation is trusted, the same as the
// mmap authorizers.
func AuthMprotect(tld *TLD, syscallNr uintptr, args arch.SyscallArguments, a6 *uintptr, isSysenter bool, retval *uintptr) verdict.Verdict {
	mustBe(syscallNr, unix.SYS_MPROTECT, "mprotect")

	start := args[0].Pointer()
	size := args[1].SizeT()
	prot := args[2].Value

	if tld.Regions.OverlapsTranslator(start, uintptr(size)) {
		fbtlog.Warningf("mprotect at %#x/%d overlaps translator-internal region", start, size)
		abort.Suicide("guest attempted to mprotect translator-internal memory")
		*retval = errnoEPERM
		return verdict.Denied
	}

	if tld.Config.AllowRuntimeAlloc && prot&unix.PROT_EXEC != 0 {
		tld.Regions.AdmitExecutable(start, uintptr(size))
		fbtlog.Debugf("mprotect marked %#x/%d executable", start, size)
	}

	return verdict.Granted
}
