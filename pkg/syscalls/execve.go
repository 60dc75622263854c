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
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nebelwelt/fbt/pkg/arch"
	"github.com/nebelwelt/fbt/pkg/fbtlog"
	"github.com/nebelwelt/fbt/pkg/verdict"
)

// PreloadLibraryName is the translator's own shared object name, as it
// should appear in a guest's LD_PRELOAD before an execve is trusted. A
// production build sets this at init from its own argv[0]/dlinfo; tests
// override it directly.
var PreloadLibraryName = "libfastbt.so"

// AuthExecve validates that an execve is re-entering through the
// translator rather than shedding it. A child process that drops the
// translator's LD_PRELOAD entry escapes every authorizer this package
// implements, so an execve whose environment no longer names the
// translator's own library is faked as a failed call (EMULATED, retval
// set to -1) rather than let through: the calling guest process keeps
// running, it just observes its own execve failing, instead of being
// torn down outright.
//
// A widely distributed benchmarking build of the original translator
// short-circuited this check (a bare `return SYSCALL_AUTH_GRANTED` ahead of
// the real scan, left in to avoid measuring LD_PRELOAD-rewrite overhead
// during SPEC runs). That shortcut defeats the whole point of authorizing
// execve and is not reproduced here: the environment is always scanned.
func AuthExecve(tld *TLD, syscallNr uintptr, args arch.SyscallArguments, a6 *uintptr, isSysenter bool, retval *uintptr) verdict.Verdict {
	mustBe(syscallNr, unix.SYS_EXECVE, "execve")

	path := args[0]
	envp := args[2].Pointer()

	preloaded := false
	for _, env := range readEnvp(envp) {
		const prefix = "LD_PRELOAD="
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		value := env[len(prefix):]
		preloaded = containsLibrary(value, PreloadLibraryName)
	}

	if !preloaded {
		fbtlog.Warningf("execve of path at %#x faked as failed: LD_PRELOAD no longer names %s", path.Value, PreloadLibraryName)
		*retval = errnoEPERM
		return verdict.Emulated
	}
	return verdict.Granted
}

// containsLibrary reports whether any ':'-separated entry of an
// LD_PRELOAD value is exactly name or ends in "/"+name.
func containsLibrary(ldPreload, name string) bool {
	for _, entry := range strings.Split(ldPreload, ":") {
		if entry == name || strings.HasSuffix(entry, "/"+name) {
			return true
		}
	}
	return false
}

// readEnvp reads a NULL-terminated, NULL-pointer-terminated guest envp
// array of C strings starting at addr. It is best-effort: a malformed
// array simply yields a short or empty slice rather than reading out of
// bounds. In production this walks guest memory directly; tests substitute
// a fake that points into normal Go memory, so the address arithmetic here
// is still exercised.
func readEnvp(addr uintptr) []string {
	if addr == 0 {
		return nil
	}
	var out []string
	for i := 0; ; i++ {
		entryPtr := *(*uintptr)(unsafe.Pointer(addr + uintptr(i)*unsafe.Sizeof(addr)))
		if entryPtr == 0 {
			break
		}
		out = append(out, readCString(entryPtr))
		if i > 4096 {
			break
		}
	}
	return out
}

func readCString(addr uintptr) string {
	var b []byte
	for i := 0; i < 4096; i++ {
		c := *(*byte)(unsafe.Pointer(addr + uintptr(i)))
		if c == 0 {
			break
		}
		b = append(b, c)
	}
	return string(b)
}
