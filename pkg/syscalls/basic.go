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
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nebelwelt/fbt/pkg/abort"
	"github.com/nebelwelt/fbt/pkg/arch"
	"github.com/nebelwelt/fbt/pkg/fbtlog"
	"github.com/nebelwelt/fbt/pkg/verdict"
)

// syscallNames gives a handful of syscalls of interest a readable name in
// logs and abort diagnostics; anything else falls back to its bare number.
var syscallNames = map[uintptr]string{
	unix.SYS_EXECVE:        "execve",
	unix.SYS_EXIT:          "exit",
	unix.SYS_EXIT_GROUP:    "exit_group",
	unix.SYS_MMAP:          "mmap",
	unix.SYS_MMAP2:         "mmap2",
	unix.SYS_MPROTECT:      "mprotect",
	unix.SYS_SIGNAL:        "signal",
	unix.SYS_SIGACTION:     "sigaction",
	unix.SYS_RT_SIGACTION:  "rt_sigaction",
	unix.SYS_CLONE:         "clone",
	unix.SYS_PTRACE:        "ptrace",
	unix.SYS_SIGRETURN:     "sigreturn",
	unix.SYS_RT_SIGRETURN:  "rt_sigreturn",
}

var argLogLimiter = fbtlog.NewKeyLimiter(time.Second, 5)

// allowSyscall grants any syscall unconditionally. Installed in every slot
// that is neither explicitly denied nor handled by a dedicated authorizer.
func allowSyscall(tld *TLD, syscallNr uintptr, args arch.SyscallArguments, a6 *uintptr, isSysenter bool, retval *uintptr) verdict.Verdict {
	return verdict.Granted
}

// debugSyscall traces every argument before granting, rate-limited per
// syscall number so a guest that loops on one syscall can't flood the log.
// Installed in place of allowSyscall when a build wants syscall tracing.
func debugSyscall(tld *TLD, syscallNr uintptr, args arch.SyscallArguments, a6 *uintptr, isSysenter bool, retval *uintptr) verdict.Verdict {
	key := syscallName(syscallNr)
	if argLogLimiter.Allow(key) {
		fbtlog.Debugf("syscall %s: args=[%#x %#x %#x %#x %#x] sysenter=%v",
			key, args[0].Value, args[1].Value, args[2].Value, args[3].Value, args[4].Value, isSysenter)
	}
	return verdict.Granted
}

// denySyscall terminates the process. A syscall reaching this authorizer
// means either the guest asked for something never legitimately needed
// (ptrace, the raw sigreturn trampolines) or asked for a syscall number
// this build doesn't recognize at all.
func denySyscall(tld *TLD, syscallNr uintptr, args arch.SyscallArguments, a6 *uintptr, isSysenter bool, retval *uintptr) verdict.Verdict {
	abort.Suicide(fmt.Sprintf("syscall %s is not permitted", syscallName(syscallNr)))
	*retval = errnoEPERM
	return verdict.Denied
}

// errnoEPERM is the value stored in retval when a syscall is denied; the
// process is aborting regardless, but authorizers must always leave retval
// in a defined state.
const errnoEPERM = ^uintptr(0) // -1 as unsigned, i.e. the guest's EPERM convention

// mustBe aborts the process if got does not equal want. Every authorizer
// bound to exactly one table slot still re-checks its own syscall number:
// a table built with a mismatched entry is exactly the kind of internal
// inconsistency this check exists to catch before it does something
// unsafe with the wrong argument layout.
func mustBe(got, want uintptr, name string) {
	if got != want {
		abort.Suicide(fmt.Sprintf("invalid syscall number in %s authorizer: got %d, want %d", name, got, want))
	}
}

func syscallName(nr uintptr) string {
	if name, ok := syscallNames[nr]; ok {
		return name
	}
	return fmt.Sprintf("syscall(%d)", nr)
}
