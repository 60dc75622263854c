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

// Package syscalls implements the per-thread syscall dispatch table: one
// authorizer function per syscall number, consulted on every trapped guest
// syscall before it is allowed to reach the kernel. The table mirrors the
// 32-bit x86 guest syscall ABI this translator targets (mmap2, the
// deprecated signal/sigaction numbers, and so on); it has no ARM
// equivalent yet, matching arch_arm.go's stub.
package syscalls

import (
	"golang.org/x/sys/unix"

	"github.com/nebelwelt/fbt/pkg/arch"
	"github.com/nebelwelt/fbt/pkg/verdict"
)

// MaxSyscalls bounds the dispatch table. Guest syscall numbers at or beyond
// this are always denied, same as any other unrecognized entry.
const MaxSyscalls = 512

// Raw i386 syscall numbers with no golang.org/x/sys/unix constant: the
// three earliest removed entries in the table (historically __NR_break,
// __NR_stty, __NR_gtty — permanently ENOSYS on every kernel that ships
// this ABI) and the slot the kernel's own source reserved but never
// allocated to a real syscall.
const (
	unusedSyscall1    uintptr = 17
	unusedSyscall2    uintptr = 31
	unusedSyscall3    uintptr = 32
	setAltRootSyscall uintptr = 222
)

// Authorizer decides what happens to one trapped guest syscall. It must
// not mutate args in place (only *a6 and *retval are writable out
// parameters), and it must independently verify syscallNr matches what it
// expects even when installed at exactly one table slot, since a
// misconfigured table is exactly the kind of mistake this check exists to
// catch.
type Authorizer func(tld *TLD, syscallNr uintptr, args arch.SyscallArguments, a6 *uintptr, isSysenter bool, retval *uintptr) verdict.Verdict

// Table is one thread's complete syscall dispatch table.
type Table struct {
	slots [MaxSyscalls]Authorizer
	debug bool
}

// NewTable builds a table with production defaults: every syscall number up
// to the highest one this build knows about is granted, everything past
// that (and a short list of syscalls that must never reach translated
// code) is denied, and the syscalls the authorization core cares about get
// their dedicated authorizer. If debug is true, every otherwise-granted
// slot instead traces its arguments before granting.
func NewTable(debug bool) *Table {
	t := &Table{debug: debug}

	granted := Authorizer(allowSyscall)
	if debug {
		granted = debugSyscall
	}

	// knownSyscallCount is the highest syscall number this build's guest
	// ABI defines; numbers beyond it cannot be real syscalls and are
	// always denied.
	const knownSyscallCount = 350
	highest := uintptr(knownSyscallCount)
	for i := uintptr(0); i < MaxSyscalls; i++ {
		if i <= highest {
			t.slots[i] = granted
		} else {
			t.slots[i] = denySyscall
		}
	}

	// These must never reach translated code regardless of build mode.
	for _, nr := range []uintptr{
		unix.SYS_PTRACE,
		unix.SYS_SIGRETURN,
		unix.SYS_RT_SIGRETURN,
	} {
		t.slots[nr] = denySyscall
	}

	// A handful of slots the original guards with #ifdef because no
	// modern libc header names them: three permanently unimplemented
	// entries inherited from the i386 table's earliest removed syscalls
	// (break, stty, gtty — never reallocated, always ENOSYS on every
	// shipped kernel) and one reserved-but-never-allocated slot. None of
	// these have a golang.org/x/sys/unix constant because nothing current
	// defines them; denying them by raw number keeps this table's
	// coverage of "numbers that must never reach translated code"
	// complete even though the symbolic names never existed in this ABI.
	for _, nr := range []uintptr{
		unusedSyscall1,
		unusedSyscall2,
		unusedSyscall3,
		setAltRootSyscall,
	} {
		t.slots[nr] = denySyscall
	}

	t.slots[unix.SYS_EXECVE] = AuthExecve
	t.slots[unix.SYS_MMAP] = AuthMmap
	t.slots[unix.SYS_MMAP2] = AuthMmap2
	t.slots[unix.SYS_MPROTECT] = AuthMprotect

	t.slots[unix.SYS_SIGNAL] = AuthSignal
	t.slots[unix.SYS_SIGACTION] = AuthSignal
	t.slots[unix.SYS_RT_SIGACTION] = AuthSignal

	t.slots[unix.SYS_CLONE] = AuthClone
	t.slots[unix.SYS_EXIT] = AuthExit
	t.slots[unix.SYS_EXIT_GROUP] = AuthExit

	return t
}

// Lookup returns the authorizer installed for nr, or the deny authorizer if
// nr is out of range.
func (t *Table) Lookup(nr uintptr) Authorizer {
	if nr >= MaxSyscalls {
		return denySyscall
	}
	return t.slots[nr]
}

// Override replaces the authorizer for nr. Used by tests and by callers
// that need to disable a class of syscalls entirely (e.g. signal handling
// turned off for a build).
func (t *Table) Override(nr uintptr, a Authorizer) {
	if nr >= MaxSyscalls {
		return
	}
	t.slots[nr] = a
}

// Dispatch runs the authorizer installed for syscallNr.
func (t *Table) Dispatch(tld *TLD, syscallNr uintptr, args arch.SyscallArguments, a6 *uintptr, isSysenter bool, retval *uintptr) verdict.Verdict {
	return t.Lookup(syscallNr)(tld, syscallNr, args, a6, isSysenter, retval)
}
