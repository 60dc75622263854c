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
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nebelwelt/fbt/pkg/abort"
	"github.com/nebelwelt/fbt/pkg/arch"
	"github.com/nebelwelt/fbt/pkg/fbtlog"
	"github.com/nebelwelt/fbt/pkg/verdict"
)

// ChildTLDFactory builds a fresh TLD for a new thread, sharing the parent's
// region registry and, if configured, its thread list. Overridable by
// tests.
var ChildTLDFactory = func(parent *TLD) *TLD {
	child := New(parent.Regions, parent.Shared, parent.Stub, parent.Config)
	child.Table = NewTable(false)
	child.Signals = parent.Signals
	return child
}

// TrampolineAllocator reserves a small block of translator-owned memory
// for the bootstrap trampoline a new thread's patched stack transfers
// into, and returns its address. Overridable by tests.
var TrampolineAllocator = func(tld *TLD) (uintptr, error) {
	const trampolinePageSize = 4096
	addr, err := tld.Stub.Mmap(0, trampolinePageSize,
		uintptr(unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC),
		uintptr(unix.MAP_PRIVATE|unix.MAP_ANONYMOUS), ^uintptr(0), 0)
	if err != nil {
		return 0, err
	}
	tld.Regions.AddTranslatorRange(addr, trampolinePageSize)
	return addr, nil
}

// AuthClone implements clone(2)'s two disjoint shapes: CLONE_VM clear is a
// fork-like call passed straight through to the kernel; CLONE_VM set
// starts a new thread in the same address space and requires the
// translator to set the new thread up before the kernel ever runs it.
func AuthClone(tld *TLD, syscallNr uintptr, args arch.SyscallArguments, a6 *uintptr, isSysenter bool, retval *uintptr) verdict.Verdict {
	mustBe(syscallNr, unix.SYS_CLONE, "clone")

	flags := args[0].Value

	if flags&unix.CLONE_VM == 0 {
		return authCloneFork(tld, args, retval)
	}

	if isSysenter {
		abort.Suicide("clone with CLONE_VM set is unsupported from sysenter")
		*retval = errnoEPERM
		return verdict.Denied
	}

	return authCloneThread(tld, args, retval)
}

// authCloneFork passes a CLONE_VM-clear clone straight to the kernel: it
// creates an independent address space, so none of this package's
// per-address-space bookkeeping needs to run for it.
func authCloneFork(tld *TLD, args arch.SyscallArguments, retval *uintptr) verdict.Verdict {
	pid, err := tld.Stub.RawClone(args[0].Value, args[1].Value, args[2].Value, args[3].Value, args[4].Value)
	if err != nil {
		*retval = errnoEPERM
		return verdict.Emulated
	}
	*retval = pid
	return verdict.Emulated
}

// authCloneThread implements the CLONE_VM-set path in five ordered steps:
// compute the child's resume PC past the trapping instruction, initialize
// a fresh TLD for the child, preload its dispatch table so the first
// syscall the child issues is already authorized correctly, allocate a
// bootstrap trampoline, and patch the child's stack to transfer into it.
// Only once all five precede it does the clone syscall itself run.
func authCloneThread(tld *TLD, args arch.SyscallArguments, retval *uintptr) verdict.Verdict {
	// Step 1: resume PC past the trapping instruction.
	resumePC := tld.SyscallLocation + arch.TrapInstructionLen

	// Step 2: fresh TLD for the new thread.
	child := ChildTLDFactory(tld)
	child.SyscallLocation = resumePC

	// Step 3: preload the dispatch table (done inside ChildTLDFactory so
	// it is never skipped by a caller that forgets to call it).
	if child.Table == nil {
		child.Table = NewTable(false)
	}

	// Step 4: allocate the bootstrap trampoline.
	trampoline, err := TrampolineAllocator(child)
	if err != nil {
		fbtlog.Warningf("clone: failed to allocate bootstrap trampoline: %v", err)
		*retval = errnoEPERM
		return verdict.Emulated
	}

	// Step 5: patch the child stack so its first instruction after clone
	// returns into the trampoline, not back into guest code.
	childStack := args[1].Pointer()
	patchedTop := childStack - unsafe.Sizeof(childStack)
	*(*uintptr)(unsafe.Pointer(patchedTop)) = trampoline

	if tld.Shared != nil {
		child.Bootstrap()
	}

	pid, err := tld.Stub.CloneThread(args[0].Value, patchedTop)
	if err != nil {
		*retval = errnoEPERM
		return verdict.Emulated
	}

	*retval = pid
	return verdict.Emulated
}
