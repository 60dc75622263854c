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

// Package stub implements the low-level syscall primitives the translator
// platform supplies to the authorization core: fbt_mmap, fbt_mmap2,
// fbt_sigaction, fbt_rt_sigaction, fbt_signal, fbt_gettid, a mutex, and a
// small-object allocator keyed by thread-local data (fbt_suicide_str is
// pkg/abort's Suicide). A C
// translator wraps these in inline asm around the raw syscall instruction;
// this package is a real implementation using golang.org/x/sys/unix rather
// than a documentation-only stub, since Go can issue raw syscalls directly.
//
// The mutex and small-object allocator have no dedicated type here: Go's
// sync.Mutex and runtime allocator are the idiomatic replacement for
// hand-rolled equivalents, and introducing custom ones would only be extra
// surface with no behavioral difference.
package stub

import (
	"github.com/nebelwelt/fbt/pkg/signaldisp"
)

// Interface is the platform surface the syscall authorizers are built
// against. A real implementation issues raw syscalls (see linux.go); tests
// use a fake (see fake.go).
type Interface interface {
	signaldisp.Installer

	// GetTID returns the kernel thread id of the calling thread
	// (fbt_gettid).
	GetTID() int32

	// Mmap issues the real mmap(2) syscall (fbt_mmap).
	Mmap(addr, length, prot, flags, fd, offset uintptr) (uintptr, error)

	// Mmap2 issues the real mmap2(2) syscall, offset in page units
	// (fbt_mmap2).
	Mmap2(addr, length, prot, flags, fd, pgoffset uintptr) (uintptr, error)

	// Munmap issues the real munmap(2) syscall.
	Munmap(addr, length uintptr) error

	// RawClone issues the real clone(2) syscall for the fork-like
	// (CLONE_VM clear) case and returns its raw result verbatim.
	RawClone(flags, a2, a3, a4, a5 uintptr) (uintptr, error)

	// CloneThread issues clone(2) for the CLONE_VM-set, new-thread case,
	// having already patched the top of childStack so that the child's
	// first return transfers into the bootstrap trampoline. Returns the
	// kernel tid of the new thread to the parent; on the child side this
	// never returns to the caller; it returns through the patched stack.
	CloneThread(flags, childStack uintptr) (uintptr, error)

	// ExitTail issues munmap(chunkPtr, chunkSize) followed immediately by
	// exit(code) or exit_group(code), with no intervening access to the
	// chunk being unmapped. This never returns on success. A C translator
	// expresses this as a register-only asm tail operating on its own OS
	// stack; Go cannot, since the Go runtime owns goroutine stacks rather
	// than the thread's own chunk allocator. This instead issues the two
	// syscalls back-to-back with no Go-level read/write of the unmapped
	// region in between, which is the property that actually matters:
	// nothing observes memory after it has been released.
	ExitTail(chunkPtr, chunkSize, code uintptr, group bool)
}
