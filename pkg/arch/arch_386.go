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

package arch

import "golang.org/x/sys/unix"

// Current returns the arch this binary was built for.
func Current() Arch { return X86 }

// TrapInstructionLen is the length, in bytes, of the trap instruction used
// to enter the kernel on this architecture ("int $0x80" or "sysenter"),
// matching the two-byte instruction fbt_syscall.c skips over when computing
// a clone child's resume PC.
const TrapInstructionLen = 2

// RawSyscall6 issues syscall nr with up to six arguments directly, without
// going through the Go runtime's syscall wrappers. This is the real
// implementation backing the low-level syscall stubs the translator
// platform supplies (fbt_mmap, fbt_sigaction, ...); a C translator
// open-codes each stub in inline asm, but Go can issue the trap itself.
func RawSyscall6(nr, a1, a2, a3, a4, a5, a6 uintptr) (ret uintptr, errno unix.Errno) {
	r, _, e := unix.RawSyscall6(nr, a1, a2, a3, a4, a5, a6)
	return r, e
}
