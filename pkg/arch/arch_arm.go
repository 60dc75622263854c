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

//go:build arm
// +build arm

package arch

import "golang.org/x/sys/unix"

// Current returns the arch this binary was built for.
func Current() Arch { return ARM }

// TrapInstructionLen is undefined on this stub architecture.
const TrapInstructionLen = 0

// RawSyscall6 is a stub on ARM: the clone/exit asm sequences this core
// relies on were never ported to ARM, and this preserves that as an
// explicit stub rather than guessing at the calling convention.
func RawSyscall6(nr, a1, a2, a3, a4, a5, a6 uintptr) (ret uintptr, errno unix.Errno) {
	return 0, unix.ENOSYS
}
