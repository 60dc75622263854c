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
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/nebelwelt/fbt/pkg/abort"
	"github.com/nebelwelt/fbt/pkg/arch"
	"github.com/nebelwelt/fbt/pkg/region"
	"github.com/nebelwelt/fbt/pkg/stub"
	"github.com/nebelwelt/fbt/pkg/verdict"
)

func TestAuthCloneForkPassesStraightThrough(t *testing.T) {
	fake := stub.NewFake()
	fake.NextClonedPid = 4242
	tld := New(region.New(), nil, fake, Config{})

	var a6, retval uintptr
	args := arch.SyscallArguments{{Value: uintptr(unix.SIGCHLD)}}
	v := AuthClone(tld, unix.SYS_CLONE, args, &a6, false, &retval)
	require.Equal(t, verdict.Emulated, v)
	require.Equal(t, uintptr(4242), retval)
	require.Contains(t, fake.Calls, "clone")
}

func TestAuthCloneThreadPatchesChildStackAndBootstraps(t *testing.T) {
	origFactory, origAlloc := ChildTLDFactory, TrampolineAllocator
	defer func() { ChildTLDFactory, TrampolineAllocator = origFactory, origAlloc }()

	TrampolineAllocator = func(tld *TLD) (uintptr, error) { return 0xabcd000, nil }

	fake := stub.NewFake()
	fake.NextClonedPid = 77
	shared := NewSharedData()
	tld := New(region.New(), shared, fake, Config{})
	tld.SyscallLocation = 0x08048000
	tld.Bootstrap()

	stackBuf := make([]uintptr, 4)
	childStackTop := uintptr(unsafe.Pointer(&stackBuf[3])) + unsafe.Sizeof(uintptr(0))

	var a6, retval uintptr
	args := arch.SyscallArguments{
		{Value: uintptr(unix.CLONE_VM | unix.CLONE_THREAD | unix.CLONE_SIGHAND)},
		{Value: childStackTop},
	}
	v := AuthClone(tld, unix.SYS_CLONE, args, &a6, false, &retval)
	require.Equal(t, verdict.Emulated, v)
	require.Equal(t, uintptr(77), retval)

	patched := *(*uintptr)(unsafe.Pointer(childStackTop - unsafe.Sizeof(uintptr(0))))
	require.Equal(t, uintptr(0xabcd000), patched, "the child stack's top word must be patched to the trampoline")
	require.Contains(t, fake.Calls, "clone_thread")
	require.Equal(t, 2, shared.Threads.Len(), "the child TLD must be registered alongside the parent")
}

func TestAuthCloneThreadFromSysenterIsDenied(t *testing.T) {
	var suicided bool
	abort.Hook = func(string) { suicided = true }
	defer func() { abort.Hook = nil }()

	fake := stub.NewFake()
	tld := New(region.New(), nil, fake, Config{})

	var a6, retval uintptr
	args := arch.SyscallArguments{{Value: uintptr(unix.CLONE_VM)}}
	v := AuthClone(tld, unix.SYS_CLONE, args, &a6, true, &retval)
	require.Equal(t, verdict.Denied, v)
	require.True(t, suicided, "CLONE_VM from sysenter must abort")
}
