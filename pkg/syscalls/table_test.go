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
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/nebelwelt/fbt/pkg/abort"
	"github.com/nebelwelt/fbt/pkg/arch"
	"github.com/nebelwelt/fbt/pkg/verdict"
)

func TestDeniedSyscallsAreNeverGranted(t *testing.T) {
	var suicided bool
	abort.Hook = func(string) { suicided = true }
	defer func() { abort.Hook = nil }()

	table := NewTable(false)
	for _, nr := range []uintptr{
		unix.SYS_PTRACE, unix.SYS_SIGRETURN, unix.SYS_RT_SIGRETURN,
		unusedSyscall1, unusedSyscall2, unusedSyscall3, setAltRootSyscall,
	} {
		require.NotNil(t, table.Lookup(nr))

		suicided = false
		var a6, retval uintptr
		v := table.Dispatch(nil, nr, arch.SyscallArguments{}, &a6, false, &retval)
		require.Equal(t, verdict.Denied, v, "syscall %d must be denied", nr)
		require.True(t, suicided, "denying syscall %d must abort", nr)
	}
}

func TestUnknownHighSyscallNumberIsDenied(t *testing.T) {
	var suicided bool
	abort.Hook = func(string) { suicided = true }
	defer func() { abort.Hook = nil }()

	table := NewTable(false)
	require.NotNil(t, table.Lookup(MaxSyscalls-1))

	var a6, retval uintptr
	v := table.Dispatch(nil, MaxSyscalls-1, arch.SyscallArguments{}, &a6, false, &retval)
	require.Equal(t, verdict.Denied, v)
	require.True(t, suicided)
}

func TestDedicatedAuthorizersAreWired(t *testing.T) {
	table := NewTable(false)
	cases := map[uintptr]Authorizer{
		unix.SYS_EXECVE:       AuthExecve,
		unix.SYS_MMAP:         AuthMmap,
		unix.SYS_MMAP2:        AuthMmap2,
		unix.SYS_MPROTECT:     AuthMprotect,
		unix.SYS_SIGACTION:    AuthSignal,
		unix.SYS_RT_SIGACTION: AuthSignal,
		unix.SYS_CLONE:        AuthClone,
		unix.SYS_EXIT:         AuthExit,
		unix.SYS_EXIT_GROUP:   AuthExit,
	}
	for nr, want := range cases {
		require.Equal(t, reflect.ValueOf(want).Pointer(), reflect.ValueOf(table.Lookup(nr)).Pointer(), "syscall %d", nr)
	}
}

func TestOverrideReplacesSlot(t *testing.T) {
	table := NewTable(false)
	called := false
	table.Override(unix.SYS_GETPID, func(tld *TLD, nr uintptr, args arch.SyscallArguments, a6 *uintptr, sysenter bool, retval *uintptr) verdict.Verdict {
		called = true
		return verdict.Granted
	})

	var a6, retval uintptr
	got := table.Dispatch(nil, unix.SYS_GETPID, arch.SyscallArguments{}, &a6, false, &retval)
	require.True(t, called)
	require.Equal(t, verdict.Granted, got)
}
