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

	"github.com/nebelwelt/fbt/pkg/arch"
	"github.com/nebelwelt/fbt/pkg/region"
	"github.com/nebelwelt/fbt/pkg/stub"
	"github.com/nebelwelt/fbt/pkg/verdict"
)

// buildEnvp lays out a NULL-terminated argv/envp-style array of C strings
// in normal Go memory and returns its address, for tests to hand to
// AuthExecve exactly as a guest's stack would.
func buildEnvp(t *testing.T, entries ...string) uintptr {
	t.Helper()
	cstrs := make([]uintptr, 0, len(entries))
	for _, e := range entries {
		b := append([]byte(e), 0)
		cstrs = append(cstrs, uintptr(unsafe.Pointer(&b[0])))
	}
	ptrs := make([]uintptr, len(cstrs)+1)
	copy(ptrs, cstrs)
	return uintptr(unsafe.Pointer(&ptrs[0]))
}

func TestAuthExecveGrantsWhenPreloadRetained(t *testing.T) {
	old := PreloadLibraryName
	PreloadLibraryName = "libfastbt.so"
	defer func() { PreloadLibraryName = old }()

	tld := New(region.New(), nil, stub.NewFake(), Config{})
	envp := buildEnvp(t, "PATH=/bin", "LD_PRELOAD=/opt/fbt/libfastbt.so", "HOME=/root")

	var a6, retval uintptr
	args := arch.SyscallArguments{{Value: 0}, {Value: 0}, {Value: envp}}
	v := AuthExecve(tld, unix.SYS_EXECVE, args, &a6, false, &retval)
	require.Equal(t, verdict.Granted, v)
}

func TestAuthExecveDeniesWhenPreloadDropped(t *testing.T) {
	old := PreloadLibraryName
	PreloadLibraryName = "libfastbt.so"
	defer func() { PreloadLibraryName = old }()

	tld := New(region.New(), nil, stub.NewFake(), Config{})
	envp := buildEnvp(t, "PATH=/bin", "HOME=/root")

	var a6, retval uintptr
	args := arch.SyscallArguments{{Value: 0}, {Value: 0}, {Value: envp}}
	v := AuthExecve(tld, unix.SYS_EXECVE, args, &a6, false, &retval)
	require.Equal(t, verdict.Emulated, v)
	require.Equal(t, errnoEPERM, retval)
}

func TestAuthExecveDeniesWhenPreloadReplaced(t *testing.T) {
	old := PreloadLibraryName
	PreloadLibraryName = "libfastbt.so"
	defer func() { PreloadLibraryName = old }()

	tld := New(region.New(), nil, stub.NewFake(), Config{})
	envp := buildEnvp(t, "LD_PRELOAD=/opt/evil/ld_evil.so")

	var a6, retval uintptr
	args := arch.SyscallArguments{{Value: 0}, {Value: 0}, {Value: envp}}
	v := AuthExecve(tld, unix.SYS_EXECVE, args, &a6, false, &retval)
	require.Equal(t, verdict.Emulated, v)
	require.Equal(t, errnoEPERM, retval)
}
