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

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/nebelwelt/fbt/pkg/abort"
	"github.com/nebelwelt/fbt/pkg/arch"
	"github.com/nebelwelt/fbt/pkg/region"
	"github.com/nebelwelt/fbt/pkg/stub"
)

func TestAuthExitUnregistersFlushesAndExitsInOrder(t *testing.T) {
	origFlush, origTeardown := FlushTransaction, TeardownExceptLastChunk
	defer func() { FlushTransaction, TeardownExceptLastChunk = origFlush, origTeardown }()
	// The fake ExitTail returns, so AuthExit's final abort must be caught.
	abort.Hook = func(string) {}
	defer func() { abort.Hook = nil }()

	var order []string
	FlushTransaction = func(tld *TLD) { order = append(order, "flush") }
	TeardownExceptLastChunk = func(tld *TLD) (uintptr, uintptr) {
		order = append(order, "teardown")
		return 0x09000000, 0x1000
	}

	fake := stub.NewFake()
	shared := NewSharedData()
	tld := New(region.New(), shared, fake, Config{})
	tld.Bootstrap()
	require.Equal(t, 1, shared.Threads.Len())

	var a6, retval uintptr
	args := arch.SyscallArguments{{Value: 0}}
	AuthExit(tld, unix.SYS_EXIT, args, &a6, false, &retval)

	require.Equal(t, 0, shared.Threads.Len(), "exit must unregister the thread")
	require.Equal(t, []string{"flush", "teardown"}, order, "flush must run before teardown releases everything but the last chunk")
	require.True(t, fake.ExitedCalled)
	require.False(t, fake.ExitedGroup)
	require.Len(t, fake.MunmapCalls, 1)
	require.Equal(t, uintptr(0x09000000), fake.MunmapCalls[0].Addr)
}

func TestAuthExitGroupSetsGroupFlag(t *testing.T) {
	origTeardown := TeardownExceptLastChunk
	defer func() { TeardownExceptLastChunk = origTeardown }()
	TeardownExceptLastChunk = func(tld *TLD) (uintptr, uintptr) { return 0x09001000, 0x2000 }
	abort.Hook = func(string) {}
	defer func() { abort.Hook = nil }()

	fake := stub.NewFake()
	tld := New(region.New(), nil, fake, Config{})

	var a6, retval uintptr
	AuthExit(tld, unix.SYS_EXIT_GROUP, arch.SyscallArguments{{Value: 7}}, &a6, false, &retval)

	require.True(t, fake.ExitedGroup)
	require.Equal(t, uintptr(7), fake.ExitedCode)
}
