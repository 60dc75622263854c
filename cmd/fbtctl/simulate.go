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

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"golang.org/x/sys/unix"

	"github.com/nebelwelt/fbt/pkg/arch"
	"github.com/nebelwelt/fbt/pkg/region"
	"github.com/nebelwelt/fbt/pkg/signaldisp"
	"github.com/nebelwelt/fbt/pkg/stub"
	"github.com/nebelwelt/fbt/pkg/syscalls"
)

type simulateCmd struct {
	trace bool
}

func (*simulateCmd) Name() string     { return "simulate" }
func (*simulateCmd) Synopsis() string { return "replay a canned syscall sequence through the dispatch table" }
func (*simulateCmd) Usage() string {
	return "simulate [-trace]: issues mmap, mprotect, and sigaction through a fake stub and prints each verdict, then an mmap over translator memory, which aborts the process.\n"
}
func (c *simulateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.trace, "trace", false, "use the tracing (debug) authorizer for otherwise-allowed syscalls")
}

func (c *simulateCmd) Execute(ctx context.Context, f *flag.FlagSet, rest ...interface{}) subcommands.ExitStatus {
	cfg := configFromContext(ctx)

	fake := stub.NewFake()
	regions := region.New()
	regions.AddTranslatorRange(0x08000000, 0x10000)

	tld := syscalls.New(regions, nil, fake, syscalls.Config{AllowRuntimeAlloc: cfg.AllowRuntimeAlloc})
	tld.Table = syscalls.NewTable(c.trace || cfg.Debug)
	tld.Signals = signaldisp.New(fake, 0x08001000)
	if err := tld.Signals.Init(); err != nil {
		fmt.Printf("signal table init failed: %v\n", err)
		return subcommands.ExitFailure
	}

	step := func(name string, nr uintptr, args arch.SyscallArguments) {
		var a6, retval uintptr
		v := tld.Table.Dispatch(tld, nr, args, &a6, false, &retval)
		fmt.Printf("%-16s -> %s (retval=%#x)\n", name, v, retval)
	}

	step("mmap", unix.SYS_MMAP, arch.SyscallArguments{
		{Value: 0x20000000}, {Value: 0x1000}, {Value: unix.PROT_READ | unix.PROT_WRITE},
		{Value: unix.MAP_PRIVATE | unix.MAP_ANONYMOUS}, {Value: ^uintptr(0)}, {Value: 0},
	})
	step("mprotect", unix.SYS_MPROTECT, arch.SyscallArguments{
		{Value: 0x20000000}, {Value: 0x1000}, {Value: unix.PROT_READ | unix.PROT_EXEC},
	})
	step("sigaction", unix.SYS_SIGACTION, arch.SyscallArguments{
		{Value: uintptr(unix.SIGUSR1)}, {Value: 0}, {Value: 0},
	})
	step("mmap-over-bt", unix.SYS_MMAP, arch.SyscallArguments{
		{Value: 0x08000100}, {Value: 0x100}, {Value: unix.PROT_READ},
		{Value: unix.MAP_PRIVATE}, {Value: ^uintptr(0)}, {Value: 0},
	})

	return subcommands.ExitSuccess
}
