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

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/nebelwelt/fbt/pkg/region"
	"github.com/nebelwelt/fbt/pkg/signaldisp"
	"github.com/nebelwelt/fbt/pkg/stub"
	"github.com/nebelwelt/fbt/pkg/threadreg"
)

type selftestCmd struct{}

func (*selftestCmd) Name() string     { return "selftest" }
func (*selftestCmd) Synopsis() string { return "run internal consistency checks" }
func (*selftestCmd) Usage() string {
	return "selftest: exercises the region registry, signal table, and thread registry without a guest process.\n"
}
func (*selftestCmd) SetFlags(f *flag.FlagSet) {}

func (c *selftestCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	checks := []struct {
		name string
		run  func() error
	}{
		{"region overlap", checkRegionOverlap},
		{"signal old/new ordering", checkSignalOrdering},
		{"thread registry round-trip", checkThreadRegistry},
	}

	failed := false
	for _, c := range checks {
		if err := c.run(); err != nil {
			fmt.Printf("FAIL %s: %v\n", c.name, err)
			failed = true
			continue
		}
		fmt.Printf("ok   %s\n", c.name)
	}
	if failed {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func checkRegionOverlap() error {
	r := region.New()
	r.AddTranslatorRange(0x1000, 0x1000)
	if !r.OverlapsTranslator(0x1800, 0x100) {
		return fmt.Errorf("expected overlap at 0x1800")
	}
	if r.OverlapsTranslator(0x3000, 0x100) {
		return fmt.Errorf("unexpected overlap at 0x3000")
	}
	r.AdmitExecutable(0x5000, 0x1000)
	if !r.OverlapsExecutable(0x5500, 0x10) {
		return fmt.Errorf("expected executable overlap at 0x5500")
	}
	return nil
}

func checkSignalOrdering() error {
	fake := stub.NewFake()
	table := signaldisp.New(fake, 0xdeadbeef)
	if err := table.Init(); err != nil {
		return err
	}
	first := signaldisp.Disposition{Handler: 0x1111}
	if err := table.Install(2, first); err != nil {
		return err
	}
	before := table.Fetch(2)
	if before.Handler != first.Handler {
		return fmt.Errorf("fetched handler %#x, want %#x", before.Handler, first.Handler)
	}
	second := signaldisp.Disposition{Handler: 0x2222}
	if err := table.Install(2, second); err != nil {
		return err
	}
	after := table.Fetch(2)
	if after.Handler != second.Handler {
		return fmt.Errorf("after install, handler %#x, want %#x", after.Handler, second.Handler)
	}
	return nil
}

func checkThreadRegistry() error {
	reg := threadreg.New()
	h := &fakeHandle{id: 1}
	reg.Register(h, 100)
	if reg.Len() != 1 {
		return fmt.Errorf("len = %d, want 1", reg.Len())
	}
	reg.Unregister(h)
	if reg.Len() != 0 {
		return fmt.Errorf("len = %d after unregister, want 0", reg.Len())
	}
	return nil
}

type fakeHandle struct{ id uintptr }

func (f *fakeHandle) ID() uintptr { return f.id }
