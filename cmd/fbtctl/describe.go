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

	"github.com/nebelwelt/fbt/pkg/ociboot"
)

// describeCmd loads an OCI runtime bundle's config.json and reports
// whether the process it describes would survive AuthExecve's LD_PRELOAD
// check, without actually running the guest.
type describeCmd struct {
	bundleConfig string
}

func (*describeCmd) Name() string     { return "describe" }
func (*describeCmd) Synopsis() string { return "inspect an OCI bundle's process environment" }
func (*describeCmd) Usage() string {
	return "describe -config <path/to/config.json>: reports the guest argv/envp an OCI bundle would start with, and whether LD_PRELOAD retains the translator's library.\n"
}
func (c *describeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.bundleConfig, "config", "", "path to an OCI runtime bundle's config.json")
}

func (c *describeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.bundleConfig == "" {
		fmt.Println("describe: -config is required")
		return subcommands.ExitUsageError
	}
	proc, err := ociboot.Load(c.bundleConfig)
	if err != nil {
		fmt.Printf("describe: %v\n", err)
		return subcommands.ExitFailure
	}

	cfg := configFromContext(ctx)
	fmt.Printf("argv: %v\n", proc.Args)
	fmt.Printf("cwd:  %s\n", proc.Cwd)
	if proc.HasPreload(cfg.PreloadLibraryName) {
		fmt.Printf("LD_PRELOAD retains %s: execve would be granted\n", cfg.PreloadLibraryName)
		return subcommands.ExitSuccess
	}
	fmt.Printf("LD_PRELOAD does not name %s: execve would be faked as failed (EMULATED)\n", cfg.PreloadLibraryName)
	return subcommands.ExitFailure
}
