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

// Command fbtctl is a small harness for exercising the syscall
// authorization core outside of a real translated process: it can replay a
// canned sequence of syscalls through a dispatch table (simulate) or run a
// battery of internal consistency checks (selftest).
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/nebelwelt/fbt/pkg/config"
	"github.com/nebelwelt/fbt/pkg/fbtlog"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(new(simulateCmd), "")
	subcommands.Register(new(selftestCmd), "")
	subcommands.Register(new(describeCmd), "")

	cfg := config.Default()
	config.RegisterFlags(flag.CommandLine, cfg)
	configFile := flag.String("config", "", "path to a TOML file overlaying the default configuration")
	flag.Parse()

	if err := config.OverlayTOML(*configFile, cfg); err != nil {
		fbtlog.Warningf("could not read config file %s: %v", *configFile, err)
		os.Exit(1)
	}
	fbtlog.SetDebug(cfg.Debug)

	ctx := context.WithValue(context.Background(), configKey{}, cfg)
	os.Exit(int(subcommands.Execute(ctx)))
}

// configKey is the context key fbtctl's subcommands use to retrieve the
// resolved configuration.
type configKey struct{}

func configFromContext(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(configKey{}).(*config.Config)
	if cfg == nil {
		return config.Default()
	}
	return cfg
}
