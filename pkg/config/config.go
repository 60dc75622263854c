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

// Package config holds the syscall authorization core's runtime switches.
// The original translator turned these on and off with preprocessor build
// flags (AUTHORIZE_SYSCALLS, HANDLE_SIGNALS, HANDLE_THREADS, SHARED_DATA,
// SECU_ALLOW_RUNTIME_ALLOC, SLEEP_ON_FAIL, HIJACKCONTROL, DEBUG); this
// package turns them into one runtime struct, populated from flags and
// optionally overlaid from a TOML file, the same two-step process
// runsc/config uses for the sandbox runtime.
package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
)

// Config is the full set of runtime switches the syscall authorization
// core consults. All fields default to the production behavior of the
// original translator's default build.
//
// Only AllowRuntimeAlloc, Debug and PreloadLibraryName are read (by
// cmd/fbtctl). AuthorizeSyscalls, HandleSignals, HandleThreads, SharedData,
// SleepOnFail and HijackControl are parsed and stored, but no package in
// this module reads them: the dispatch table, signal, thread and exit
// authorizers are installed whatever their values.
type Config struct {
	// AuthorizeSyscalls gates whether the dispatch table runs at all; with
	// it false every syscall is passed straight to the kernel, useful only
	// for measuring the pure overhead of the surrounding binary
	// translation with authorization compiled out.
	AuthorizeSyscalls bool `toml:"authorize_syscalls"`

	// HandleSignals gates whether sigaction/rt_sigaction/signal get their
	// dedicated authorizer and thread-local shadow table, versus being
	// passed straight through (and thus never trampolined).
	HandleSignals bool `toml:"handle_signals"`

	// HandleThreads gates whether clone/exit/exit_group get their
	// dedicated authorizers.
	HandleThreads bool `toml:"handle_threads"`

	// SharedData gates whether threads in one process share a thread list
	// and region registry, versus each thread bootstrapping in isolation.
	SharedData bool `toml:"shared_data"`

	// AllowRuntimeAlloc gates whether a PROT_EXEC|MAP_ANONYMOUS mmap (or an
	// mprotect adding PROT_EXEC) is trusted and admitted to the executable
	// region set, rather than treated as suspicious.
	AllowRuntimeAlloc bool `toml:"allow_runtime_alloc"`

	// SleepOnFail gates whether SIGILL/SIGBUS/SIGSEGV get a handler that
	// prints a diagnostic and spins, so a debugger can attach post-mortem,
	// instead of the kernel's default fatal-signal behavior.
	SleepOnFail bool `toml:"sleep_on_fail"`

	// HijackControl gates whether the translator also intercepts its own
	// exit path to run cleanup hooks before the final exit syscall.
	HijackControl bool `toml:"hijack_control"`

	// Debug enables syscall argument tracing via the debug authorizer
	// instead of allow_syscall, and raises the log level.
	Debug bool `toml:"debug"`

	// PreloadLibraryName is the translator's own shared object name, the
	// one AuthExecve requires to remain present in LD_PRELOAD.
	PreloadLibraryName string `toml:"preload_library_name"`
}

// Default returns the production defaults: AuthorizeSyscalls,
// HandleSignals, HandleThreads and SharedData on; runtime allocation trust,
// SleepOnFail, HijackControl and debug tracing off.
func Default() *Config {
	return &Config{
		AuthorizeSyscalls:  true,
		HandleSignals:      true,
		HandleThreads:      true,
		SharedData:         true,
		AllowRuntimeAlloc:  false,
		SleepOnFail:        false,
		HijackControl:      false,
		Debug:              false,
		PreloadLibraryName: "libfastbt.so",
	}
}

// FlagSet is the subset of flag.FlagSet's API RegisterFlags needs, so
// callers can register these flags on either the standard library's
// flag.FlagSet or github.com/google/subcommands' wrapper around it.
type FlagSet interface {
	BoolVar(p *bool, name string, value bool, usage string)
	StringVar(p *string, name string, value string, usage string)
}

// RegisterFlags binds cfg's fields to command-line flags on fs, following
// the flat "one flag per field" style runsc/config uses.
func RegisterFlags(fs FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.AuthorizeSyscalls, "authorize-syscalls", cfg.AuthorizeSyscalls, "run every guest syscall through the dispatch table before the kernel sees it.")
	fs.BoolVar(&cfg.HandleSignals, "handle-signals", cfg.HandleSignals, "shadow the guest's signal dispositions behind a translator-owned trampoline.")
	fs.BoolVar(&cfg.HandleThreads, "handle-threads", cfg.HandleThreads, "give clone/exit/exit_group their dedicated authorizers.")
	fs.BoolVar(&cfg.SharedData, "shared-data", cfg.SharedData, "share the thread list and region registry across threads of one process.")
	fs.BoolVar(&cfg.AllowRuntimeAlloc, "allow-runtime-alloc", cfg.AllowRuntimeAlloc, "trust PROT_EXEC mmap/mprotect requests as legitimate runtime code generation.")
	fs.BoolVar(&cfg.SleepOnFail, "sleep-on-fail", cfg.SleepOnFail, "install spin-and-wait handlers for SIGILL/SIGBUS/SIGSEGV instead of the kernel default.")
	fs.BoolVar(&cfg.HijackControl, "hijack-control", cfg.HijackControl, "run translator cleanup hooks ahead of the final exit syscall.")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "trace syscall arguments instead of granting silently.")
	fs.StringVar(&cfg.PreloadLibraryName, "preload-library-name", cfg.PreloadLibraryName, "shared object name AuthExecve requires LD_PRELOAD to retain.")
}

// OverlayTOML reads a TOML file at path and overwrites any field it sets
// on cfg, leaving fields the file omits untouched. A missing file is not
// an error: it mirrors runsc's "flags are the source of truth unless a
// config file says otherwise" layering.
//
// Several translator instances sharing one orchestrator-managed config
// directory can start at once; a shared lock file next to path keeps a
// concurrent rewrite of the TOML from being read half-written. The lock is
// advisory: if it is not acquired within 200ms the file is read without it.
func OverlayTOML(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	lock := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	locked, err := lock.TryRLockContext(ctx, 5*time.Millisecond)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("locking %s: %w", path+".lock", err)
	}
	if locked {
		defer lock.Unlock()
	}

	_, err = toml.DecodeFile(path, cfg)
	return err
}
