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

// Package ociboot reads the guest process description out of an OCI
// runtime bundle's config.json, the same document runsc takes from its
// container runtime caller, so fbtctl can exercise the authorization core
// against a process environment shaped like the one a real translated
// guest would start with instead of a hand-built one.
package ociboot

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// ProcessEnv is the guest process description this package extracts from
// an OCI bundle: just enough to drive AuthExecve's LD_PRELOAD check and
// to seed a simulated argv/envp.
type ProcessEnv struct {
	Args []string
	Env  []string
	Cwd  string
}

// Load reads an OCI runtime spec (config.json) at path and returns its
// process description.
func Load(path string) (*ProcessEnv, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OCI bundle config %s: %w", path, err)
	}
	defer f.Close()

	var spec specs.Spec
	if err := json.NewDecoder(f).Decode(&spec); err != nil {
		return nil, fmt.Errorf("decoding OCI bundle config %s: %w", path, err)
	}
	if spec.Process == nil {
		return nil, fmt.Errorf("OCI bundle config %s has no process", path)
	}
	return &ProcessEnv{
		Args: append([]string(nil), spec.Process.Args...),
		Env:  append([]string(nil), spec.Process.Env...),
		Cwd:  spec.Process.Cwd,
	}, nil
}

// HasPreload reports whether the process environment's LD_PRELOAD
// variable names library, exactly mirroring the entry-matching rule
// AuthExecve applies to a guest execve's envp.
func (p *ProcessEnv) HasPreload(library string) bool {
	const prefix = "LD_PRELOAD="
	for _, e := range p.Env {
		if !strings.HasPrefix(e, prefix) {
			continue
		}
		for _, entry := range strings.Split(e[len(prefix):], ":") {
			if entry == library || strings.HasSuffix(entry, "/"+library) {
				return true
			}
		}
	}
	return false
}
