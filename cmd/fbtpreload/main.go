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

// Command fbtpreload builds the LD_PRELOAD shared object a translated
// process loads ahead of libdl, overriding dlclose so loaded libraries are
// never unmapped out from under the code cache.
//
//	go build -buildmode=c-shared -o libfastbt.so ./cmd/fbtpreload
package main

import (
	_ "github.com/nebelwelt/fbt/pkg/dlshim"
)

// main is required by the c-shared build mode but never runs: the guest
// process only ever calls into this object's exported symbols.
func main() {}
