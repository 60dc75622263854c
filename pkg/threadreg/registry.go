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

// Package threadreg implements the thread-list bookkeeping: the set of live
// threads sharing one address space, protected by a single mutex, consulted
// on thread create/exit.
package threadreg

import (
	"sync"

	"github.com/nebelwelt/fbt/pkg/fbtlog"
)

// TLDHandle is the minimal identity a thread-local-data instance exposes to
// the registry: a stable key. The kernel tid is passed to Register
// alongside it.
type TLDHandle interface {
	// ID returns a value unique to this thread's TLD for the lifetime of
	// the thread; comparing IDs is how unregister finds its entry.
	ID() uintptr
}

type entry struct {
	next *entry
	tld  TLDHandle
	tid  int32
}

// Registry is the shared, per-address-space-group thread list. Its lifetime
// runs from the first thread's init to the last thread's exit.
type Registry struct {
	mu      sync.Mutex
	threads *entry
	count   int
}

// New returns an empty registry.
func New() *Registry { return &Registry{} }

// Register adds tld to the registry under the given kernel tid. The whole
// operation runs under the registry mutex, so register happens-before any
// other thread observing the new entry.
func (r *Registry) Register(tld TLDHandle, tid int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := &entry{tld: tld, tid: tid, next: r.threads}
	r.threads = e
	r.count++
}

// Unregister removes the entry whose tld matches. If no matching entry is
// found, a warning is logged but the process is not aborted: this path is
// reached from the exit authorizer, and a second unregister of an
// already-removed thread must not itself become a translator-safety
// violation.
func (r *Registry) Unregister(tld TLDHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var prev *entry
	for e := r.threads; e != nil; e = e.next {
		if e.tld.ID() == tld.ID() {
			if prev == nil {
				r.threads = e.next
			} else {
				prev.next = e.next
			}
			r.count--
			return
		}
		prev = e
	}
	fbtlog.Warningf("unregister: thread %d not found in registry", tld.ID())
}

// Len returns the number of currently registered threads.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Snapshot returns the kernel tids of all currently registered threads; the
// order carries no meaning and must not be relied on by callers.
func (r *Registry) Snapshot() []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int32, 0, r.count)
	for e := r.threads; e != nil; e = e.next {
		out = append(out, e.tid)
	}
	return out
}

// Contains reports whether tld is currently registered.
func (r *Registry) Contains(tld TLDHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for e := r.threads; e != nil; e = e.next {
		if e.tld.ID() == tld.ID() {
			return true
		}
	}
	return false
}
