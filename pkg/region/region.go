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

// Package region implements the memory-region registry: the set of ranges
// the translator owns (T) and the set of ranges the guest has legitimately
// made executable (V).
package region

import (
	"fmt"
	"sync"

	"github.com/google/btree"
)

// Kind distinguishes why a range is recorded.
type Kind int

const (
	// TranslatorInternal is a range the translator allocated for its own
	// code cache, hash tables, signal stacks, etc. Any guest overlap is
	// fatal.
	TranslatorInternal Kind = iota
	// GuestExecutableValidated is a range the guest made executable
	// (typically a JIT) and which the translator has admitted.
	GuestExecutableValidated
)

// Range is an ordered memory region record.
type Range struct {
	Start uintptr
	Size  uintptr
	Kind  Kind
}

// End returns the exclusive end address of the range.
func (r Range) End() uintptr { return r.Start + r.Size }

// overlaps implements the standard max(start) < min(end) overlap
// predicate: two ranges intersect iff their latest start precedes their
// earliest end.
func overlaps(aStart, aSize, bStart, bSize uintptr) bool {
	aEnd := aStart + aSize
	bEnd := bStart + bSize
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	return lo < hi
}

// vItem is the btree.Item wrapping a V-set range, ordered by start address.
type vItem Range

func (a vItem) Less(than btree.Item) bool {
	return a.Start < than.(vItem).Start
}

// Registry is the translator-wide region registry. T is append-only and
// walked linearly, since in practice it only ever holds a handful of
// entries; V can grow for a long-running guest JIT and is kept in a B-tree
// ordered by start address, so an overlap query stops at the first entry
// that starts at or past the end of the queried range.
type Registry struct {
	mu sync.Mutex
	t  []Range
	v  *btree.BTree
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{v: btree.New(32)}
}

// AddTranslatorRange registers a range as translator-owned (T). Called at
// translator init and when clone allocates a bootstrap trampoline; T is
// append-only, ranges are never removed.
func (r *Registry) AddTranslatorRange(start, size uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t = append(r.t, Range{Start: start, Size: size, Kind: TranslatorInternal})
}

// OverlapsTranslator reports whether any byte of [start, start+size)
// intersects a range in T.
func (r *Registry) OverlapsTranslator(start, size uintptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tr := range r.t {
		if overlaps(start, size, tr.Start, tr.Size) {
			return true
		}
	}
	return false
}

// IsTranslatorRange reports whether p falls inside any T range.
func (r *Registry) IsTranslatorRange(p uintptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tr := range r.t {
		if p >= tr.Start && p < tr.End() {
			return true
		}
	}
	return false
}

// AdmitExecutable records [start, start+size) as guest-admitted executable
// (V). Must be published (this call must return) before the authorizer that
// triggered it returns GRANTED or EMULATED, so a racing thread can never
// observe the verdict without also observing the admitted range.
func (r *Registry) AdmitExecutable(start, size uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.v.ReplaceOrInsert(vItem{Start: start, Size: size, Kind: GuestExecutableValidated})
}

// OverlapsExecutable reports whether [start, start+size) intersects any
// range already admitted to V. Concurrent adds of the same range are
// idempotent (ReplaceOrInsert), so two racing threads admitting the same
// region never corrupt the set.
func (r *Registry) OverlapsExecutable(start, size uintptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := false
	// Any V entry starting before our end could still overlap, including
	// ones that start before start and extend past it; walk forwards from
	// the lowest entry and stop at the first one starting at or past our
	// end.
	r.v.AscendGreaterOrEqual(vItem{Start: 0}, func(it btree.Item) bool {
		e := it.(vItem)
		if e.Start >= start+size {
			return false
		}
		if overlaps(start, size, e.Start, e.Size) {
			found = true
			return false
		}
		return true
	})
	return found
}

// String renders the registry for diagnostics (used by the abort path when
// a violation is detected).
func (r *Registry) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("T=%d ranges, V=%d ranges", len(r.t), r.v.Len())
}
