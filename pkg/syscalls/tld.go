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
	"github.com/nebelwelt/fbt/pkg/region"
	"github.com/nebelwelt/fbt/pkg/signaldisp"
	"github.com/nebelwelt/fbt/pkg/stub"
	"github.com/nebelwelt/fbt/pkg/threadreg"
)

// SharedData is the single instance per address-space group: the thread
// list and the mutex protecting it. Its lifetime runs from the first
// thread's init to the last thread's exit.
type SharedData struct {
	Threads *threadreg.Registry
}

// NewSharedData allocates a fresh SharedData for a new address-space group.
func NewSharedData() *SharedData {
	return &SharedData{Threads: threadreg.New()}
}

// TLD is the thread-local data every guest thread owns. It is created at
// thread init, owned by the thread, and destroyed as the final act of exit
// (see AuthExit).
type TLD struct {
	// Shared is non-nil only when threads in this process share an
	// address space.
	Shared *SharedData

	// Table is this thread's syscall dispatch table, built once at thread
	// init by NewTable. New leaves it nil; the caller assigns it.
	Table *Table

	// Signals is this thread's signal-disposition shadow.
	Signals *signaldisp.Table

	// Regions is the process-wide T/V memory region registry. Unlike
	// Table and Signals, this is shared across all threads of the
	// process, but each TLD keeps a reference since authorizers are only
	// ever handed a *TLD.
	Regions *region.Registry

	// Stub is the low-level syscall stub surface the translator platform
	// supplies: fbt_mmap, fbt_sigaction, fbt_gettid, etc.
	Stub stub.Interface

	// SyscallLocation is the guest PC of the trapping instruction for the
	// syscall currently being authorized; used by the clone authorizer to
	// compute the child's resume PC.
	SyscallLocation uintptr

	// TID is this thread's kernel thread id, resolved at registration.
	TID int32

	// Config carries the build-time-flag-turned-runtime-switches that
	// authorizers consult (e.g. whether runtime code allocation is
	// trusted). Shared across every TLD in a process.
	Config Config

	// lastChunkPtr/lastChunkSize record the one translator-owned
	// allocation the thread is still running on top of, which AuthExit's
	// teardown step must unmap last, atomically with the exit syscall.
	lastChunkPtr  uintptr
	lastChunkSize uintptr

	// id is this TLD's stable identity for threadreg.TLDHandle.
	id uintptr
}

// SetLastChunk records the final translator-owned allocation backing this
// thread's own execution, to be released only as part of AuthExit's
// atomic unmap-then-exit tail.
func (t *TLD) SetLastChunk(ptr, size uintptr) {
	t.lastChunkPtr = ptr
	t.lastChunkSize = size
}

// ID implements threadreg.TLDHandle.
func (t *TLD) ID() uintptr { return t.id }

var nextTLDID uintptr = 1

// New allocates a fresh TLD. regions is shared process-wide; shared is
// non-nil when threads in this process share an address space.
func New(regions *region.Registry, shared *SharedData, stb stub.Interface, cfg Config) *TLD {
	t := &TLD{
		Regions: regions,
		Shared:  shared,
		Stub:    stb,
		Config:  cfg,
		id:      nextTLDID,
	}
	nextTLDID++
	return t
}

// Bootstrap registers this thread in the shared thread list, mirroring
// fbt_bootstrap_thread from the original source: resolve the kernel tid and
// prepend an entry under the registry mutex.
func (t *TLD) Bootstrap() {
	if t.Shared == nil {
		return
	}
	t.TID = t.Stub.GetTID()
	t.Shared.Threads.Register(t, t.TID)
}
