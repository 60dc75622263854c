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

package stub

import (
	"sync"

	"github.com/nebelwelt/fbt/pkg/signaldisp"
)

// Fake is an in-memory Interface used by tests: it never issues a real
// syscall, and instead records calls so assertions can inspect ordering and
// arguments (the old/new sigaction atomicity property, the exit tail
// sequence, etc).
type Fake struct {
	mu sync.Mutex

	NextTID       int32
	NextMmapAddr  uintptr
	MmapErr       error
	CloneErr      error
	NextClonedPid uintptr

	dispositions [signaldisp.MaxSignals]signaldisp.Disposition

	Calls        []string
	MunmapCalls  []struct{ Addr, Length uintptr }
	ExitedCode   uintptr
	ExitedGroup  bool
	ExitedCalled bool
}

// NewFake returns an empty fake stub surface.
func NewFake() *Fake {
	f := &Fake{NextTID: 1, NextMmapAddr: 0x41410000}
	return f
}

func (f *Fake) record(call string) {
	f.Calls = append(f.Calls, call)
}

// GetTID returns a stable, incrementing fake tid.
func (f *Fake) GetTID() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("gettid")
	tid := f.NextTID
	f.NextTID++
	return tid
}

// Mmap returns NextMmapAddr, or MmapErr if set.
func (f *Fake) Mmap(addr, length, prot, flags, fd, offset uintptr) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("mmap")
	if f.MmapErr != nil {
		return 0, f.MmapErr
	}
	r := f.NextMmapAddr
	f.NextMmapAddr += length
	return r, nil
}

// Mmap2 behaves like Mmap.
func (f *Fake) Mmap2(addr, length, prot, flags, fd, pgoffset uintptr) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("mmap2")
	if f.MmapErr != nil {
		return 0, f.MmapErr
	}
	r := f.NextMmapAddr
	f.NextMmapAddr += length
	return r, nil
}

// Munmap records the call for later inspection.
func (f *Fake) Munmap(addr, length uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("munmap")
	f.MunmapCalls = append(f.MunmapCalls, struct{ Addr, Length uintptr }{addr, length})
	return nil
}

// RawClone returns NextClonedPid, or CloneErr if set.
func (f *Fake) RawClone(flags, a2, a3, a4, a5 uintptr) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("clone")
	if f.CloneErr != nil {
		return 0, f.CloneErr
	}
	return f.NextClonedPid, nil
}

// CloneThread behaves like RawClone.
func (f *Fake) CloneThread(flags, childStack uintptr) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("clone_thread")
	if f.CloneErr != nil {
		return 0, f.CloneErr
	}
	return f.NextClonedPid, nil
}

// ExitTail records that it was called instead of actually exiting, so tests
// can observe the munmap-then-exit ordering without killing the test
// binary.
func (f *Fake) ExitTail(chunkPtr, chunkSize, code uintptr, group bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("munmap")
	f.MunmapCalls = append(f.MunmapCalls, struct{ Addr, Length uintptr }{chunkPtr, chunkSize})
	f.record("exit")
	f.ExitedCode = code
	f.ExitedGroup = group
	f.ExitedCalled = true
}

// InstallSigaction implements signaldisp.Installer against the in-memory
// table, reporting the previous disposition via old exactly as the kernel
// would.
func (f *Fake) InstallSigaction(sig int, trampoline uintptr, old *signaldisp.Disposition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("sigaction")
	if old != nil {
		*old = f.dispositions[sig]
	}
	f.dispositions[sig].Handler = trampoline
	return nil
}

// QueryCurrent returns the in-memory disposition for sig.
func (f *Fake) QueryCurrent(sig int) (signaldisp.Disposition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dispositions[sig], nil
}
