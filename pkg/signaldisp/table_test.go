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

package signaldisp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeInstaller struct {
	slots map[int]Disposition
}

func newFakeInstaller() *fakeInstaller {
	return &fakeInstaller{slots: make(map[int]Disposition)}
}

func (f *fakeInstaller) InstallSigaction(sig int, trampoline uintptr, old *Disposition) error {
	if old != nil {
		*old = f.slots[sig]
	}
	d := f.slots[sig]
	d.Handler = trampoline
	f.slots[sig] = d
	return nil
}

func (f *fakeInstaller) QueryCurrent(sig int) (Disposition, error) {
	return f.slots[sig], nil
}

func TestInstallTranslatesToTrampoline(t *testing.T) {
	installer := newFakeInstaller()
	table := New(installer, 0xfeedface)
	require.NoError(t, table.Init())

	require.NoError(t, table.Install(5, Disposition{Handler: 0x1234}))
	// The shadow table remembers the guest's real handler...
	require.Equal(t, uintptr(0x1234), table.Fetch(5).Handler)
	// ...but the kernel was told to install the trampoline, not 0x1234.
	require.Equal(t, uintptr(0xfeedface), installer.slots[5].Handler)
}

func TestSigIgnAndSigDflPassThrough(t *testing.T) {
	installer := newFakeInstaller()
	table := New(installer, 0xfeedface)

	require.NoError(t, table.Install(5, Disposition{Handler: SigIgn}))
	require.Equal(t, SigIgn, installer.slots[5].Handler)

	require.NoError(t, table.Install(6, Disposition{Handler: SigDfl}))
	require.Equal(t, SigDfl, installer.slots[6].Handler)
}

func TestFetchReturnsIndependentCopy(t *testing.T) {
	installer := newFakeInstaller()
	table := New(installer, 0xfeedface)
	require.NoError(t, table.Install(2, Disposition{Handler: 0x111}))

	got := table.Fetch(2)
	got.Handler = 0x222

	require.Equal(t, uintptr(0x111), table.Fetch(2).Handler, "mutating a fetched copy must not affect the table")
}

func TestOldDispositionObservedBeforeNewIsApplied(t *testing.T) {
	installer := newFakeInstaller()
	table := New(installer, 0xfeedface)
	require.NoError(t, table.Install(9, Disposition{Handler: 0xaaa}))

	old := table.Fetch(9)
	require.NoError(t, table.Install(9, Disposition{Handler: 0xbbb}))

	require.Equal(t, uintptr(0xaaa), old.Handler)
	require.Equal(t, uintptr(0xbbb), table.Fetch(9).Handler)
}
