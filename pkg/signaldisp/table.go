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

// Package signaldisp implements the per-thread signal-disposition table: the
// guest's intended signal handler is shadowed here, and the kernel only ever
// sees a translator-owned trampoline.
package signaldisp

import (
	"github.com/mohae/deepcopy"
	"golang.org/x/sys/unix"

	"github.com/nebelwelt/fbt/pkg/fbtlog"
)

// MaxSignals bounds the table at the fixed capacity the guest ABI allows.
const MaxSignals = 65

// Disposition is the guest-intended handler record.
type Disposition struct {
	Handler  uintptr
	Mask     uint64
	Flags    uint64
	Restorer uintptr
}

// Installer is the real kernel-facing installation primitive the translator
// platform supplies (fbt_sigaction/fbt_rt_sigaction/fbt_signal). The kernel
// is told to install the translator's own trampoline; the only guest
// handler values Installer ever sees are SIG_IGN and SIG_DFL, which Install
// passes straight through.
type Installer interface {
	InstallSigaction(sig int, trampoline uintptr, old *Disposition) error
	QueryCurrent(sig int) (Disposition, error)
}

// Table is the per-thread shadow disposition table.
type Table struct {
	slots     [MaxSignals]Disposition
	installer Installer
	// trampoline is the translator-owned handler address the kernel is
	// told to install for every signal, except SIG_IGN/SIG_DFL which pass
	// straight through since no translated code will ever run for them.
	trampoline uintptr
}

// New builds a table bound to the given installer and trampoline address.
func New(installer Installer, trampoline uintptr) *Table {
	return &Table{installer: installer, trampoline: trampoline}
}

// Init queries the kernel for each signal's current disposition and stores
// it, so the shadow table starts consistent with whatever the process
// inherited before the translator took over.
func (t *Table) Init() error {
	for sig := 0; sig < MaxSignals; sig++ {
		d, err := t.installer.QueryCurrent(sig)
		if err != nil {
			// Not every slot corresponds to a real signal on every
			// kernel; skip ones the kernel itself refuses to report.
			continue
		}
		t.slots[sig] = d
	}
	return nil
}

// InstallFailHandlers installs the hard-failure handlers for SIGILL,
// SIGBUS, and SIGSEGV used when the translator is configured to freeze
// instead of crash on an internal fault. fail is the trampoline address of
// the handler that prints and spins.
func (t *Table) InstallFailHandlers(fail uintptr) error {
	for _, sig := range []int{int(unix.SIGILL), int(unix.SIGBUS), int(unix.SIGSEGV)} {
		t.slots[sig].Handler = fail
		var old Disposition
		if err := t.installer.InstallSigaction(sig, fail, &old); err != nil {
			fbtlog.Warningf("could not install hard-failure handler for signal %d: %v", sig, err)
			return err
		}
	}
	return nil
}

// Fetch returns a defensive deep copy of the recorded disposition for sig,
// so a caller building the "old sigaction" the guest observes can never
// alias (and thus corrupt) the table's own copy.
func (t *Table) Fetch(sig int) Disposition {
	return deepcopy.Copy(t.slots[sig]).(Disposition)
}

// Install records the guest's intended disposition for sig and installs the
// translator's trampoline with the kernel, except when the guest's intent
// is SIG_IGN or SIG_DFL, in which case no translated code will ever run and
// the intent is passed straight through.
func (t *Table) Install(sig int, d Disposition) error {
	t.slots[sig] = d
	if d.Handler == SigIgn || d.Handler == SigDfl {
		return t.installer.InstallSigaction(sig, d.Handler, nil)
	}
	return t.installer.InstallSigaction(sig, t.trampoline, nil)
}

// Sentinel handler values matching the guest ABI's SIG_IGN/SIG_DFL.
const (
	SigDfl uintptr = 0
	SigIgn uintptr = 1
)
