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
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nebelwelt/fbt/pkg/arch"
	"github.com/nebelwelt/fbt/pkg/signaldisp"
	"github.com/nebelwelt/fbt/pkg/verdict"
)

// guestSigaction is the guest-visible struct sigaction layout: a handler,
// a mask, flags, and a restorer address, in that order. arg2/arg3 of
// sigaction/rt_sigaction point at one of these in guest memory.
type guestSigaction struct {
	Handler  uintptr
	Mask     uint64
	Flags    uint64
	Restorer uintptr
}

func readGuestSigaction(addr uintptr) guestSigaction {
	return *(*guestSigaction)(unsafe.Pointer(addr))
}

func writeGuestSigaction(addr uintptr, d signaldisp.Disposition) {
	*(*guestSigaction)(unsafe.Pointer(addr)) = guestSigaction{
		Handler:  d.Handler,
		Mask:     d.Mask,
		Flags:    d.Flags,
		Restorer: d.Restorer,
	}
}

// AuthSignal implements the obsolete signal(2) as well as sigaction(2) and
// rt_sigaction(2): the guest's intended handler is recorded in the
// thread's shadow table and the kernel is told to install the
// translator's trampoline in its place, never the guest's handler
// directly. The old disposition returned to the guest is read out before
// the new one is installed, so a guest that inspects its own previous
// handler never observes a half-applied update.
func AuthSignal(tld *TLD, syscallNr uintptr, args arch.SyscallArguments, a6 *uintptr, isSysenter bool, retval *uintptr) verdict.Verdict {
	if syscallNr == unix.SYS_SIGNAL {
		return authSignalObsolete(tld, args, retval)
	}
	if syscallNr != unix.SYS_SIGACTION && syscallNr != unix.SYS_RT_SIGACTION {
		mustBe(syscallNr, unix.SYS_SIGACTION, "signal")
	}

	sig := int(args[0].Value)
	newPtr := args[1].Pointer()
	oldPtr := args[2].Pointer()

	*retval = 0

	// The old disposition must be captured before Install overwrites the
	// shadow slot, matching the guest-visible order: "tell me what it was,
	// then change it."
	if oldPtr != 0 {
		old := tld.Signals.Fetch(sig)
		writeGuestSigaction(oldPtr, old)
	}

	if newPtr != 0 {
		n := readGuestSigaction(newPtr)
		d := signaldisp.Disposition{
			Handler:  n.Handler,
			Mask:     n.Mask,
			Flags:    n.Flags,
			Restorer: n.Restorer,
		}
		if err := tld.Signals.Install(sig, d); err != nil {
			*retval = errnoEPERM
			return verdict.Emulated
		}
	}

	return verdict.Emulated
}

// authSignalObsolete implements the deprecated single-argument signal(2):
// arg1 is the signal number, arg2 is either a handler address or
// SIG_IGN/SIG_DFL. It returns the previous handler address as retval,
// exactly as signal(2) does, instead of filling a struct sigaction.
func authSignalObsolete(tld *TLD, args arch.SyscallArguments, retval *uintptr) verdict.Verdict {
	sig := int(args[0].Value)
	newHandler := args[1].Pointer()

	old := tld.Signals.Fetch(sig)

	d := signaldisp.Disposition{Handler: newHandler}
	if err := tld.Signals.Install(sig, d); err != nil {
		*retval = errnoEPERM
		return verdict.Emulated
	}

	*retval = old.Handler
	return verdict.Emulated
}
