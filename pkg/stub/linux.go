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

//go:build linux
// +build linux

package stub

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sys/unix"

	"github.com/nebelwelt/fbt/pkg/signaldisp"
)

// cloneRetryBudget bounds how long a transient clone(2) failure (the
// kernel briefly out of PIDs or address space under memory pressure) is
// retried before giving up and surfacing the error to the authorizer.
// A fresh translator thread is only a few hundred microseconds of work,
// so the budget is short.
func cloneRetryBudget() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Microsecond
	b.MaxInterval = 5 * time.Millisecond
	b.MaxElapsedTime = 50 * time.Millisecond
	return b
}

func isTransientCloneErrno(err error) bool {
	errno, ok := err.(unix.Errno)
	return ok && (errno == unix.EAGAIN || errno == unix.ENOMEM)
}

// Linux is the real Interface implementation: every method is a thin
// wrapper around a raw syscall, issued directly rather than through the Go
// runtime's own syscall package, mirroring how a translator's stub thread
// never goes through libc either.
type Linux struct{}

// NewLinux returns the real stub surface.
func NewLinux() *Linux { return &Linux{} }

// GetTID returns the calling OS thread's kernel tid.
func (l *Linux) GetTID() int32 {
	return int32(unix.Gettid())
}

// Mmap issues mmap(2) directly.
func (l *Linux) Mmap(addr, length, prot, flags, fd, offset uintptr) (uintptr, error) {
	r, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, length, prot, flags, fd, offset)
	if errno != 0 {
		return 0, errno
	}
	return r, nil
}

// Mmap2 issues mmap2(2) directly; offset is in page units.
func (l *Linux) Mmap2(addr, length, prot, flags, fd, pgoffset uintptr) (uintptr, error) {
	const sysMmap2 = 192
	r, _, errno := unix.Syscall6(sysMmap2, addr, length, prot, flags, fd, pgoffset)
	if errno != 0 {
		return 0, errno
	}
	return r, nil
}

// Munmap issues munmap(2) directly.
func (l *Linux) Munmap(addr, length uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, addr, length, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// RawClone issues clone(2) for the fork-like, CLONE_VM-clear case,
// retrying across a short backoff window if the kernel reports a
// transient resource shortage rather than a real failure.
func (l *Linux) RawClone(flags, a2, a3, a4, a5 uintptr) (uintptr, error) {
	var r uintptr
	op := func() error {
		var errno unix.Errno
		r, _, errno = unix.Syscall6(unix.SYS_CLONE, flags, a2, a3, a4, a5, 0)
		if errno != 0 {
			if isTransientCloneErrno(errno) {
				return errno
			}
			return backoff.Permanent(errno)
		}
		return nil
	}
	if err := backoff.Retry(op, cloneRetryBudget()); err != nil {
		return 0, err
	}
	return r, nil
}

// CloneThread issues clone(2) with a pre-patched child stack for the
// CLONE_VM-set, new-thread case. The caller is responsible for having
// already written the child's bootstrap arguments at the top of
// childStack; this call only performs the syscall. Transient failures
// are retried the same way RawClone retries them.
func (l *Linux) CloneThread(flags, childStack uintptr) (uintptr, error) {
	var r uintptr
	op := func() error {
		var errno unix.Errno
		r, _, errno = unix.Syscall6(unix.SYS_CLONE, flags, childStack, 0, 0, 0, 0)
		if errno != 0 {
			if isTransientCloneErrno(errno) {
				return errno
			}
			return backoff.Permanent(errno)
		}
		return nil
	}
	if err := backoff.Retry(op, cloneRetryBudget()); err != nil {
		return 0, err
	}
	return r, nil
}

// ExitTail munmaps the thread's own chunk and then exits, back-to-back.
func (l *Linux) ExitTail(chunkPtr, chunkSize, code uintptr, group bool) {
	unix.Syscall(unix.SYS_MUNMAP, chunkPtr, chunkSize, 0)
	nr := uintptr(unix.SYS_EXIT)
	if group {
		nr = uintptr(unix.SYS_EXIT_GROUP)
	}
	unix.Syscall(nr, code, 0, 0)
	panic(fmt.Sprintf("exit syscall %d returned", nr))
}

// InstallSigaction implements signaldisp.Installer by issuing the real
// rt_sigaction(2), always installing trampoline as the kernel-visible
// handler (or the guest's own SIG_IGN/SIG_DFL passthrough value).
func (l *Linux) InstallSigaction(sig int, trampoline uintptr, old *signaldisp.Disposition) error {
	var oldAct, newAct unix.Sigaction
	newAct.Handler = trampoline
	if err := unix.Sigaction(sig, &newAct, &oldAct); err != nil {
		return err
	}
	if old != nil {
		old.Handler = uintptr(oldAct.Handler)
		old.Flags = uint64(oldAct.Flags)
		old.Restorer = uintptr(oldAct.Restorer)
	}
	return nil
}

// QueryCurrent implements signaldisp.Installer by reading the kernel's
// current disposition without changing it.
func (l *Linux) QueryCurrent(sig int) (signaldisp.Disposition, error) {
	var act unix.Sigaction
	if err := unix.Sigaction(sig, nil, &act); err != nil {
		return signaldisp.Disposition{}, err
	}
	return signaldisp.Disposition{
		Handler:  uintptr(act.Handler),
		Flags:    uint64(act.Flags),
		Restorer: uintptr(act.Restorer),
	}, nil
}
