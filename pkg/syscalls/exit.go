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
	"golang.org/x/sys/unix"

	"github.com/nebelwelt/fbt/pkg/abort"
	"github.com/nebelwelt/fbt/pkg/arch"
	"github.com/nebelwelt/fbt/pkg/fbtlog"
	"github.com/nebelwelt/fbt/pkg/verdict"
)

// FlushTransaction is called before teardown, giving the translator a
// chance to commit any outstanding code-cache bookkeeping (statistics,
// pending writes) while its own memory is still intact. Overridable by
// tests; the default is a no-op since this package owns no code cache of
// its own.
var FlushTransaction = func(tld *TLD) {}

// TeardownExceptLastChunk releases every translator-owned allocation
// except the one block the calling thread is still running on top of, and
// returns that block's address and size so the caller can unmap it in the
// same breath as the final exit syscall. The default frees nothing: it
// only returns the chunk recorded for this thread with TLD.SetLastChunk
// (0, 0 if none was recorded).
var TeardownExceptLastChunk = func(tld *TLD) (chunkPtr, chunkSize uintptr) {
	return tld.lastChunkPtr, tld.lastChunkSize
}

// AuthExit implements exit(2) and exit_group(2): unregister the calling
// thread, flush any pending translator bookkeeping, release everything
// except the final chunk of memory the thread is still executing on top
// of, and only then unmap that last chunk and actually exit — in that
// exact order, since unmapping the stack before the exit syscall runs
// would fault.
func AuthExit(tld *TLD, syscallNr uintptr, args arch.SyscallArguments, a6 *uintptr, isSysenter bool, retval *uintptr) verdict.Verdict {
	if syscallNr != unix.SYS_EXIT && syscallNr != unix.SYS_EXIT_GROUP {
		mustBe(syscallNr, unix.SYS_EXIT, "exit")
	}
	group := syscallNr == unix.SYS_EXIT_GROUP
	code := args[0].Value

	fbtlog.Debugf("thread exit (tid=%d, code=%d, group=%v)", tld.TID, code, group)

	if tld.Shared != nil {
		tld.Shared.Threads.Unregister(tld)
	}

	FlushTransaction(tld)

	chunkPtr, chunkSize := TeardownExceptLastChunk(tld)
	if chunkPtr == 0 {
		// No chunk recorded: there is nothing left to unmap, just exit.
		tld.Stub.ExitTail(0, 0, code, group)
		abort.Suicide("exit syscall did not terminate the thread")
		return verdict.Denied
	}

	// From here on, nothing may touch tld or any memory inside
	// [chunkPtr, chunkPtr+chunkSize): the next call unmaps it and exits in
	// the same breath, with no Go-level access to the released memory in
	// between.
	tld.Stub.ExitTail(chunkPtr, chunkSize, code, group)

	// ExitTail never returns on success; reaching here means the final
	// exit syscall itself failed, which this core treats as fatal.
	abort.Suicide("exit syscall did not terminate the thread")
	return verdict.Denied
}
