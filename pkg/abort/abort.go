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

// Package abort implements the "suicide" path: the single, non-recoverable
// way the syscall authorization core responds to a translator-safety
// violation or a denied guest request.
package abort

import (
	"fmt"
	"os"

	"github.com/syndtr/gocapability/capability"

	"github.com/nebelwelt/fbt/pkg/fbtlog"
)

// Hook, when non-nil, is called instead of os.Exit by tests that need to
// observe a suicide without tearing down the test binary.
var Hook func(reason string)

// Suicide aborts the process immediately with a diagnostic string. There is
// no cleanup: a translator-safety violation means the translator can no
// longer trust its own state, and a denied guest request is treated as
// kill-on-sight. The diagnostic includes the caller's
// effective capability set, to help whoever attaches a debugger
// post-mortem tell a privileged-stub violation from an unprivileged one.
func Suicide(reason string) {
	fbtlog.Warningf("FATAL: %s", reason)
	if caps, err := capability.NewPid2(os.Getpid()); err == nil {
		if err := caps.Load(); err == nil {
			fbtlog.Warningf("capabilities at abort: effective=%s", capSummary(caps))
		}
	}
	if Hook != nil {
		Hook(reason)
		return
	}
	fmt.Fprintln(os.Stderr, "fbt: suicide:", reason)
	os.Exit(1)
}

func capSummary(caps capability.Capabilities) string {
	set := ""
	for _, c := range []capability.Cap{
		capability.CAP_SYS_PTRACE,
		capability.CAP_SYS_ADMIN,
		capability.CAP_NET_ADMIN,
		capability.CAP_SETUID,
	} {
		if caps.Get(capability.EFFECTIVE, c) {
			set += c.String() + ","
		}
	}
	if set == "" {
		return "(none of interest)"
	}
	return set
}
