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

// Package verdict defines the three-valued decision a syscall authorizer
// returns to its caller.
package verdict

// Verdict is the outcome of running a guest syscall through an authorizer.
type Verdict int

const (
	// Granted means the caller should issue the real syscall with the
	// original arguments.
	Granted Verdict = iota

	// Denied means the caller must terminate the process; the authorizer
	// has already set the diagnostic in motion.
	Denied

	// Emulated means the authorizer has already produced the return value
	// the guest will observe; the caller must not enter the kernel.
	Emulated
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case Granted:
		return "GRANTED"
	case Denied:
		return "DENIED"
	case Emulated:
		return "EMULATED"
	default:
		return "UNKNOWN"
	}
}
