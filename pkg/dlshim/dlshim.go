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

// Package dlshim overrides the dynamic loader's dlclose so that a shared
// library, once loaded into a translated process, can never be unmapped.
// If a library were actually unmapped and a different one later mapped
// over the same address range, the code cache could still hold translated
// blocks pointing at addresses that now belong to the new library, and
// they would run without ever being re-authorized.
//
// This package is built as a C shared object (`go build -buildmode=c-shared`)
// named to match PreloadLibraryName, so it can sit in a guest's LD_PRELOAD
// ahead of the real libdl and intercept every dlclose call. dlsym,
// dlvsym, and dl_iterate_phdr are not intercepted.
package dlshim

// #include <stdlib.h>
import "C"

import (
	"sync/atomic"
	"unsafe"

	"github.com/nebelwelt/fbt/pkg/fbtlog"
)

// InterceptedCloses counts how many dlclose calls this shim has swallowed,
// for diagnostics.
var InterceptedCloses int64

//export dlclose
func dlclose(handle unsafe.Pointer) C.int {
	atomic.AddInt64(&InterceptedCloses, 1)
	fbtlog.Debugf("dlclose intercepted (handle=%p); library kept mapped", handle)
	return 0
}
