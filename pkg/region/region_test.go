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

package region

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOverlapsPredicate(t *testing.T) {
	cases := []struct {
		name                           string
		aStart, aSize, bStart, bSize   uintptr
		want                           bool
	}{
		{"disjoint, a before b", 0, 10, 20, 10, false},
		{"disjoint, touching edges", 0, 10, 10, 10, false},
		{"identical ranges", 5, 5, 5, 5, true},
		{"a contains b", 0, 100, 10, 5, true},
		{"partial overlap", 0, 10, 5, 10, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, overlaps(c.aStart, c.aSize, c.bStart, c.bSize))
			require.Equal(t, c.want, overlaps(c.bStart, c.bSize, c.aStart, c.aSize), "overlap must be symmetric")
		})
	}
}

func TestTranslatorRangeLookup(t *testing.T) {
	r := New()
	r.AddTranslatorRange(0x1000, 0x1000)
	r.AddTranslatorRange(0x5000, 0x100)

	require.True(t, r.OverlapsTranslator(0x1800, 0x10))
	require.False(t, r.OverlapsTranslator(0x2000, 0x10))
	require.True(t, r.IsTranslatorRange(0x1500))
	require.False(t, r.IsTranslatorRange(0x2500))
}

func TestExecutableRangeAdmission(t *testing.T) {
	r := New()
	r.AdmitExecutable(0x40000000, 0x1000)

	require.True(t, r.OverlapsExecutable(0x40000500, 0x10))
	require.False(t, r.OverlapsExecutable(0x50000000, 0x10))

	// Re-admitting an identical range is idempotent.
	r.AdmitExecutable(0x40000000, 0x1000)
	require.True(t, r.OverlapsExecutable(0x40000000, 0x1))
}

func TestConcurrentAdmission(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.AdmitExecutable(uintptr(i*0x1000), 0x1000)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		require.True(t, r.OverlapsExecutable(uintptr(i*0x1000), 1))
	}
}
