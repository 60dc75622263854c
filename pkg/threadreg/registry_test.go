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

package threadreg

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type handle struct{ id uintptr }

func (h *handle) ID() uintptr { return h.id }

func TestRegisterUnregisterRoundTrip(t *testing.T) {
	r := New()
	h1, h2 := &handle{1}, &handle{2}

	r.Register(h1, 100)
	r.Register(h2, 101)
	require.Equal(t, 2, r.Len())
	require.True(t, r.Contains(h1))
	require.True(t, r.Contains(h2))

	r.Unregister(h1)
	require.Equal(t, 1, r.Len())
	require.False(t, r.Contains(h1))
	require.True(t, r.Contains(h2))
}

func TestUnregisterUnknownThreadDoesNotPanic(t *testing.T) {
	r := New()
	require.NotPanics(t, func() {
		r.Unregister(&handle{99})
	})
	require.Equal(t, 0, r.Len())
}

func TestSnapshotOrderIsUnspecifiedButComplete(t *testing.T) {
	r := New()
	for i := int32(0); i < 5; i++ {
		r.Register(&handle{uintptr(i)}, 100+i)
	}
	snap := r.Snapshot()
	require.Len(t, snap, 5)
	seen := map[int32]bool{}
	for _, tid := range snap {
		seen[tid] = true
	}
	for i := int32(0); i < 5; i++ {
		require.True(t, seen[100+i])
	}
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	r := New()
	var g errgroup.Group
	var mu sync.Mutex
	handles := make([]*handle, 0, 100)

	for i := 0; i < 100; i++ {
		i := i
		g.Go(func() error {
			h := &handle{uintptr(i)}
			r.Register(h, int32(i))
			mu.Lock()
			handles = append(handles, h)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, 100, r.Len())

	for _, h := range handles {
		h := h
		g.Go(func() error {
			r.Unregister(h)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, 0, r.Len())
}
