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

// Package fbtlog is the default logger used throughout the syscall
// authorization core. It is a thin wrapper around logrus, mirroring the
// level split gvisor's own pkg/log exposes, plus a per-key rate limiter for
// hot, guest-triggerable log sites such as the debug authorizer.
package fbtlog

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var std = logrus.New()

func init() {
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// SetDebug toggles Debugf output. This is a runtime switch rather than a
// build-time flag, but it never gates correctness, only trace volume.
func SetDebug(enabled bool) {
	if enabled {
		std.SetLevel(logrus.DebugLevel)
	} else {
		std.SetLevel(logrus.InfoLevel)
	}
}

// Infof logs at info level.
func Infof(format string, args ...interface{}) { std.Infof(format, args...) }

// Warningf logs at warning level.
func Warningf(format string, args ...interface{}) { std.Warnf(format, args...) }

// Debugf logs at debug level; suppressed unless SetDebug(true) was called.
func Debugf(format string, args ...interface{}) { std.Debugf(format, args...) }

// KeyLimiter rate-limits repeated log lines keyed by an arbitrary string
// (typically a syscall name), so a guest that loops on a denied or traced
// syscall cannot flood the log. Modeled on the per-syscall "tracker" in
// gvisor's runsc/boot/compat.go, generalized with a token-bucket limiter
// instead of a bespoke once/argument tracker.
type KeyLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

// NewKeyLimiter returns a limiter allowing one log line per key every
// `every`, with the given burst.
func NewKeyLimiter(every time.Duration, burst int) *KeyLimiter {
	return &KeyLimiter{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(every),
		burst:    burst,
	}
}

// Allow reports whether a log line for key should be emitted now.
func (k *KeyLimiter) Allow(key string) bool {
	k.mu.Lock()
	l, ok := k.limiters[key]
	if !ok {
		l = rate.NewLimiter(k.every, k.burst)
		k.limiters[key] = l
	}
	k.mu.Unlock()
	return l.Allow()
}
