// Package mono provides monotonic-clock helpers, mirroring the teacher's
// cmn/mono package (mono.NanoTime, mono.Since, mono.SinceNano).
package mono

import "time"

var start = time.Now()

// NanoTime returns nanoseconds elapsed since process start, monotonic.
func NanoTime() int64 { return int64(time.Since(start)) }

// Since returns the duration elapsed since a NanoTime reading.
func Since(nanos int64) time.Duration { return time.Duration(NanoTime() - nanos) }

// SinceNano is Since expressed in nanoseconds, for counters that accumulate int64.
func SinceNano(nanos int64) int64 { return NanoTime() - nanos }
