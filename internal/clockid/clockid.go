// Package clockid provides the default production implementations of the
// domain.Clock and domain.IDGenerator capabilities.
package clockid

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SystemClock returns wall-clock time in milliseconds since epoch.
type SystemClock struct{}

// Now implements domain.Clock.
func (SystemClock) Now() int64 {
	return time.Now().UnixMilli()
}

// AtomicIDGenerator hands out strictly increasing 64-bit identifiers seeded
// from the current time, so ids remain roughly sortable by creation order
// across process restarts without a central sequence.
type AtomicIDGenerator struct {
	counter int64
}

// NewAtomicIDGenerator seeds the generator from the current time in
// microseconds, leaving headroom for bursts within the same microsecond.
func NewAtomicIDGenerator() *AtomicIDGenerator {
	return &AtomicIDGenerator{counter: time.Now().UnixMicro() * 1000}
}

// NextID implements domain.IDGenerator.
func (g *AtomicIDGenerator) NextID() int64 {
	return atomic.AddInt64(&g.counter, 1)
}

// NewSessionID returns a fresh opaque session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// NewExecutionID returns a fresh opaque identifier for a ToolExecution when
// the caller doesn't already have an IDGenerator-issued int64 in scope.
func NewExecutionID() string {
	return uuid.NewString()
}
