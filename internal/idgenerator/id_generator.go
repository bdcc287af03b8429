// Package idgenerator provides concurrency-safe session ID generation.
package idgenerator

import "sync/atomic"

// IdGenerator generates monotonically increasing uint32 IDs in a
// concurrency-safe manner. The starting value is set at construction and the
// first Id() returns startValue+1.
type IdGenerator struct {
	id atomic.Uint32
}

// NewIdGenerator creates an IdGenerator whose first Id() returns startValue+1.
// The generator is safe for concurrent use.
func NewIdGenerator(startValue uint32) *IdGenerator {
	gen := &IdGenerator{}
	gen.id.Store(startValue)
	return gen
}

// Id returns the next unique ID by atomically incrementing the internal
// counter. It is safe for concurrent use by multiple goroutines.
func (g *IdGenerator) Id() uint32 {
	return g.id.Add(1)
}
