package result

import "sync/atomic"

// IDGenerator hands out increasing detection IDs, it is safe for concurrent
// use and is shared between requests so IDs stay unique for a Detector
type IDGenerator struct {
	id atomic.Int64
}

// NewIDGenerator returns a generator whose first ID is 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next ID
func (g *IDGenerator) GetNext() int64 {
	return g.id.Add(1)
}
