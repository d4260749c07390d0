package yolodetect

import (
	"context"
	"sync"
)

// slot holds the single Model a Detector owns.  It is a channel with a
// capacity of one, receiving from it grants exclusive access to the Model
// and sending returns it.  A nil Model in the slot means unloaded.
type slot struct {
	models chan *Model
	close  sync.Once
}

// newSlot returns an empty slot available for acquisition
func newSlot() *slot {

	s := &slot{
		models: make(chan *Model, 1),
	}

	s.models <- nil

	return s
}

// acquire waits for exclusive access to the slot or until ctx is done
func (s *slot) acquire(ctx context.Context) (*Lease, error) {

	select {
	case m, ok := <-s.models:
		if !ok {
			return nil, newError(ModelNotLoaded, nil, "detector is closed")
		}
		return &Lease{slot: s, model: m}, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// shutdown closes the slot, the caller must hold the only Lease
func (s *slot) shutdown() {
	s.close.Do(func() {
		close(s.models)
	})
}

// Lease is exclusive access to a Detector's Model.  No detection, load or
// unload can run against the Detector until the Lease is released.
type Lease struct {
	slot    *slot
	model   *Model
	release sync.Once
	// closed is set when the Detector shut down under this Lease and the
	// slot must not be refilled
	closed bool
}

// Model returns the leased Model, or nil when the Detector is unloaded
func (l *Lease) Model() *Model {
	return l.model
}

// swap replaces the Model held by the slot once the Lease is released
func (l *Lease) swap(m *Model) {
	l.model = m
}

// Release returns the Model to the Detector.  It is safe to call more than
// once.
func (l *Lease) Release() {
	l.release.Do(func() {
		if l.closed {
			return
		}
		l.slot.models <- l.model
	})
}
