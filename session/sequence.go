package session

import (
	"errors"
	"sync/atomic"
)

// ErrStale is returned when a newer request superseded the one in flight.
var ErrStale = errors.New("stale response discarded")

// Sequence fences overlapping fetches: each fetch takes a ticket from Next
// and may only publish its result while Latest(ticket) holds.
type Sequence struct {
	n atomic.Uint64
}

func (s *Sequence) Next() uint64 {
	return s.n.Add(1)
}

func (s *Sequence) Latest(ticket uint64) bool {
	return s.n.Load() == ticket
}
