package sequence

import "sync/atomic"

// Sequencer issues strictly increasing write versions. The first version
// handed out by New(0) is 1, so 0 can mean "never written".
type Sequencer struct {
	last atomic.Uint64
}

func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

// Next returns a version greater than every version issued before.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued version.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}
