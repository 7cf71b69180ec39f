package source

import "github.com/wegman-software/osmpoi/internal/poi"

// Slice is an in-memory Source, mostly useful for tests and small batches
type Slice struct {
	entities []*poi.Entity
	pos      int

	failAfter int
	failErr   error
	err       error
	closed    bool
}

// NewSlice returns a Source over entities
func NewSlice(entities ...*poi.Entity) *Slice {
	return &Slice{entities: entities, pos: -1, failAfter: -1}
}

// FailAfter makes the source report err once n entities have been yielded
func (s *Slice) FailAfter(n int, err error) *Slice {
	s.failAfter = n
	s.failErr = err
	return s
}

func (s *Slice) Scan() bool {
	if s.err != nil || s.closed {
		return false
	}
	if s.failAfter >= 0 && s.pos+1 >= s.failAfter {
		s.err = s.failErr
		return false
	}
	if s.pos+1 >= len(s.entities) {
		return false
	}
	s.pos++
	return true
}

func (s *Slice) Entity() *poi.Entity {
	if s.pos < 0 || s.pos >= len(s.entities) {
		return nil
	}
	return s.entities[s.pos]
}

func (s *Slice) Err() error { return s.err }

func (s *Slice) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called
func (s *Slice) Closed() bool { return s.closed }
