// Package idset provides the endpoint id membership sets the reconciler
// uses to track output endpoints: one for every output the graph
// reports, one for the outputs this bridge created itself.
package idset

import (
	"errors"

	"github.com/zsiec/audiobridge/graph"
)

// ErrInvalidID is returned when the reserved sentinel id is inserted.
var ErrInvalidID = errors.New("idset: invalid endpoint id")

// Set is a membership set of endpoint ids. Not safe for concurrent use:
// the reconciler touches its sets only from the graph event goroutine.
type Set struct {
	ids map[graph.EndpointID]struct{}
}

// New creates an empty Set.
func New() *Set {
	return &Set{ids: make(map[graph.EndpointID]struct{})}
}

// Add inserts id. Inserting an id already present is a no-op; inserting
// the invalid sentinel is an error.
func (s *Set) Add(id graph.EndpointID) error {
	if id == graph.InvalidEndpointID {
		return ErrInvalidID
	}
	s.ids[id] = struct{}{}
	return nil
}

// Remove deletes id, reporting whether it was present.
func (s *Set) Remove(id graph.EndpointID) bool {
	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	return true
}

// Contains reports membership.
func (s *Set) Contains(id graph.EndpointID) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of ids in the set.
func (s *Set) Len() int {
	return len(s.ids)
}
