// Package graphtest provides a deterministic in-process fake of the
// audio graph for tests and examples. The fake delivers every handler
// callback synchronously from the calling goroutine, which stands in
// for the graph's single-threaded event context: tests drive events in
// exactly the order they want to exercise.
package graphtest

import (
	"github.com/zsiec/audiobridge/graph"
)

// Conn is a fake graph connection. Not safe for concurrent use; drive
// it from one goroutine, as the real graph drives its event context.
type Conn struct {
	registry []graph.RegistryHandler
	syncers  []graph.SyncHandler

	nextSeq      int
	pendingSeqs  []int
	syncRequests int

	endpoints []*Endpoint
	streams   []*Stream

	// EndpointErr and StreamErr, when set, make the corresponding
	// create call fail. Used to exercise resource-exhaustion paths.
	EndpointErr error
	StreamErr   error
}

// NewConn creates a fake graph connection.
func NewConn() *Conn {
	return &Conn{}
}

// AddRegistryHandler implements graph.Conn.
func (c *Conn) AddRegistryHandler(h graph.RegistryHandler) {
	c.registry = append(c.registry, h)
}

// AddSyncHandler implements graph.Conn.
func (c *Conn) AddSyncHandler(h graph.SyncHandler) {
	c.syncers = append(c.syncers, h)
}

// Sync implements graph.Conn: it records an outstanding barrier request
// and returns its sequence number. The test completes it with
// CompleteSync.
func (c *Conn) Sync(prev int) int {
	c.nextSeq++
	c.syncRequests++
	c.pendingSeqs = append(c.pendingSeqs, c.nextSeq)
	return c.nextSeq
}

// SyncRequests returns the total number of barrier requests issued,
// for coalescing assertions.
func (c *Conn) SyncRequests() int {
	return c.syncRequests
}

// PendingSyncs returns the number of barrier requests not yet completed.
func (c *Conn) PendingSyncs() int {
	return len(c.pendingSeqs)
}

// CompleteSync delivers the completion for the oldest outstanding
// barrier request to all sync handlers, reporting whether one was
// pending.
func (c *Conn) CompleteSync() bool {
	if len(c.pendingSeqs) == 0 {
		return false
	}
	seq := c.pendingSeqs[0]
	c.pendingSeqs = c.pendingSeqs[1:]
	for _, h := range c.syncers {
		h.SyncDone(seq)
	}
	return true
}

// AddGlobal delivers a registry "endpoint appeared" event.
func (c *Conn) AddGlobal(id graph.EndpointID, info graph.EndpointInfo) {
	for _, h := range c.registry {
		h.EndpointAdded(id, info)
	}
}

// RemoveGlobal delivers a registry "endpoint removed" event.
func (c *Conn) RemoveGlobal(id graph.EndpointID) {
	for _, h := range c.registry {
		h.EndpointRemoved(id)
	}
}

// CreateEndpoint implements graph.Conn. The endpoint stays unbound until
// the test calls Bind on it.
func (c *Conn) CreateEndpoint(cfg graph.EndpointConfig, h graph.EndpointHandler) (graph.Endpoint, error) {
	if c.EndpointErr != nil {
		return nil, c.EndpointErr
	}
	ep := &Endpoint{conn: c, Config: cfg, handler: h}
	c.endpoints = append(c.endpoints, ep)
	return ep, nil
}

// Endpoints returns every endpoint ever created, including destroyed
// ones.
func (c *Conn) Endpoints() []*Endpoint {
	return c.endpoints
}

// LastEndpoint returns the most recently created endpoint, or nil.
func (c *Conn) LastEndpoint() *Endpoint {
	if len(c.endpoints) == 0 {
		return nil
	}
	return c.endpoints[len(c.endpoints)-1]
}

// Endpoint is a fake endpoint object.
type Endpoint struct {
	conn    *Conn
	Config  graph.EndpointConfig
	handler graph.EndpointHandler

	id        graph.EndpointID
	bound     bool
	destroyed bool
}

// Bind assigns the endpoint its id, delivering the Bound callback and
// the registry appearance event the way the graph would.
func (e *Endpoint) Bind(id graph.EndpointID) {
	if e.bound || e.destroyed {
		return
	}
	e.id = id
	e.bound = true
	e.handler.Bound(id)
	e.conn.AddGlobal(id, graph.EndpointInfo{MediaClass: e.Config.MediaClass})
}

// Destroy implements graph.Endpoint: it delivers Removed and, if the
// endpoint was bound, the registry removal event.
func (e *Endpoint) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.handler.Removed()
	if e.bound {
		e.conn.RemoveGlobal(e.id)
	}
}

// Destroyed reports whether Destroy was called.
func (e *Endpoint) Destroyed() bool {
	return e.destroyed
}

// CreateStream implements graph.Conn.
func (c *Conn) CreateStream(cfg graph.StreamConfig, h graph.StreamHandler) (graph.Stream, error) {
	if c.StreamErr != nil {
		return nil, c.StreamErr
	}
	s := &Stream{Config: cfg, handler: h}
	c.streams = append(c.streams, s)
	return s, nil
}

// Streams returns every stream created on the connection.
func (c *Conn) Streams() []*Stream {
	return c.streams
}

// StreamByDirection returns the first stream with the given direction,
// or nil.
func (c *Conn) StreamByDirection(d graph.Direction) *Stream {
	for _, s := range c.streams {
		if s.Config.Direction == d {
			return s
		}
	}
	return nil
}

// Stream is a fake stream. Tests hand it a buffer and invoke the
// real-time callback with Process.
type Stream struct {
	Config  graph.StreamConfig
	handler graph.StreamHandler

	queue     []*graph.Buffer
	returned  []*graph.Buffer
	destroyed bool
}

// Dequeue implements graph.Stream.
func (s *Stream) Dequeue() (*graph.Buffer, bool) {
	if len(s.queue) == 0 {
		return nil, false
	}
	b := s.queue[0]
	s.queue = s.queue[1:]
	return b, true
}

// Queue implements graph.Stream.
func (s *Stream) Queue(b *graph.Buffer) {
	s.returned = append(s.returned, b)
}

// Destroy implements graph.Stream.
func (s *Stream) Destroy() {
	s.destroyed = true
}

// Destroyed reports whether Destroy was called.
func (s *Stream) Destroyed() bool {
	return s.destroyed
}

// Process makes b available for dequeue and invokes the handler's
// real-time callback, returning the buffer the handler queued back, or
// false if it kept the buffer (shutdown path).
func (s *Stream) Process(b *graph.Buffer) (*graph.Buffer, bool) {
	s.queue = append(s.queue, b)
	s.handler.Process(s)
	if len(s.returned) == 0 {
		return nil, false
	}
	out := s.returned[0]
	s.returned = s.returned[1:]
	return out, true
}

// ProcessEmpty invokes the callback with no buffer available.
func (s *Stream) ProcessEmpty() {
	s.handler.Process(s)
}

// ChangeState delivers a stream state transition to the handler.
func (s *Stream) ChangeState(old, next graph.StreamState, reason string) {
	s.handler.StateChanged(old, next, reason)
}

// Compile-time interface checks.
var (
	_ graph.Conn     = (*Conn)(nil)
	_ graph.Endpoint = (*Endpoint)(nil)
	_ graph.Stream   = (*Stream)(nil)
)
