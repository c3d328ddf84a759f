// Package graph defines the interfaces through which the bridge talks to
// the host audio graph: the object registry, the synchronization barrier,
// endpoint creation, and the real-time stream abstraction. The host's
// graph binding implements Conn; the bridge core consumes it. All events
// and callbacks are delivered from a single goroutine (the graph's event
// context), so implementations of the handler interfaces need no locking
// for state touched only from callbacks.
package graph

// EndpointID identifies an endpoint object bound in the audio graph.
// IDs are assigned by the graph when the object is bound and are opaque
// to the bridge.
type EndpointID uint32

// InvalidEndpointID is the reserved sentinel for "no id". It must never
// be inserted into an id set.
const InvalidEndpointID EndpointID = 0xffffffff

// Media classes the registry reports for audio endpoints.
const (
	ClassSink        = "Audio/Sink"
	ClassSinkVirtual = "Audio/Sink/Virtual"
	ClassSource      = "Audio/Source"
)

// EndpointInfo carries the registry metadata for an endpoint the bridge
// cares about.
type EndpointInfo struct {
	MediaClass string
}

// IsOutputClass reports whether the endpoint is an output (sink) class
// node, the only kind the reconciler tracks.
func (i EndpointInfo) IsOutputClass() bool {
	return i.MediaClass == ClassSink || i.MediaClass == ClassSinkVirtual
}

// EndpointConfig describes an endpoint object to create in the graph.
type EndpointConfig struct {
	Name        string
	Description string
	MediaClass  string
	Factory     string
	Format      AudioFormat
	Props       map[string]string
}

// Endpoint is a handle to an endpoint object this bridge created.
type Endpoint interface {
	// Destroy asks the graph to remove the endpoint. The graph confirms
	// asynchronously via EndpointHandler.Removed and a registry removal
	// event for the endpoint's id.
	Destroy()
}

// EndpointHandler receives lifecycle events for a created endpoint.
type EndpointHandler interface {
	// Bound is called once the graph has bound the endpoint and assigned
	// its id.
	Bound(id EndpointID)
	// Removed is called when the graph removes the endpoint, whether
	// because Destroy was called or independently.
	Removed()
}

// RegistryHandler receives add/remove events from the graph's object
// registry. The graph replays existing objects as EndpointAdded events
// when the handler is registered.
type RegistryHandler interface {
	EndpointAdded(id EndpointID, info EndpointInfo)
	EndpointRemoved(id EndpointID)
}

// SyncHandler receives barrier completions. A completion with a given
// sequence number guarantees that every registry event issued before the
// matching Sync call has been delivered.
type SyncHandler interface {
	SyncDone(seq int)
}

// StreamState is the lifecycle state of a stream.
type StreamState int

// Stream states, ordered roughly by lifecycle.
const (
	StreamUnconnected StreamState = iota
	StreamConnecting
	StreamPaused
	StreamStreaming
	StreamError
)

// String returns the state name for logging.
func (s StreamState) String() string {
	switch s {
	case StreamUnconnected:
		return "unconnected"
	case StreamConnecting:
		return "connecting"
	case StreamPaused:
		return "paused"
	case StreamStreaming:
		return "streaming"
	case StreamError:
		return "error"
	}
	return "unknown"
}

// Direction says which way audio flows through a stream, from the
// graph's point of view.
type Direction int

// Stream directions.
const (
	// DirectionInput: the graph delivers data to the bridge (playback).
	DirectionInput Direction = iota
	// DirectionOutput: the bridge produces data for the graph (capture).
	DirectionOutput
)

// Buffer is one quantum of audio exchanged with a stream. For
// graph-filled (playback) buffers, Offset and Size delimit the valid
// bytes within Data. For module-filled (capture) buffers, Requested is
// the number of frames the graph wants and the handler sets Size and
// Frames to what it produced. len(Data) is the buffer capacity and never
// changes.
type Buffer struct {
	Data      []byte
	Offset    int
	Size      int
	Requested int
	Frames    int
}

// Stream is a real-time audio stream connected to the graph.
type Stream interface {
	// Dequeue takes the next buffer from the stream, returning false
	// when none is available.
	Dequeue() (*Buffer, bool)
	// Queue returns a buffer to the stream after processing.
	Queue(b *Buffer)
	// Destroy disconnects and releases the stream.
	Destroy()
}

// StreamHandler receives real-time callbacks for one stream. Process is
// invoked on the graph's real-time path and must not allocate or block
// beyond the bridge's single documented suspension point (the capture
// ring read).
type StreamHandler interface {
	Process(s Stream)
	StateChanged(old, next StreamState, reason string)
}

// StreamConfig describes a stream to create.
type StreamConfig struct {
	Name      string
	Direction Direction
	Format    AudioFormat
	Props     map[string]string
}

// Conn is a connection to the audio graph daemon. Implementations must
// deliver all handler callbacks from a single goroutine.
type Conn interface {
	// AddRegistryHandler subscribes to registry add/remove events.
	// Existing objects are replayed as EndpointAdded calls.
	AddRegistryHandler(h RegistryHandler)

	// AddSyncHandler subscribes to barrier completions.
	AddSyncHandler(h SyncHandler)

	// Sync issues a synchronization barrier request and returns its
	// sequence number. prev is the previously returned sequence (0 for
	// the first request); passing it lets the graph chain barriers.
	// Completion is delivered to the sync handlers as SyncDone(seq).
	Sync(prev int) int

	// CreateEndpoint asks the graph to create an endpoint object.
	// Lifecycle events are delivered to h.
	CreateEndpoint(cfg EndpointConfig, h EndpointHandler) (Endpoint, error)

	// CreateStream creates and connects a stream with a fixed format.
	// Real-time callbacks are delivered to h.
	CreateStream(cfg StreamConfig, h StreamHandler) (Stream, error)
}
