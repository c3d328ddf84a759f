package relay

import "sync/atomic"

// stats holds the engine's per-direction counters. Inbound covers the
// peer-to-graph (capture) path, outbound the graph-to-peer (playback)
// path.
type stats struct {
	bytesIn         atomic.Int64
	framesIn        atomic.Int64
	framesDiscarded atomic.Int64
	receiveErrors   atomic.Int64

	bytesOut      atomic.Int64
	framesOut     atomic.Int64
	framesDropped atomic.Int64
	sendErrors    atomic.Int64

	bytesDelivered  atomic.Int64
	framesDelivered atomic.Int64
}

// Stats is a point-in-time snapshot of relay counters, serialized as
// JSON for debug surfaces.
type Stats struct {
	BytesIn         int64 `json:"bytesIn"`
	FramesIn        int64 `json:"framesIn"`
	FramesDiscarded int64 `json:"framesDiscarded"`
	ReceiveErrors   int64 `json:"receiveErrors"`

	BytesOut      int64 `json:"bytesOut"`
	FramesOut     int64 `json:"framesOut"`
	FramesDropped int64 `json:"framesDropped"`
	SendErrors    int64 `json:"sendErrors"`

	BytesDelivered  int64 `json:"bytesDelivered"`
	FramesDelivered int64 `json:"framesDelivered"`
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		BytesIn:         e.stats.bytesIn.Load(),
		FramesIn:        e.stats.framesIn.Load(),
		FramesDiscarded: e.stats.framesDiscarded.Load(),
		ReceiveErrors:   e.stats.receiveErrors.Load(),
		BytesOut:        e.stats.bytesOut.Load(),
		FramesOut:       e.stats.framesOut.Load(),
		FramesDropped:   e.stats.framesDropped.Load(),
		SendErrors:      e.stats.sendErrors.Load(),
		BytesDelivered:  e.stats.bytesDelivered.Load(),
		FramesDelivered: e.stats.framesDelivered.Load(),
	}
}
