package relay

import (
	"github.com/zsiec/audiobridge/graph"
	"github.com/zsiec/audiobridge/internal/wire"
)

// PlaybackHandler returns the stream handler for the playback direction:
// the graph delivers sink audio, the handler frames it and performs one
// synchronous send to the peer per callback. Nothing is queued or
// coalesced; a failed send drops that callback's audio.
func (e *Engine) PlaybackHandler() graph.StreamHandler {
	return &playbackHandler{
		e:     e,
		frame: make([]byte, 0, wire.MaxFrameSize),
	}
}

type playbackHandler struct {
	e *Engine
	// frame is the reusable framing buffer; Process runs on the
	// real-time path and must not allocate per callback.
	frame []byte
}

func (h *playbackHandler) Process(s graph.Stream) {
	e := h.e

	b, ok := s.Dequeue()
	if !ok {
		e.log.Debug("playback: out of buffers")
		return
	}

	offs := min(b.Offset, len(b.Data))
	size := min(b.Size, len(b.Data)-offs)
	payload := b.Data[offs : offs+size]

	frame, err := wire.AppendPlayback(h.frame[:0], payload)
	if err != nil {
		e.stats.framesDropped.Add(1)
		e.log.Error("playback buffer too big", "size", size)
		s.Queue(b)
		return
	}
	h.frame = frame

	if _, err := e.conn.Write(frame); err != nil {
		e.stats.sendErrors.Add(1)
		e.log.Error("failed to send audio data", "error", err)
	} else {
		e.stats.bytesOut.Add(int64(size))
		e.stats.framesOut.Add(1)
	}

	s.Queue(b)
}

func (h *playbackHandler) StateChanged(old, next graph.StreamState, reason string) {
	h.e.streamStateChanged("playback", old, next, reason)
}
