package relay

import (
	"errors"

	"github.com/zsiec/audiobridge/graph"
	"github.com/zsiec/audiobridge/internal/ring"
)

// CaptureHandler returns the stream handler for the capture direction:
// the graph asks for source audio and the handler fills the buffer from
// the ring. The ring read blocks until the receive loop delivers data;
// this is the bridge's single suspension point and has no timeout, so a
// stalled peer stalls capture output until shutdown closes the ring.
func (e *Engine) CaptureHandler(format graph.AudioFormat) graph.StreamHandler {
	return &captureHandler{
		e:             e,
		bytesPerFrame: format.BytesPerFrame(),
	}
}

type captureHandler struct {
	e             *Engine
	bytesPerFrame int
}

func (h *captureHandler) Process(s graph.Stream) {
	e := h.e

	b, ok := s.Dequeue()
	if !ok {
		e.log.Debug("capture: out of buffers")
		return
	}

	want := b.Requested * h.bytesPerFrame
	if want <= 0 || want > len(b.Data) {
		want = len(b.Data)
	}

	// May copy fewer bytes than requested: only the contiguous run
	// before the ring's wrap point is taken per call.
	n, err := e.ring.ReadAvailable(b.Data[:want])
	if err != nil {
		if !errors.Is(err, ring.ErrClosed) {
			e.log.Error("capture read failed", "error", err)
		}
		return
	}

	b.Offset = 0
	b.Size = n
	b.Frames = n / h.bytesPerFrame

	e.stats.bytesDelivered.Add(int64(n))
	e.stats.framesDelivered.Add(1)

	s.Queue(b)
}

func (h *captureHandler) StateChanged(old, next graph.StreamState, reason string) {
	h.e.streamStateChanged("capture", old, next, reason)
}
