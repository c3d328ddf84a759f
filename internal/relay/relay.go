// Package relay implements the audio relay engine: the goroutine that
// drains the peer socket into the ring buffer, and the two real-time
// stream handlers that move audio between the graph's streams and the
// socket. The ring buffer is the only state shared between the socket
// goroutine and the graph's callback context.
package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/zsiec/audiobridge/graph"
	"github.com/zsiec/audiobridge/internal/ring"
	"github.com/zsiec/audiobridge/internal/wire"
)

// Engine owns the transport socket and the ring buffer hand-off. The
// playback handler writes the socket, the receive loop reads it; the
// two directions share no state beyond the ring.
type Engine struct {
	log  *slog.Logger
	conn net.Conn
	ring *ring.Buffer

	fatalOnce sync.Once
	onFatal   func(reason string)

	stats stats
}

// New creates an Engine over a connected peer socket. onFatal is invoked
// at most once, from the graph event context, when either stream reports
// an error or unconnected state. If log is nil, slog.Default() is used.
func New(conn net.Conn, rb *ring.Buffer, onFatal func(reason string), log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		log:     log.With("component", "relay"),
		conn:    conn,
		ring:    rb,
		onFatal: onFatal,
	}
}

// Run is the socket receive loop. It reads framed capture audio from the
// peer and appends the payload to the ring buffer, waking a capture
// callback blocked on it. Receive errors and protocol violations are
// logged and the loop continues; Run returns only when ctx is cancelled
// or the socket is closed for shutdown.
func (e *Engine) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		e.conn.Close()
	}()

	buf := make([]byte, wire.ReceiveBufSize)
	for {
		n, err := e.conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			e.stats.receiveErrors.Add(1)
			e.log.Error("failed to receive audio data", "error", err)
			continue
		}
		if n == 0 {
			e.stats.receiveErrors.Add(1)
			e.log.Error("zero-length read from peer socket")
			continue
		}

		payload, err := wire.CapturePayload(buf[:n])
		if err != nil {
			e.stats.framesDiscarded.Add(1)
			e.log.Error("discarding invalid frame", "error", err, "size", n)
			continue
		}

		e.ring.Append(payload)
		e.stats.bytesIn.Add(int64(len(payload)))
		e.stats.framesIn.Add(1)
	}
}

// fatal reports a fatal stream condition to the bridge exactly once.
func (e *Engine) fatal(reason string) {
	e.fatalOnce.Do(func() {
		e.onFatal(reason)
	})
}

// streamStateChanged implements the shared state-change policy for both
// handlers: an error or unconnected stream takes the whole bridge down.
func (e *Engine) streamStateChanged(name string, old, next graph.StreamState, reason string) {
	e.log.Debug("stream state changed",
		"stream", name, "old", old.String(), "new", next.String())

	switch next {
	case graph.StreamError, graph.StreamUnconnected:
		if reason == "" {
			reason = name + " stream " + next.String()
		}
		e.fatal(reason)
	}
}
