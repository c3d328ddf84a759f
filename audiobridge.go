// Package audiobridge bridges a host audio graph with a single external
// peer process over a local stream socket, so a sandboxed environment
// can consume and produce audio as if it owned real hardware endpoints.
// It also guarantees the graph always has at least one output endpoint:
// a placeholder output is materialized while no real one exists and torn
// down as soon as one appears.
//
// The host's graph binding implements graph.Conn; the bridge consumes
// it. New connects the transport socket and creates the fixed-format
// playback and capture streams; Run drives the socket receive loop
// until the context is cancelled or a stream fails; Close tears
// everything down in order, including the background goroutine.
package audiobridge

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/audiobridge/graph"
	"github.com/zsiec/audiobridge/internal/reconcile"
	"github.com/zsiec/audiobridge/internal/relay"
	"github.com/zsiec/audiobridge/internal/ring"
)

// Bridge is the audio bridge module. Create it with New, drive it with
// Run, and release it with Close.
type Bridge struct {
	log  *slog.Logger
	opts Options

	conn   net.Conn
	ring   *ring.Buffer
	engine *relay.Engine
	rec    *reconcile.Reconciler

	playback graph.Stream
	capture  graph.Stream

	fatalCh   chan string
	closeOnce sync.Once
}

// New creates a Bridge on the given graph connection. It connects the
// peer socket, registers the reconciler with the registry, issues the
// initial barrier so the registry replay ends in a placeholder decision,
// and creates both relay streams. Any setup failure releases the
// partially constructed state and is returned to the caller; a bridge
// that failed to initialize does not exist. If log is nil,
// slog.Default() is used.
func New(g graph.Conn, opts Options, log *slog.Logger) (*Bridge, error) {
	if log == nil {
		log = slog.Default()
	}
	opts = opts.withDefaults()

	conn, err := net.Dial("unix", opts.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting audio socket %s: %w", opts.SocketPath, err)
	}

	b := &Bridge{
		log:     log.With("component", "bridge"),
		opts:    opts,
		conn:    conn,
		ring:    ring.New(opts.RingCapacity),
		fatalCh: make(chan string, 1),
	}
	b.engine = relay.New(conn, b.ring, b.streamFatal, log)

	b.rec = reconcile.New(g, opts.placeholderConfig(), log)
	g.AddRegistryHandler(b.rec)
	g.AddSyncHandler(b.rec)
	b.rec.Schedule()

	b.playback, err = g.CreateStream(graph.StreamConfig{
		Name:      opts.SinkName,
		Direction: graph.DirectionInput,
		Format:    opts.PlaybackFormat,
		Props:     b.streamProps(opts.SinkDescription, opts.PlaybackFormat, graph.ClassSink),
	}, b.engine.PlaybackHandler())
	if err != nil {
		b.teardown()
		return nil, fmt.Errorf("creating playback stream: %w", err)
	}

	b.capture, err = g.CreateStream(graph.StreamConfig{
		Name:      opts.SourceName,
		Direction: graph.DirectionOutput,
		Format:    opts.CaptureFormat,
		Props:     b.streamProps(opts.SourceDescription, opts.CaptureFormat, graph.ClassSource),
	}, b.engine.CaptureHandler(opts.CaptureFormat))
	if err != nil {
		b.teardown()
		return nil, fmt.Errorf("creating capture stream: %w", err)
	}

	b.log.Info("bridge ready",
		"socket", opts.SocketPath,
		"playback", formatString(opts.PlaybackFormat),
		"capture", formatString(opts.CaptureFormat),
	)
	return b, nil
}

// streamProps builds the node property dictionary for a stream.
func (b *Bridge) streamProps(description string, f graph.AudioFormat, class string) map[string]string {
	return map[string]string{
		"node.description":        description,
		"media.class":             class,
		"audio.rate":              fmt.Sprintf("%d", f.Rate),
		"audio.channels":          fmt.Sprintf("%d", f.Channels),
		"audio.position":          positionString(f.Position),
		"node.virtual":            "false",
		"monitor.channel-volumes": "true",
	}
}

func formatString(f graph.AudioFormat) string {
	return fmt.Sprintf("%s/%d/%dch", f.Format, f.Rate, f.Channels)
}

// streamFatal is the relay engine's fatal callback, invoked from the
// graph event context when either stream reports an error or
// disconnected state. A stream failure is fatal to the whole bridge.
func (b *Bridge) streamFatal(reason string) {
	select {
	case b.fatalCh <- reason:
	default:
	}
}

// Run drives the bridge: it runs the socket receive loop and watches
// for fatal stream failures. It blocks until ctx is cancelled (returns
// nil) or a stream fails (returns the failure). The caller still owns
// Close.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The receive loop also exits when Close closes the socket;
		// cancelling here releases the failure watcher either way.
		defer cancel()
		return b.engine.Run(ctx)
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-b.fatalCh:
			b.log.Error("stream failure, shutting down", "reason", reason)
			return fmt.Errorf("stream failure: %s", reason)
		}
	})

	return g.Wait()
}

// teardown releases everything New built, in reverse order. Closing the
// socket unblocks the receive loop; closing the ring unblocks a capture
// callback parked on it.
func (b *Bridge) teardown() {
	b.rec.Shutdown()
	if b.capture != nil {
		b.capture.Destroy()
		b.capture = nil
	}
	if b.playback != nil {
		b.playback.Destroy()
		b.playback = nil
	}
	b.conn.Close()
	b.ring.Close()
}

// Close tears the bridge down: the placeholder is destroyed, both
// streams are released, and the socket and ring are closed so the
// background goroutine and any blocked capture callback exit. Close is
// idempotent and must be called from the graph event context, like
// every other bridge entry point.
func (b *Bridge) Close() error {
	b.closeOnce.Do(b.teardown)
	return nil
}

// Stats returns a snapshot of bridge counters. Relay counters are
// atomics; the endpoint counts must be read from the graph event
// context.
func (b *Bridge) Stats() Stats {
	return Stats{
		Relay:          b.engine.Stats(),
		Outputs:        b.rec.Outputs(),
		OwnedOutputs:   b.rec.Owned(),
		HasPlaceholder: b.rec.HasPlaceholder(),
	}
}
