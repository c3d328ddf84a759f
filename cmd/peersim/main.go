// peersim stands in for the external peer process during development:
// it owns the audio socket, prints the playback frames the bridge sends,
// and can generate capture traffic for the bridge's source path.
//
// Usage:
//
//	peersim --socket /run/audiobridge/audio.sock --tone
//	peersim --echo   # loop playback audio back as capture audio
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/zsiec/audiobridge"
	"github.com/zsiec/audiobridge/internal/wire"
)

func main() {
	socket := pflag.String("socket", audiobridge.DefaultSocketPath, "unix socket path to listen on")
	tone := pflag.Bool("tone", false, "generate a sine tone as capture audio")
	freq := pflag.Float64("freq", 440, "tone frequency in Hz")
	echo := pflag.Bool("echo", false, "loop playback audio back as capture audio")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Remove(*socket)
	ln, err := net.Listen("unix", *socket)
	if err != nil {
		slog.Error("listen failed", "socket", *socket, "error", err)
		os.Exit(1)
	}
	defer ln.Close()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("peersim listening", "socket", *socket, "tone", *tone, "echo", *echo)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("accept error", "error", err)
			continue
		}
		slog.Info("bridge connected")
		handle(ctx, conn, *tone, *echo, *freq)
		slog.Info("bridge disconnected")
	}
}

// handle services one bridge connection until it closes or ctx is done.
func handle(ctx context.Context, conn net.Conn, tone, echo bool, freq float64) {
	defer conn.Close()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	if tone {
		go sendTone(connCtx, conn, freq)
	}

	var frames, bytes int64
	buf := make([]byte, wire.ReceiveBufSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if connCtx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				slog.Debug("read error", "error", err)
			}
			return
		}

		payload, err := wire.PlaybackPayload(buf[:n])
		if err != nil {
			slog.Warn("unexpected frame", "tag", buf[0], "size", n)
			continue
		}

		frames++
		bytes += int64(len(payload))
		if frames%100 == 1 {
			slog.Info("playback audio", "frames", frames, "bytes", bytes)
		}

		if echo {
			// Re-tag the playback payload as capture audio and send it
			// straight back.
			frame := make([]byte, 0, n)
			frame = append(frame, wire.TagCapture)
			frame = append(frame, payload...)
			if _, err := conn.Write(frame); err != nil {
				slog.Debug("echo write error", "error", err)
				return
			}
		}
	}
}

// sendTone streams a mono S16LE 48 kHz sine as capture frames, one
// 20 ms chunk per tick.
func sendTone(ctx context.Context, conn net.Conn, freq float64) {
	const (
		rate      = 48000
		chunkDur  = 20 * time.Millisecond
		chunk     = rate / 50 // samples per 20 ms
		amplitude = 0.3 * math.MaxInt16
	)

	frame := make([]byte, 1+chunk*2)
	frame[0] = wire.TagCapture

	ticker := time.NewTicker(chunkDur)
	defer ticker.Stop()

	var phase float64
	step := 2 * math.Pi * freq / rate
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for i := 0; i < chunk; i++ {
			s := int16(amplitude * math.Sin(phase))
			binary.LittleEndian.PutUint16(frame[1+2*i:], uint16(s))
			phase += step
			if phase > 2*math.Pi {
				phase -= 2 * math.Pi
			}
		}
		if _, err := conn.Write(frame); err != nil {
			slog.Debug("tone write error", "error", err)
			return
		}
	}
}
