// Package wire defines the framing used on the peer transport socket:
// one tag byte distinguishing the two audio directions, followed by raw
// interleaved samples. The format is fixed by the peer contract and
// shared with the peer process verbatim.
package wire

import "errors"

// Frame tags. Every chunk on the socket starts with exactly one.
const (
	// TagPlayback prefixes module-to-peer frames carrying playback audio.
	TagPlayback byte = 0x01
	// TagCapture prefixes peer-to-module frames carrying capture audio.
	TagCapture byte = 0x02
)

// MaxFrameSize is the largest frame the outbound path may emit,
// tag byte included. Larger playback payloads are dropped, not split:
// the sender's framing buffer is sized to this bound.
const MaxFrameSize = 10239

// MaxPayloadSize is the largest playback payload that fits in a frame.
const MaxPayloadSize = MaxFrameSize - 1

// ReceiveBufSize is the read chunk size for the inbound socket loop,
// large enough to hold a maximum frame in one read.
const ReceiveBufSize = 10241

// Sentinel errors for framing violations.
var (
	ErrPayloadTooLarge = errors.New("wire: payload exceeds max frame size")
	ErrEmptyFrame      = errors.New("wire: empty frame")
	ErrUnexpectedTag   = errors.New("wire: unexpected frame tag")
)

// AppendPlayback appends a playback frame (TagPlayback + payload) to dst
// and returns the extended slice. Returns ErrPayloadTooLarge, with dst
// unchanged, if the framed payload would exceed MaxFrameSize.
func AppendPlayback(dst, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return dst, ErrPayloadTooLarge
	}
	dst = append(dst, TagPlayback)
	return append(dst, payload...), nil
}

// CapturePayload validates an inbound frame and returns its payload:
// the frame must begin with TagCapture. The returned slice aliases
// frame.
func CapturePayload(frame []byte) ([]byte, error) {
	return payload(frame, TagCapture)
}

// PlaybackPayload validates a playback frame as seen by the peer side
// and returns its payload. The returned slice aliases frame.
func PlaybackPayload(frame []byte) ([]byte, error) {
	return payload(frame, TagPlayback)
}

func payload(frame []byte, tag byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}
	if frame[0] != tag {
		return nil, ErrUnexpectedTag
	}
	return frame[1:], nil
}
