package graph

import "strings"

// SampleFormat is the sample encoding of a stream. Only 16-bit signed
// little-endian interleaved samples are supported; the format is fixed
// at stream creation and never renegotiated.
type SampleFormat int

// Supported sample formats.
const (
	FormatS16LE SampleFormat = iota
)

// String returns the short format name.
func (f SampleFormat) String() string {
	switch f {
	case FormatS16LE:
		return "S16LE"
	}
	return "unknown"
}

// BytesPerSample returns the storage size of one sample.
func (f SampleFormat) BytesPerSample() int {
	return 2
}

// ChannelPosition names a speaker position in a channel layout.
type ChannelPosition string

// Channel positions used by the fixed bridge formats.
const (
	ChannelMono       ChannelPosition = "MONO"
	ChannelFrontLeft  ChannelPosition = "FL"
	ChannelFrontRight ChannelPosition = "FR"
)

// AudioFormat is the negotiated format of a stream: sample encoding,
// rate, and channel layout. Fixed at construction.
type AudioFormat struct {
	Format   SampleFormat
	Rate     int
	Channels int
	Position []ChannelPosition
}

// BytesPerFrame returns the byte size of one interleaved frame
// (one sample per channel).
func (f AudioFormat) BytesPerFrame() int {
	return f.Format.BytesPerSample() * f.Channels
}

// ParsePosition parses a comma-separated channel position list such as
// "FL,FR" or "MONO". Empty elements are skipped.
func ParsePosition(s string) []ChannelPosition {
	var out []ChannelPosition
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, ChannelPosition(name))
	}
	return out
}

// StereoFormat returns the fixed playback-path format: S16LE, 48 kHz,
// front-left/front-right.
func StereoFormat() AudioFormat {
	return AudioFormat{
		Format:   FormatS16LE,
		Rate:     48000,
		Channels: 2,
		Position: []ChannelPosition{ChannelFrontLeft, ChannelFrontRight},
	}
}

// MonoFormat returns the fixed capture-path format: S16LE, 48 kHz, mono.
func MonoFormat() AudioFormat {
	return AudioFormat{
		Format:   FormatS16LE,
		Rate:     48000,
		Channels: 1,
		Position: []ChannelPosition{ChannelMono},
	}
}
