package audiobridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/zsiec/audiobridge/graph"
	"github.com/zsiec/audiobridge/internal/ring"
)

// DefaultSocketPath is the well-known path of the peer transport socket.
const DefaultSocketPath = "/run/audiobridge/audio.sock"

// Options configures a Bridge. The zero value is usable; New fills in
// defaults for unset fields. Audio formats are fixed at startup and
// never renegotiated.
type Options struct {
	// SocketPath is the filesystem path of the peer's stream socket.
	SocketPath string `json:"socket.path"`

	// SinkName and SinkDescription label the playback endpoint and the
	// placeholder output.
	SinkName        string `json:"sink.name"`
	SinkDescription string `json:"sink.description"`

	// SourceName and SourceDescription label the capture endpoint.
	SourceName        string `json:"source.name"`
	SourceDescription string `json:"source.description"`

	// RingCapacity is the hand-off buffer size in bytes.
	RingCapacity int `json:"buffer.size"`

	// PlaybackFormat and CaptureFormat are the fixed stream formats.
	PlaybackFormat graph.AudioFormat `json:"-"`
	CaptureFormat  graph.AudioFormat `json:"-"`
}

// ParseOptions parses free-form module arguments into Options. The args
// use the host graph's relaxed JSON dialect: comments and trailing
// commas are accepted. Empty args yield the zero Options (all defaults).
func ParseOptions(args string) (Options, error) {
	var o Options
	if strings.TrimSpace(args) == "" {
		return o, nil
	}
	if err := json.Unmarshal(jsonc.ToJSON([]byte(args)), &o); err != nil {
		return Options{}, fmt.Errorf("parsing module args: %w", err)
	}
	return o, nil
}

// withDefaults returns a copy of o with unset fields filled in.
func (o Options) withDefaults() Options {
	if o.SocketPath == "" {
		o.SocketPath = DefaultSocketPath
	}
	if o.SinkName == "" {
		o.SinkName = "Bridge Sink"
	}
	if o.SinkDescription == "" {
		o.SinkDescription = "Bridged audio output"
	}
	if o.SourceName == "" {
		o.SourceName = "Bridge Source"
	}
	if o.SourceDescription == "" {
		o.SourceDescription = "Bridged audio input"
	}
	if o.RingCapacity <= 0 {
		o.RingCapacity = ring.DefaultCapacity
	}
	if o.PlaybackFormat.Channels == 0 {
		o.PlaybackFormat = graph.StereoFormat()
	}
	if o.CaptureFormat.Channels == 0 {
		o.CaptureFormat = graph.MonoFormat()
	}
	return o
}

// placeholderConfig builds the endpoint description for the placeholder
// output materialized when no other output exists.
func (o Options) placeholderConfig() graph.EndpointConfig {
	return graph.EndpointConfig{
		Name:        o.SinkName,
		Description: o.SinkDescription,
		MediaClass:  graph.ClassSink,
		Factory:     "support.null-audio-sink",
		Format:      o.PlaybackFormat,
		Props: map[string]string{
			"node.virtual":            "false",
			"monitor.channel-volumes": "true",
		},
	}
}

// positionString renders a channel layout for node properties.
func positionString(pos []graph.ChannelPosition) string {
	names := make([]string, len(pos))
	for i, p := range pos {
		names[i] = string(p)
	}
	return strings.Join(names, ",")
}
