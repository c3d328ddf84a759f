package audiobridge

import "github.com/zsiec/audiobridge/internal/relay"

// RelayStats re-exports the relay counter snapshot.
type RelayStats = relay.Stats

// Stats is a point-in-time snapshot of bridge state, serialized as JSON
// for debug surfaces.
type Stats struct {
	Relay          RelayStats `json:"relay"`
	Outputs        int        `json:"outputs"`
	OwnedOutputs   int        `json:"ownedOutputs"`
	HasPlaceholder bool       `json:"hasPlaceholder"`
}
