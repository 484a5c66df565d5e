package media

import "github.com/havenline/callcore/pkg/identity"

// EventKind tags the variant of a pipeline Event.
type EventKind uint8

const (
	// EventLoudness carries an RMS loudness sample for VU metering.
	EventLoudness EventKind = iota
)

// Event is emitted by the pipeline for UI consumption, e.g. VU meters.
type Event struct {
	Kind    EventKind
	Peer    identity.PeerID // empty for the local source
	Loudness float64
}
