package gossip

import (
	"github.com/google/uuid"
	"github.com/havenline/callcore/internal/wire"
	"github.com/havenline/callcore/pkg/identity"
)

// GossipSubSignalKind tags which variant of GossipSubSignal a value holds.
type GossipSubSignalKind uint8

const (
	GossipSubSignalCall GossipSubSignalKind = iota
	GossipSubSignalPeer
	GossipSubSignalInitiation
)

// GossipSubSignal is the tagged union the Listener actor forwards to the
// Call Controller's signal channel: one variant each for call-wide,
// per-peer, and call-initiation subscriptions.
type GossipSubSignal struct {
	Kind GossipSubSignalKind

	Sender identity.PeerID
	CallID uuid.UUID // zero value for Initiation signals

	Call        wire.CallSignal
	Peer        wire.PeerSignal
	Initiation  wire.InitiationSignal
}
