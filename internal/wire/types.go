// Package wire defines the self-describing binary signal types exchanged
// over gossip topics and their CBOR encoding.
package wire

import (
	"github.com/google/uuid"
	"github.com/havenline/callcore/pkg/identity"
)

// CallSignal is the closed set of call-wide, AES-group-key encrypted signals
// broadcast on a call's call-wide topic.
type CallSignal struct {
	Kind CallSignalKind `cbor:"kind"`
}

// CallSignalKind is a tagged enumeration; exhaustive switches over it are
// expected at every call site per the no-inheritance design note.
type CallSignalKind uint8

const (
	CallSignalJoin CallSignalKind = iota
	CallSignalLeave
	CallSignalMuted
	CallSignalUnmuted
	CallSignalDeafened
	CallSignalUndeafened
	CallSignalRecording
	CallSignalNotRecording
)

// PeerSignal is the closed set of peer-directed, ECDH-encrypted signals
// carrying SDP/ICE exchange for a single WebRTC connection.
type PeerSignal struct {
	Kind      PeerSignalKind `cbor:"kind"`
	Candidate string         `cbor:"candidate,omitempty"`
	SDP       string         `cbor:"sdp,omitempty"`
}

// PeerSignalKind distinguishes the three PeerSignal variants.
type PeerSignalKind uint8

const (
	PeerSignalIce PeerSignalKind = iota
	PeerSignalSdp
	PeerSignalDial
)

// InitiationSignal is the closed set of signals carried on a peer's own
// call-initiation topic. Today it has exactly one variant, Offer, but is
// kept tagged rather than collapsed into a bare CallInfo so a future variant
// does not break wire compatibility.
type InitiationSignal struct {
	Kind  InitiationSignalKind `cbor:"kind"`
	Offer CallInfo             `cbor:"offer"`
}

// InitiationSignalKind tags the InitiationSignal variant.
type InitiationSignalKind uint8

const (
	InitiationSignalOffer InitiationSignalKind = iota
)

// CallInfo mirrors the immutable call metadata exchanged in an Offer,
// matching the CallInfo data model named in the call controller.
type CallInfo struct {
	CallID         uuid.UUID          `cbor:"call_id"`
	ConversationID *uuid.UUID         `cbor:"conversation_id,omitempty"`
	Participants   []identity.PeerID  `cbor:"participants"`
	GroupKey       [32]byte           `cbor:"group_key"`
}
