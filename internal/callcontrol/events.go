package callcontrol

import (
	"github.com/google/uuid"
	"github.com/havenline/callcore/pkg/identity"
)

// EventKind tags the variant of an Event delivered on the controller's UI
// event stream.
type EventKind uint8

const (
	EventIncomingCall EventKind = iota
	EventParticipantJoined
	EventParticipantLeft
	EventCallCancelled
	EventCallTerminated
	EventParticipantMuted
	EventParticipantUnmuted
	EventParticipantDeafened
	EventParticipantUndeafened
	EventParticipantRecording
	EventParticipantNotRecording
	EventLoudness
)

// Event is the tagged union of everything the Call Controller reports to
// the UI layer.
type Event struct {
	Kind EventKind

	CallID         uuid.UUID
	ConversationID *uuid.UUID
	Sender         identity.PeerID
	Participants   []identity.PeerID
	Loudness       float64
}
