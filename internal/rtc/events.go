package rtc

import (
	"github.com/havenline/callcore/pkg/identity"
	"github.com/pion/webrtc/v4"
)

// PeerState is the per-peer connection state machine:
//
//	[none] --connect--> WaitingForSdp --set_remote+create_answer--> WaitingForIce
//	                                \--recv_sdp (as caller)----------/
//	WaitingForIce --ice_connected--> Connected
//	* --failure|hangup--> Disconnected (removed)
type PeerState uint8

const (
	PeerStateWaitingForSdp PeerState = iota
	PeerStateWaitingForIce
	PeerStateConnected
	PeerStateDisconnected
)

func (s PeerState) String() string {
	switch s {
	case PeerStateWaitingForSdp:
		return "WaitingForSdp"
	case PeerStateWaitingForIce:
		return "WaitingForIce"
	case PeerStateConnected:
		return "Connected"
	case PeerStateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// EventKind tags the variant of an Event emitted on the controller's single
// broadcast stream.
type EventKind uint8

const (
	EventIce EventKind = iota
	EventSdp
	EventCallInitiated
	EventConnected
	EventDisconnected
	EventConnectionFailed
	EventConnectionClosed
	EventTrackAdded
)

// Event is the tagged union of everything the WebRTC Controller reports
// back to the Call Controller.
type Event struct {
	Kind EventKind
	Peer identity.PeerID

	Candidate string          // Ice
	SDP       string          // Sdp, CallInitiated
	Track     *webrtc.TrackRemote // TrackAdded
}
