package callcontrol

import (
	"github.com/google/uuid"
	"github.com/havenline/callcore/internal/gossip"
	"github.com/havenline/callcore/internal/wire"
	"github.com/havenline/callcore/pkg/identity"
)

func (c *Controller) handleGossipSignal(sig gossip.GossipSubSignal) {
	switch sig.Kind {
	case gossip.GossipSubSignalPeer:
		c.handlePeerSignal(sig.CallID, sig.Sender, sig.Peer)
	case gossip.GossipSubSignalCall:
		c.handleCallSignal(sig.CallID, sig.Sender, sig.Call)
	case gossip.GossipSubSignalInitiation:
		c.handleInitiationSignal(sig.Sender, sig.Initiation)
	}
}

// handlePeerSignal dispatches SDP/ICE exchange carried on a peer-signal
// topic. Signals for any call but the active one, or from a sender outside
// that call's roster, are silently discarded.
func (c *Controller) handlePeerSignal(callID uuid.UUID, sender identity.PeerID, signal wire.PeerSignal) {
	if !c.isActive(callID) {
		return
	}
	entry, ok := c.calls.get(callID)
	if !ok || !entry.isRosterMember(sender) {
		return
	}

	switch signal.Kind {
	case wire.PeerSignalIce:
		if err := c.rtcCtl.RecvIce(sender, signal.Candidate); err != nil {
			c.logger.Warn("recv ice failed", "peer", sender, "err", err)
		}
	case wire.PeerSignalSdp:
		if err := c.rtcCtl.RecvSdp(sender, signal.SDP); err != nil {
			c.logger.Warn("recv sdp failed", "peer", sender, "err", err)
		}
	case wire.PeerSignalDial:
		c.linkRole[sender] = true
		if err := c.rtcCtl.AcceptCall(c.ctx, sender, signal.SDP); err != nil {
			c.logger.Warn("accept call failed", "peer", sender, "err", err)
		}
	}
}

// handleCallSignal dispatches a call-wide roster/state signal. Signals from
// a sender outside the named call's roster are silently discarded.
func (c *Controller) handleCallSignal(callID uuid.UUID, sender identity.PeerID, signal wire.CallSignal) {
	entry, ok := c.calls.get(callID)
	if !ok || !entry.isRosterMember(sender) {
		return
	}

	switch signal.Kind {
	case wire.CallSignalJoin:
		entry.state.Joined[sender] = struct{}{}
		if c.isActive(callID) {
			c.linkRole[sender] = false
			if err := c.rtcCtl.Dial(c.ctx, sender); err != nil {
				c.logger.Warn("dial failed", "peer", sender, "err", err)
				return
			}
			c.emit(Event{Kind: EventParticipantJoined, CallID: callID, Sender: sender})
		}

	case wire.CallSignalLeave:
		delete(entry.state.Joined, sender)
		active := c.isActive(callID)
		if active {
			c.rtcCtl.HangUp(sender)
			c.emit(Event{Kind: EventParticipantLeft, CallID: callID, Sender: sender})
		}
		if !active && len(entry.state.Joined) == 0 {
			c.calls.remove(callID)
			c.emit(Event{Kind: EventCallCancelled, CallID: callID})
		}

	case wire.CallSignalMuted, wire.CallSignalUnmuted:
		entry.state.participant(sender).Muted = signal.Kind == wire.CallSignalMuted
		if c.isActive(callID) {
			c.emitParticipantFlag(callID, sender, signal.Kind == wire.CallSignalMuted, EventParticipantMuted, EventParticipantUnmuted)
		}

	case wire.CallSignalDeafened, wire.CallSignalUndeafened:
		entry.state.participant(sender).Deafened = signal.Kind == wire.CallSignalDeafened
		if c.isActive(callID) {
			c.emitParticipantFlag(callID, sender, signal.Kind == wire.CallSignalDeafened, EventParticipantDeafened, EventParticipantUndeafened)
		}

	case wire.CallSignalRecording, wire.CallSignalNotRecording:
		entry.state.participant(sender).Recording = signal.Kind == wire.CallSignalRecording
		if c.isActive(callID) {
			c.emitParticipantFlag(callID, sender, signal.Kind == wire.CallSignalRecording, EventParticipantRecording, EventParticipantNotRecording)
		}
	}
}

func (c *Controller) emitParticipantFlag(callID uuid.UUID, sender identity.PeerID, set bool, onKind, offKind EventKind) {
	kind := offKind
	if set {
		kind = onKind
	}
	c.emit(Event{Kind: kind, CallID: callID, Sender: sender})
}

// handleInitiationSignal implements the Initiation{Offer} handler: the call
// is added to the map with sender recorded as its originator, and an
// IncomingCall event is emitted for the UI layer.
func (c *Controller) handleInitiationSignal(sender identity.PeerID, signal wire.InitiationSignal) {
	if signal.Kind != wire.InitiationSignalOffer {
		return
	}
	info := signal.Offer
	c.calls.put(info, sender)
	c.emit(Event{
		Kind:           EventIncomingCall,
		CallID:         info.CallID,
		ConversationID: info.ConversationID,
		Sender:         sender,
		Participants:   info.Participants,
	})
}
