package callcontrol

import (
	"github.com/havenline/callcore/internal/rtc"
	"github.com/havenline/callcore/internal/wire"
	"github.com/havenline/callcore/pkg/identity"
	"github.com/pion/webrtc/v4"
)

func (c *Controller) handleRTCEvent(ev rtc.Event) {
	switch ev.Kind {
	case rtc.EventIce:
		c.sendPeerSignal(ev.Peer, wire.PeerSignal{Kind: wire.PeerSignalIce, Candidate: ev.Candidate})
	case rtc.EventSdp:
		c.sendPeerSignal(ev.Peer, wire.PeerSignal{Kind: wire.PeerSignalSdp, SDP: ev.SDP})
	case rtc.EventCallInitiated:
		c.sendPeerSignal(ev.Peer, wire.PeerSignal{Kind: wire.PeerSignalDial, SDP: ev.SDP})
	case rtc.EventConnected:
		c.handlePeerConnected(ev.Peer)
	case rtc.EventDisconnected, rtc.EventConnectionFailed:
		c.handlePeerDropped(ev.Peer)
	case rtc.EventTrackAdded:
		c.handleTrackAdded(ev.Peer, ev.Track)
	}
}

// sendPeerSignal ECDH-encrypts signal and publishes it on the active call's
// peer-signal topic for peer. WebRTC events only occur for the active
// call's connections, so the active call id is always known here.
func (c *Controller) sendPeerSignal(peer identity.PeerID, signal wire.PeerSignal) {
	if c.activeCall == nil {
		return
	}
	payload, err := wire.EncodePeerSignal(signal)
	if err != nil {
		c.logger.Error("encode peer signal failed", "peer", peer, "err", err)
		return
	}
	c.sender.SendECDH(peer, payload, c.peerTopic(peer))
}

// handlePeerConnected confirms peer is in the active call's roster; a
// connection from a peer that fell off the roster is hung up immediately.
func (c *Controller) handlePeerConnected(peer identity.PeerID) {
	if c.activeCall == nil {
		c.rtcCtl.HangUp(peer)
		return
	}
	entry, ok := c.calls.get(*c.activeCall)
	if !ok || !entry.isRosterMember(peer) {
		c.rtcCtl.HangUp(peer)
	}
}

// handlePeerDropped implements the Disconnected/ConnectionFailed handler:
// the peer is removed from the roster, its sink is torn down, and its
// connection is hung up.
func (c *Controller) handlePeerDropped(peer identity.PeerID) {
	c.pipeline.RemoveSink(peer)
	c.rtcCtl.HangUp(peer)
	delete(c.linkRole, peer)
	if c.activeCall == nil {
		return
	}
	if entry, ok := c.calls.get(*c.activeCall); ok {
		delete(entry.state.Joined, peer)
	}
}

// handleTrackAdded creates an Opus sink bound to the current output device
// for peer, unless peer has already fallen off the active call's roster —
// in that case the connection is hung up instead of creating a sink.
func (c *Controller) handleTrackAdded(peer identity.PeerID, track *webrtc.TrackRemote) {
	if c.activeCall == nil {
		c.rtcCtl.HangUp(peer)
		return
	}
	entry, ok := c.calls.get(*c.activeCall)
	if !ok || !entry.isRosterMember(peer) {
		c.rtcCtl.HangUp(peer)
		return
	}
	reader := remoteTrackReader{track: track}
	if err := c.pipeline.AddSink(peer, reader, int(rtc.DefaultCodec.ClockRate), rtc.DefaultCodec.Channels); err != nil {
		c.logger.Error("add sink failed", "peer", peer, "err", err)
	}
}
