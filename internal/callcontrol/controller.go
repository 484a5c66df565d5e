// Package callcontrol implements the Call Controller (component E): the
// central reactor that owns the call registry and active-call identity and
// fuses user commands, decoded gossip signals, and WebRTC events into state
// transitions and outbound actions.
package callcontrol

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/havenline/callcore/internal/gossip"
	"github.com/havenline/callcore/internal/media"
	"github.com/havenline/callcore/internal/rtc"
	"github.com/havenline/callcore/pkg/identity"
	"github.com/pion/webrtc/v4"
)

// audioSourceID is the reserved media-source identifier for the microphone
// track created when a call becomes active.
const audioSourceID = "audio-input"

// remoteTrackReader adapts a *webrtc.TrackRemote to the narrow interface
// the audio pipeline depends on.
type remoteTrackReader struct {
	track *webrtc.TrackRemote
}

func (r remoteTrackReader) ReadRTP() ([]byte, error) {
	pkt, _, err := r.track.ReadRTP()
	if err != nil {
		return nil, err
	}
	return pkt.Payload, nil
}

// Controller is the Call Controller actor. One goroutine owns CallDataMap,
// the active-call slot, and handles to the other four actors; every other
// method is a message send to that goroutine.
type Controller struct {
	logger *slog.Logger

	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	shutdownOnce  sync.Once

	self         identity.PeerID
	sender       *gossip.Sender
	listener     *gossip.Listener
	rtcCtl       *rtc.Controller
	pipeline     *media.Pipeline
	sourceDevice media.SourceDevice

	calls      *CallDataMap
	activeCall *uuid.UUID

	// linkRole records, per peer with a live connection, whether self is the
	// callee of that bilateral link (true) or the caller (false). It decides
	// which peer-signal topic outbound SDP/ICE events are published on: the
	// callee side of a link always owns the topic, keyed by the callee's own
	// id, so a caller publishes on PeerTopic(callID, peer) and a callee
	// publishes on PeerTopic(callID, self).
	linkRole map[identity.PeerID]bool

	inbox  chan command
	Events chan Event
}

// NewController wires a Call Controller on top of an already-running
// Sender, Listener, WebRTC Controller, and Audio Pipeline, and starts its
// event loop and its own initiation-topic subscription.
func NewController(sender *gossip.Sender, listener *gossip.Listener, rtcCtl *rtc.Controller, pipeline *media.Pipeline, sourceDevice media.SourceDevice) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		ctx:           ctx,
		ctxCancelFunc: cancel,
		self:          sender.GetOwnID(),
		sender:        sender,
		listener:      listener,
		rtcCtl:        rtcCtl,
		pipeline:      pipeline,
		sourceDevice:  sourceDevice,
		calls:         newCallDataMap(),
		linkRole:      make(map[identity.PeerID]bool),
		inbox:         make(chan command, 64),
		Events:        make(chan Event, 256),
	}
	c.logger = slog.Default().With("component", "callcontrol.controller", "self", c.self)
	listener.ReceiveCalls(c.self)
	go c.run()
	return c
}

// Close shuts the reactor down: every pubsub subscription, peer connection,
// source track, sink track, and in-progress recording is released.
func (c *Controller) Close() {
	c.shutdownOnce.Do(func() {
		c.ctxCancelFunc()
	})
}

func (c *Controller) run() {
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return
		case cmd := <-c.inbox:
			c.handleCommand(cmd)
		case sig := <-c.listener.Signals:
			c.handleGossipSignal(sig)
		case ev := <-c.rtcCtl.Events:
			c.handleRTCEvent(ev)
		}
	}
}

func (c *Controller) shutdown() {
	c.rtcCtl.Deinit()
	c.pipeline.Close()
	c.listener.Close()
	c.logger.Debug("call controller shutting down")
}

func (c *Controller) emit(e Event) {
	select {
	case c.Events <- e:
	case <-c.ctx.Done():
	}
}

// isActive reports whether callID is the current active call.
func (c *Controller) isActive(callID uuid.UUID) bool {
	return c.activeCall != nil && *c.activeCall == callID
}

// teardownActive deinitializes every peer connection and resets the audio
// pipeline for the currently active call. The outgoing call's entry keeps
// its roster and joined state, but self's own Muted/Deafened/Recording
// flags are reset so they don't persist onto whatever call is activated
// next.
func (c *Controller) teardownActive() {
	if c.activeCall == nil {
		return
	}
	if entry, ok := c.calls.get(*c.activeCall); ok {
		entry.state.resetSelf(c.self)
	}
	c.rtcCtl.HangUpAll()
	c.pipeline.Reset()
	c.activeCall = nil
	c.linkRole = make(map[identity.PeerID]bool)
}

// connectPeerSignaling opens the peer-signal subscriptions a participant of
// callID needs: one for self (to receive SDP/ICE from whoever dials in) and
// one for every other participant (to receive replies from whoever self
// ends up dialing).
func (c *Controller) connectPeerSignaling(info CallInfo) {
	c.listener.ConnectWebRTC(info.CallID, c.self)
	for _, peer := range info.Participants {
		if peer == c.self {
			continue
		}
		c.listener.ConnectWebRTC(info.CallID, peer)
	}
}

// peerTopic returns the peer-signal topic for an outbound SDP/ICE event
// concerning peer, keyed by whichever side is this link's callee.
func (c *Controller) peerTopic(peer identity.PeerID) string {
	if c.linkRole[peer] {
		return gossip.PeerTopic(*c.activeCall, c.self)
	}
	return gossip.PeerTopic(*c.activeCall, peer)
}

// activateCall creates the microphone source track and makes callID the
// active call, tearing down whatever was active before.
func (c *Controller) activateCall(callID uuid.UUID) error {
	c.teardownActive()
	track, err := c.rtcCtl.AddMediaSource(audioSourceID, rtc.DefaultCodec)
	if err != nil {
		return fmt.Errorf("callcontrol: start media source: %w", err)
	}
	if err := c.pipeline.StartSource(c.sourceDevice, int(rtc.DefaultCodec.ClockRate), rtc.DefaultCodec.Channels, track); err != nil {
		if rmErr := c.rtcCtl.RemoveMediaSource(audioSourceID); rmErr != nil {
			c.logger.Error("rollback media source after start failure failed", "err", rmErr)
		}
		return fmt.Errorf("callcontrol: start audio source: %w", err)
	}
	c.activeCall = &callID
	return nil
}
