package callcontrol

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/havenline/callcore/internal/gossip"
	"github.com/havenline/callcore/internal/wire"
	"github.com/pion/webrtc/v4"
)

func (c *Controller) handleCommand(cmd command) {
	switch cmd.kind {
	case cmdOfferCall:
		cmd.reply <- commandReply{err: c.handleOfferCall(cmd.callInfo)}
	case cmdAnswerCall:
		cmd.reply <- commandReply{err: c.handleAnswerCall(cmd.callID)}
	case cmdLeaveCall:
		cmd.reply <- commandReply{err: c.handleLeaveCall(cmd)}
	case cmdMuteSelf:
		cmd.reply <- commandReply{err: c.handleMuteSelf(true)}
	case cmdUnmuteSelf:
		cmd.reply <- commandReply{err: c.handleMuteSelf(false)}
	case cmdSilenceCall:
		cmd.reply <- commandReply{err: c.handleSilenceCall(true)}
	case cmdUnsilenceCall:
		cmd.reply <- commandReply{err: c.handleSilenceCall(false)}
	case cmdRecordCall:
		cmd.reply <- commandReply{err: c.handleRecordCall(cmd.outputDir)}
	case cmdStopRecording:
		cmd.reply <- commandReply{err: c.handleStopRecording()}
	case cmdAddMediaSource:
		cmd.reply <- commandReply{err: c.handleAddMediaSource(cmd.sourceID, cmd.codec)}
	case cmdRemoveMediaSource:
		cmd.reply <- commandReply{err: c.rtcCtl.RemoveMediaSource(cmd.sourceID)}
	case cmdGetPendingCalls:
		cmd.reply <- commandReply{pendingCalls: c.calls.pending()}
	case cmdGetActiveCallInfo:
		cmd.reply <- c.handleGetActiveCallInfo()
	case cmdGetActiveCallState:
		cmd.reply <- c.handleGetActiveCallState()
	case cmdGetCallInfo:
		cmd.reply <- c.handleGetCallInfo(cmd.callID)
	case cmdChangeInputDevice:
		c.pipeline.ChangeInputDevice(cmd.inputDevice)
		cmd.reply <- commandReply{}
	case cmdChangeOutputDevice:
		c.pipeline.ChangeOutputDevice(cmd.outputDevice)
		cmd.reply <- commandReply{}
	}
}

// handleOfferCall implements offer_call: if a different call is active its
// webrtc session is torn down and the audio pipeline reset first; the new
// call is added to the map, a microphone source is created, the controller
// subscribes to the call-wide topic, and an ECDH offer is sent to every
// other participant's initiation topic.
func (c *Controller) handleOfferCall(info CallInfo) error {
	c.calls.put(info, "")
	if err := c.activateCall(info.CallID); err != nil {
		c.calls.remove(info.CallID)
		return err
	}
	c.listener.SubscribeCall(info.CallID, info.GroupKey)
	c.connectPeerSignaling(info)

	offer := wire.InitiationSignal{Kind: wire.InitiationSignalOffer, Offer: info}
	payload, err := wire.EncodeInitiationSignal(offer)
	if err != nil {
		return fmt.Errorf("callcontrol: encode offer: %w", err)
	}
	for _, peer := range info.Participants {
		if peer == c.self {
			continue
		}
		c.sender.SendECDH(peer, payload, gossip.InitiationTopic(peer))
	}
	return nil
}

// handleAnswerCall implements answer_call: joins a pending call, making it
// active, then broadcasts Join on the call-wide topic.
func (c *Controller) handleAnswerCall(callID uuid.UUID) error {
	entry, ok := c.calls.get(callID)
	if !ok {
		return ErrCallNotFound
	}
	if err := c.activateCall(callID); err != nil {
		return err
	}
	c.listener.SubscribeCall(callID, entry.info.GroupKey)
	c.connectPeerSignaling(entry.info)
	c.broadcastCallSignal(entry, wire.CallSignalJoin)
	return nil
}

// handleLeaveCall implements leave_call: defaults to the active call,
// broadcasts Leave, and drops the call from the map; if the call was active
// it also unsubscribes from its topics, tears down its webrtc session, and
// emits CallTerminated.
func (c *Controller) handleLeaveCall(cmd command) error {
	callID, ok := c.resolveCallID(cmd)
	if !ok {
		return nil
	}
	entry, ok := c.calls.get(callID)
	if !ok {
		return nil
	}
	c.broadcastCallSignal(entry, wire.CallSignalLeave)

	wasActive := c.isActive(callID)
	c.calls.remove(callID)
	if wasActive {
		c.listener.UnsubscribeCall(callID)
		c.teardownActive()
		c.emit(Event{Kind: EventCallTerminated, CallID: callID})
	}
	return nil
}

func (c *Controller) resolveCallID(cmd command) (uuid.UUID, bool) {
	if cmd.hasCallID {
		return cmd.callID, true
	}
	if c.activeCall == nil {
		return uuid.UUID{}, false
	}
	return *c.activeCall, true
}

// handleMuteSelf implements mute_self/unmute_self: pause or resume the
// outbound source track and broadcast the matching signal on the active
// call.
func (c *Controller) handleMuteSelf(muted bool) error {
	if c.activeCall == nil {
		return ErrCallNotInProgress
	}
	entry, ok := c.calls.get(*c.activeCall)
	if !ok {
		return ErrCallNotInProgress
	}
	c.pipeline.MuteSelf(muted)
	entry.state.participant(c.self).Muted = muted
	kind := wire.CallSignalUnmuted
	if muted {
		kind = wire.CallSignalMuted
	}
	c.broadcastCallSignal(entry, kind)
	return nil
}

// handleSilenceCall implements silence_call/unsilence_call: pause or resume
// every sink and broadcast the matching signal on the active call.
func (c *Controller) handleSilenceCall(deafened bool) error {
	if c.activeCall == nil {
		return ErrCallNotInProgress
	}
	entry, ok := c.calls.get(*c.activeCall)
	if !ok {
		return ErrCallNotInProgress
	}
	c.pipeline.SilenceCall(deafened)
	entry.state.participant(c.self).Deafened = deafened
	kind := wire.CallSignalUndeafened
	if deafened {
		kind = wire.CallSignalDeafened
	}
	c.broadcastCallSignal(entry, kind)
	return nil
}

// handleRecordCall implements record_call: initializes the MP4 logger for
// the active call's participants and broadcasts Recording.
func (c *Controller) handleRecordCall(outputDir string) error {
	if c.activeCall == nil {
		return ErrCallNotInProgress
	}
	entry, ok := c.calls.get(*c.activeCall)
	if !ok {
		return ErrCallNotInProgress
	}
	if err := c.pipeline.StartRecording(outputDir, entry.info.Participants); err != nil {
		return err
	}
	entry.state.participant(c.self).Recording = true
	c.broadcastCallSignal(entry, wire.CallSignalRecording)
	return nil
}

// handleStopRecording implements stop_recording: stops the logger (flushing
// and closing its files) and broadcasts NotRecording.
func (c *Controller) handleStopRecording() error {
	if c.activeCall == nil {
		return ErrCallNotInProgress
	}
	entry, ok := c.calls.get(*c.activeCall)
	if !ok {
		return ErrCallNotInProgress
	}
	if err := c.pipeline.StopRecording(); err != nil {
		return err
	}
	entry.state.participant(c.self).Recording = false
	c.broadcastCallSignal(entry, wire.CallSignalNotRecording)
	return nil
}

func (c *Controller) handleAddMediaSource(sourceID string, codec webrtc.RTPCodecCapability) error {
	_, err := c.rtcCtl.AddMediaSource(sourceID, codec)
	return err
}

func (c *Controller) handleGetActiveCallInfo() commandReply {
	if c.activeCall == nil {
		return commandReply{err: ErrCallNotInProgress}
	}
	entry, ok := c.calls.get(*c.activeCall)
	if !ok {
		return commandReply{err: ErrCallNotInProgress}
	}
	info := entry.info
	return commandReply{callInfo: &info}
}

func (c *Controller) handleGetActiveCallState() commandReply {
	if c.activeCall == nil {
		return commandReply{err: ErrCallNotInProgress}
	}
	entry, ok := c.calls.get(*c.activeCall)
	if !ok {
		return commandReply{err: ErrCallNotInProgress}
	}
	state := entry.state.clone()
	return commandReply{callState: &state}
}

func (c *Controller) handleGetCallInfo(callID uuid.UUID) commandReply {
	entry, ok := c.calls.get(callID)
	if !ok {
		return commandReply{err: ErrCallNotFound}
	}
	info := entry.info
	return commandReply{callInfo: &info}
}

// broadcastCallSignal AES-encrypts kind under entry's group key and
// publishes it to the call-wide topic.
func (c *Controller) broadcastCallSignal(entry *callEntry, kind wire.CallSignalKind) {
	payload, err := wire.EncodeCallSignal(wire.CallSignal{Kind: kind})
	if err != nil {
		c.logger.Error("encode call signal failed", "kind", kind, "err", err)
		return
	}
	c.sender.SendAES(entry.info.GroupKey, payload, gossip.CallTopic(entry.info.CallID))
}
