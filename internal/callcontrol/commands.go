package callcontrol

import (
	"github.com/google/uuid"
	"github.com/havenline/callcore/internal/media"
	"github.com/pion/webrtc/v4"
)

type commandKind uint8

const (
	cmdOfferCall commandKind = iota
	cmdAnswerCall
	cmdLeaveCall
	cmdMuteSelf
	cmdUnmuteSelf
	cmdSilenceCall
	cmdUnsilenceCall
	cmdRecordCall
	cmdStopRecording
	cmdAddMediaSource
	cmdRemoveMediaSource
	cmdGetPendingCalls
	cmdGetActiveCallInfo
	cmdGetActiveCallState
	cmdGetCallInfo
	cmdChangeInputDevice
	cmdChangeOutputDevice
)

type command struct {
	kind commandKind

	callInfo  CallInfo
	callID    uuid.UUID
	hasCallID bool // LeaveCall(nil) defaults to the active call

	outputDir string

	sourceID string
	codec    webrtc.RTPCodecCapability

	inputDevice  media.SourceDevice
	outputDevice media.SinkDevice

	reply chan commandReply
}

type commandReply struct {
	err error

	pendingCalls []CallInfo
	callInfo     *CallInfo
	callState    *CallState
}

// OfferCall creates call_id, subscribes to its gossip topics, starts the
// microphone source track, and sends an ECDH offer to every other
// participant.
// If a different call is currently active, it is torn down first.
func (c *Controller) OfferCall(info CallInfo) error {
	return c.do(command{kind: cmdOfferCall, callInfo: info})
}

// AnswerCall joins a pending call, making it the active call.
func (c *Controller) AnswerCall(callID uuid.UUID) error {
	return c.do(command{kind: cmdAnswerCall, callID: callID})
}

// LeaveCall leaves callID, or the active call if callID is nil.
func (c *Controller) LeaveCall(callID *uuid.UUID) error {
	cmd := command{kind: cmdLeaveCall}
	if callID != nil {
		cmd.callID = *callID
		cmd.hasCallID = true
	}
	return c.do(cmd)
}

// MuteSelf pauses the outbound source track and broadcasts Muted.
func (c *Controller) MuteSelf() error { return c.do(command{kind: cmdMuteSelf}) }

// UnmuteSelf resumes the outbound source track and broadcasts Unmuted.
func (c *Controller) UnmuteSelf() error { return c.do(command{kind: cmdUnmuteSelf}) }

// SilenceCall pauses every sink track and broadcasts Deafened.
func (c *Controller) SilenceCall() error { return c.do(command{kind: cmdSilenceCall}) }

// UnsilenceCall resumes every sink track and broadcasts Undeafened.
func (c *Controller) UnsilenceCall() error { return c.do(command{kind: cmdUnsilenceCall}) }

// RecordCall starts the MP4 logger for the active call in outputDir: one
// file per participant holding its init segment. No call audio is written
// into these files.
func (c *Controller) RecordCall(outputDir string) error {
	return c.do(command{kind: cmdRecordCall, outputDir: outputDir})
}

// StopRecording stops the in-progress recording of the active call.
func (c *Controller) StopRecording() error { return c.do(command{kind: cmdStopRecording}) }

// AddMediaSource creates a new outbound track on the active call's WebRTC
// connections.
func (c *Controller) AddMediaSource(sourceID string, codec webrtc.RTPCodecCapability) error {
	return c.do(command{kind: cmdAddMediaSource, sourceID: sourceID, codec: codec})
}

// RemoveMediaSource detaches sourceID's track from the active call.
func (c *Controller) RemoveMediaSource(sourceID string) error {
	return c.do(command{kind: cmdRemoveMediaSource, sourceID: sourceID})
}

// ChangeInputDevice swaps the active call's capture device without
// restarting the outbound track or renegotiating SDP/ICE. A no-op if no
// call is active.
func (c *Controller) ChangeInputDevice(device media.SourceDevice) error {
	return c.do(command{kind: cmdChangeInputDevice, inputDevice: device})
}

// ChangeOutputDevice swaps the shared playback device every sink mixes
// down into, without tearing down any peer's decoder.
func (c *Controller) ChangeOutputDevice(device media.SinkDevice) error {
	return c.do(command{kind: cmdChangeOutputDevice, outputDevice: device})
}

// GetPendingCalls returns every call currently known, active or not.
func (c *Controller) GetPendingCalls() []CallInfo {
	reply := c.request(command{kind: cmdGetPendingCalls})
	return reply.pendingCalls
}

// GetActiveCallInfo returns the active call's immutable metadata, or
// ErrCallNotInProgress if no call is active.
func (c *Controller) GetActiveCallInfo() (*CallInfo, error) {
	reply := c.request(command{kind: cmdGetActiveCallInfo})
	return reply.callInfo, reply.err
}

// GetActiveCallState returns the active call's mutable state, or
// ErrCallNotInProgress if no call is active.
func (c *Controller) GetActiveCallState() (*CallState, error) {
	reply := c.request(command{kind: cmdGetActiveCallState})
	return reply.callState, reply.err
}

// GetCallInfo returns callID's immutable metadata, or ErrCallNotFound.
func (c *Controller) GetCallInfo(callID uuid.UUID) (*CallInfo, error) {
	reply := c.request(command{kind: cmdGetCallInfo, callID: callID})
	return reply.callInfo, reply.err
}

// do submits cmd and waits only for its error, discarding any other reply
// fields.
func (c *Controller) do(cmd command) error {
	return c.request(cmd).err
}

func (c *Controller) request(cmd command) commandReply {
	reply := make(chan commandReply, 1)
	cmd.reply = reply
	select {
	case c.inbox <- cmd:
	case <-c.ctx.Done():
		return commandReply{err: c.ctx.Err()}
	}
	select {
	case r := <-reply:
		return r
	case <-c.ctx.Done():
		return commandReply{err: c.ctx.Err()}
	}
}
