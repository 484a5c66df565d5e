package rtc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/havenline/callcore/pkg/identity"
	"github.com/pion/webrtc/v4"
)

// mediaSource is an outbound track kept alive across peer-connection churn
// so that new peers joining mid-call inherit it.
type mediaSource struct {
	id    string
	codec webrtc.RTPCodecCapability
	track *webrtc.TrackLocalStaticSample
}

// Controller is the WebRTC Controller actor (component C). It owns every
// live PeerConnection for the active call and the set of outbound media
// sources attached to all of them.
type Controller struct {
	logger *slog.Logger

	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	shutdownOnce  sync.Once

	api              *webrtc.API
	connectionConfig webrtc.Configuration

	mu      sync.Mutex
	peers   map[identity.PeerID]*peerConnection
	sources map[string]*mediaSource

	// Events is the controller's single broadcast stream.
	Events chan Event
}

// NewController builds a Controller with a single default STUN server; no
// TURN fallback is in scope.
func NewController(stunServer string) (*Controller, error) {
	mediaEngine, err := newMediaEngine([]webrtc.RTPCodecCapability{
		CodecMap["CodecOpus48000Mono"],
		CodecMap["CodecOpus48000Stereo"],
	})
	if err != nil {
		return nil, fmt.Errorf("rtc: register codecs: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		ctx:           ctx,
		ctxCancelFunc: cancel,
		api:           webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine)),
		connectionConfig: webrtc.Configuration{
			ICEServers: []webrtc.ICEServer{{URLs: []string{stunServer}}},
		},
		peers:   make(map[identity.PeerID]*peerConnection),
		sources: make(map[string]*mediaSource),
		Events:  make(chan Event, 256),
	}
	c.logger = slog.Default().With("component", "rtc.controller")
	return c, nil
}

// HangUpAll hangs up every peer. Unlike Deinit it does not stop the
// controller, so it is safe to call repeatedly as the active call changes.
func (c *Controller) HangUpAll() {
	c.mu.Lock()
	peers := make([]identity.PeerID, 0, len(c.peers))
	for p := range c.peers {
		peers = append(peers, p)
	}
	c.mu.Unlock()
	for _, p := range peers {
		c.HangUp(p)
	}
}

// Deinit hangs up every peer and stops the controller for good.
func (c *Controller) Deinit() {
	c.shutdownOnce.Do(func() {
		c.HangUpAll()
		c.ctxCancelFunc()
	})
}

func (c *Controller) emit(e Event) {
	select {
	case c.Events <- e:
	case <-c.ctx.Done():
	}
}

func (c *Controller) newPeerConnection(peer identity.PeerID) (*peerConnection, error) {
	pc, err := c.api.NewPeerConnection(c.connectionConfig)
	if err != nil {
		return nil, fmt.Errorf("rtc: new peer connection for %s: %w", peer, err)
	}
	pconn := newPeerConnection(peer, pc, c.logger)

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		c.onConnectionStateChange(peer, state)
	})
	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		c.emit(Event{Kind: EventIce, Peer: peer, Candidate: candidate.ToJSON().Candidate})
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.emit(Event{Kind: EventTrackAdded, Peer: peer, Track: track})
	})
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() == "heartbeat" {
			pconn.setupHeartbeatChannel(dc)
		}
	})

	for _, src := range c.sources {
		if _, err := pc.AddTrack(src.track); err != nil {
			c.logger.Error("attach media source to new peer failed", "peer", peer, "source", src.id, "err", err)
		}
	}

	return pconn, nil
}

func (c *Controller) onConnectionStateChange(peer identity.PeerID, state webrtc.PeerConnectionState) {
	c.logger.Debug("peer connection state change", "peer", peer, "new_state", state.String())
	c.mu.Lock()
	pconn, ok := c.peers[peer]
	if ok {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			pconn.state = PeerStateConnected
		case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			pconn.state = PeerStateDisconnected
		}
	}
	c.mu.Unlock()

	switch state {
	case webrtc.PeerConnectionStateConnected:
		c.emit(Event{Kind: EventConnected, Peer: peer})
	case webrtc.PeerConnectionStateDisconnected:
		c.emit(Event{Kind: EventDisconnected, Peer: peer})
	case webrtc.PeerConnectionStateFailed:
		c.emit(Event{Kind: EventConnectionFailed, Peer: peer})
	case webrtc.PeerConnectionStateClosed:
		c.emit(Event{Kind: EventConnectionClosed, Peer: peer})
	}
}

// Dial creates a connection if one is absent, creates a local offer, and
// emits CallInitiated.
func (c *Controller) Dial(ctx context.Context, peer identity.PeerID) error {
	c.mu.Lock()
	pconn, exists := c.peers[peer]
	if !exists {
		newConn, err := c.newPeerConnection(peer)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		pconn = newConn
		c.peers[peer] = pconn
	}
	c.mu.Unlock()

	offer, err := pconn.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("rtc: create offer for %s: %w", peer, err)
	}
	if err := pconn.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("rtc: set local description for %s: %w", peer, err)
	}
	waitICEGathering(ctx, pconn.pc)

	c.emit(Event{Kind: EventCallInitiated, Peer: peer, SDP: pconn.pc.LocalDescription().SDP})
	return nil
}

// AcceptCall creates a connection if absent, sets the remote offer, creates
// and sets a local answer, and emits Sdp.
func (c *Controller) AcceptCall(ctx context.Context, peer identity.PeerID, remoteSDP string) error {
	c.mu.Lock()
	pconn, exists := c.peers[peer]
	if !exists {
		newConn, err := c.newPeerConnection(peer)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		pconn = newConn
		c.peers[peer] = pconn
	}
	c.mu.Unlock()

	if err := pconn.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  remoteSDP,
	}); err != nil {
		return fmt.Errorf("rtc: set remote description for %s: %w", peer, err)
	}

	answer, err := pconn.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("rtc: create answer for %s: %w", peer, err)
	}
	if err := pconn.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("rtc: set local description for %s: %w", peer, err)
	}
	waitICEGathering(ctx, pconn.pc)

	c.mu.Lock()
	pconn.state = PeerStateWaitingForIce
	c.mu.Unlock()

	c.emit(Event{Kind: EventSdp, Peer: peer, SDP: pconn.pc.LocalDescription().SDP})
	return nil
}

// RecvSdp sets the remote description on an existing connection and moves a
// peer still waiting for SDP on to WaitingForIce.
func (c *Controller) RecvSdp(peer identity.PeerID, sdp string) error {
	c.mu.Lock()
	pconn, ok := c.peers[peer]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("rtc: recv_sdp: %w: %s", ErrPeerNotFound, peer)
	}
	if err := pconn.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	}); err != nil {
		return fmt.Errorf("rtc: set remote description for %s: %w", peer, err)
	}
	c.mu.Lock()
	if pconn.state == PeerStateWaitingForSdp {
		pconn.state = PeerStateWaitingForIce
	}
	c.mu.Unlock()
	return nil
}

// RecvIce adds an ICE candidate to an existing connection. WebRTC buffers
// candidates that arrive before the remote description is set, so no extra
// ordering is enforced here.
func (c *Controller) RecvIce(peer identity.PeerID, candidate string) error {
	c.mu.Lock()
	pconn, ok := c.peers[peer]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("rtc: recv_ice: %w: %s", ErrPeerNotFound, peer)
	}
	if err := pconn.pc.AddICECandidate(webrtc.ICECandidateInit{Candidate: candidate}); err != nil {
		return fmt.Errorf("rtc: add ice candidate for %s: %w", peer, err)
	}
	return nil
}

// AddMediaSource creates a new outbound track, attaches it to every current
// peer connection, and remembers it for future peers.
func (c *Controller) AddMediaSource(sourceID string, codec webrtc.RTPCodecCapability) (*webrtc.TrackLocalStaticSample, error) {
	track, err := webrtc.NewTrackLocalStaticSample(codec, sourceID, sourceID+"-stream")
	if err != nil {
		return nil, fmt.Errorf("rtc: new track for source %s: %w", sourceID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[sourceID] = &mediaSource{id: sourceID, codec: codec, track: track}
	for peer, pconn := range c.peers {
		sender, err := pconn.pc.AddTrack(track)
		if err != nil {
			c.logger.Error("attach media source to peer failed", "peer", peer, "source", sourceID, "err", err)
			continue
		}
		pconn.senders[sourceID] = sender
	}
	return track, nil
}

// RemoveMediaSource detaches sourceID's track from every connection.
func (c *Controller) RemoveMediaSource(sourceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sources[sourceID]; !ok {
		return fmt.Errorf("rtc: remove_media_source: %w: %s", ErrMediaSourceNotFound, sourceID)
	}
	delete(c.sources, sourceID)
	for peer, pconn := range c.peers {
		sender, ok := pconn.senders[sourceID]
		if !ok {
			continue
		}
		if err := pconn.pc.RemoveTrack(sender); err != nil {
			c.logger.Error("detach media source from peer failed", "peer", peer, "source", sourceID, "err", err)
		}
		delete(pconn.senders, sourceID)
	}
	return nil
}

// HangUp removes all senders for peer and drops the connection.
func (c *Controller) HangUp(peer identity.PeerID) {
	c.mu.Lock()
	pconn, ok := c.peers[peer]
	if ok {
		delete(c.peers, peer)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	pconn.close()
}

// PeerLatency reports the most recent heartbeat round trip for peer, or 0 if
// unknown.
func (c *Controller) PeerLatency(peer identity.PeerID) (latencyNanos int64, ok bool) {
	c.mu.Lock()
	pconn, exists := c.peers[peer]
	c.mu.Unlock()
	if !exists {
		return 0, false
	}
	return pconn.Latency().Nanoseconds(), true
}
