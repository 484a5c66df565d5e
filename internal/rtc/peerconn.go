package rtc

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/havenline/callcore/pkg/identity"
	"github.com/pion/webrtc/v4"
)

// heartbeatPeriod is how often a heartbeat message is sent on the data channel.
const heartbeatPeriod = 5 * time.Second

// peerConnection wraps one pion PeerConnection plus the bookkeeping the
// controller needs: current PeerState, every outbound sender keyed by media
// source id (so a newly added source can be attached to every peer, and an
// existing one removed from every peer), and a heartbeat data channel used
// only to track round-trip latency.
type peerConnection struct {
	logger *slog.Logger
	peerID identity.PeerID

	pc    *webrtc.PeerConnection
	state PeerState

	senders map[string]*webrtc.RTPSender

	heartbeatChannel *webrtc.DataChannel
	heartbeatSentAt  time.Time
	latency          time.Duration
	mu               sync.Mutex
}

func newPeerConnection(peerID identity.PeerID, pc *webrtc.PeerConnection, logger *slog.Logger) *peerConnection {
	p := &peerConnection{
		logger:  logger.With("peer", peerID),
		peerID:  peerID,
		pc:      pc,
		state:   PeerStateWaitingForSdp,
		senders: make(map[string]*webrtc.RTPSender),
	}
	return p
}

// Latency reports the most recently measured heartbeat round trip.
func (p *peerConnection) Latency() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latency
}

func (p *peerConnection) setupHeartbeatChannel(dc *webrtc.DataChannel) {
	p.heartbeatChannel = dc
	dc.OnOpen(func() { go p.heartbeatSendLoop() })
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		p.mu.Lock()
		if !p.heartbeatSentAt.IsZero() {
			p.latency = time.Since(p.heartbeatSentAt)
		}
		p.mu.Unlock()
	})
}

func (p *peerConnection) heartbeatSendLoop() {
	ticker := time.NewTicker(heartbeatPeriod)
	defer ticker.Stop()
	for range ticker.C {
		if p.pc.ConnectionState() == webrtc.PeerConnectionStateClosed {
			return
		}
		p.mu.Lock()
		p.heartbeatSentAt = time.Now()
		p.mu.Unlock()
		if err := p.heartbeatChannel.SendText("ping"); err != nil {
			p.logger.Debug("heartbeat send failed", "err", err)
		}
	}
}

func (p *peerConnection) close() {
	if err := p.pc.Close(); err != nil {
		p.logger.Debug("close peer connection failed", "err", err)
	}
}

// waitICEGathering blocks until ICE candidate gathering completes for pc, in
// waiting on <-webrtc.GatheringCompletePromise(pc).
func waitICEGathering(ctx context.Context, pc *webrtc.PeerConnection) {
	select {
	case <-webrtc.GatheringCompletePromise(pc):
	case <-ctx.Done():
	}
}
