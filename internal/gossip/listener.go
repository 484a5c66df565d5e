package gossip

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/havenline/callcore/internal/crypto"
	"github.com/havenline/callcore/internal/wire"
	"github.com/havenline/callcore/pkg/identity"
)

// Listener is the Gossip Listener actor: for each active call it maintains
// the call-wide subscription, the per-peer subscriptions, and the local
// initiation-topic subscription, decoding frames and forwarding them as
// GossipSubSignal values.
type Listener struct {
	logger *slog.Logger

	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	shutdownOnce  sync.Once

	transport Transport
	sender    *Sender

	inbox   chan listenerCommand
	Signals chan GossipSubSignal

	callSub  subscriptionHandle
	peerSubs map[identity.PeerID]subscriptionHandle

	peerCallID    uuid.UUID
	peerCallIDSet bool
}

type subscriptionHandle struct {
	sub    Subscription
	cancel context.CancelFunc
}

type listenerCommandKind uint8

const (
	listenerSubscribeCall listenerCommandKind = iota
	listenerUnsubscribeCall
	listenerConnectWebRTC
	listenerReceiveCalls
)

type listenerCommand struct {
	kind     listenerCommandKind
	callID   uuid.UUID
	groupKey [32]byte
	peer     identity.PeerID
	ownID    identity.PeerID
}

// NewListener starts a Gossip Listener actor.
func NewListener(transport Transport, sender *Sender) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{
		ctx:           ctx,
		ctxCancelFunc: cancel,
		transport:     transport,
		sender:        sender,
		inbox:         make(chan listenerCommand, 64),
		Signals:       make(chan GossipSubSignal, 256),
		peerSubs:      make(map[identity.PeerID]subscriptionHandle),
	}
	l.logger = slog.Default().With("component", "gossip.listener")
	go l.run()
	return l
}

// Close cancels every live subscription and stops the actor. Idempotent.
func (l *Listener) Close() {
	l.shutdownOnce.Do(func() {
		l.ctxCancelFunc()
	})
}

func (l *Listener) run() {
	for {
		select {
		case <-l.ctx.Done():
			l.teardownAll()
			l.logger.Debug("listener actor shutting down")
			return
		case cmd := <-l.inbox:
			l.handle(cmd)
		}
	}
}

func (l *Listener) teardownAll() {
	if l.callSub.cancel != nil {
		l.callSub.cancel()
	}
	for _, h := range l.peerSubs {
		h.cancel()
	}
	l.peerSubs = make(map[identity.PeerID]subscriptionHandle)
	l.peerCallIDSet = false
}

func (l *Listener) handle(cmd listenerCommand) {
	switch cmd.kind {
	case listenerSubscribeCall:
		l.subscribeCall(cmd.callID, cmd.groupKey)
	case listenerUnsubscribeCall:
		l.unsubscribeCall(cmd.callID)
	case listenerConnectWebRTC:
		l.connectWebRTC(cmd.callID, cmd.peer)
	case listenerReceiveCalls:
		l.receiveCalls(cmd.ownID)
	}
}

func (l *Listener) subscribeCall(callID uuid.UUID, groupKey [32]byte) {
	if l.callSub.cancel != nil {
		l.callSub.cancel()
	}
	subCtx, cancel := context.WithCancel(l.ctx)
	topic := CallTopic(callID)
	sub, err := l.transport.Subscribe(subCtx, topic)
	if err != nil {
		l.logger.Error("subscribe call-wide topic failed", "topic", topic, "err", err)
		cancel()
		return
	}
	l.callSub = subscriptionHandle{sub: sub, cancel: cancel}
	go l.pumpCall(subCtx, sub, callID, groupKey)
}

func (l *Listener) unsubscribeCall(callID uuid.UUID) {
	if l.callSub.cancel != nil {
		l.callSub.cancel()
		l.callSub = subscriptionHandle{}
	}
	if !l.peerCallIDSet || l.peerCallID != callID {
		return
	}
	for peer, h := range l.peerSubs {
		h.cancel()
		delete(l.peerSubs, peer)
	}
	l.peerCallIDSet = false
}

func (l *Listener) connectWebRTC(callID uuid.UUID, peer identity.PeerID) {
	if !l.peerCallIDSet || l.peerCallID != callID {
		for p, h := range l.peerSubs {
			h.cancel()
			delete(l.peerSubs, p)
		}
		l.peerCallID = callID
		l.peerCallIDSet = true
	}
	if h, ok := l.peerSubs[peer]; ok {
		h.cancel()
		delete(l.peerSubs, peer)
	}
	subCtx, cancel := context.WithCancel(l.ctx)
	topic := PeerTopic(callID, peer)
	sub, err := l.transport.Subscribe(subCtx, topic)
	if err != nil {
		l.logger.Error("subscribe peer topic failed", "topic", topic, "err", err)
		cancel()
		return
	}
	l.peerSubs[peer] = subscriptionHandle{sub: sub, cancel: cancel}
	go l.pumpPeer(subCtx, sub, callID, peer)
}

func (l *Listener) receiveCalls(own identity.PeerID) {
	subCtx, cancel := context.WithCancel(l.ctx)
	topic := InitiationTopic(own)
	sub, err := l.transport.Subscribe(subCtx, topic)
	if err != nil {
		l.logger.Error("subscribe initiation topic failed", "topic", topic, "err", err)
		cancel()
		return
	}
	go l.pumpInitiation(subCtx, sub)
}

func (l *Listener) pumpCall(ctx context.Context, sub Subscription, callID uuid.UUID, groupKey [32]byte) {
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			return
		}
		plaintext, err := crypto.OpenAES(groupKey, msg.Data)
		if err != nil {
			l.logger.Debug("discarding call frame: decrypt failed", "call_id", callID, "err", err)
			continue
		}
		signal, err := wire.DecodeCallSignal(plaintext)
		if err != nil {
			l.logger.Debug("discarding call frame: decode failed", "call_id", callID, "err", err)
			continue
		}
		l.emit(GossipSubSignal{
			Kind:   GossipSubSignalCall,
			Sender: identity.PeerID(msg.From),
			CallID: callID,
			Call:   signal,
		})
	}
}

func (l *Listener) pumpPeer(ctx context.Context, sub Subscription, callID uuid.UUID, expectedSender identity.PeerID) {
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			return
		}
		sender := identity.PeerID(msg.From)
		plaintext, err := l.sender.DecodeECDH(ctx, sender, msg.Data)
		if err != nil {
			l.logger.Debug("discarding peer frame: decrypt failed", "peer", sender, "err", err)
			continue
		}
		signal, err := wire.DecodePeerSignal(plaintext)
		if err != nil {
			l.logger.Debug("discarding peer frame: decode failed", "peer", sender, "err", err)
			continue
		}
		l.emit(GossipSubSignal{
			Kind:   GossipSubSignalPeer,
			Sender: sender,
			CallID: callID,
			Peer:   signal,
		})
	}
}

func (l *Listener) pumpInitiation(ctx context.Context, sub Subscription) {
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			return
		}
		sender := identity.PeerID(msg.From)
		plaintext, err := l.sender.DecodeECDH(ctx, sender, msg.Data)
		if err != nil {
			l.logger.Debug("discarding initiation frame: decrypt failed", "peer", sender, "err", err)
			continue
		}
		signal, err := wire.DecodeInitiationSignal(plaintext)
		if err != nil {
			l.logger.Debug("discarding initiation frame: decode failed", "peer", sender, "err", err)
			continue
		}
		l.emit(GossipSubSignal{
			Kind:       GossipSubSignalInitiation,
			Sender:     sender,
			Initiation: signal,
		})
	}
}

func (l *Listener) emit(sig GossipSubSignal) {
	select {
	case l.Signals <- sig:
	case <-l.ctx.Done():
	}
}

// SubscribeCall opens a subscription to the call-wide topic for callID.
// Only one call-wide subscription is live at a time: any prior one is
// cancelled, whichever call it was for.
func (l *Listener) SubscribeCall(callID uuid.UUID, groupKey [32]byte) {
	select {
	case l.inbox <- listenerCommand{kind: listenerSubscribeCall, callID: callID, groupKey: groupKey}:
	case <-l.ctx.Done():
	}
}

// UnsubscribeCall cancels the live call-wide subscription (at most one, see
// SubscribeCall) and, if callID is the currently-tracked WebRTC call, every
// per-peer subscription too.
func (l *Listener) UnsubscribeCall(callID uuid.UUID) {
	select {
	case l.inbox <- listenerCommand{kind: listenerUnsubscribeCall, callID: callID}:
	case <-l.ctx.Done():
	}
}

// ConnectWebRTC opens a subscription to the peer-signal topic for peer on
// callID, tearing down any prior peer subscriptions for a different call.
func (l *Listener) ConnectWebRTC(callID uuid.UUID, peer identity.PeerID) {
	select {
	case l.inbox <- listenerCommand{kind: listenerConnectWebRTC, callID: callID, peer: peer}:
	case <-l.ctx.Done():
	}
}

// ReceiveCalls opens a subscription to the call-initiation topic for own.
func (l *Listener) ReceiveCalls(own identity.PeerID) {
	select {
	case l.inbox <- listenerCommand{kind: listenerReceiveCalls, ownID: own}:
	case <-l.ctx.Done():
	}
}
