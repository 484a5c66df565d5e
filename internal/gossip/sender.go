package gossip

import (
	"context"
	"log/slog"
	"sync"

	"github.com/havenline/callcore/internal/crypto"
	"github.com/havenline/callcore/pkg/identity"
)

// Sender is a single-owner actor: it owns the local identity key and is
// the only place ECDH decrypt happens, so the key never has to be cloned
// into every subscription stream.
type Sender struct {
	logger *slog.Logger

	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	shutdownOnce  sync.Once

	transport Transport
	identity  *identity.Identity

	inbox chan senderCommand
}

type senderCommand struct {
	kind     senderCommandKind
	groupKey [32]byte
	destPeer identity.PeerID
	payload  []byte
	topic    string

	// decode_ecdh request/reply fields.
	srcPeer    identity.PeerID
	ciphertext []byte
	reply      chan senderReply
}

type senderReply struct {
	plaintext []byte
	peerID    identity.PeerID
	err       error
}

type senderCommandKind uint8

const (
	senderSendAES senderCommandKind = iota
	senderSendECDH
	senderDecodeECDH
	senderGetOwnID
)

// NewSender starts a Gossip Sender actor bound to transport and id.
func NewSender(transport Transport, id *identity.Identity) *Sender {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sender{
		ctx:           ctx,
		ctxCancelFunc: cancel,
		transport:     transport,
		identity:      id,
		inbox:         make(chan senderCommand, 256),
	}
	s.logger = slog.Default().With("component", "gossip.sender", "own_id", id.GetOwnID())
	go s.run()
	return s
}

// Close stops the actor. Idempotent.
func (s *Sender) Close() {
	s.shutdownOnce.Do(s.ctxCancelFunc)
}

func (s *Sender) run() {
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debug("sender actor shutting down")
			return
		case cmd := <-s.inbox:
			s.handle(cmd)
		}
	}
}

func (s *Sender) handle(cmd senderCommand) {
	if n := len(s.inbox); n > 0 {
		s.logger.Debug("sender inbox depth", "depth", n)
	}
	switch cmd.kind {
	case senderSendAES:
		ciphertext, err := crypto.SealAES(cmd.groupKey, cmd.payload)
		if err != nil {
			s.logger.Error("seal aes envelope failed", "topic", cmd.topic, "err", err)
			return
		}
		if err := s.transport.Publish(s.ctx, cmd.topic, ciphertext); err != nil {
			s.logger.Warn("publish failed", "topic", cmd.topic, "err", err)
		}

	case senderSendECDH:
		peerPublic, err := identity.DecodePeerID(cmd.destPeer)
		if err != nil {
			s.logger.Error("decode dest peer id failed", "peer", cmd.destPeer, "err", err)
			return
		}
		ciphertext, err := crypto.SealECDH(peerPublic, s.identity.SecretKey(), cmd.payload)
		if err != nil {
			s.logger.Error("seal ecdh envelope failed", "topic", cmd.topic, "err", err)
			return
		}
		if err := s.transport.Publish(s.ctx, cmd.topic, ciphertext); err != nil {
			s.logger.Warn("publish failed", "topic", cmd.topic, "err", err)
		}

	case senderDecodeECDH:
		peerPublic, err := identity.DecodePeerID(cmd.srcPeer)
		if err != nil {
			cmd.reply <- senderReply{err: err}
			return
		}
		plaintext, err := crypto.OpenECDH(peerPublic, s.identity.SecretKey(), cmd.ciphertext)
		cmd.reply <- senderReply{plaintext: plaintext, err: err}

	case senderGetOwnID:
		cmd.reply <- senderReply{peerID: s.identity.GetOwnID()}
	}
}

// SendAES encrypts the already-serialized payload under the call's group
// key and publishes it to topic. Fire-and-forget.
func (s *Sender) SendAES(groupKey [32]byte, payload []byte, topic string) {
	select {
	case s.inbox <- senderCommand{kind: senderSendAES, groupKey: groupKey, payload: payload, topic: topic}:
	case <-s.ctx.Done():
	}
}

// SendECDH derives a shared secret with dest via ECDH, encrypts the
// already-serialized payload under it, and publishes it to topic.
// Fire-and-forget.
func (s *Sender) SendECDH(dest identity.PeerID, payload []byte, topic string) {
	select {
	case s.inbox <- senderCommand{kind: senderSendECDH, destPeer: dest, payload: payload, topic: topic}:
	case <-s.ctx.Done():
	}
}

// DecodeECDH derives a shared secret with src via ECDH and decrypts
// ciphertext. Exposed as a request/reply call because it needs the
// actor-owned identity key.
func (s *Sender) DecodeECDH(ctx context.Context, src identity.PeerID, ciphertext []byte) ([]byte, error) {
	reply := make(chan senderReply, 1)
	select {
	case s.inbox <- senderCommand{kind: senderDecodeECDH, srcPeer: src, ciphertext: ciphertext, reply: reply}:
	case <-s.ctx.Done():
		return nil, context.Canceled
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.plaintext, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetOwnID returns the local identity's public peer ID.
func (s *Sender) GetOwnID() identity.PeerID {
	return s.identity.GetOwnID()
}
