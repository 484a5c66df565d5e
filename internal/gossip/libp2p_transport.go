package gossip

import (
	"context"
	"fmt"
	"sync"

	libp2p "github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/havenline/callcore/pkg/identity"
)

// peerIDHexLen is the fixed width of a hex-encoded 32-byte X25519 public
// key, the wire form of identity.PeerID.
const peerIDHexLen = 64

// Libp2pTransport wires the gossip actors to a real libp2p GossipSub mesh.
//
// GossipSub tags every delivered message with the publishing host's own
// libp2p peer ID, which lives in an entirely different keyspace from the
// X25519 identity.PeerID the crypto layer addresses envelopes by — a host
// restarts with a fresh libp2p identity independent of its call identity.
// So every outgoing frame is prefixed with the local identity.PeerID before
// it reaches the wire, and every incoming frame has that prefix peeled back
// off into IncomingMessage.From instead of trusting the pubsub message's own
// From field.
type Libp2pTransport struct {
	host   host.Host
	ps     *pubsub.PubSub
	selfID identity.PeerID

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewLibp2pTransport starts a libp2p host listening on listenAddrs (falling
// back to libp2p's own default set if empty) and joins the GossipSub
// router, following the same construct-then-join-topics shape the sibling
// gossip examples use. selfID is stamped on every frame this transport
// publishes.
func NewLibp2pTransport(ctx context.Context, selfID identity.PeerID, listenAddrs ...string) (*Libp2pTransport, error) {
	if len(selfID) != peerIDHexLen {
		return nil, fmt.Errorf("gossip: self id %q is not a %d-byte hex peer id", selfID, peerIDHexLen)
	}

	opts := []libp2p.Option{}
	if len(listenAddrs) > 0 {
		addrs := make([]ma.Multiaddr, len(listenAddrs))
		for i, raw := range listenAddrs {
			addr, err := ma.NewMultiaddr(raw)
			if err != nil {
				return nil, fmt.Errorf("gossip: parse listen addr %q: %w", raw, err)
			}
			addrs[i] = addr
		}
		opts = append(opts, libp2p.ListenAddrs(addrs...))
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("gossip: create libp2p host: %w", err)
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("gossip: create gossipsub router: %w", err)
	}
	return &Libp2pTransport{
		host:   h,
		ps:     ps,
		selfID: selfID,
		topics: make(map[string]*pubsub.Topic),
	}, nil
}

// Close shuts down the underlying libp2p host.
func (t *Libp2pTransport) Close() error {
	return t.host.Close()
}

func (t *Libp2pTransport) joinedTopic(name string) (*pubsub.Topic, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if topic, ok := t.topics[name]; ok {
		return topic, nil
	}
	topic, err := t.ps.Join(name)
	if err != nil {
		return nil, fmt.Errorf("gossip: join topic %q: %w", name, err)
	}
	t.topics[name] = topic
	return topic, nil
}

// Publish publishes data on topic, joining it first if necessary. The frame
// on the wire is this transport's selfID followed by data.
func (t *Libp2pTransport) Publish(ctx context.Context, topicName string, data []byte) error {
	topic, err := t.joinedTopic(topicName)
	if err != nil {
		return err
	}
	frame := make([]byte, 0, peerIDHexLen+len(data))
	frame = append(frame, []byte(t.selfID)...)
	frame = append(frame, data...)
	if err := topic.Publish(ctx, frame); err != nil {
		return fmt.Errorf("gossip: publish to %q: %w", topicName, err)
	}
	return nil
}

// Subscribe joins topicName if necessary and returns a live subscription.
func (t *Libp2pTransport) Subscribe(ctx context.Context, topicName string) (Subscription, error) {
	topic, err := t.joinedTopic(topicName)
	if err != nil {
		return nil, err
	}
	sub, err := topic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("gossip: subscribe to %q: %w", topicName, err)
	}
	return &libp2pSubscription{sub: sub}, nil
}

type libp2pSubscription struct {
	sub *pubsub.Subscription
}

func (s *libp2pSubscription) Next(ctx context.Context) (IncomingMessage, error) {
	msg, err := s.sub.Next(ctx)
	if err != nil {
		return IncomingMessage{}, fmt.Errorf("gossip: read subscription: %w", err)
	}
	if len(msg.Data) < peerIDHexLen {
		return IncomingMessage{}, fmt.Errorf("gossip: frame too short to carry a peer id (%d bytes)", len(msg.Data))
	}
	return IncomingMessage{
		From: msg.Data[:peerIDHexLen],
		Data: msg.Data[peerIDHexLen:],
	}, nil
}

func (s *libp2pSubscription) Cancel() {
	s.sub.Cancel()
}
