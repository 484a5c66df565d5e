package gossip

import (
	"context"
	"sync"
)

// fakeTransport is an in-memory pubsub stand-in used to test the Sender and
// Listener actors without a real libp2p mesh.
type fakeTransport struct {
	mu   sync.Mutex
	subs map[string][]*fakeSubscription
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{subs: make(map[string][]*fakeSubscription)}
}

func (t *fakeTransport) Publish(ctx context.Context, topic string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, sub := range t.subs[topic] {
		sub.deliver(IncomingMessage{From: []byte("fake-sender"), Data: data})
	}
	return nil
}

func (t *fakeTransport) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub := &fakeSubscription{ch: make(chan IncomingMessage, 16)}
	t.subs[topic] = append(t.subs[topic], sub)
	return sub, nil
}

type fakeSubscription struct {
	ch     chan IncomingMessage
	closed bool
	mu     sync.Mutex
}

func (s *fakeSubscription) deliver(msg IncomingMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- msg:
	default:
	}
}

func (s *fakeSubscription) Next(ctx context.Context) (IncomingMessage, error) {
	select {
	case msg := <-s.ch:
		return msg, nil
	case <-ctx.Done():
		return IncomingMessage{}, ctx.Err()
	}
}

func (s *fakeSubscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
