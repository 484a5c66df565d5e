package gossip

import "context"

// IncomingMessage is a single frame delivered by a Transport subscription,
// tagged with the raw id of whoever published it.
type IncomingMessage struct {
	From []byte
	Data []byte
}

// Subscription is a live pubsub subscription on one topic. Next blocks until
// a message arrives or ctx is done. Cancel is idempotent.
type Subscription interface {
	Next(ctx context.Context) (IncomingMessage, error)
	Cancel()
}

// Transport is the minimal pubsub surface the gossip actors depend on: an
// authenticated publish(topic, bytes) and subscribe(topic) -> stream of
// (sender_id, bytes). Libp2pTransport is the production adapter; tests use
// an in-memory fake.
type Transport interface {
	Publish(ctx context.Context, topic string, data []byte) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}
