// Package gossip implements the Gossip Sender and Gossip Listener actors:
// encrypted publish/subscribe over named topics backed by a pubsub
// transport.
package gossip

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/havenline/callcore/pkg/identity"
)

// CallTopic returns the call-wide topic name for callID: "call/<uuid>".
func CallTopic(callID uuid.UUID) string {
	return fmt.Sprintf("call/%s", callID)
}

// PeerTopic returns the per-peer signal topic for (peer, callID):
// "call/<uuid>/peer/<peer_id>".
func PeerTopic(callID uuid.UUID, peer identity.PeerID) string {
	return fmt.Sprintf("call/%s/peer/%s", callID, peer)
}

// InitiationTopic returns the call-initiation topic for a peer's own id:
// "call/offer/<peer_id>".
func InitiationTopic(own identity.PeerID) string {
	return fmt.Sprintf("call/offer/%s", own)
}
