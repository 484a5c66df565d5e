package gossip

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/havenline/callcore/internal/crypto"
	"github.com/havenline/callcore/internal/wire"
	"github.com/havenline/callcore/pkg/identity"
)

func TestListenerReceiveCallsDeliversInitiation(t *testing.T) {
	transport := newFakeTransport()
	bobID := newTestIdentity(t)
	aliceID := newTestIdentity(t)

	bobSender := NewSender(transport, bobID)
	defer bobSender.Close()
	bobListener := NewListener(transport, bobSender)
	defer bobListener.Close()

	bobListener.ReceiveCalls(bobID.GetOwnID())
	time.Sleep(20 * time.Millisecond)

	offer := wire.InitiationSignal{
		Kind: wire.InitiationSignalOffer,
		Offer: wire.CallInfo{
			CallID:       uuid.New(),
			Participants: []identity.PeerID{aliceID.GetOwnID(), bobID.GetOwnID()},
		},
	}
	payload, err := wire.EncodeInitiationSignal(offer)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	bobPub, err := identity.DecodePeerID(bobID.GetOwnID())
	if err != nil {
		t.Fatalf("decode bob id: %v", err)
	}
	ciphertext, err := crypto.SealECDH(bobPub, aliceID.SecretKey(), payload)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if err := transport.Publish(context.Background(), InitiationTopic(bobID.GetOwnID()), ciphertext); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case sig := <-bobListener.Signals:
		if sig.Kind != GossipSubSignalInitiation {
			t.Fatalf("got kind %v, want Initiation", sig.Kind)
		}
		if sig.Initiation.Offer.CallID != offer.Offer.CallID {
			t.Fatalf("call id mismatch: got %v, want %v", sig.Initiation.Offer.CallID, offer.Offer.CallID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initiation signal")
	}
}

func TestListenerUnsubscribeCallStopsDelivery(t *testing.T) {
	transport := newFakeTransport()
	aliceID := newTestIdentity(t)
	sender := NewSender(transport, aliceID)
	defer sender.Close()
	listener := NewListener(transport, sender)
	defer listener.Close()

	var groupKey [32]byte
	callID := uuid.New()
	listener.SubscribeCall(callID, groupKey)
	time.Sleep(20 * time.Millisecond)
	listener.UnsubscribeCall(callID)
	time.Sleep(20 * time.Millisecond)

	payload, err := wire.EncodeCallSignal(wire.CallSignal{Kind: wire.CallSignalLeave})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	sender.SendAES(groupKey, payload, CallTopic(callID))

	select {
	case sig := <-listener.Signals:
		t.Fatalf("expected no signal after unsubscribe, got %+v", sig)
	case <-time.After(100 * time.Millisecond):
	}
}
