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

func newTestIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.New()
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	return id
}

func TestSenderSendAESRoundTripsThroughListener(t *testing.T) {
	transport := newFakeTransport()
	aliceID := newTestIdentity(t)
	sender := NewSender(transport, aliceID)
	defer sender.Close()

	listener := NewListener(transport, sender)
	defer listener.Close()

	var groupKey [32]byte
	copy(groupKey[:], []byte("0123456789abcdef0123456789abcde"))
	callID := uuid.New()
	listener.SubscribeCall(callID, groupKey)
	time.Sleep(20 * time.Millisecond) // allow the actor to install the subscription

	payload, err := wire.EncodeCallSignal(wire.CallSignal{Kind: wire.CallSignalJoin})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	sender.SendAES(groupKey, payload, CallTopic(callID))

	select {
	case sig := <-listener.Signals:
		if sig.Kind != GossipSubSignalCall {
			t.Fatalf("got kind %v, want Call", sig.Kind)
		}
		if sig.Call.Kind != wire.CallSignalJoin {
			t.Fatalf("got signal %v, want Join", sig.Call.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for signal")
	}
}

func TestSenderDecodeECDH(t *testing.T) {
	aliceID := newTestIdentity(t)
	bobID := newTestIdentity(t)
	bobSender := NewSender(newFakeTransport(), bobID)
	defer bobSender.Close()

	payload, err := wire.EncodePeerSignal(wire.PeerSignal{Kind: wire.PeerSignalIce, Candidate: "cand"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	bobPub, err := identity.DecodePeerID(bobID.GetOwnID())
	if err != nil {
		t.Fatalf("decode bob peer id: %v", err)
	}
	ciphertext, err := crypto.SealECDH(bobPub, aliceID.SecretKey(), payload)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	plaintext, err := bobSender.DecodeECDH(context.Background(), aliceID.GetOwnID(), ciphertext)
	if err != nil {
		t.Fatalf("decode ecdh: %v", err)
	}
	got, err := wire.DecodePeerSignal(plaintext)
	if err != nil {
		t.Fatalf("decode peer signal: %v", err)
	}
	if got.Kind != wire.PeerSignalIce || got.Candidate != "cand" {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}
