package wire

import (
	"testing"

	"github.com/google/uuid"
	"github.com/havenline/callcore/pkg/identity"
)

func TestCallSignalRoundTrip(t *testing.T) {
	cases := []CallSignal{
		{Kind: CallSignalJoin},
		{Kind: CallSignalLeave},
		{Kind: CallSignalMuted},
		{Kind: CallSignalRecording},
	}
	for _, want := range cases {
		b, err := EncodeCallSignal(want)
		if err != nil {
			t.Fatalf("encode %+v: %v", want, err)
		}
		got, err := DecodeCallSignal(b)
		if err != nil {
			t.Fatalf("decode %+v: %v", want, err)
		}
		if got != want {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestPeerSignalRoundTrip(t *testing.T) {
	cases := []PeerSignal{
		{Kind: PeerSignalIce, Candidate: "candidate:1 1 UDP 1 0.0.0.0 1 typ host"},
		{Kind: PeerSignalSdp, SDP: "v=0\r\n"},
		{Kind: PeerSignalDial, SDP: "v=0\r\n"},
	}
	for _, want := range cases {
		b, err := EncodePeerSignal(want)
		if err != nil {
			t.Fatalf("encode %+v: %v", want, err)
		}
		got, err := DecodePeerSignal(b)
		if err != nil {
			t.Fatalf("decode %+v: %v", want, err)
		}
		if got != want {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestInitiationSignalRoundTrip(t *testing.T) {
	want := InitiationSignal{
		Kind: InitiationSignalOffer,
		Offer: CallInfo{
			CallID:       uuid.New(),
			Participants: []identity.PeerID{"aa", "bb"},
			GroupKey:     [32]byte{1, 2, 3},
		},
	}
	b, err := EncodeInitiationSignal(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeInitiationSignal(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Offer.CallID != want.Offer.CallID {
		t.Fatalf("call id mismatch: got %v, want %v", got.Offer.CallID, want.Offer.CallID)
	}
	if len(got.Offer.Participants) != len(want.Offer.Participants) {
		t.Fatalf("participants mismatch: got %v, want %v", got.Offer.Participants, want.Offer.Participants)
	}
	if got.Offer.GroupKey != want.Offer.GroupKey {
		t.Fatalf("group key mismatch")
	}
}
