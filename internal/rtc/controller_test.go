package rtc

import (
	"testing"

	"github.com/havenline/callcore/pkg/identity"
)

func TestCodecMapHasDefault(t *testing.T) {
	if DefaultCodec.ClockRate != 48000 || DefaultCodec.Channels != 1 {
		t.Fatalf("unexpected default codec: %+v", DefaultCodec)
	}
}

func TestHangUpUnknownPeerIsNoop(t *testing.T) {
	c, err := NewController("stun:stun.l.google.com:19302")
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer c.Deinit()
	c.HangUp(identity.PeerID("unknown"))
}

func TestRecvSdpUnknownPeerErrors(t *testing.T) {
	c, err := NewController("stun:stun.l.google.com:19302")
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer c.Deinit()
	if err := c.RecvSdp(identity.PeerID("unknown"), "v=0\r\n"); err == nil {
		t.Fatal("expected ErrPeerNotFound")
	}
}

func TestRemoveUnknownMediaSourceErrors(t *testing.T) {
	c, err := NewController("stun:stun.l.google.com:19302")
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer c.Deinit()
	if err := c.RemoveMediaSource("nope"); err == nil {
		t.Fatal("expected ErrMediaSourceNotFound")
	}
}

func TestAddMediaSourceCreatesTrack(t *testing.T) {
	c, err := NewController("stun:stun.l.google.com:19302")
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer c.Deinit()
	track, err := c.AddMediaSource("audio-input", DefaultCodec)
	if err != nil {
		t.Fatalf("add media source: %v", err)
	}
	if track.ID() != "audio-input" {
		t.Fatalf("got track id %q, want audio-input", track.ID())
	}
}
