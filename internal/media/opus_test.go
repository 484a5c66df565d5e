package media

import (
	"testing"

	"github.com/havenline/callcore/pkg/frame"
)

func TestOpusCodecRoundTrip(t *testing.T) {
	codec, err := NewOpusCodec(defaultSampleRate, defaultChannels)
	if err != nil {
		t.Fatalf("NewOpusCodec: %v", err)
	}

	samplesPerFrame := defaultSampleRate * opusFrameMillis / 1000
	pcm := make(frame.PCMFrame, samplesPerFrame)
	for i := range pcm {
		pcm[i] = 0.1
	}

	encoded, err := codec.Encode(pcm)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(encoded) == 0 {
		t.Fatal("Encode returned empty packet")
	}

	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != samplesPerFrame {
		t.Fatalf("len(decoded) = %d, want %d", len(decoded), samplesPerFrame)
	}
}
