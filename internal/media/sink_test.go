package media

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/havenline/callcore/pkg/frame"
)

// fakeTrackReader replays a fixed set of encoded packets, then fails every
// read: with io.EOF once closed is set, mirroring how a webrtc.TrackRemote
// behaves once a peer disconnects, and with a plain error otherwise.
type fakeTrackReader struct {
	mu      sync.Mutex
	packets [][]byte
	closed  bool
}

func (f *fakeTrackReader) ReadRTP() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.packets) == 0 {
		if f.closed {
			return nil, io.EOF
		}
		return nil, errors.New("no more packets")
	}
	p := f.packets[0]
	f.packets = f.packets[1:]
	return p, nil
}

func TestSinkFeedsMixerUntilDeafened(t *testing.T) {
	codec, err := NewOpusCodec(defaultSampleRate, defaultChannels)
	if err != nil {
		t.Fatalf("NewOpusCodec: %v", err)
	}
	samplesPerFrame := defaultSampleRate * opusFrameMillis / 1000
	pcm := make(frame.PCMFrame, samplesPerFrame)
	for i := range pcm {
		pcm[i] = 0.2
	}
	packet, err := codec.Encode(pcm)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	track := &fakeTrackReader{packets: [][]byte{append([]byte(nil), packet...)}}
	mx := newMixer()

	sink, err := NewSink("peer-1", track, defaultSampleRate, defaultChannels, DeviceProperties{SampleRate: defaultSampleRate, NumChannels: defaultChannels}, mx)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	defer sink.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if out := mx.mix(); len(out) > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("mixer never received a contribution from the sink")
}

func TestSinkSetDeafenedRemovesContribution(t *testing.T) {
	track := &fakeTrackReader{closed: true}
	mx := newMixer()
	sink, err := NewSink("peer-1", track, defaultSampleRate, defaultChannels, DeviceProperties{SampleRate: defaultSampleRate, NumChannels: defaultChannels}, mx)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	defer sink.Close()

	mx.submit("peer-1", frame.PCMFrame{0.5})
	sink.SetDeafened(true)

	if out := mx.mix(); len(out) != 0 {
		t.Errorf("expected no contribution after deafen, got %v", out)
	}
}
