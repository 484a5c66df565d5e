package media

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
)

// sampleWriter is the subset of webrtc.TrackLocalStaticSample this package
// depends on, so the source path can be tested without a real PeerConnection.
type sampleWriter interface {
	WriteSample(s media.Sample) error
}

// Source is the microphone → RTP path: capture, mono mixdown, resample to
// the codec rate, optional echo cancellation, Opus encode, write to the
// outbound track.
type Source struct {
	logger *slog.Logger

	codec      *OpusCodec
	track      sampleWriter
	codecProps DeviceProperties
	canceller  EchoCanceller
	strategy   EchoCancelStrategy

	muted atomic.Bool

	events chan<- Event
	done   chan struct{}

	deviceCh chan SourceDevice
	closeCh  chan struct{}
}

// NewSource starts pumping frames from device through to track. events
// receives a Loudness sample per frame; it may be nil.
func NewSource(device SourceDevice, codecSampleRate, codecChannels int, track sampleWriter, events chan<- Event) (*Source, error) {
	codec, err := NewOpusCodec(codecSampleRate, codecChannels)
	if err != nil {
		return nil, err
	}
	s := &Source{
		logger:     slog.Default().With("component", "media.source"),
		codec:      codec,
		track:      track,
		codecProps: DeviceProperties{SampleRate: codecSampleRate, NumChannels: codecChannels},
		canceller:  NullEchoCanceller{},
		strategy:   EchoCancelNormal,
		events:     events,
		done:       make(chan struct{}),
		deviceCh:   make(chan SourceDevice, 1),
		closeCh:    make(chan struct{}),
	}
	go s.run(device)
	return s, nil
}

// SetMuted pauses (true) or resumes (false) outbound packet production. No
// packets are written while muted.
func (s *Source) SetMuted(muted bool) {
	s.muted.Store(muted)
}

// ChangeDevice swaps the capture device the source pulls frames from
// without touching the outbound track, its SSRC, or any SDP/ICE state —
// switching microphones mid-call never requires renegotiation.
func (s *Source) ChangeDevice(device SourceDevice) {
	select {
	case s.deviceCh <- device:
	case <-s.done:
	}
}

// Close stops the source and releases its device.
func (s *Source) Close() {
	close(s.closeCh)
	<-s.done
}

func (s *Source) run(device SourceDevice) {
	defer close(s.done)
	frameDuration := time.Duration(opusFrameMillis) * time.Millisecond
	chain := buildConversionChain(device.GetDeviceProperties(), s.codecProps)
	stream := device.GetStream()
	for {
		select {
		case <-s.closeCh:
			device.Close()
			return
		case next := <-s.deviceCh:
			device.Close()
			device = next
			chain = buildConversionChain(device.GetDeviceProperties(), s.codecProps)
			stream = device.GetStream()
		case pcm, ok := <-stream:
			if !ok {
				return
			}
			if s.muted.Load() {
				continue
			}
			converted := Convert(chain, pcm)
			processed := applyEchoCancel(s.strategy, s.canceller, converted, nil)

			if s.events != nil {
				select {
				case s.events <- Event{Kind: EventLoudness, Loudness: RMS(processed)}:
				default:
				}
			}

			encoded, err := s.codec.Encode(processed)
			if err != nil {
				s.logger.Error("opus encode failed", "err", err)
				continue
			}
			if err := s.track.WriteSample(media.Sample{Data: encoded, Duration: frameDuration}); err != nil {
				s.logger.Error("write sample failed", "err", err)
			}
		}
	}
}
