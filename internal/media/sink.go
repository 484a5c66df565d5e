package media

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/havenline/callcore/pkg/identity"
)

// trackReader is the subset of webrtc.TrackRemote this package depends on.
type trackReader interface {
	ReadRTP() (payload []byte, err error)
}

// Sink is one remote peer's inbound RTP → decoded PCM path, feeding into the
// pipeline's shared mixer. Removing a sink stops its decoder and releases
// its contribution to the mixer.
type Sink struct {
	logger *slog.Logger

	peer       identity.PeerID
	track      trackReader
	codec      *OpusCodec
	codecProps DeviceProperties
	mixer      *mixer

	chainMu sync.RWMutex
	chain   []formatConversionFunc

	deafened atomic.Bool
	done     chan struct{}
	stop     chan struct{}
}

// NewSink starts decoding peer's inbound track into mx, resampling from the
// codec rate to the shared output device rate.
func NewSink(peer identity.PeerID, track trackReader, codecSampleRate, codecChannels int, outputProps DeviceProperties, mx *mixer) (*Sink, error) {
	codec, err := NewOpusCodec(codecSampleRate, codecChannels)
	if err != nil {
		return nil, err
	}
	codecProps := DeviceProperties{SampleRate: codecSampleRate, NumChannels: codecChannels}
	s := &Sink{
		logger:     slog.Default().With("component", "media.sink", "peer", peer),
		peer:       peer,
		track:      track,
		codec:      codec,
		codecProps: codecProps,
		chain:      buildConversionChain(codecProps, outputProps),
		mixer:      mx,
		done:       make(chan struct{}),
		stop:       make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// SetOutputProps rebuilds this sink's resampling chain for a new shared
// playback device, used when the pipeline's output device changes mid-call
// without tearing down any sink's decoder or mixer contribution.
func (s *Sink) SetOutputProps(outputProps DeviceProperties) {
	chain := buildConversionChain(s.codecProps, outputProps)
	s.chainMu.Lock()
	s.chain = chain
	s.chainMu.Unlock()
}

// SetDeafened pauses (true) or resumes (false) this sink's contribution to
// the mix without tearing down the decoder. Deafening applies to every sink
// at once.
func (s *Sink) SetDeafened(deafened bool) {
	s.deafened.Store(deafened)
	if deafened {
		s.mixer.remove(string(s.peer))
	}
}

// Close stops reading from the track and removes this peer's contribution
// to the mixer.
func (s *Sink) Close() {
	close(s.stop)
	<-s.done
	s.mixer.remove(string(s.peer))
}

func (s *Sink) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		payload, err := s.track.ReadRTP()
		if err != nil {
			s.logger.Debug("track read ended", "err", err)
			return
		}
		pcm, err := s.codec.Decode(payload)
		if err != nil {
			s.logger.Debug("opus decode failed", "err", err)
			continue
		}
		if s.deafened.Load() {
			continue
		}
		s.chainMu.RLock()
		chain := s.chain
		s.chainMu.RUnlock()
		s.mixer.submit(string(s.peer), Convert(chain, pcm))
	}
}
