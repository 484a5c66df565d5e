package media

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/havenline/callcore/pkg/frame"
	"github.com/havenline/callcore/pkg/identity"
)

// outputTickPeriod is how often the pipeline mixes down every sink's
// contribution and pushes the result to the output device, matching one
// Opus frame duration.
const outputTickPeriod = time.Duration(opusFrameMillis) * time.Millisecond

// Pipeline is the Audio Pipeline (component D). It keeps the audio device
// state in one value rather than package-level globals: its methods
// serialize on a per-instance mutex, every Source and Sink runs its own
// goroutine, and sinks submit decoded frames into a shared mixer that a
// mixdown goroutine drains once per frame period.
type Pipeline struct {
	logger *slog.Logger

	mu       sync.Mutex
	source   *Source
	sinks    map[identity.PeerID]*Sink
	output   SinkDevice
	outputCh chan frame.PCMFrame
	stopMix  chan struct{}
	mixer    *mixer
	recorder *Recorder
	deafened bool

	Events chan Event
}

// NewPipeline builds an idle pipeline bound to an output device and starts
// its mixdown loop.
func NewPipeline(output SinkDevice) *Pipeline {
	outputCh := make(chan frame.PCMFrame, 4)
	p := &Pipeline{
		logger:   slog.Default().With("component", "media.pipeline"),
		sinks:    make(map[identity.PeerID]*Sink),
		output:   output,
		outputCh: outputCh,
		stopMix:  make(chan struct{}),
		mixer:    newMixer(),
		Events:   make(chan Event, 64),
	}
	output.SetStream(outputCh)
	go p.mixLoop()
	return p
}

func (p *Pipeline) mixLoop() {
	ticker := time.NewTicker(outputTickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopMix:
			return
		case <-ticker.C:
			select {
			case p.outputCh <- p.mixer.mix():
			default:
			}
		}
	}
}

// StartSource creates the microphone source track at the moment a call
// becomes active.
func (p *Pipeline) StartSource(device SourceDevice, codecSampleRate, codecChannels int, track sampleWriter) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source != nil {
		return fmt.Errorf("media: source already started")
	}
	src, err := NewSource(device, codecSampleRate, codecChannels, track, p.Events)
	if err != nil {
		return fmt.Errorf("media: start source: %w", err)
	}
	p.source = src
	return nil
}

// StopSource destroys the microphone source track, at the moment the call
// ceases to be active.
func (p *Pipeline) StopSource() {
	p.mu.Lock()
	src := p.source
	p.source = nil
	p.mu.Unlock()
	if src != nil {
		src.Close()
	}
}

// ChangeInputDevice swaps the active call's capture device without
// restarting the outbound track or touching SDP/ICE state. A no-op if no
// source is currently active.
func (p *Pipeline) ChangeInputDevice(device SourceDevice) {
	p.mu.Lock()
	src := p.source
	p.mu.Unlock()
	if src != nil {
		src.ChangeDevice(device)
	}
}

// ChangeOutputDevice swaps the shared playback device every sink mixes
// down into, rewiring the mixdown loop's output and every live sink's
// resampling chain without tearing down any sink's decoder.
func (p *Pipeline) ChangeOutputDevice(output SinkDevice) {
	p.mu.Lock()
	p.output = output
	sinks := make([]*Sink, 0, len(p.sinks))
	for _, s := range p.sinks {
		sinks = append(sinks, s)
	}
	p.mu.Unlock()

	output.SetStream(p.outputCh)
	props := output.GetDeviceProperties()
	for _, s := range sinks {
		s.SetOutputProps(props)
	}
}

// MuteSelf pauses (true) or resumes (false) the source track.
func (p *Pipeline) MuteSelf(muted bool) {
	p.mu.Lock()
	src := p.source
	p.mu.Unlock()
	if src != nil {
		src.SetMuted(muted)
	}
}

// AddSink creates an Opus sink track bound to the current output device for
// peer, used when a remote media track arrives.
func (p *Pipeline) AddSink(peer identity.PeerID, track trackReader, codecSampleRate, codecChannels int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.sinks[peer]; exists {
		return nil
	}
	sink, err := NewSink(peer, track, codecSampleRate, codecChannels, p.output.GetDeviceProperties(), p.mixer)
	if err != nil {
		return fmt.Errorf("media: add sink for %s: %w", peer, err)
	}
	if p.deafened {
		sink.SetDeafened(true)
	}
	p.sinks[peer] = sink
	return nil
}

// RemoveSink stops peer's decoder and releases its output-device reference.
func (p *Pipeline) RemoveSink(peer identity.PeerID) {
	p.mu.Lock()
	sink, exists := p.sinks[peer]
	delete(p.sinks, peer)
	p.mu.Unlock()
	if exists {
		sink.Close()
	}
}

// SilenceCall pauses (true) or resumes (false) every sink.
func (p *Pipeline) SilenceCall(deafened bool) {
	p.mu.Lock()
	p.deafened = deafened
	sinks := make([]*Sink, 0, len(p.sinks))
	for _, s := range p.sinks {
		sinks = append(sinks, s)
	}
	p.mu.Unlock()
	for _, s := range sinks {
		s.SetDeafened(deafened)
	}
}

// StartRecording initializes an MP4 logger for participants: one file per
// participant holding its init segment. Nothing in the pipeline feeds audio
// into the logger, so the files receive no samples.
func (p *Pipeline) StartRecording(outputDir string, participants []identity.PeerID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	recorder := NewRecorder(outputDir)
	if err := recorder.Start(participants); err != nil {
		return fmt.Errorf("media: start recording: %w", err)
	}
	p.recorder = recorder
	return nil
}

// StopRecording stops the logger, flushing any pending samples and closing
// every file. A later StartRecording creates its files afresh rather than
// resuming these.
func (p *Pipeline) StopRecording() error {
	p.mu.Lock()
	recorder := p.recorder
	p.recorder = nil
	p.mu.Unlock()
	if recorder == nil {
		return nil
	}
	return recorder.Stop()
}

// Reset tears down the source, every sink, and any in-progress recording —
// the full media reset performed on active-call swap and on leaving the
// active call.
func (p *Pipeline) Reset() {
	p.StopSource()

	p.mu.Lock()
	sinks := make([]*Sink, 0, len(p.sinks))
	for _, s := range p.sinks {
		sinks = append(sinks, s)
	}
	p.sinks = make(map[identity.PeerID]*Sink)
	recorder := p.recorder
	p.recorder = nil
	p.mu.Unlock()

	for _, s := range sinks {
		s.Close()
	}
	if recorder != nil {
		if err := recorder.Stop(); err != nil {
			p.logger.Error("stop recording during reset failed", "err", err)
		}
	}
}

// Close tears down the pipeline entirely, stopping the mixdown loop. The
// pipeline is not usable after Close returns.
func (p *Pipeline) Close() {
	p.Reset()
	close(p.stopMix)
}
