package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/havenline/callcore/pkg/frame"
	"github.com/havenline/callcore/pkg/identity"
)

// mp4Timescale is the fixed recording timescale: 100 units/second, i.e.
// 10ms per unit, matching one Opus frame per sample duration unit.
const mp4Timescale = 100

// fragmentCadenceUnits is one second of mp4Timescale units: fragments are
// written as moof+mdat pairs at 1-second cadence.
const fragmentCadenceUnits = mp4Timescale

// Recorder maintains one fragmented ISO-BMFF audio trak per call
// participant, writing moof+mdat pairs at a fixed cadence.
type Recorder struct {
	mu         sync.Mutex
	outputDir  string
	tracks     map[identity.PeerID]*recorderTrack
	sequenceNo uint32
}

type recorderTrack struct {
	peer       identity.PeerID
	file       *os.File
	trackID    uint32
	samples    []*mp4.FullSample
	cumulative uint64
}

// NewRecorder prepares (but does not yet open) a recorder writing into
// outputDir, one file per participant.
func NewRecorder(outputDir string) *Recorder {
	return &Recorder{
		outputDir: outputDir,
		tracks:    make(map[identity.PeerID]*recorderTrack),
	}
}

// Start opens one output file per participant and writes its init segment:
// one trak with handler_type="soun" and mdhd/mvhd timescale=100. No Opus
// sample entry is added to the trak's stsd.
func (r *Recorder) Start(participants []identity.PeerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return fmt.Errorf("media: create recording dir: %w", err)
	}

	for i, peer := range participants {
		path := filepath.Join(r.outputDir, fmt.Sprintf("%s.mp4", peer))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("media: create recording file for %s: %w", peer, err)
		}

		init := mp4.CreateEmptyInit()
		init.Moov.Mvhd.Timescale = mp4Timescale
		trackID := uint32(i + 1)
		if err := init.AddEmptyTrak(trackID, mp4Timescale, "soun", "und"); err != nil {
			f.Close()
			return fmt.Errorf("media: add trak for %s: %w", peer, err)
		}
		if err := init.Encode(f); err != nil {
			f.Close()
			return fmt.Errorf("media: encode init segment for %s: %w", peer, err)
		}

		r.tracks[peer] = &recorderTrack{peer: peer, file: f, trackID: trackID}
	}
	return nil
}

// WriteFrame appends one encoded Opus packet for peer as a sample, flushing a
// moof+mdat fragment whenever a full second of audio has accumulated.
func (r *Recorder) WriteFrame(peer identity.PeerID, encoded frame.EncodedFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	track, ok := r.tracks[peer]
	if !ok {
		return nil // not a recorded participant (e.g. recording started after they joined)
	}

	track.samples = append(track.samples, &mp4.FullSample{
		Sample: mp4.Sample{
			Flags: mp4.NonSyncSampleFlags,
			Dur:   opusFrameMillis * mp4Timescale / 1000,
			Size:  uint32(len(encoded)),
		},
		Data:       encoded,
		DecodeTime: track.cumulative,
	})
	track.cumulative += uint64(opusFrameMillis * mp4Timescale / 1000)

	accumulatedUnits := uint64(len(track.samples)) * uint64(opusFrameMillis*mp4Timescale/1000)
	if accumulatedUnits < fragmentCadenceUnits {
		return nil
	}
	return r.flushLocked(track)
}

func (r *Recorder) flushLocked(track *recorderTrack) error {
	r.sequenceNo++
	frag, err := mp4.CreateFragment(r.sequenceNo, track.trackID)
	if err != nil {
		return fmt.Errorf("media: create fragment for %s: %w", track.peer, err)
	}
	for _, sample := range track.samples {
		if err := frag.AddFullSample(sample); err != nil {
			return fmt.Errorf("media: add sample for %s: %w", track.peer, err)
		}
	}
	track.samples = track.samples[:0]
	if err := frag.Encode(track.file); err != nil {
		return fmt.Errorf("media: encode fragment for %s: %w", track.peer, err)
	}
	return nil
}

// Stop flushes any pending partial fragment and closes every track file.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, track := range r.tracks {
		if len(track.samples) > 0 {
			if err := r.flushLocked(track); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := track.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.tracks = make(map[identity.PeerID]*recorderTrack)
	return firstErr
}
