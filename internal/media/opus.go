package media

import (
	"errors"
	"fmt"

	"github.com/havenline/callcore/pkg/frame"
	"github.com/jj11hh/opus"
)

// Codec defaults: Opus, mono, 48 kHz, 10 ms frames, 16 kbps VBR, VoIP
// application profile.
const (
	defaultSampleRate = 48000
	defaultChannels   = 1
	defaultBitrate    = 16000
	opusFrameMillis   = 10
)

// OpusCodec wraps an Opus encoder/decoder pair for one track.
type OpusCodec struct {
	sampleRate  int
	numChannels int

	encoder       *opus.Encoder
	encodingFrame frame.EncodedFrame
	decoder       *opus.Decoder
	decodedFrame  frame.PCMFrame
}

// NewOpusCodec builds an encoder/decoder pair for the given sample rate and
// channel count, sizing buffers for 5 frames at 20ms.
func NewOpusCodec(sampleRate, numChannels int) (*OpusCodec, error) {
	encoder, errEnc := opus.NewEncoder(sampleRate, numChannels, opus.Application(opus.AppVoIP))
	decoder, errDec := opus.NewDecoder(sampleRate, numChannels)
	if err := errors.Join(errEnc, errDec); err != nil {
		return nil, fmt.Errorf("media: new opus codec: %w", err)
	}
	if err := encoder.SetBitrate(defaultBitrate); err != nil {
		return nil, fmt.Errorf("media: set opus bitrate: %w", err)
	}

	bufferSize := sampleRate * numChannels * 20 * 5 / 1000
	return &OpusCodec{
		sampleRate:    sampleRate,
		numChannels:   numChannels,
		encoder:       encoder,
		encodingFrame: make(frame.EncodedFrame, bufferSize),
		decoder:       decoder,
		decodedFrame:  make(frame.PCMFrame, bufferSize),
	}, nil
}

// Encode encodes one PCM frame to Opus.
func (c *OpusCodec) Encode(pcm frame.PCMFrame) (frame.EncodedFrame, error) {
	n, err := c.encoder.EncodeFloat32(pcm, c.encodingFrame)
	if err != nil {
		return nil, fmt.Errorf("media: opus encode: %w", err)
	}
	return c.encodingFrame[:n], nil
}

// Decode decodes one Opus packet to PCM.
func (c *OpusCodec) Decode(encoded frame.EncodedFrame) (frame.PCMFrame, error) {
	n, err := c.decoder.DecodeFloat32(encoded, c.decodedFrame)
	if err != nil {
		return nil, fmt.Errorf("media: opus decode: %w", err)
	}
	return c.decodedFrame[:n*c.numChannels], nil
}
