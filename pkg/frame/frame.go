// Package frame defines the raw sample buffer types shared by every stage
// of the audio pipeline, from device capture through Opus encode/decode.
package frame

// PCMFrame is an interleaved, normalized ([-1.0, 1.0]) float32 PCM buffer.
// Samples are interleaved per channel, e.g. for stereo: L0 R0 L1 R1 ...
type PCMFrame []float32

// EncodedFrame is a buffer of codec-encoded bytes, e.g. one Opus packet.
type EncodedFrame []byte

// Clone returns a copy of f, safe to retain after the original buffer is reused.
func (f PCMFrame) Clone() PCMFrame {
	out := make(PCMFrame, len(f))
	copy(out, f)
	return out
}

// Clone returns a copy of f, safe to retain after the original buffer is reused.
func (f EncodedFrame) Clone() EncodedFrame {
	out := make(EncodedFrame, len(f))
	copy(out, f)
	return out
}
