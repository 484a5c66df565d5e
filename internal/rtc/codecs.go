// Package rtc implements the WebRTC Controller: per-peer PeerConnection
// lifecycle, SDP/ICE exchange, track management, and connection-state
// events, managing a map of peer connections keyed by peer id, driven by
// gossip signals rather than HTTP offer/answer exchange.
package rtc

import "github.com/pion/webrtc/v4"

// CodecMap maps a config-file-friendly string name to an RTP codec
// capability.
var CodecMap = map[string]webrtc.RTPCodecCapability{
	"CodecOpus48000Stereo": {MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
	"CodecOpus48000Mono":   {MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 1},
	"CodecOpus24000Stereo": {MimeType: webrtc.MimeTypeOpus, ClockRate: 24000, Channels: 2},
	"CodecOpus24000Mono":   {MimeType: webrtc.MimeTypeOpus, ClockRate: 24000, Channels: 1},
	"CodecOpus16000Stereo": {MimeType: webrtc.MimeTypeOpus, ClockRate: 16000, Channels: 2},
	"CodecOpus16000Mono":   {MimeType: webrtc.MimeTypeOpus, ClockRate: 16000, Channels: 1},
	"CodecOpus12000Stereo": {MimeType: webrtc.MimeTypeOpus, ClockRate: 12000, Channels: 2},
	"CodecOpus12000Mono":   {MimeType: webrtc.MimeTypeOpus, ClockRate: 12000, Channels: 1},
	"CodecOpus8000Stereo":  {MimeType: webrtc.MimeTypeOpus, ClockRate: 8000, Channels: 2},
	"CodecOpus8000Mono":    {MimeType: webrtc.MimeTypeOpus, ClockRate: 8000, Channels: 1},
}

// DefaultCodec is the Opus/mono/48kHz default used for the microphone
// source track.
var DefaultCodec = CodecMap["CodecOpus48000Mono"]

func newMediaEngine(codecs []webrtc.RTPCodecCapability) (*webrtc.MediaEngine, error) {
	mediaEngine := &webrtc.MediaEngine{}
	for i, codec := range codecs {
		err := mediaEngine.RegisterCodec(webrtc.RTPCodecParameters{
			RTPCodecCapability: codec,
			PayloadType:        webrtc.PayloadType(100 + i),
		}, webrtc.RTPCodecTypeAudio)
		if err != nil {
			return nil, err
		}
	}
	return mediaEngine, nil
}
