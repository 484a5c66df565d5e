// Package media implements the Audio Pipeline (component D): converting
// microphone samples to Opus RTP packets and inbound RTP to decoded PCM,
// mute/deafen handling, and optional MP4 recording.
package media

import "github.com/havenline/callcore/pkg/frame"

// DeviceProperties describes the sample rate and channel count a device
// produces or consumes.
type DeviceProperties struct {
	SampleRate  int
	NumChannels int
}

// SourceDevice is the out-of-scope external collaborator that produces a
// stream of PCM frames, e.g. a microphone.
type SourceDevice interface {
	GetStream() <-chan frame.PCMFrame
	Close()
	GetDeviceProperties() DeviceProperties
}

// SinkDevice is the external collaborator that consumes a stream of PCM
// frames, e.g. a speaker.
type SinkDevice interface {
	SetStream(source <-chan frame.PCMFrame)
	GetDeviceProperties() DeviceProperties
}
