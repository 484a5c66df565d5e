package media

import (
	"sync"

	"github.com/havenline/callcore/pkg/frame"
)

// DummySourceDevice never produces a frame. Used as the default microphone
// when no real capture device is wired in (and by tests).
type DummySourceDevice struct {
	properties   DeviceProperties
	shutdownOnce sync.Once
	stream       chan frame.PCMFrame
}

// NewDummySourceDevice returns a SourceDevice that never emits a frame.
func NewDummySourceDevice(properties DeviceProperties) *DummySourceDevice {
	return &DummySourceDevice{properties: properties, stream: make(chan frame.PCMFrame)}
}

func (d *DummySourceDevice) Close() {
	d.shutdownOnce.Do(func() { close(d.stream) })
}

func (d *DummySourceDevice) GetStream() <-chan frame.PCMFrame {
	return d.stream
}

func (d *DummySourceDevice) GetDeviceProperties() DeviceProperties {
	return d.properties
}

// DummySinkDevice consumes every frame without doing anything with it.
// Used as the default speaker when no real playback device is wired in.
type DummySinkDevice struct {
	properties DeviceProperties
}

// NewDummySinkDevice returns a SinkDevice that discards everything it reads.
func NewDummySinkDevice(properties DeviceProperties) *DummySinkDevice {
	return &DummySinkDevice{properties: properties}
}

func (d *DummySinkDevice) SetStream(source <-chan frame.PCMFrame) {
	go func() {
		for range source {
		}
	}()
}

func (d *DummySinkDevice) GetDeviceProperties() DeviceProperties {
	return d.properties
}
