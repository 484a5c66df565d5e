package media

import "github.com/havenline/callcore/pkg/frame"

// EchoCancelStrategy selects how the capture-frame pass interacts with the
// render-frame pass: Normal runs capture only; DoubleMax and DoubleInput
// additionally run a render-frame pass through the out-of-scope
// echo-cancellation processor.
type EchoCancelStrategy uint8

const (
	EchoCancelNormal EchoCancelStrategy = iota
	EchoCancelDoubleMax
	EchoCancelDoubleInput
)

// EchoCanceller is the out-of-scope external collaborator: an
// echo-cancellation processor the source path may run a capture frame
// (and, depending on strategy, a render frame) through before encoding.
type EchoCanceller interface {
	ProcessCapture(capture frame.PCMFrame) frame.PCMFrame
	ProcessRender(render frame.PCMFrame) frame.PCMFrame
}

// NullEchoCanceller passes frames through unmodified; it is the default used
// when no real echo-cancellation processor is configured.
type NullEchoCanceller struct{}

func (NullEchoCanceller) ProcessCapture(capture frame.PCMFrame) frame.PCMFrame { return capture }
func (NullEchoCanceller) ProcessRender(render frame.PCMFrame) frame.PCMFrame   { return render }

// applyEchoCancel runs capture (and, for the Double* strategies, render)
// through canceller according to strategy.
func applyEchoCancel(strategy EchoCancelStrategy, canceller EchoCanceller, capture, render frame.PCMFrame) frame.PCMFrame {
	switch strategy {
	case EchoCancelDoubleMax, EchoCancelDoubleInput:
		canceller.ProcessRender(render)
		return canceller.ProcessCapture(capture)
	default:
		return canceller.ProcessCapture(capture)
	}
}
