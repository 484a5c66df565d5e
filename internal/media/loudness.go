package media

import (
	"math"

	"github.com/havenline/callcore/pkg/frame"
)

// RMS computes the root-mean-square loudness of f, emitted as a UI event
// for VU metering.
func RMS(f frame.PCMFrame) float64 {
	if len(f) == 0 {
		return 0
	}
	var sumSquares float64
	for _, v := range f {
		sumSquares += float64(v) * float64(v)
	}
	return math.Sqrt(sumSquares / float64(len(f)))
}
