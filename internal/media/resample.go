package media

import (
	"github.com/havenline/callcore/pkg/frame"
	"github.com/oov/audio/resampler"
)

const (
	// conversionBufferSize is sized for 48kHz stereo audio at ~170ms latency,
	// comfortably above any single frame this pipeline produces.
	conversionBufferSize = 16384
	resampleQuality      = 10
)

// formatConversionFunc adapts one PCM frame from a source format to a sink
// format: mono/stereo mixing, resampling, or both.
type formatConversionFunc func(source frame.PCMFrame) frame.PCMFrame

// buildConversionChain returns the conversion functions needed to go from
// sourceProps to sinkProps, following the
// AudioFormatConversionDevice constructor logic exactly.
func buildConversionChain(sourceProps, sinkProps DeviceProperties) []formatConversionFunc {
	var chain []formatConversionFunc
	if sourceProps.NumChannels == 1 && sinkProps.NumChannels == 2 {
		chain = append(chain, monoToStereo())
	}
	if sourceProps.NumChannels == 2 && sinkProps.NumChannels == 1 {
		chain = append(chain, stereoToMono())
	}
	if sourceProps.SampleRate != sinkProps.SampleRate {
		chain = append(chain, newResampleFunc(sourceProps, sinkProps))
	}
	return chain
}

// Convert runs frame through every stage of chain in order.
func Convert(chain []formatConversionFunc, f frame.PCMFrame) frame.PCMFrame {
	for _, stage := range chain {
		f = stage(f)
	}
	return f
}

func monoToStereo() formatConversionFunc {
	buf := make(frame.PCMFrame, conversionBufferSize)
	return func(source frame.PCMFrame) frame.PCMFrame {
		for i, v := range source {
			buf[2*i] = v
			buf[2*i+1] = v
		}
		return buf[:2*len(source)]
	}
}

func stereoToMono() formatConversionFunc {
	buf := make(frame.PCMFrame, conversionBufferSize)
	return func(source frame.PCMFrame) frame.PCMFrame {
		if len(source)%2 == 1 {
			source = source[:len(source)-1]
		}
		for i := 0; i < len(source)/2; i++ {
			buf[i] = (source[2*i] + source[2*i+1]) / 2
		}
		return buf[:len(source)/2]
	}
}

func newResampleFunc(sourceProps, sinkProps DeviceProperties) formatConversionFunc {
	if sinkProps.NumChannels == 1 {
		r := resampler.New(1, sourceProps.SampleRate, sinkProps.SampleRate, resampleQuality)
		buf := make(frame.PCMFrame, conversionBufferSize)
		return func(source frame.PCMFrame) frame.PCMFrame {
			_, written := r.ProcessFloat32(0, source, buf)
			return buf[:written]
		}
	}

	r := resampler.New(2, sourceProps.SampleRate, sinkProps.SampleRate, resampleQuality)
	leftIn := make(frame.PCMFrame, conversionBufferSize/2)
	rightIn := make(frame.PCMFrame, conversionBufferSize/2)
	leftOut := make(frame.PCMFrame, conversionBufferSize/2)
	rightOut := make(frame.PCMFrame, conversionBufferSize/2)
	buf := make(frame.PCMFrame, conversionBufferSize)
	return func(source frame.PCMFrame) frame.PCMFrame {
		if len(source)%2 == 1 {
			source = source[:len(source)-1]
		}
		for i := 0; i < len(source)/2; i++ {
			leftIn[i] = source[2*i]
			rightIn[i] = source[2*i+1]
		}
		_, written := r.ProcessFloat32(0, leftIn[:len(source)/2], leftOut)
		r.ProcessFloat32(1, rightIn[:len(source)/2], rightOut)
		for i := 0; i < written; i++ {
			buf[2*i] = leftOut[i]
			buf[2*i+1] = rightOut[i]
		}
		return buf[:2*written]
	}
}
