package media

import (
	"sync"

	"github.com/havenline/callcore/pkg/frame"
)

// mixer combines decoded PCM from every connected peer sink into one shared
// output buffer by sample-wise addition.
type mixer struct {
	mu     sync.Mutex
	inputs map[string]frame.PCMFrame
}

func newMixer() *mixer {
	return &mixer{inputs: make(map[string]frame.PCMFrame)}
}

// submit records peerID's latest decoded frame for the next Mix call.
func (m *mixer) submit(peerID string, f frame.PCMFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs[peerID] = f
}

// remove drops peerID from future mixes, e.g. when its sink is torn down.
func (m *mixer) remove(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inputs, peerID)
}

// mix sums every pending contribution sample-wise, clamping to [-1, 1], and
// clears pending state for the next cycle.
func (m *mixer) mix() frame.PCMFrame {
	m.mu.Lock()
	defer m.mu.Unlock()

	maxLen := 0
	for _, f := range m.inputs {
		if len(f) > maxLen {
			maxLen = len(f)
		}
	}
	out := make(frame.PCMFrame, maxLen)
	for _, f := range m.inputs {
		for i, v := range f {
			out[i] += v
			if out[i] > 1 {
				out[i] = 1
			} else if out[i] < -1 {
				out[i] = -1
			}
		}
	}
	m.inputs = make(map[string]frame.PCMFrame, len(m.inputs))
	return out
}
