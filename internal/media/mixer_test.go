package media

import (
	"testing"

	"github.com/havenline/callcore/pkg/frame"
)

func TestMixerSumsContributions(t *testing.T) {
	m := newMixer()
	m.submit("alice", frame.PCMFrame{0.1, 0.2})
	m.submit("bob", frame.PCMFrame{0.1, 0.1})

	out := m.mix()
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if got, want := out[0], float32(0.2); !almostEqual(got, want) {
		t.Errorf("out[0] = %v, want %v", got, want)
	}
	if got, want := out[1], float32(0.3); !almostEqual(got, want) {
		t.Errorf("out[1] = %v, want %v", got, want)
	}
}

func TestMixerClampsToUnitRange(t *testing.T) {
	m := newMixer()
	m.submit("alice", frame.PCMFrame{0.9})
	m.submit("bob", frame.PCMFrame{0.9})

	out := m.mix()
	if out[0] != 1 {
		t.Errorf("out[0] = %v, want 1 (clamped)", out[0])
	}
}

func TestMixerRemoveStopsContribution(t *testing.T) {
	m := newMixer()
	m.submit("alice", frame.PCMFrame{0.5})
	m.remove("alice")

	out := m.mix()
	if len(out) != 0 {
		t.Fatalf("len(out) = %d, want 0 after remove", len(out))
	}
}

func TestMixerClearsAfterMix(t *testing.T) {
	m := newMixer()
	m.submit("alice", frame.PCMFrame{0.5})
	_ = m.mix()

	out := m.mix()
	if len(out) != 0 {
		t.Fatalf("second mix should be empty, got len %d", len(out))
	}
}

func almostEqual(a, b float32) bool {
	const eps = 1e-6
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < eps
}
