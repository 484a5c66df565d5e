package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: build cbor encode mode: %v", err))
	}
	encMode = mode
}

// EncodeCallSignal serializes a CallSignal to its self-describing binary form.
func EncodeCallSignal(s CallSignal) ([]byte, error) {
	b, err := encMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("wire: encode call signal: %w", err)
	}
	return b, nil
}

// DecodeCallSignal is the inverse of EncodeCallSignal.
func DecodeCallSignal(b []byte) (CallSignal, error) {
	var s CallSignal
	if err := cbor.Unmarshal(b, &s); err != nil {
		return CallSignal{}, fmt.Errorf("wire: decode call signal: %w", err)
	}
	return s, nil
}

// EncodePeerSignal serializes a PeerSignal to its self-describing binary form.
func EncodePeerSignal(s PeerSignal) ([]byte, error) {
	b, err := encMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("wire: encode peer signal: %w", err)
	}
	return b, nil
}

// DecodePeerSignal is the inverse of EncodePeerSignal.
func DecodePeerSignal(b []byte) (PeerSignal, error) {
	var s PeerSignal
	if err := cbor.Unmarshal(b, &s); err != nil {
		return PeerSignal{}, fmt.Errorf("wire: decode peer signal: %w", err)
	}
	return s, nil
}

// EncodeInitiationSignal serializes an InitiationSignal to its self-describing
// binary form.
func EncodeInitiationSignal(s InitiationSignal) ([]byte, error) {
	b, err := encMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("wire: encode initiation signal: %w", err)
	}
	return b, nil
}

// DecodeInitiationSignal is the inverse of EncodeInitiationSignal.
func DecodeInitiationSignal(b []byte) (InitiationSignal, error) {
	var s InitiationSignal
	if err := cbor.Unmarshal(b, &s); err != nil {
		return InitiationSignal{}, fmt.Errorf("wire: decode initiation signal: %w", err)
	}
	return s, nil
}
