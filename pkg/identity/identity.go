// Package identity derives a peer's stable identity from an X25519 keypair,
// usable for Diffie-Hellman key agreement for peer-directed encryption.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/nacl/box"
)

// PeerID is the stable, publishable identifier for a peer: the hex encoding
// of its X25519 public key. Unlike a bare uuid.UUID it doubles as the public
// half of an ECDH keypair, so peers never need a separate key-exchange round
// trip before they can address an envelope to one another.
type PeerID string

// String returns the PeerID unchanged, satisfying fmt.Stringer.
func (p PeerID) String() string { return string(p) }

// Identity is a peer's local X25519 keypair plus a random CallUUID generated
// alongside it. Gossip topics and call membership are keyed by the PeerID
// (GetOwnID), not by CallUUID.
type Identity struct {
	CallUUID  uuid.UUID
	publicKey *[32]byte
	secretKey *[32]byte
}

// New generates a fresh X25519 keypair and wraps it in an Identity.
func New() (*Identity, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate keypair: %w", err)
	}
	return &Identity{
		CallUUID:  uuid.New(),
		publicKey: pub,
		secretKey: priv,
	}, nil
}

// GetOwnID returns this identity's public PeerID.
func (id *Identity) GetOwnID() PeerID {
	return PeerID(hex.EncodeToString(id.publicKey[:]))
}

// PublicKey returns the raw public key bytes, e.g. for embedding in an
// InitiationSignal.
func (id *Identity) PublicKey() *[32]byte {
	return id.publicKey
}

// SecretKey returns the raw private key bytes, used only for ECDH envelope
// open/seal in internal/crypto.
func (id *Identity) SecretKey() *[32]byte {
	return id.secretKey
}

// DecodePeerID parses a PeerID back into the raw public key box.Seal and
// box.Open expect.
func DecodePeerID(id PeerID) (*[32]byte, error) {
	raw, err := hex.DecodeString(string(id))
	if err != nil {
		return nil, fmt.Errorf("identity: decode peer id %q: %w", id, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("identity: peer id %q decodes to %d bytes, want 32", id, len(raw))
	}
	var out [32]byte
	copy(out[:], raw)
	return &out, nil
}
