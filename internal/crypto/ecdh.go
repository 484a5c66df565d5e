package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// SealECDH derives a shared secret between localSecret and peerPublic and
// seals plaintext under it with a fresh nonce, in the manner of
// golang.org/x/crypto/nacl/box (X25519 + XSalsa20-Poly1305).
func SealECDH(peerPublic, localSecret *[32]byte, plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("crypto: generate ecdh nonce: %w", err)
	}
	return box.Seal(nonce[:], plaintext, &nonce, peerPublic, localSecret), nil
}

// OpenECDH is the inverse of SealECDH.
func OpenECDH(peerPublic, localSecret *[32]byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 24 {
		return nil, fmt.Errorf("crypto: ecdh ciphertext too short: %d bytes", len(ciphertext))
	}
	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])
	plaintext, ok := box.Open(nil, ciphertext[24:], &nonce, peerPublic, localSecret)
	if !ok {
		return nil, fmt.Errorf("crypto: open ecdh envelope: authentication failed")
	}
	return plaintext, nil
}
