package crypto

import (
	"bytes"
	"crypto/rand"
	"testing"

	"golang.org/x/crypto/nacl/box"
)

func TestAESRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcde"))
	plaintext := []byte("join the call")

	ciphertext, err := SealAES(key, plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	got, err := OpenAES(key, ciphertext)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestAESTamperDetected(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcde"))
	ciphertext, err := SealAES(key, []byte("hello"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xFF
	if _, err := OpenAES(key, ciphertext); err == nil {
		t.Fatalf("expected tamper to be detected")
	}
}

func TestECDHRoundTrip(t *testing.T) {
	alicePub, aliceSec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate alice key: %v", err)
	}
	bobPub, bobSec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate bob key: %v", err)
	}

	plaintext := []byte("v=0\r\n")
	ciphertext, err := SealECDH(bobPub, aliceSec, plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	got, err := OpenECDH(alicePub, bobSec, ciphertext)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, plaintext)
	}
}
