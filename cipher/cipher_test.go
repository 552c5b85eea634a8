package cipher

import (
	"bytes"
	"errors"
	"testing"
)

func TestXChaChaRoundTrip(t *testing.T) {
	c := NewXChaCha("correct horse battery staple")
	plain := []byte(`[{"Key":"P","Data":{"hp":10}}]`)

	enc, err := c.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Contains(enc, []byte(`"hp"`)) {
		t.Fatal("ciphertext leaks plaintext")
	}

	dec, err := c.Decrypt(enc)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(dec, plain) {
		t.Fatalf("Decrypt = %q, want %q", dec, plain)
	}
}

func TestXChaChaWrongPassword(t *testing.T) {
	enc, err := NewXChaCha("right").Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := NewXChaCha("wrong").Decrypt(enc); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("Decrypt with wrong password: err = %v, want ErrDecrypt", err)
	}
}

func TestXChaChaTamperDetected(t *testing.T) {
	c := NewXChaCha("pw")
	enc, err := c.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	enc[len(enc)-1] ^= 0xff
	if _, err := c.Decrypt(enc); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("Decrypt of tampered payload: err = %v, want ErrDecrypt", err)
	}
}

func TestXChaChaShortCiphertext(t *testing.T) {
	c := NewXChaCha("pw")
	for _, n := range []int{0, 1, saltLen, saltLen + 10} {
		if _, err := c.Decrypt(make([]byte, n)); !errors.Is(err, ErrDecrypt) {
			t.Errorf("Decrypt of %d bytes: err = %v, want ErrDecrypt", n, err)
		}
	}
}

func TestXChaChaFreshSaltAndNonce(t *testing.T) {
	c := NewXChaCha("pw")
	a, err := c.Encrypt([]byte("same payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := c.Encrypt([]byte("same payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two encryptions of the same payload are identical")
	}
}

func TestNoopPassthrough(t *testing.T) {
	var c Noop
	plain := []byte("untouched")

	enc, err := c.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !bytes.Equal(enc, plain) {
		t.Fatalf("Encrypt = %q, want %q", enc, plain)
	}

	dec, err := c.Decrypt(enc)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(dec, plain) {
		t.Fatalf("Decrypt = %q, want %q", dec, plain)
	}
}
