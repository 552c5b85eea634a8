// Package record converts lists of save records to and from the encrypted
// JSON documents persisted per file, and owns the synthetic timestamp record
// each file carries for replica reconciliation.
package record

import (
	"encoding/json"
	"fmt"

	"savesync/cipher"
	"savesync/saveport"
)

// DecodeError wraps any failure to decrypt or parse a file payload. Callers
// must treat the affected replica as absent rather than failing the batch.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode payload: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// Codec serializes record lists through the configured cipher.
type Codec struct {
	cipher cipher.Cipher
}

// NewCodec returns a codec backed by the given cipher.
func NewCodec(c cipher.Cipher) *Codec {
	return &Codec{cipher: c}
}

// Encode serializes records as a JSON array of {Key, Data} objects and
// encrypts the result. Insertion order is preserved.
func (c *Codec) Encode(records []saveport.SaveRecord) ([]byte, error) {
	if records == nil {
		records = []saveport.SaveRecord{}
	}
	plain, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}
	out, err := c.cipher.Encrypt(plain)
	if err != nil {
		return nil, fmt.Errorf("encrypt records: %w", err)
	}
	return out, nil
}

// Decode reverses Encode. Any failure, including an empty payload, is
// returned as a *DecodeError.
func (c *Codec) Decode(payload []byte) ([]saveport.SaveRecord, error) {
	if len(payload) == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("empty payload")}
	}
	plain, err := c.cipher.Decrypt(payload)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	var records []saveport.SaveRecord
	if err := json.Unmarshal(plain, &records); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return records, nil
}
