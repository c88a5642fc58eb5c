package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// RequestID is a 128-bit random identifier for recovery requests.
type RequestID [16]byte

// NewRequestID draws a fresh identifier from crypto/rand.
func NewRequestID() (RequestID, error) {
	var id RequestID
	_, err := rand.Read(id[:])
	return id, err
}

// String encodes the identifier as compact unpadded base64url.
func (id RequestID) String() string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// ParseRequestID decodes the String form back into a RequestID.
func ParseRequestID(s string) (RequestID, error) {
	var id RequestID

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.New("invalid request id size")
	}

	copy(id[:], raw)
	return id, nil
}
