/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kms

import (
	"fmt"
	"strings"
)

// KeyType represents a key algorithm supported by the wallet.
// The set is closed: every operation switches over all values.
type KeyType int

const (
	// ED25519 is an Ed25519 signing key pair.
	ED25519 KeyType = iota + 1
	// X25519 is a Curve25519 key agreement key pair, only obtained by converting an ED25519 key.
	X25519
	// Chacha20Poly1305 is a 32-byte symmetric secret.
	Chacha20Poly1305
)

const (
	ed25519Name          = "ed25519"
	x25519Name           = "x25519"
	chacha20Poly1305Name = "chacha20poly1305"
)

// ParseKeyType returns the KeyType named by s (case insensitive).
func ParseKeyType(s string) (KeyType, error) {
	switch strings.ToLower(s) {
	case ed25519Name:
		return ED25519, nil
	case x25519Name:
		return X25519, nil
	case chacha20Poly1305Name:
		return Chacha20Poly1305, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
}

// String returns the key type name used in record identifiers.
func (t KeyType) String() string {
	switch t {
	case ED25519:
		return ed25519Name
	case X25519:
		return x25519Name
	case Chacha20Poly1305:
		return chacha20Poly1305Name
	default:
		return fmt.Sprintf("KeyType(%d)", int(t))
	}
}

// Valid reports whether t is one of the supported key types.
func (t KeyType) Valid() bool {
	switch t {
	case ED25519, X25519, Chacha20Poly1305:
		return true
	default:
		return false
	}
}

// MarshalText encodes the key type by name.
func (t KeyType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, int(t))
	}

	return []byte(t.String()), nil
}

// UnmarshalText decodes a key type name.
func (t *KeyType) UnmarshalText(text []byte) error {
	kt, err := ParseKeyType(string(text))
	if err != nil {
		return err
	}

	*t = kt

	return nil
}
