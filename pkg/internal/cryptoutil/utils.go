/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptoutil

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/teserakt-io/golang-ed25519/extra25519"
	"golang.org/x/crypto/blake2b"
)

// Curve25519KeySize number of bytes in a Curve25519 public or private key.
const Curve25519KeySize = 32

// NonceSize size of a nonce used by Box encryption (XSalsa20Poly1305).
const NonceSize = 24

// ErrInvalidKey is used when a key is invalid.
var ErrInvalidKey = errors.New("invalid key")

// PublicEd25519toCurve25519 takes an Ed25519 public key and provides the corresponding Curve25519 public key.
func PublicEd25519toCurve25519(pub []byte) ([]byte, error) {
	if len(pub) == 0 {
		return nil, errors.New("key is nil")
	}

	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%d-byte key size is invalid", len(pub))
	}

	pkOut := new([Curve25519KeySize]byte)
	pkIn := new([Curve25519KeySize]byte)
	copy(pkIn[:], pub)

	if !extra25519.PublicKeyToCurve25519(pkOut, pkIn) {
		return nil, errors.New("error converting public key")
	}

	return pkOut[:], nil
}

// SecretEd25519toCurve25519 converts a 64-byte Ed25519 secret key to its Curve25519 form.
func SecretEd25519toCurve25519(priv []byte) ([]byte, error) {
	if len(priv) == 0 {
		return nil, errors.New("key is nil")
	}

	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%d-byte key size is invalid", len(priv))
	}

	skIn := new([ed25519.PrivateKeySize]byte)
	copy(skIn[:], priv)

	skOut := new([Curve25519KeySize]byte)
	extra25519.PrivateKeyToCurve25519(skOut, skIn)

	return skOut[:], nil
}

// Nonce makes a nonce using blake2b, to match the format expected by libsodium's crypto_box_seal.
func Nonce(pub1, pub2 []byte) (*[NonceSize]byte, error) {
	var nonce [NonceSize]byte

	nonceWriter, err := blake2b.New(NonceSize, nil)
	if err != nil {
		return nil, err
	}

	_, err = nonceWriter.Write(pub1)
	if err != nil {
		return nil, err
	}

	_, err = nonceWriter.Write(pub2)
	if err != nil {
		return nil, err
	}

	copy(nonce[:], nonceWriter.Sum(nil))

	return &nonce, nil
}

// ToCurveKey copies a 32-byte slice into a fixed array usable by nacl/box.
func ToCurveKey(k []byte) (*[Curve25519KeySize]byte, error) {
	if len(k) != Curve25519KeySize {
		return nil, ErrInvalidKey
	}

	out := new([Curve25519KeySize]byte)
	copy(out[:], k)

	return out, nil
}
