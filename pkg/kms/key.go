/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kms

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/multiformats/go-multibase"
	chacha "golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/poly1305"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/crypto"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/internal/cryptoutil"
)

var (
	// ErrUnsupportedAlgorithm is returned for key types the operation does not handle.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	// ErrInvalidKeyLength is returned when seed, secret or public bytes have the wrong size.
	ErrInvalidKeyLength = errors.New("invalid key length")
	// ErrMissingSecretKey is returned when a secret operation is called on a public-only key.
	ErrMissingSecretKey = errors.New("missing secret key")
	// ErrUnsupportedConversion is returned by Convert for any pair other than ED25519 to X25519.
	ErrUnsupportedConversion = errors.New("unsupported conversion")
	// ErrUnsupportedOperation is returned when the key type has no such capability.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// multicodec prefixes (varint encoded) used in key fingerprints.
var (
	ed25519PubCodec = []byte{0xed, 0x01}
	x25519PubCodec  = []byte{0xec, 0x01}
)

// Key is algorithm-tagged key material. A Key is immutable: accessors return copies.
type Key struct {
	keyType   KeyType
	publicKey []byte
	secretKey []byte
}

// Generate creates a fresh key of type kt using the provider's random source.
func Generate(kt KeyType, p crypto.Provider) (*Key, error) {
	switch kt {
	case ED25519, Chacha20Poly1305:
		seed, err := p.RandomBytes(ed25519.SeedSize)
		if err != nil {
			return nil, fmt.Errorf("generate %s key: %w", kt, err)
		}

		return FromSeed(kt, seed)
	case X25519:
		return nil, fmt.Errorf("%w: x25519 keys are derived from ed25519 keys", ErrUnsupportedAlgorithm)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, kt)
	}
}

// FromSeed deterministically creates a key from a 32-byte seed.
func FromSeed(kt KeyType, seed []byte) (*Key, error) {
	switch kt {
	case ED25519:
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("%w: ed25519 seed must be %d bytes, got %d",
				ErrInvalidKeyLength, ed25519.SeedSize, len(seed))
		}

		priv := ed25519.NewKeyFromSeed(seed)

		return &Key{keyType: kt, publicKey: copyBytes(priv[ed25519.SeedSize:]), secretKey: priv}, nil
	case Chacha20Poly1305:
		if len(seed) != chacha.KeySize {
			return nil, fmt.Errorf("%w: chacha20poly1305 key must be %d bytes, got %d",
				ErrInvalidKeyLength, chacha.KeySize, len(seed))
		}

		return &Key{keyType: kt, secretKey: copyBytes(seed)}, nil
	case X25519:
		return nil, fmt.Errorf("%w: x25519 keys are derived from ed25519 keys", ErrUnsupportedAlgorithm)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, kt)
	}
}

// FromSecretBytes rebuilds a key from its secret, deriving the public half where there is one.
// ED25519 accepts a 32-byte seed or a 64-byte secret key whose public half matches the seed.
func FromSecretBytes(kt KeyType, secret []byte) (*Key, error) {
	switch kt {
	case ED25519:
		switch len(secret) {
		case ed25519.SeedSize:
			return FromSeed(kt, secret)
		case ed25519.PrivateKeySize:
			k, err := FromSeed(kt, secret[:ed25519.SeedSize])
			if err != nil {
				return nil, err
			}

			if !bytes.Equal(k.publicKey, secret[ed25519.SeedSize:]) {
				return nil, fmt.Errorf("%w: ed25519 secret key does not match its public key", ErrInvalidKeyLength)
			}

			return k, nil
		default:
			return nil, fmt.Errorf("%w: ed25519 secret key must be %d or %d bytes, got %d",
				ErrInvalidKeyLength, ed25519.SeedSize, ed25519.PrivateKeySize, len(secret))
		}
	case X25519:
		if len(secret) != cryptoutil.Curve25519KeySize {
			return nil, fmt.Errorf("%w: x25519 secret key must be %d bytes, got %d",
				ErrInvalidKeyLength, cryptoutil.Curve25519KeySize, len(secret))
		}

		pub, err := curve25519.X25519(secret, curve25519.Basepoint)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidKeyLength, err.Error())
		}

		return &Key{keyType: kt, publicKey: pub, secretKey: copyBytes(secret)}, nil
	case Chacha20Poly1305:
		return FromSeed(kt, secret)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, kt)
	}
}

// FromPublicBytes creates a public-only key, typically a remote party's identity.
func FromPublicBytes(kt KeyType, pub []byte) (*Key, error) {
	switch kt {
	case ED25519, X25519:
		if len(pub) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: %s public key must be %d bytes, got %d",
				ErrInvalidKeyLength, kt, ed25519.PublicKeySize, len(pub))
		}

		return &Key{keyType: kt, publicKey: copyBytes(pub)}, nil
	case Chacha20Poly1305:
		return nil, fmt.Errorf("%w: chacha20poly1305 keys have no public component", ErrUnsupportedOperation)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, kt)
	}
}

// FromBase58 decodes a base58 public key of type kt.
func FromBase58(kt KeyType, b58 string) (*Key, error) {
	return FromPublicBytes(kt, base58.Decode(b58))
}

// KeyType returns the key algorithm.
func (k *Key) KeyType() KeyType {
	return k.keyType
}

// PublicKey returns a copy of the public key, nil for symmetric keys.
func (k *Key) PublicKey() []byte {
	return copyBytes(k.publicKey)
}

// PublicKeyBase58 returns the base58 encoded public key.
func (k *Key) PublicKeyBase58() string {
	return base58.Encode(k.publicKey)
}

// SecretKey returns a copy of the secret key, nil for public-only keys.
func (k *Key) SecretKey() []byte {
	return copyBytes(k.secretKey)
}

// HasSecretKey reports whether the secret half is present.
func (k *Key) HasSecretKey() bool {
	return len(k.secretKey) > 0
}

// PublicOnly returns a copy of k without its secret.
func (k *Key) PublicOnly() *Key {
	return &Key{keyType: k.keyType, publicKey: copyBytes(k.publicKey)}
}

// Fingerprint returns the multibase (base58btc) encoding of the multicodec prefixed public key,
// the method specific identifier of a did:key.
func (k *Key) Fingerprint() (string, error) {
	var codec []byte

	switch k.keyType {
	case ED25519:
		codec = ed25519PubCodec
	case X25519:
		codec = x25519PubCodec
	case Chacha20Poly1305:
		return "", fmt.Errorf("%w: chacha20poly1305 keys have no fingerprint", ErrUnsupportedOperation)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, k.keyType)
	}

	return multibase.Encode(multibase.Base58BTC, append(copyBytes(codec), k.publicKey...))
}

// Convert derives the target key type from k. Only ED25519 to X25519 is supported;
// both the public and (when present) secret halves are converted.
func (k *Key) Convert(target KeyType) (*Key, error) {
	if k.keyType != ED25519 || target != X25519 {
		return nil, fmt.Errorf("%w: %s to %s", ErrUnsupportedConversion, k.keyType, target)
	}

	pub, err := cryptoutil.PublicEd25519toCurve25519(k.publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConversion, err.Error())
	}

	converted := &Key{keyType: X25519, publicKey: pub}

	if k.HasSecretKey() {
		converted.secretKey, err = cryptoutil.SecretEd25519toCurve25519(k.secretKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedConversion, err.Error())
		}
	}

	return converted, nil
}

// Sign signs data with an ED25519 secret key.
func (k *Key) Sign(data []byte) ([]byte, error) {
	if k.keyType != ED25519 {
		return nil, fmt.Errorf("%w: sign with %s key", ErrUnsupportedOperation, k.keyType)
	}

	if !k.HasSecretKey() {
		return nil, ErrMissingSecretKey
	}

	return ed25519.Sign(k.secretKey, data), nil
}

// Verify checks an ED25519 signature over data.
func (k *Key) Verify(data, signature []byte) (bool, error) {
	if k.keyType != ED25519 {
		return false, fmt.Errorf("%w: verify with %s key", ErrUnsupportedOperation, k.keyType)
	}

	return ed25519.Verify(k.publicKey, data, signature), nil
}

// Encrypt encrypts data with a Chacha20Poly1305 secret using XChaCha20-Poly1305 and a fresh 24-byte nonce.
// The nonce is returned separately and is not part of the cipher text; the tag is appended.
func (k *Key) Encrypt(p crypto.Provider, data []byte) ([]byte, []byte, error) {
	if err := k.checkSymmetric("encrypt"); err != nil {
		return nil, nil, err
	}

	nonce, err := p.RandomBytes(chacha.NonceSizeX)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypt: %w", err)
	}

	cipherText, tag, err := p.Encrypt(k.secretKey, nonce, data, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypt: %w", err)
	}

	return append(cipherText, tag...), nonce, nil
}

// Decrypt reverses Encrypt.
func (k *Key) Decrypt(p crypto.Provider, cipherText, nonce []byte) ([]byte, error) {
	if err := k.checkSymmetric("decrypt"); err != nil {
		return nil, err
	}

	if len(cipherText) < poly1305.TagSize {
		return nil, crypto.ErrDecryption
	}

	split := len(cipherText) - poly1305.TagSize

	return p.Decrypt(k.secretKey, nonce, cipherText[:split], cipherText[split:], nil)
}

func (k *Key) checkSymmetric(op string) error {
	if k.keyType != Chacha20Poly1305 {
		return fmt.Errorf("%w: %s with %s key", ErrUnsupportedOperation, op, k.keyType)
	}

	if !k.HasSecretKey() {
		return ErrMissingSecretKey
	}

	return nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}

	out := make([]byte, len(b))
	copy(out, b)

	return out
}
