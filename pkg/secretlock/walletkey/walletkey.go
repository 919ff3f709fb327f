/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

// Package walletkey provides a secret lock keyed by the wallet key of a wallet configuration.
//
// The master key is either derived from a passphrase with Argon2id, or taken raw from a base58 encoded
// 32-byte key (see wallet.GenerateWalletKey). Secrets are sealed with XChaCha20-Poly1305; the cipher text is
// base64url(nonce || sealed secret).
package walletkey

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcutil/base58"
	chacha "golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/argon2"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/secretlock"
)

// KeyDerivationMethod selects how the master key is obtained from the wallet key.
type KeyDerivationMethod string

const (
	// Argon2ID derives the master key from a passphrase.
	Argon2ID KeyDerivationMethod = "ARGON2ID"
	// Raw decodes the wallet key as a base58 32-byte key.
	Raw KeyDerivationMethod = "RAW"
)

// KDFParams are the Argon2id cost parameters, persisted with the wallet so it can be reopened.
type KDFParams struct {
	Time     uint32 `json:"time"`
	MemoryKB uint32 `json:"memoryKB"`
	Threads  uint8  `json:"threads"`
}

// DefaultKDFParams are the interactive Argon2id parameters.
var DefaultKDFParams = KDFParams{Time: 2, MemoryKB: 64 * 1024, Threads: 1}

// ErrInvalidWalletKey is returned when the wallet key cannot produce a master key.
var ErrInvalidWalletKey = errors.New("invalid wallet key")

type masterLock struct {
	aead       cipher.AEAD
	randSource io.Reader
}

// Opt configures the lock.
type Opt func(l *masterLock)

// WithRandSource sets the nonce source.
func WithRandSource(r io.Reader) Opt {
	return func(l *masterLock) {
		l.randSource = r
	}
}

// NewMasterLock returns a secret lock whose master key is obtained from walletKey with method.
// salt and params are only used by Argon2ID.
func NewMasterLock(walletKey string, method KeyDerivationMethod, salt []byte, params KDFParams,
	opts ...Opt) (secretlock.Service, error) {
	masterKey, err := DeriveMasterKey(walletKey, method, salt, params)
	if err != nil {
		return nil, err
	}

	defer zeroBytes(masterKey)

	aead, err := chacha.NewX(masterKey)
	if err != nil {
		return nil, err
	}

	l := &masterLock{aead: aead, randSource: rand.Reader}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// DeriveMasterKey returns the 32-byte master key for walletKey.
func DeriveMasterKey(walletKey string, method KeyDerivationMethod, salt []byte, params KDFParams) ([]byte, error) {
	if walletKey == "" {
		return nil, fmt.Errorf("%w: wallet key is empty", ErrInvalidWalletKey)
	}

	switch method {
	case Argon2ID, "":
		if len(salt) == 0 {
			return nil, errors.New("salt is empty")
		}

		if params.Time == 0 || params.MemoryKB == 0 || params.Threads == 0 {
			return nil, fmt.Errorf("invalid argon2id parameters %+v", params)
		}

		return argon2.IDKey([]byte(walletKey), salt, params.Time, params.MemoryKB, params.Threads, chacha.KeySize), nil
	case Raw:
		key := base58.Decode(walletKey)
		if len(key) != chacha.KeySize {
			return nil, fmt.Errorf("%w: raw wallet key must decode to %d bytes", ErrInvalidWalletKey, chacha.KeySize)
		}

		return key, nil
	default:
		return nil, fmt.Errorf("unsupported key derivation method %q", method)
	}
}

// Encrypt a secret in req (keyURI is ignored by this implementation).
func (l *masterLock) Encrypt(_ string, req *secretlock.EncryptRequest) (*secretlock.EncryptResponse, error) {
	nonce := make([]byte, l.aead.NonceSize())

	_, err := io.ReadFull(l.randSource, nonce)
	if err != nil {
		return nil, err
	}

	ct := l.aead.Seal(nonce, nonce, []byte(req.Plaintext), []byte(req.AdditionalAuthenticatedData))

	return &secretlock.EncryptResponse{Ciphertext: base64.URLEncoding.EncodeToString(ct)}, nil
}

// Decrypt a secret in req (keyURI is ignored by this implementation).
func (l *masterLock) Decrypt(_ string, req *secretlock.DecryptRequest) (*secretlock.DecryptResponse, error) {
	ct, err := base64.URLEncoding.DecodeString(req.Ciphertext)
	if err != nil {
		return nil, err
	}

	nonceSize := l.aead.NonceSize()

	// the cipher text must hold more than the nonce
	if len(ct) <= nonceSize {
		return nil, errors.New("invalid request")
	}

	pt, err := l.aead.Open(nil, ct[:nonceSize], ct[nonceSize:], []byte(req.AdditionalAuthenticatedData))
	if err != nil {
		return nil, secretlock.ErrUnlock
	}

	return &secretlock.DecryptResponse{Plaintext: string(pt)}, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
