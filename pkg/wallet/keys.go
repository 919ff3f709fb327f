/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"errors"
	"fmt"
	"time"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/kms"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/kms/keyrecord"
)

// errors.
var (
	// ErrConflictingKeyInput is returned by CreateKey when both a seed and a private key are given.
	ErrConflictingKeyInput = errors.New("only one of seed and private key can be set")
	// ErrInvalidSeed is returned by CreateKey for a seed of the wrong size.
	ErrInvalidSeed = errors.New("invalid seed")
	// ErrInvalidPrivateKey is returned by CreateKey for a malformed private key.
	ErrInvalidPrivateKey = errors.New("invalid private key")
	// ErrDuplicateKey is returned by CreateKey when the key already is in the wallet.
	ErrDuplicateKey = keyrecord.ErrDuplicateRecord
	// ErrUnsupportedBatchSign is returned by Sign and Verify for anything but one data item.
	ErrUnsupportedBatchSign = errors.New("only a single data item can be signed or verified")
	// ErrKeyNotFound is returned when the key is not in the wallet.
	ErrKeyNotFound = errors.New("key not found")
)

// CreateKeyOptions holds the options of CreateKey. At most one of Seed and PrivateKey is set.
type CreateKeyOptions struct {
	KeyType kms.KeyType
	// Seed deterministically derives the key; 32 bytes for ED25519.
	Seed []byte
	// PrivateKey imports a key; a 32-byte seed or 64-byte ED25519 secret key.
	PrivateKey []byte
}

// SignOptions holds the options of Sign.
type SignOptions struct {
	// Key is the base58 public key of a wallet key.
	Key  string
	Data [][]byte
}

// VerifyOptions holds the options of Verify.
type VerifyOptions struct {
	// Key is a base58 ED25519 public key; it does not need to be in the wallet.
	Key       string
	Data      [][]byte
	Signature []byte
}

// CreateKey creates a key, persists it in the open wallet and returns its public part.
func (w *Wallet) CreateKey(opts CreateKeyOptions) (*kms.Key, error) {
	s, err := w.current()
	if err != nil {
		return nil, err
	}

	if len(opts.Seed) > 0 && len(opts.PrivateKey) > 0 {
		return nil, ErrConflictingKeyInput
	}

	if opts.KeyType != kms.ED25519 {
		return nil, fmt.Errorf("%w: wallet keys must be %s, got %s", kms.ErrUnsupportedAlgorithm, kms.ED25519, opts.KeyType)
	}

	k, err := w.newKey(opts)
	if err != nil {
		return nil, err
	}

	r, err := keyrecord.NewKeyRecord(k, time.Now())
	if err != nil {
		return nil, err
	}

	err = s.keys.Save(r)
	if err != nil {
		return nil, fmt.Errorf("failed to save key: %w", err)
	}

	logger.Debugf("created %s key %s", k.KeyType(), k.PublicKeyBase58())

	return k.PublicOnly(), nil
}

func (w *Wallet) newKey(opts CreateKeyOptions) (*kms.Key, error) {
	switch {
	case len(opts.Seed) > 0:
		k, err := kms.FromSeed(opts.KeyType, opts.Seed)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSeed, err.Error())
		}

		return k, nil
	case len(opts.PrivateKey) > 0:
		k, err := kms.FromSecretBytes(opts.KeyType, opts.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPrivateKey, err.Error())
		}

		return k, nil
	default:
		return kms.Generate(opts.KeyType, w.crypto)
	}
}

// Sign signs the single data item of opts with a wallet key.
func (w *Wallet) Sign(opts SignOptions) ([]byte, error) {
	s, err := w.current()
	if err != nil {
		return nil, err
	}

	if len(opts.Data) != 1 {
		return nil, fmt.Errorf("%w: got %d items", ErrUnsupportedBatchSign, len(opts.Data))
	}

	r, err := s.keys.GetByIdentifier(kms.ED25519, opts.Key)
	if errors.Is(err, keyrecord.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, opts.Key)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	return r.Key.Sign(opts.Data[0])
}

// Verify checks an ED25519 signature of the single data item of opts.
func (w *Wallet) Verify(opts VerifyOptions) (bool, error) {
	if _, err := w.current(); err != nil {
		return false, err
	}

	if len(opts.Data) != 1 {
		return false, fmt.Errorf("%w: got %d items", ErrUnsupportedBatchSign, len(opts.Data))
	}

	k, err := kms.FromBase58(kms.ED25519, opts.Key)
	if err != nil {
		return false, err
	}

	return k.Verify(opts.Data[0], opts.Signature)
}

// ListKeys returns the public keys of type kt held by the open wallet, ordered by identifier.
func (w *Wallet) ListKeys(kt kms.KeyType) ([]*kms.Key, error) {
	s, err := w.current()
	if err != nil {
		return nil, err
	}

	records, err := s.keys.List(kt)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	keys := make([]*kms.Key, len(records))

	for i, r := range records {
		keys[i] = r.Key.PublicOnly()
	}

	return keys, nil
}
