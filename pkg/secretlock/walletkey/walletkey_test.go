/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package walletkey

import (
	"bytes"
	"errors"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/secretlock"
)

// cheap parameters keep the tests fast.
var testParams = KDFParams{Time: 1, MemoryKB: 64, Threads: 1}

var testSalt = []byte("0123456789abcdef")

func TestMasterLock(t *testing.T) {
	lock, err := NewMasterLock("passphrase", Argon2ID, testSalt, testParams)
	require.NoError(t, err)

	t.Run("encrypt and decrypt", func(t *testing.T) {
		enc, err := lock.Encrypt("", &secretlock.EncryptRequest{
			Plaintext:                   "secret key",
			AdditionalAuthenticatedData: "ed25519::abc",
		})
		require.NoError(t, err)
		require.NotContains(t, enc.Ciphertext, "secret key")

		dec, err := lock.Decrypt("", &secretlock.DecryptRequest{
			Ciphertext:                  enc.Ciphertext,
			AdditionalAuthenticatedData: "ed25519::abc",
		})
		require.NoError(t, err)
		require.Equal(t, "secret key", dec.Plaintext)

		_, err = lock.Decrypt("", &secretlock.DecryptRequest{
			Ciphertext:                  enc.Ciphertext,
			AdditionalAuthenticatedData: "ed25519::other",
		})
		require.ErrorIs(t, err, secretlock.ErrUnlock)
	})

	t.Run("same passphrase and salt unlock, other passphrase does not", func(t *testing.T) {
		enc, err := lock.Encrypt("", &secretlock.EncryptRequest{Plaintext: "secret"})
		require.NoError(t, err)

		again, err := NewMasterLock("passphrase", Argon2ID, testSalt, testParams)
		require.NoError(t, err)

		dec, err := again.Decrypt("", &secretlock.DecryptRequest{Ciphertext: enc.Ciphertext})
		require.NoError(t, err)
		require.Equal(t, "secret", dec.Plaintext)

		other, err := NewMasterLock("other", Argon2ID, testSalt, testParams)
		require.NoError(t, err)

		_, err = other.Decrypt("", &secretlock.DecryptRequest{Ciphertext: enc.Ciphertext})
		require.ErrorIs(t, err, secretlock.ErrUnlock)
	})

	t.Run("malformed cipher text", func(t *testing.T) {
		_, err := lock.Decrypt("", &secretlock.DecryptRequest{Ciphertext: "%%%"})
		require.Error(t, err)

		_, err = lock.Decrypt("", &secretlock.DecryptRequest{Ciphertext: "AAAA"})
		require.EqualError(t, err, "invalid request")
	})

	t.Run("rand failure", func(t *testing.T) {
		l, err := NewMasterLock("passphrase", Argon2ID, testSalt, testParams,
			WithRandSource(bytes.NewReader(nil)))
		require.NoError(t, err)

		_, err = l.Encrypt("", &secretlock.EncryptRequest{Plaintext: "secret"})
		require.Error(t, err)
	})
}

func TestDeriveMasterKey(t *testing.T) {
	t.Run("raw key", func(t *testing.T) {
		raw := bytes.Repeat([]byte{4}, 32)

		key, err := DeriveMasterKey(base58.Encode(raw), Raw, nil, KDFParams{})
		require.NoError(t, err)
		require.Equal(t, raw, key)

		_, err = DeriveMasterKey(base58.Encode(raw[:10]), Raw, nil, KDFParams{})
		require.True(t, errors.Is(err, ErrInvalidWalletKey))
	})

	t.Run("argon2id is deterministic", func(t *testing.T) {
		k1, err := DeriveMasterKey("passphrase", Argon2ID, testSalt, testParams)
		require.NoError(t, err)

		k2, err := DeriveMasterKey("passphrase", "", testSalt, testParams)
		require.NoError(t, err)
		require.Equal(t, k1, k2)
		require.Len(t, k1, 32)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := DeriveMasterKey("", Argon2ID, testSalt, testParams)
		require.ErrorIs(t, err, ErrInvalidWalletKey)

		_, err = DeriveMasterKey("passphrase", Argon2ID, nil, testParams)
		require.EqualError(t, err, "salt is empty")

		_, err = DeriveMasterKey("passphrase", Argon2ID, testSalt, KDFParams{})
		require.Error(t, err)

		_, err = DeriveMasterKey("passphrase", "SCRYPT", testSalt, testParams)
		require.EqualError(t, err, `unsupported key derivation method "SCRYPT"`)

		_, err = NewMasterLock("", Raw, nil, KDFParams{})
		require.ErrorIs(t, err, ErrInvalidWalletKey)
	})
}
