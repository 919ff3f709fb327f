/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/hyperledger/aries-framework-go/component/storage/leveldb"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	mockstorage "github.com/hyperledger/aries-framework-go/component/storageutil/mock/storage"
	spi "github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/crypto/sodium"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/kms"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/secretlock/walletkey"
)

const (
	sampleWalletID  = "sample-wallet"
	sampleWalletKey = "sample-wallet-key"
)

var (
	testSeed      = []byte("00000000000000000000000000000My1")
	cheapKDF      = walletkey.KDFParams{Time: 1, MemoryKB: 64, Threads: 1}
	sampleConfig  = Config{ID: sampleWalletID, Key: sampleWalletKey}
	samplePayload = map[string]interface{}{"msg": "hi"}
)

func newWallet(t *testing.T, p spi.Provider) *Wallet {
	t.Helper()

	w, err := New(p, WithKDFParams(cheapKDF))
	require.NoError(t, err)

	return w
}

func openWallet(t *testing.T, p spi.Provider, cfg Config) *Wallet {
	t.Helper()

	w := newWallet(t, p)
	require.NoError(t, w.CreateAndOpen(cfg))

	return w
}

func TestNew(t *testing.T) {
	t.Run("profile store failure", func(t *testing.T) {
		p := mockstorage.NewMockStoreProvider()
		p.ErrOpenStoreHandle = errors.New("open failure")

		_, err := New(p)
		require.ErrorContains(t, err, "open failure")
	})
}

func TestLifecycle(t *testing.T) {
	p := mem.NewProvider()
	w := newWallet(t, p)

	require.False(t, w.IsOpen())

	t.Run("invalid config", func(t *testing.T) {
		for _, cfg := range []Config{
			{Key: sampleWalletKey},
			{ID: sampleWalletID},
			{ID: "has space", Key: sampleWalletKey},
			{ID: "has:colon", Key: sampleWalletKey},
			{ID: string(bytes.Repeat([]byte("a"), maxWalletIDLength+1)), Key: sampleWalletKey},
		} {
			require.ErrorIs(t, w.Create(cfg), ErrInvalidConfig)
			require.ErrorIs(t, w.Open(cfg), ErrInvalidConfig)
			require.ErrorIs(t, w.Delete(cfg), ErrInvalidConfig)
		}
	})

	t.Run("operations on a closed wallet", func(t *testing.T) {
		_, err := w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519})
		require.ErrorIs(t, err, ErrWalletClosed)

		_, err = w.Sign(SignOptions{Key: "k", Data: [][]byte{[]byte("data")}})
		require.ErrorIs(t, err, ErrWalletClosed)

		_, err = w.Verify(VerifyOptions{Key: "k", Data: [][]byte{[]byte("data")}})
		require.ErrorIs(t, err, ErrWalletClosed)

		_, err = w.Pack(samplePayload, []string{"k"}, "")
		require.ErrorIs(t, err, ErrWalletClosed)

		_, err = w.Unpack([]byte("{}"))
		require.ErrorIs(t, err, ErrWalletClosed)

		_, err = w.ListKeys(kms.ED25519)
		require.ErrorIs(t, err, ErrWalletClosed)

		require.ErrorIs(t, w.Close(), ErrWalletClosed)
	})

	t.Run("open unknown wallet", func(t *testing.T) {
		require.ErrorIs(t, w.Open(sampleConfig), ErrWalletNotFound)
		require.ErrorIs(t, w.Delete(sampleConfig), ErrWalletNotFound)
	})

	var pub *kms.Key

	t.Run("create and open", func(t *testing.T) {
		require.NoError(t, w.Create(sampleConfig))
		require.False(t, w.IsOpen())
		require.ErrorIs(t, w.Create(sampleConfig), ErrWalletExists)

		require.NoError(t, w.Open(sampleConfig))
		require.True(t, w.IsOpen())
		require.Equal(t, sampleWalletID, w.OpenWalletID())
		require.ErrorIs(t, w.Open(sampleConfig), ErrWalletAlreadyOpen)

		var err error

		pub, err = w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519})
		require.NoError(t, err)
		require.False(t, pub.HasSecretKey())

		require.NoError(t, w.Close())
		require.False(t, w.IsOpen())
		require.Empty(t, w.OpenWalletID())
	})

	t.Run("wrong wallet key", func(t *testing.T) {
		err := w.Open(Config{ID: sampleWalletID, Key: "wrong key"})
		require.ErrorIs(t, err, ErrInvalidWalletKey)
		require.False(t, w.IsOpen())

		err = w.Open(Config{ID: sampleWalletID, Key: sampleWalletKey, KeyDerivationMethod: walletkey.Raw})
		require.ErrorIs(t, err, ErrInvalidWalletKey)

		require.ErrorIs(t, w.Delete(Config{ID: sampleWalletID, Key: "wrong key"}), ErrInvalidWalletKey)
	})

	t.Run("keys survive reopening", func(t *testing.T) {
		reopened := newWallet(t, p)
		require.NoError(t, reopened.Open(Config{
			ID: sampleWalletID, Key: sampleWalletKey, KeyDerivationMethod: walletkey.Argon2ID,
		}))

		sig, err := reopened.Sign(SignOptions{Key: pub.PublicKeyBase58(), Data: [][]byte{[]byte("data")}})
		require.NoError(t, err)

		ok, err := pub.Verify([]byte("data"), sig)
		require.NoError(t, err)
		require.True(t, ok)

		keys, err := reopened.ListKeys(kms.ED25519)
		require.NoError(t, err)
		require.Len(t, keys, 1)
		require.Equal(t, pub.PublicKey(), keys[0].PublicKey())
		require.False(t, keys[0].HasSecretKey())
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, w.Open(sampleConfig))
		require.NoError(t, w.Delete(sampleConfig))
		require.False(t, w.IsOpen())
		require.ErrorIs(t, w.Open(sampleConfig), ErrWalletNotFound)

		require.NoError(t, w.CreateAndOpen(sampleConfig))

		keys, err := w.ListKeys(kms.ED25519)
		require.NoError(t, err)
		require.Empty(t, keys)
	})

	t.Run("not supported", func(t *testing.T) {
		require.ErrorIs(t, w.RotateKey(sampleConfig, "new key"), ErrNotSupported)
		require.ErrorIs(t, w.Export("path", "key"), ErrNotSupported)
		require.ErrorIs(t, w.Import(sampleConfig, "path", "key"), ErrNotSupported)
	})
}

func TestRawWalletKey(t *testing.T) {
	w := newWallet(t, mem.NewProvider())

	walletKey, err := w.GenerateWalletKey()
	require.NoError(t, err)
	require.Len(t, base58.Decode(walletKey), walletKeySize)

	cfg := Config{ID: "raw", Key: walletKey, KeyDerivationMethod: walletkey.Raw}
	require.NoError(t, w.CreateAndOpen(cfg))
	require.NoError(t, w.Close())

	require.ErrorIs(t, w.Open(Config{ID: "raw", Key: "not-a-raw-key", KeyDerivationMethod: walletkey.Raw}),
		ErrInvalidWalletKey)
	require.NoError(t, w.Open(Config{ID: "raw", Key: walletKey}))

	err = w.Create(Config{ID: "raw2", Key: "short", KeyDerivationMethod: walletkey.Raw})
	require.ErrorIs(t, err, ErrInvalidWalletKey)
}

func TestWalletIsolation(t *testing.T) {
	p := mem.NewProvider()

	alice := openWallet(t, p, Config{ID: "alice", Key: "alice-key"})
	bob := openWallet(t, p, Config{ID: "bob", Key: "bob-key"})

	k, err := alice.CreateKey(CreateKeyOptions{KeyType: kms.ED25519, Seed: testSeed})
	require.NoError(t, err)

	_, err = bob.Sign(SignOptions{Key: k.PublicKeyBase58(), Data: [][]byte{[]byte("data")}})
	require.ErrorIs(t, err, ErrKeyNotFound)

	_, err = bob.CreateKey(CreateKeyOptions{KeyType: kms.ED25519, Seed: testSeed})
	require.NoError(t, err)
}

func TestWalletLockRandomness(t *testing.T) {
	// the salt and the verifier nonce are the only random draws of Create
	source := func(n int) Opt {
		return WithCryptoProvider(sodium.New(sodium.WithRandSource(bytes.NewReader(make([]byte, n)))))
	}

	w, err := New(mem.NewProvider(), WithKDFParams(cheapKDF), source(saltSize))
	require.NoError(t, err)
	require.ErrorContains(t, w.Create(sampleConfig), "failed to seal wallet verifier")

	w, err = New(mem.NewProvider(), WithKDFParams(cheapKDF), source(saltSize+24))
	require.NoError(t, err)
	require.NoError(t, w.CreateAndOpen(sampleConfig))

	_, err = w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519, Seed: testSeed})
	require.ErrorContains(t, err, "wrap secret key")
}

func TestWalletIDCase(t *testing.T) {
	w := newWallet(t, mem.NewProvider())

	require.NoError(t, w.CreateAndOpen(Config{ID: "Alice", Key: "alice-key"}))
	require.Equal(t, "alice", w.OpenWalletID())

	k, err := w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519, Seed: testSeed})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.ErrorIs(t, w.Create(Config{ID: "alice", Key: "other-key"}), ErrWalletExists)
	require.ErrorIs(t, w.Delete(Config{ID: "alice", Key: "other-key"}), ErrInvalidWalletKey)
	require.ErrorIs(t, w.Open(Config{ID: "alice", Key: "other-key"}), ErrInvalidWalletKey)

	require.NoError(t, w.Open(Config{ID: "ALICE", Key: "alice-key"}))

	keys, err := w.ListKeys(kms.ED25519)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	_, err = w.Sign(SignOptions{Key: k.PublicKeyBase58(), Data: [][]byte{[]byte("data")}})
	require.NoError(t, err)
}

func TestCreateKey(t *testing.T) {
	w := openWallet(t, mem.NewProvider(), sampleConfig)

	t.Run("from seed", func(t *testing.T) {
		k, err := w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519, Seed: testSeed})
		require.NoError(t, err)

		expected, err := kms.FromSeed(kms.ED25519, testSeed)
		require.NoError(t, err)
		require.Equal(t, expected.PublicKeyBase58(), k.PublicKeyBase58())

		_, err = w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519, Seed: testSeed})
		require.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("from private key", func(t *testing.T) {
		imported, err := kms.Generate(kms.ED25519, sodium.New())
		require.NoError(t, err)

		k, err := w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519, PrivateKey: imported.SecretKey()})
		require.NoError(t, err)
		require.Equal(t, imported.PublicKey(), k.PublicKey())
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519, Seed: testSeed, PrivateKey: testSeed})
		require.ErrorIs(t, err, ErrConflictingKeyInput)

		_, err = w.CreateKey(CreateKeyOptions{KeyType: kms.X25519, Seed: testSeed, PrivateKey: testSeed})
		require.ErrorIs(t, err, ErrConflictingKeyInput)

		_, err = w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519, Seed: []byte("short")})
		require.ErrorIs(t, err, ErrInvalidSeed)

		_, err = w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519, PrivateKey: []byte("short")})
		require.ErrorIs(t, err, ErrInvalidPrivateKey)

		a, err := kms.Generate(kms.ED25519, sodium.New())
		require.NoError(t, err)

		b, err := kms.Generate(kms.ED25519, sodium.New())
		require.NoError(t, err)

		mismatched := append(a.SecretKey()[:32], b.PublicKey()...)

		_, err = w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519, PrivateKey: mismatched})
		require.ErrorIs(t, err, ErrInvalidPrivateKey)
	})

	t.Run("unsupported key types", func(t *testing.T) {
		for _, kt := range []kms.KeyType{kms.X25519, kms.Chacha20Poly1305, kms.KeyType(0)} {
			_, err := w.CreateKey(CreateKeyOptions{KeyType: kt})
			require.ErrorIs(t, err, kms.ErrUnsupportedAlgorithm)
		}
	})

	t.Run("no partial record on failure", func(t *testing.T) {
		keys, err := w.ListKeys(kms.ED25519)
		require.NoError(t, err)
		require.Len(t, keys, 2)
	})
}

func TestSignVerify(t *testing.T) {
	w := openWallet(t, mem.NewProvider(), sampleConfig)

	k, err := w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519})
	require.NoError(t, err)

	data := []byte("sample data")

	sig, err := w.Sign(SignOptions{Key: k.PublicKeyBase58(), Data: [][]byte{data}})
	require.NoError(t, err)
	require.Len(t, sig, 64)

	ok, err := w.Verify(VerifyOptions{Key: k.PublicKeyBase58(), Data: [][]byte{data}, Signature: sig})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = w.Verify(VerifyOptions{Key: k.PublicKeyBase58(), Data: [][]byte{[]byte("other")}, Signature: sig})
	require.NoError(t, err)
	require.False(t, ok)

	t.Run("batch input", func(t *testing.T) {
		_, err := w.Sign(SignOptions{Key: k.PublicKeyBase58(), Data: [][]byte{data, data}})
		require.ErrorIs(t, err, ErrUnsupportedBatchSign)

		_, err = w.Sign(SignOptions{Key: k.PublicKeyBase58()})
		require.ErrorIs(t, err, ErrUnsupportedBatchSign)

		_, err = w.Verify(VerifyOptions{Key: k.PublicKeyBase58(), Data: [][]byte{data, data}, Signature: sig})
		require.ErrorIs(t, err, ErrUnsupportedBatchSign)
	})

	t.Run("unknown key", func(t *testing.T) {
		other, err := kms.Generate(kms.ED25519, sodium.New())
		require.NoError(t, err)

		_, err = w.Sign(SignOptions{Key: other.PublicKeyBase58(), Data: [][]byte{data}})
		require.ErrorIs(t, err, ErrKeyNotFound)

		_, err = w.Verify(VerifyOptions{Key: "invalid", Data: [][]byte{data}, Signature: sig})
		require.ErrorIs(t, err, kms.ErrInvalidKeyLength)
	})
}

func TestPackUnpack(t *testing.T) {
	t.Run("anoncrypt example", func(t *testing.T) {
		w := openWallet(t, mem.NewProvider(), sampleConfig)

		p, err := w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519})
		require.NoError(t, err)

		envelope, err := w.Pack(samplePayload, []string{p.PublicKeyBase58()}, "")
		require.NoError(t, err)

		var env struct {
			Protected string `json:"protected"`
		}

		require.NoError(t, json.Unmarshal(envelope, &env))

		header := struct {
			Alg        string            `json:"alg"`
			Recipients []json.RawMessage `json:"recipients"`
		}{}

		headerBytes, err := base64.URLEncoding.DecodeString(env.Protected)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(headerBytes, &header))
		require.Equal(t, "Anoncrypt", header.Alg)
		require.Len(t, header.Recipients, 1)

		unpacked, err := w.Unpack(envelope)
		require.NoError(t, err)
		require.JSONEq(t, `{"msg":"hi"}`, string(unpacked.PlaintextMessage))
		require.Empty(t, unpacked.SenderKey)
		require.Equal(t, p.PublicKeyBase58(), unpacked.RecipientKey)
	})

	t.Run("authcrypt between wallets", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "db")

		ldb := leveldb.NewProvider(path)

		defer func() {
			require.NoError(t, ldb.Close())
		}()

		alice := openWallet(t, ldb, Config{ID: "alice", Key: "alice-key"})
		bob := openWallet(t, ldb, Config{ID: "bob", Key: "bob-key"})
		carol := openWallet(t, ldb, Config{ID: "carol", Key: "carol-key"})

		aliceKey, err := alice.CreateKey(CreateKeyOptions{KeyType: kms.ED25519})
		require.NoError(t, err)

		bobKey, err := bob.CreateKey(CreateKeyOptions{KeyType: kms.ED25519})
		require.NoError(t, err)

		carolKey, err := carol.CreateKey(CreateKeyOptions{KeyType: kms.ED25519})
		require.NoError(t, err)

		envelope, err := alice.Pack(samplePayload,
			[]string{bobKey.PublicKeyBase58(), carolKey.PublicKeyBase58()}, aliceKey.PublicKeyBase58())
		require.NoError(t, err)

		for _, tc := range []struct {
			w   *Wallet
			key *kms.Key
		}{{bob, bobKey}, {carol, carolKey}} {
			unpacked, err := tc.w.Unpack(envelope)
			require.NoError(t, err)
			require.JSONEq(t, `{"msg":"hi"}`, string(unpacked.PlaintextMessage))
			require.Equal(t, aliceKey.PublicKeyBase58(), unpacked.SenderKey)
			require.Equal(t, tc.key.PublicKeyBase58(), unpacked.RecipientKey)
		}

		_, err = alice.Unpack(envelope)
		require.ErrorIs(t, err, ErrUnpackFailed)
	})

	t.Run("errors", func(t *testing.T) {
		w := openWallet(t, mem.NewProvider(), sampleConfig)

		k, err := w.CreateKey(CreateKeyOptions{KeyType: kms.ED25519})
		require.NoError(t, err)

		other, err := kms.Generate(kms.ED25519, sodium.New())
		require.NoError(t, err)

		_, err = w.Pack(samplePayload, []string{k.PublicKeyBase58()}, other.PublicKeyBase58())
		require.ErrorIs(t, err, ErrSenderKeyNotFound)

		_, err = w.Pack(samplePayload, nil, "")
		require.ErrorIs(t, err, ErrEmptyRecipients)

		_, err = w.Pack(make(chan int), []string{k.PublicKeyBase58()}, "")
		require.ErrorContains(t, err, "failed to marshal payload")

		_, err = w.Unpack([]byte("not an envelope"))
		require.EqualError(t, err, ErrUnpackFailed.Error())

		s, err := w.current()
		require.NoError(t, err)

		notJSON, err := s.packer.Pack([]byte("plain text"), []string{k.PublicKeyBase58()}, "")
		require.NoError(t, err)

		_, err = w.Unpack(notJSON)
		require.EqualError(t, err, ErrUnpackFailed.Error())
	})
}

func TestGenerate(t *testing.T) {
	t.Run("nonce", func(t *testing.T) {
		w := newWallet(t, mem.NewProvider())

		n1, err := w.GenerateNonce()
		require.NoError(t, err)

		n2, err := w.GenerateNonce()
		require.NoError(t, err)
		require.NotEqual(t, n1, n2)

		v, ok := new(big.Int).SetString(n1, 10)
		require.True(t, ok)
		require.LessOrEqual(t, v.BitLen(), 80)
	})

	t.Run("deterministic source", func(t *testing.T) {
		w, err := New(mem.NewProvider(), WithCryptoProvider(
			sodium.New(sodium.WithRandSource(bytes.NewReader(bytes.Repeat([]byte{0xff}, 42))))))
		require.NoError(t, err)

		nonce, err := w.GenerateNonce()
		require.NoError(t, err)
		require.Equal(t, "1208925819614629174706175", nonce)

		walletKey, err := w.GenerateWalletKey()
		require.NoError(t, err)
		require.Equal(t, bytes.Repeat([]byte{0xff}, 32), base58.Decode(walletKey))

		_, err = w.GenerateNonce()
		require.Error(t, err)

		_, err = w.GenerateWalletKey()
		require.Error(t, err)
	})
}
