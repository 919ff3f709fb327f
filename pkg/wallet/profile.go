/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"time"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/crypto"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/secretlock"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/secretlock/walletkey"
)

const (
	profileRecordType = "WalletProfile"

	// verifierContent is sealed under the master lock at creation; opening it proves the wallet key.
	verifierContent = "aries-browser-wallet"

	saltSize          = 16
	maxWalletIDLength = 64
)

var walletIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// profile is the persisted metadata of a wallet.
type profile struct {
	ID                  string                        `json:"id"`
	KeyDerivationMethod walletkey.KeyDerivationMethod `json:"keyDerivationMethod"`
	KDFParams           walletkey.KDFParams           `json:"kdfParams"`
	Salt                string                        `json:"salt"`
	Verifier            string                        `json:"verifier"`
	CreatedAt           time.Time                     `json:"createdAt"`
}

func (p *profile) RecordID() string {
	return p.ID
}

func (p *profile) RecordTags() map[string]string {
	return map[string]string{"keyDerivationMethod": string(p.KeyDerivationMethod)}
}

func (w *Wallet) newProfile(cfg Config) (*profile, error) {
	method := cfg.KeyDerivationMethod
	if method == "" {
		method = walletkey.Argon2ID
	}

	salt, err := w.crypto.RandomBytes(saltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate wallet salt: %w", err)
	}

	p := &profile{
		ID:                  cfg.ID,
		KeyDerivationMethod: method,
		KDFParams:           w.kdfParams,
		Salt:                base64.RawURLEncoding.EncodeToString(salt),
		CreatedAt:           time.Now().UTC(),
	}

	lock, err := walletkey.NewMasterLock(cfg.Key, method, salt, p.KDFParams,
		walletkey.WithRandSource(randReader{w.crypto}))
	if err != nil {
		return nil, fmt.Errorf("failed to create master lock: %w", err)
	}

	resp, err := lock.Encrypt("", &secretlock.EncryptRequest{
		Plaintext:                   verifierContent,
		AdditionalAuthenticatedData: cfg.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seal wallet verifier: %w", err)
	}

	p.Verifier = resp.Ciphertext

	return p, nil
}

// open returns the master lock of the wallet when cfg carries its wallet key.
func (p *profile) open(cfg Config, opts ...walletkey.Opt) (secretlock.Service, error) {
	if cfg.KeyDerivationMethod != "" && cfg.KeyDerivationMethod != p.KeyDerivationMethod {
		return nil, fmt.Errorf("%w: wallet %s uses %s key derivation", ErrInvalidWalletKey, p.ID, p.KeyDerivationMethod)
	}

	salt, err := base64.RawURLEncoding.DecodeString(p.Salt)
	if err != nil {
		return nil, fmt.Errorf("corrupt wallet profile %s: %w", p.ID, err)
	}

	lock, err := walletkey.NewMasterLock(cfg.Key, p.KeyDerivationMethod, salt, p.KDFParams, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWalletKey, err.Error())
	}

	resp, err := lock.Decrypt("", &secretlock.DecryptRequest{
		Ciphertext:                  p.Verifier,
		AdditionalAuthenticatedData: p.ID,
	})
	if err != nil || resp.Plaintext != verifierContent {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWalletKey, p.ID)
	}

	return lock, nil
}

// randReader draws lock nonces from the wallet's crypto provider.
type randReader struct {
	p crypto.Provider
}

func (r randReader) Read(b []byte) (int, error) {
	buf, err := r.p.RandomBytes(len(b))
	if err != nil {
		return 0, err
	}

	return copy(b, buf), nil
}
