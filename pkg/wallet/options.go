/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"github.com/hyperledger/aries-browser-wallet-go/pkg/crypto"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/secretlock/walletkey"
)

type options struct {
	crypto    crypto.Provider
	kdfParams walletkey.KDFParams
	cacheSize int
}

// Opt is a wallet option.
type Opt func(opts *options)

// WithCryptoProvider sets the crypto primitives and random source. Defaults to sodium.New().
func WithCryptoProvider(p crypto.Provider) Opt {
	return func(opts *options) {
		opts.crypto = p
	}
}

// WithKDFParams sets the Argon2id cost of wallets created by this Wallet.
// Existing wallets keep the parameters they were created with.
func WithKDFParams(params walletkey.KDFParams) Opt {
	return func(opts *options) {
		opts.kdfParams = params
	}
}

// WithKeyCacheSize sets the number of key records cached while a wallet is open.
func WithKeyCacheSize(size int) Opt {
	return func(opts *options) {
		opts.cacheSize = size
	}
}
