/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcutil/base58"
)

const (
	nonceSize     = 10 // 80 bits
	walletKeySize = 32
)

// GenerateNonce returns a random 80-bit nonce in decimal, as used in proof requests.
func (w *Wallet) GenerateNonce() (string, error) {
	b, err := w.crypto.RandomBytes(nonceSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	return new(big.Int).SetBytes(b).String(), nil
}

// GenerateWalletKey returns a random base58 key for Config.Key with the RAW key derivation method.
func (w *Wallet) GenerateWalletKey() (string, error) {
	b, err := w.crypto.RandomBytes(walletKeySize)
	if err != nil {
		return "", fmt.Errorf("failed to generate wallet key: %w", err)
	}

	return base58.Encode(b), nil
}
