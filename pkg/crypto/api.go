/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import "errors"

// package crypto contains the Provider interface used by the wallet's key material and envelope packer.
// It is created once at process startup and injected into the Wallet, the packer and the key material operations.

// ErrDecryption is returned by a Provider when authenticated decryption fails.
var ErrDecryption = errors.New("failed to decrypt")

// Provider interface provides the cryptographic primitives needed by the wallet core.
// All keys handed to a Provider are raw bytes: Curve25519 keys are 32 bytes, CEKs are 32 bytes.
type Provider interface {
	// RandomBytes returns n bytes read from the provider's secure random source.
	RandomBytes(n int) ([]byte, error)
	// Seal encrypts payload for theirPub using an ephemeral sender key (libsodium crypto_box_seal).
	// returns:
	//		cipherText in []byte with the ephemeral public key prepended
	//		error in case of errors
	Seal(payload, theirPub []byte) ([]byte, error)
	// SealOpen decrypts a cipherText produced by Seal using the recipient's Curve25519 key pair.
	SealOpen(cipherText, myPub, myPriv []byte) ([]byte, error)
	// Easy encrypts payload from myPriv to theirPub under a 24-byte nonce (libsodium crypto_box_easy).
	Easy(payload, nonce, theirPub, myPriv []byte) ([]byte, error)
	// EasyOpen decrypts a cipherText produced by Easy.
	EasyOpen(cipherText, nonce, theirPub, myPriv []byte) ([]byte, error)
	// Encrypt runs ChaCha20-Poly1305 AEAD over plaintext with cek, iv and aad.
	// The AEAD variant is selected by the iv length: 12 bytes for IETF ChaCha20-Poly1305,
	// 24 bytes for XChaCha20-Poly1305.
	// returns:
	// 		cipherText in []byte
	//		tag in []byte (detached)
	//		error in case of errors
	Encrypt(cek, iv, plaintext, aad []byte) ([]byte, []byte, error)
	// Decrypt verifies the detached tag and decrypts cipherText. It returns ErrDecryption on authentication failure.
	Decrypt(cek, iv, cipherText, tag, aad []byte) ([]byte, error)
}
