/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"encoding/json"
)

// WalletRequest is the request of the Create, Open and Delete commands.
type WalletRequest struct {
	// ID of the wallet.
	ID string `json:"id"`

	// Key is the wallet key: a passphrase, or a key from GenerateWalletKey with the RAW derivation method.
	Key string `json:"key"`

	// KeyDerivationMethod is ARGON2ID (default) or RAW.
	KeyDerivationMethod string `json:"keyDerivationMethod,omitempty"`
}

// IsOpenResponse is the response of the IsOpen command.
type IsOpenResponse struct {
	Open bool `json:"open"`
}

// CreateKeyRequest is the request of the CreateKey command.
type CreateKeyRequest struct {
	// KeyType of the key, only "ed25519" is stored by the wallet.
	KeyType string `json:"keyType"`

	// Seed is an optional 32 character seed.
	Seed string `json:"seed,omitempty"`

	// PrivateKey is an optional base58 private key (32-byte seed or 64-byte secret key).
	PrivateKey string `json:"privateKey,omitempty"`
}

// KeyResponse describes a public key of the wallet.
type KeyResponse struct {
	KeyType string `json:"keyType"`

	// PublicKey in base58.
	PublicKey string `json:"publicKey"`

	// Fingerprint is the did:key method specific identifier of the key.
	Fingerprint string `json:"fingerprint"`
}

// ListKeysRequest is the request of the ListKeys command.
type ListKeysRequest struct {
	KeyType string `json:"keyType"`
}

// ListKeysResponse is the response of the ListKeys command.
type ListKeysResponse struct {
	Keys []KeyResponse `json:"keys"`
}

// SignRequest is the request of the Sign command.
type SignRequest struct {
	// Key is the base58 public key of a wallet key.
	Key string `json:"key"`

	// Data is a list of base64 items; exactly one item is supported.
	Data [][]byte `json:"data"`
}

// SignResponse is the response of the Sign command.
type SignResponse struct {
	Signature []byte `json:"signature"`
}

// VerifyRequest is the request of the Verify command.
type VerifyRequest struct {
	Key       string   `json:"key"`
	Data      [][]byte `json:"data"`
	Signature []byte   `json:"signature"`
}

// VerifyResponse is the response of the Verify command.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// PackRequest is the request of the Pack command.
type PackRequest struct {
	// Payload is the JSON message to pack.
	Payload json.RawMessage `json:"payload"`

	// RecipientKeys are base58 ed25519 keys.
	RecipientKeys []string `json:"recipientKeys"`

	// SenderKey is the base58 key of the sender; empty packs anonymously.
	SenderKey string `json:"senderKey,omitempty"`
}

// PackResponse is the response of the Pack command.
type PackResponse struct {
	Envelope json.RawMessage `json:"envelope"`
}

// UnpackRequest is the request of the Unpack command.
type UnpackRequest struct {
	Envelope json.RawMessage `json:"envelope"`
}

// UnpackResponse is the response of the Unpack command.
type UnpackResponse struct {
	PlaintextMessage json.RawMessage `json:"plaintextMessage"`
	SenderKey        string          `json:"senderKey,omitempty"`
	RecipientKey     string          `json:"recipientKey"`
}

// GenerateNonceResponse is the response of the GenerateNonce command.
type GenerateNonceResponse struct {
	Nonce string `json:"nonce"`
}

// GenerateWalletKeyResponse is the response of the GenerateWalletKey command.
type GenerateWalletKeyResponse struct {
	Key string `json:"key"`
}

// Event is published on the wallet topic.
type Event struct {
	Type     string `json:"type"`
	WalletID string `json:"walletID,omitempty"`

	PublicKey    string `json:"publicKey,omitempty"`
	SenderKey    string `json:"senderKey,omitempty"`
	RecipientKey string `json:"recipientKey,omitempty"`
}
