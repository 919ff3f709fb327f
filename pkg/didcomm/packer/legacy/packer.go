/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package legacy packs and unpacks DIDComm v1 ("legacy" Aries RFC 0019) encrypted envelopes.
//
// A message is encrypted once under a fresh content encryption key (CEK); the CEK is then wrapped for every
// recipient, either anonymously (Anoncrypt) or authenticated by the sender's key (Authcrypt).
package legacy

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/crypto"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/kms"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/kms/keyrecord"
)

var logger = log.New("aries-framework/didcomm/packer/legacy")

const (
	// encodingType is the `typ` of legacy envelopes.
	encodingType = "JWM/1.0"

	// encAlgorithm is the `enc` written by Pack.
	encAlgorithm = "xchacha20poly1305_ietf"
	// encAlgorithmC20P is also accepted by Unpack.
	encAlgorithmC20P = "chacha20poly1305_ietf"

	authcrypt = "Authcrypt"
	anoncrypt = "Anoncrypt"

	// ivSize of the payload AEAD (IETF ChaCha20-Poly1305).
	ivSize = 12
	// boxNonceSize is the crypto_box nonce size used to wrap the CEK in Authcrypt.
	boxNonceSize = 24
)

var (
	// ErrSenderKeyNotFound is returned by Pack when the sender key is not held by the key store.
	ErrSenderKeyNotFound = errors.New("sender key not found")
	// ErrEmptyRecipients is returned by Pack when no recipient key is given.
	ErrEmptyRecipients = errors.New("empty recipients keys, must have at least one recipient")
	// ErrUnpackFailed is returned by Unpack for every failure.
	ErrUnpackFailed = errors.New("failed to unpack envelope")
)

// KeyStore looks up the local identity keys of the agent. keyrecord.Store implements it.
type KeyStore interface {
	GetByIdentifier(kt kms.KeyType, publicKeyBase58 string) (*keyrecord.KeyRecord, error)
}

// Packer represents a legacy Pack/Unpacker supporting both Authcrypt and Anoncrypt.
type Packer struct {
	crypto crypto.Provider
	keys   KeyStore
}

// New will create a Packer that encrypts messages using the legacy Aries format.
func New(p crypto.Provider, keys KeyStore) *Packer {
	return &Packer{crypto: p, keys: keys}
}

// EncodingType returns the type of the encoding, as in the `Typ` field of the envelope header.
func (p *Packer) EncodingType() string {
	return encodingType
}

// Envelope is an unpacked message.
type Envelope struct {
	Message []byte
	// FromKey is the base58 Ed25519 sender key; empty for Anoncrypt.
	FromKey string
	// ToKey is the base58 Ed25519 recipient key the envelope was opened with.
	ToKey string
}

// legacyEnvelope is the full payload envelope for the JSON message.
type legacyEnvelope struct {
	Protected  string `json:"protected,omitempty"`
	IV         string `json:"iv,omitempty"`
	CipherText string `json:"ciphertext,omitempty"`
	Tag        string `json:"tag,omitempty"`
}

// protected is the protected header of the JSON envelope.
type protected struct {
	Enc        string      `json:"enc,omitempty"`
	Typ        string      `json:"typ,omitempty"`
	Alg        string      `json:"alg,omitempty"`
	Recipients []recipient `json:"recipients,omitempty"`
}

// recipient holds the data for a recipient in the envelope header.
type recipient struct {
	EncryptedKey string          `json:"encrypted_key,omitempty"`
	Header       recipientHeader `json:"header,omitempty"`
}

// recipientHeader holds the header data for a recipient.
type recipientHeader struct {
	KID    string `json:"kid,omitempty"`
	Sender string `json:"sender,omitempty"`
	IV     string `json:"iv,omitempty"`
}

func encode(b []byte) string {
	return base64.URLEncoding.EncodeToString(b)
}

// decode accepts padded and unpadded base64url.
func decode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
