/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/didcomm/packer/legacy"
)

// errors returned by Pack and Unpack.
var (
	ErrSenderKeyNotFound = legacy.ErrSenderKeyNotFound
	ErrEmptyRecipients   = legacy.ErrEmptyRecipients
	ErrUnpackFailed      = legacy.ErrUnpackFailed
)

// UnpackedMessage is the result of Unpack.
type UnpackedMessage struct {
	PlaintextMessage json.RawMessage `json:"plaintextMessage"`
	// SenderKey is empty for anonymous messages.
	SenderKey    string `json:"senderKey,omitempty"`
	RecipientKey string `json:"recipientKey"`
}

// Pack encrypts the JSON encoding of payload for recipientKeys (base58 ED25519 keys).
// An empty senderVerKey packs anonymously; otherwise the sender key must be in the wallet.
func (w *Wallet) Pack(payload interface{}, recipientKeys []string, senderVerKey string) ([]byte, error) {
	s, err := w.current()
	if err != nil {
		return nil, err
	}

	msg, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return s.packer.Pack(msg, recipientKeys, senderVerKey)
}

// Unpack decrypts an envelope addressed to a key of the open wallet.
func (w *Wallet) Unpack(envelope []byte) (*UnpackedMessage, error) {
	s, err := w.current()
	if err != nil {
		return nil, err
	}

	env, err := s.packer.Unpack(envelope)
	if err != nil {
		return nil, err
	}

	if !json.Valid(env.Message) {
		logger.Debugf("unpacked plaintext is not JSON")

		return nil, ErrUnpackFailed
	}

	return &UnpackedMessage{
		PlaintextMessage: env.Message,
		SenderKey:        env.FromKey,
		RecipientKey:     env.ToKey,
	}, nil
}
