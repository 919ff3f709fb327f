/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacy

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/kms"
)

// Unpack will decode the envelope using the legacy format, with the first recipient key held by the key store.
// Every failure is reported as ErrUnpackFailed.
func (p *Packer) Unpack(envelope []byte) (*Envelope, error) {
	env, err := p.unpack(envelope)
	if err != nil {
		logger.Debugf("unpack: %s", err)

		return nil, ErrUnpackFailed
	}

	return env, nil
}

func (p *Packer) unpack(envelope []byte) (*Envelope, error) {
	var envelopeData legacyEnvelope

	err := json.Unmarshal(envelope, &envelopeData)
	if err != nil {
		return nil, err
	}

	protectedBytes, err := decode(envelopeData.Protected)
	if err != nil {
		return nil, err
	}

	var protectedData protected

	err = json.Unmarshal(protectedBytes, &protectedData)
	if err != nil {
		return nil, err
	}

	if protectedData.Typ != encodingType {
		return nil, fmt.Errorf("message type %s not supported", protectedData.Typ)
	}

	if protectedData.Enc != encAlgorithm && protectedData.Enc != encAlgorithmC20P {
		return nil, fmt.Errorf("encryption algorithm %s not supported", protectedData.Enc)
	}

	if protectedData.Alg != authcrypt && protectedData.Alg != anoncrypt {
		return nil, fmt.Errorf("message format %s not supported", protectedData.Alg)
	}

	recip, myKey, err := p.findRecipient(protectedData.Recipients)
	if err != nil {
		return nil, err
	}

	myCurve, err := myKey.Convert(kms.X25519)
	if err != nil {
		return nil, err
	}

	encCEK, err := decode(recip.EncryptedKey)
	if err != nil {
		return nil, err
	}

	var (
		cek     []byte
		fromKey string
	)

	if protectedData.Alg == anoncrypt {
		cek, err = p.crypto.SealOpen(encCEK, myCurve.PublicKey(), myCurve.SecretKey())
	} else {
		cek, fromKey, err = p.openAuthCEK(encCEK, &recip.Header, myCurve)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decrypt CEK: %w", err)
	}

	message, err := p.decodeCipherText(cek, &envelopeData)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Message: message,
		FromKey: fromKey,
		ToKey:   recip.Header.KID,
	}, nil
}

// findRecipient returns the first recipient block addressed to a key held with its secret.
func (p *Packer) findRecipient(recipients []recipient) (*recipient, *kms.Key, error) {
	for i := range recipients {
		rec, err := p.keys.GetByIdentifier(kms.ED25519, recipients[i].Header.KID)
		if err != nil || !rec.Key.HasSecretKey() {
			continue
		}

		return &recipients[i], rec.Key, nil
	}

	return nil, nil, errors.New("no key accessible")
}

func (p *Packer) openAuthCEK(encCEK []byte, header *recipientHeader, myCurve *kms.Key) ([]byte, string, error) {
	encSender, err := decode(header.Sender)
	if err != nil {
		return nil, "", err
	}

	senderVerKey, err := p.crypto.SealOpen(encSender, myCurve.PublicKey(), myCurve.SecretKey())
	if err != nil {
		return nil, "", err
	}

	sender, err := kms.FromBase58(kms.ED25519, string(senderVerKey))
	if err != nil {
		return nil, "", err
	}

	senderCurve, err := sender.Convert(kms.X25519)
	if err != nil {
		return nil, "", err
	}

	nonce, err := decode(header.IV)
	if err != nil {
		return nil, "", err
	}

	cek, err := p.crypto.EasyOpen(encCEK, nonce, senderCurve.PublicKey(), myCurve.SecretKey())
	if err != nil {
		return nil, "", err
	}

	return cek, string(senderVerKey), nil
}

// decodeCipherText decodes (from base64) and decrypts the ciphertext with the protected header as AAD.
func (p *Packer) decodeCipherText(cek []byte, envelope *legacyEnvelope) ([]byte, error) {
	cipherText, err := decode(envelope.CipherText)
	if err != nil {
		return nil, err
	}

	iv, err := decode(envelope.IV)
	if err != nil {
		return nil, err
	}

	tag, err := decode(envelope.Tag)
	if err != nil {
		return nil, err
	}

	return p.crypto.Decrypt(cek, iv, cipherText, tag, []byte(envelope.Protected))
}
