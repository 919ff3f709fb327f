/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacy

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/kms"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/kms/keyrecord"
)

// Pack will encode the payload argument for every recipient key (base58 Ed25519 verkeys).
// With an empty sender the envelope is Anoncrypt, otherwise Authcrypt from the sender's key.
func (p *Packer) Pack(payload []byte, recipients []string, sender string) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, ErrEmptyRecipients
	}

	alg := anoncrypt

	var from *senderKey

	if sender != "" {
		alg = authcrypt

		var err error

		from, err = p.senderKey(sender)
		if err != nil {
			return nil, err
		}
	}

	cek, err := kms.Generate(kms.Chacha20Poly1305, p.crypto)
	if err != nil {
		return nil, fmt.Errorf("pack: generate content key: %w", err)
	}

	recipientBlocks, err := p.buildRecipients(cek.SecretKey(), recipients, from)
	if err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}

	header, err := json.Marshal(protected{
		Enc:        encAlgorithm,
		Typ:        encodingType,
		Alg:        alg,
		Recipients: recipientBlocks,
	})
	if err != nil {
		return nil, fmt.Errorf("pack: marshal protected header: %w", err)
	}

	return p.encodeEnvelope(cek.SecretKey(), encode(header), payload)
}

// senderKey is the resolved Authcrypt sender.
type senderKey struct {
	verKey string
	curve  *kms.Key
}

func (p *Packer) senderKey(sender string) (*senderKey, error) {
	rec, err := p.keys.GetByIdentifier(kms.ED25519, sender)
	if errors.Is(err, keyrecord.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSenderKeyNotFound, sender)
	}

	if err != nil {
		return nil, fmt.Errorf("pack: resolve sender key: %w", err)
	}

	if !rec.Key.HasSecretKey() {
		return nil, fmt.Errorf("%w: %s has no secret key", ErrSenderKeyNotFound, sender)
	}

	curve, err := rec.Key.Convert(kms.X25519)
	if err != nil {
		return nil, fmt.Errorf("pack: sender key: %w", err)
	}

	return &senderKey{verKey: rec.Key.PublicKeyBase58(), curve: curve}, nil
}

// buildRecipients wraps the cek for every recipient concurrently; blocks keep the order of recipients.
func (p *Packer) buildRecipients(cek []byte, recipients []string, from *senderKey) ([]recipient, error) {
	blocks := make([]recipient, len(recipients))

	var g errgroup.Group

	for i, kid := range recipients {
		i, kid := i, kid

		g.Go(func() error {
			recKey, err := kms.FromBase58(kms.ED25519, kid)
			if err != nil {
				return fmt.Errorf("recipient %d: %w", i, err)
			}

			recCurve, err := recKey.Convert(kms.X25519)
			if err != nil {
				return fmt.Errorf("recipient %d: %w", i, err)
			}

			if from == nil {
				blocks[i], err = p.buildAnonRecipient(cek, kid, recCurve)
			} else {
				blocks[i], err = p.buildAuthRecipient(cek, kid, recCurve, from)
			}

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return blocks, nil
}

func (p *Packer) buildAnonRecipient(cek []byte, kid string, recCurve *kms.Key) (recipient, error) {
	encCEK, err := p.crypto.Seal(cek, recCurve.PublicKey())
	if err != nil {
		return recipient{}, fmt.Errorf("seal content key: %w", err)
	}

	return recipient{
		EncryptedKey: encode(encCEK),
		Header:       recipientHeader{KID: kid},
	}, nil
}

func (p *Packer) buildAuthRecipient(cek []byte, kid string, recCurve *kms.Key, from *senderKey) (recipient, error) {
	nonce, err := p.crypto.RandomBytes(boxNonceSize)
	if err != nil {
		return recipient{}, fmt.Errorf("box nonce: %w", err)
	}

	encCEK, err := p.crypto.Easy(cek, nonce, recCurve.PublicKey(), from.curve.SecretKey())
	if err != nil {
		return recipient{}, fmt.Errorf("box content key: %w", err)
	}

	encSender, err := p.crypto.Seal([]byte(from.verKey), recCurve.PublicKey())
	if err != nil {
		return recipient{}, fmt.Errorf("seal sender: %w", err)
	}

	return recipient{
		EncryptedKey: encode(encCEK),
		Header: recipientHeader{
			KID:    kid,
			Sender: encode(encSender),
			IV:     encode(nonce),
		},
	}, nil
}

func (p *Packer) encodeEnvelope(cek []byte, header string, payload []byte) ([]byte, error) {
	iv, err := p.crypto.RandomBytes(ivSize)
	if err != nil {
		return nil, fmt.Errorf("pack: payload iv: %w", err)
	}

	cipherText, tag, err := p.crypto.Encrypt(cek, iv, payload, []byte(header))
	if err != nil {
		return nil, fmt.Errorf("pack: encrypt payload: %w", err)
	}

	logger.Debugf("packed envelope of %d bytes", len(payload))

	return json.Marshal(legacyEnvelope{
		Protected:  header,
		IV:         encode(iv),
		CipherText: encode(cipherText),
		Tag:        encode(tag),
	})
}
