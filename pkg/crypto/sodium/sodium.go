/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sodium provides a libsodium compatible implementation of crypto.Provider built on golang.org/x/crypto.
package sodium

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	chacha "golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/poly1305"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/crypto"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/internal/cryptoutil"
)

var errMessageTooShort = errors.New("message too short")

// Provider implements crypto.Provider. It holds no key material.
type Provider struct {
	randSource io.Reader
}

// Opt configures a Provider.
type Opt func(p *Provider)

// WithRandSource replaces the default crypto/rand source. Tests use it to obtain deterministic output.
func WithRandSource(r io.Reader) Opt {
	return func(p *Provider) {
		p.randSource = r
	}
}

// New returns a new sodium Provider.
func New(opts ...Opt) *Provider {
	p := &Provider{randSource: rand.Reader}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// RandomBytes returns n random bytes.
func (p *Provider) RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)

	_, err := io.ReadFull(p.randSource, buf)
	if err != nil {
		return nil, fmt.Errorf("read random source: %w", err)
	}

	return buf, nil
}

// Seal seals a payload using the equivalent of libsodium box_seal.
//
// Generates an ephemeral keypair to use for the sender, and includes
// the ephemeral sender public key in the message.
func (p *Provider) Seal(payload, theirPub []byte) ([]byte, error) {
	recPub, err := cryptoutil.ToCurveKey(theirPub)
	if err != nil {
		return nil, err
	}

	epk, esk, err := box.GenerateKey(p.randSource)
	if err != nil {
		return nil, err
	}

	nonce, err := cryptoutil.Nonce(epk[:], theirPub)
	if err != nil {
		return nil, err
	}

	return box.Seal(epk[:], payload, nonce, recPub, esk), nil
}

// SealOpen decrypts a payload encrypted with Seal.
//
// Reads the ephemeral sender public key, prepended to a properly-formatted message,
// and uses that along with the recipient private key to decrypt the message.
func (p *Provider) SealOpen(cipherText, myPub, myPriv []byte) ([]byte, error) {
	if len(cipherText) < cryptoutil.Curve25519KeySize+box.Overhead {
		return nil, errMessageTooShort
	}

	priv, err := cryptoutil.ToCurveKey(myPriv)
	if err != nil {
		return nil, err
	}

	epk := new([cryptoutil.Curve25519KeySize]byte)
	copy(epk[:], cipherText[:cryptoutil.Curve25519KeySize])

	nonce, err := cryptoutil.Nonce(epk[:], myPub)
	if err != nil {
		return nil, err
	}

	out, ok := box.Open(nil, cipherText[cryptoutil.Curve25519KeySize:], nonce, epk, priv)
	if !ok {
		return nil, crypto.ErrDecryption
	}

	return out, nil
}

// Easy seals a message with a provided nonce.
func (p *Provider) Easy(payload, nonce, theirPub, myPriv []byte) ([]byte, error) {
	pub, priv, n, err := boxArgs(nonce, theirPub, myPriv)
	if err != nil {
		return nil, err
	}

	return box.Seal(nil, payload, n, pub, priv), nil
}

// EasyOpen unseals a message sealed with Easy, where the nonce is provided.
func (p *Provider) EasyOpen(cipherText, nonce, theirPub, myPriv []byte) ([]byte, error) {
	if len(cipherText) < box.Overhead {
		return nil, errMessageTooShort
	}

	pub, priv, n, err := boxArgs(nonce, theirPub, myPriv)
	if err != nil {
		return nil, err
	}

	out, ok := box.Open(nil, cipherText, n, pub, priv)
	if !ok {
		return nil, crypto.ErrDecryption
	}

	return out, nil
}

// Encrypt runs AEAD encryption and splits the tag off the sealed output.
func (p *Provider) Encrypt(cek, iv, plaintext, aad []byte) ([]byte, []byte, error) {
	aead, err := newAEAD(cek, iv)
	if err != nil {
		return nil, nil, err
	}

	// sealed has a length of len(plaintext) + poly1305.TagSize, the tag is the tail
	sealed := aead.Seal(nil, iv, plaintext, aad)

	return sealed[:len(sealed)-poly1305.TagSize], sealed[len(sealed)-poly1305.TagSize:], nil
}

// Decrypt re-attaches the detached tag and opens the AEAD ciphertext.
func (p *Provider) Decrypt(cek, iv, cipherText, tag, aad []byte) ([]byte, error) {
	if len(tag) != poly1305.TagSize {
		return nil, crypto.ErrDecryption
	}

	aead, err := newAEAD(cek, iv)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(cipherText)+len(tag))
	sealed = append(sealed, cipherText...)
	sealed = append(sealed, tag...)

	out, err := aead.Open(nil, iv, sealed, aad)
	if err != nil {
		return nil, crypto.ErrDecryption
	}

	return out, nil
}

func newAEAD(cek, iv []byte) (cipher.AEAD, error) {
	switch len(iv) {
	case chacha.NonceSize:
		return chacha.New(cek)
	case chacha.NonceSizeX:
		return chacha.NewX(cek)
	default:
		return nil, fmt.Errorf("%d-byte iv size is invalid", len(iv))
	}
}

func boxArgs(nonce, theirPub, myPriv []byte) (*[32]byte, *[32]byte, *[cryptoutil.NonceSize]byte, error) {
	if len(nonce) != cryptoutil.NonceSize {
		return nil, nil, nil, fmt.Errorf("%d-byte nonce size is invalid", len(nonce))
	}

	pub, err := cryptoutil.ToCurveKey(theirPub)
	if err != nil {
		return nil, nil, nil, err
	}

	priv, err := cryptoutil.ToCurveKey(myPriv)
	if err != nil {
		return nil, nil, nil, err
	}

	n := new([cryptoutil.NonceSize]byte)
	copy(n[:], nonce)

	return pub, priv, n, nil
}
