/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

// Package secretlock provides the API for secret lock services, used to protect the wallet's secret keys at rest.
package secretlock

import "errors"

// ErrUnlock is returned by a Service when a cipher text cannot be decrypted with its key.
var ErrUnlock = errors.New("secret lock: failed to decrypt")

// Service wraps and unwraps secrets stored by the key record store using a master key.
type Service interface {
	// Encrypt a secret in req. keyURI identifies the master key, local locks ignore it.
	Encrypt(keyURI string, req *EncryptRequest) (*EncryptResponse, error)
	// Decrypt a secret previously returned by Encrypt.
	Decrypt(keyURI string, req *DecryptRequest) (*DecryptResponse, error)
}

// EncryptRequest for encrypting a secret.
type EncryptRequest struct {
	Plaintext                   string
	AdditionalAuthenticatedData string
}

// DecryptRequest for decrypting a secret.
type DecryptRequest struct {
	Ciphertext                  string
	AdditionalAuthenticatedData string
}

// EncryptResponse carries the wrapped secret.
type EncryptResponse struct {
	Ciphertext string
}

// DecryptResponse carries the unwrapped secret.
type DecryptResponse struct {
	Plaintext string
}
