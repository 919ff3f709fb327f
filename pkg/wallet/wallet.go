/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wallet is the key and message wallet of a DIDComm v1 agent.
//
// A wallet is created once for a Config and opened with the same wallet key. While open it creates and
// stores Ed25519 identity keys, signs and verifies data with them, and packs and unpacks DIDComm envelopes.
package wallet

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"
	spi "github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/crypto"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/crypto/sodium"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/didcomm/packer/legacy"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/kms/keyrecord"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/secretlock/walletkey"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/storage"
)

var logger = log.New("aries-framework/wallet")

// errors.
var (
	// ErrWalletClosed is returned by key and message operations when no wallet is open.
	ErrWalletClosed = errors.New("wallet is not open")
	// ErrWalletAlreadyOpen is returned by Open when a wallet is open.
	ErrWalletAlreadyOpen = errors.New("wallet already open")
	// ErrWalletExists is returned by Create for an existing wallet id.
	ErrWalletExists = errors.New("wallet already exists")
	// ErrWalletNotFound is returned for an unknown wallet id.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrInvalidWalletKey is returned when the wallet key does not open the wallet.
	ErrInvalidWalletKey = walletkey.ErrInvalidWalletKey
	// ErrInvalidConfig is returned for a malformed wallet configuration.
	ErrInvalidConfig = errors.New("invalid wallet config")
	// ErrNotSupported is returned by wallet operations this implementation does not provide.
	ErrNotSupported = errors.New("operation not supported by this wallet")
)

// Config identifies a wallet and the key protecting it.
type Config struct {
	ID  string
	Key string
	// KeyDerivationMethod is ARGON2ID (default) for passphrases or RAW for keys from GenerateWalletKey.
	KeyDerivationMethod walletkey.KeyDerivationMethod
}

// Wallet manages wallets stored in one storage provider. At most one wallet is open at a time.
type Wallet struct {
	storeProvider spi.Provider
	crypto        crypto.Provider
	kdfParams     walletkey.KDFParams
	cacheSize     int
	profiles      *storage.Service[*profile]

	lock    sync.RWMutex
	session *session
}

// session holds the collaborators of the open wallet.
type session struct {
	id     string
	keys   *keyrecord.Store
	packer *legacy.Packer
}

// New returns a Wallet over storeProvider.
func New(storeProvider spi.Provider, opts ...Opt) (*Wallet, error) {
	o := &options{
		crypto:    sodium.New(),
		kdfParams: walletkey.DefaultKDFParams,
	}

	for _, opt := range opts {
		opt(o)
	}

	profiles, err := storage.NewService[*profile](storeProvider, profileRecordType)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet profile store: %w", err)
	}

	return &Wallet{
		storeProvider: storeProvider,
		crypto:        o.crypto,
		kdfParams:     o.kdfParams,
		cacheSize:     o.cacheSize,
		profiles:      profiles,
	}, nil
}

// Create provisions a new wallet for cfg. The wallet is left closed.
func (w *Wallet) Create(cfg Config) error {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return err
	}

	p, err := w.newProfile(cfg)
	if err != nil {
		return err
	}

	err = w.profiles.Save(p)
	if errors.Is(err, storage.ErrDuplicateRecord) {
		return fmt.Errorf("%w: %s", ErrWalletExists, cfg.ID)
	}

	if err != nil {
		return fmt.Errorf("failed to save wallet profile: %w", err)
	}

	logger.Infof("created wallet %s", cfg.ID)

	return nil
}

// CreateAndOpen creates the wallet for cfg and opens it.
func (w *Wallet) CreateAndOpen(cfg Config) error {
	if err := w.Create(cfg); err != nil {
		return err
	}

	return w.Open(cfg)
}

// Open opens the wallet of cfg.
func (w *Wallet) Open(cfg Config) error {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return err
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if w.session != nil {
		return fmt.Errorf("%w: %s", ErrWalletAlreadyOpen, w.session.id)
	}

	s, err := w.unlock(cfg)
	if err != nil {
		return err
	}

	w.session = s

	logger.Infof("opened wallet %s", cfg.ID)

	return nil
}

// Close closes the open wallet.
func (w *Wallet) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.session == nil {
		return ErrWalletClosed
	}

	logger.Infof("closed wallet %s", w.session.id)

	w.session = nil

	return nil
}

// IsOpen reports whether a wallet is open.
func (w *Wallet) IsOpen() bool {
	w.lock.RLock()
	defer w.lock.RUnlock()

	return w.session != nil
}

// OpenWalletID returns the id of the open wallet, or "" when none is open.
func (w *Wallet) OpenWalletID() string {
	w.lock.RLock()
	defer w.lock.RUnlock()

	if w.session == nil {
		return ""
	}

	return w.session.id
}

// Delete removes the wallet of cfg with all its keys. The wallet key must be valid.
// The wallet is closed first when it is the open one.
func (w *Wallet) Delete(cfg Config) error {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return err
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	s, err := w.unlock(cfg)
	if err != nil {
		return err
	}

	if err = s.keys.Clear(); err != nil {
		return fmt.Errorf("failed to delete wallet keys: %w", err)
	}

	if err = w.profiles.DeleteByID(cfg.ID); err != nil {
		return fmt.Errorf("failed to delete wallet profile: %w", err)
	}

	if w.session != nil && w.session.id == cfg.ID {
		w.session = nil
	}

	logger.Infof("deleted wallet %s", cfg.ID)

	return nil
}

// RotateKey is not supported.
func (w *Wallet) RotateKey(Config, string) error {
	return fmt.Errorf("rotate key: %w", ErrNotSupported)
}

// Export is not supported.
func (w *Wallet) Export(string, string) error {
	return fmt.Errorf("export: %w", ErrNotSupported)
}

// Import is not supported.
func (w *Wallet) Import(Config, string, string) error {
	return fmt.Errorf("import: %w", ErrNotSupported)
}

// unlock verifies the wallet key of cfg and builds the session collaborators.
func (w *Wallet) unlock(cfg Config) (*session, error) {
	p, err := w.profiles.GetByID(cfg.ID)
	if errors.Is(err, storage.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, cfg.ID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read wallet profile: %w", err)
	}

	lock, err := p.open(cfg, walletkey.WithRandSource(randReader{w.crypto}))
	if err != nil {
		return nil, err
	}

	ns, err := storage.NewNamespacedProvider(w.storeProvider, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}

	keyOpts := []keyrecord.Opt{keyrecord.WithSecretLock(lock)}
	if w.cacheSize > 0 {
		keyOpts = append(keyOpts, keyrecord.WithCacheSize(w.cacheSize))
	}

	keys, err := keyrecord.New(ns, keyOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open key store: %w", err)
	}

	return &session{
		id:     cfg.ID,
		keys:   keys,
		packer: legacy.New(w.crypto, keys),
	}, nil
}

// current returns the open session.
func (w *Wallet) current() (*session, error) {
	w.lock.RLock()
	defer w.lock.RUnlock()

	if w.session == nil {
		return nil, ErrWalletClosed
	}

	return w.session, nil
}

// normalizeConfig validates cfg and folds its id to lower case. Storage providers fold store names, so
// ids differing only in case must name the same wallet.
func normalizeConfig(cfg Config) (Config, error) {
	switch {
	case cfg.ID == "":
		return cfg, fmt.Errorf("%w: wallet id is required", ErrInvalidConfig)
	case len(cfg.ID) > maxWalletIDLength:
		return cfg, fmt.Errorf("%w: wallet id longer than %d characters", ErrInvalidConfig, maxWalletIDLength)
	case !walletIDPattern.MatchString(cfg.ID):
		return cfg, fmt.Errorf("%w: wallet id %q has invalid characters", ErrInvalidConfig, cfg.ID)
	case cfg.Key == "":
		return cfg, fmt.Errorf("%w: wallet key is required", ErrInvalidConfig)
	}

	cfg.ID = strings.ToLower(cfg.ID)

	return cfg, nil
}
