/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keyrecord

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/hyperledger/aries-framework-go/component/log"
	spi "github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/kms"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/secretlock"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/secretlock/noop"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/storage"
)

var logger = log.New("aries-framework/kms/keyrecord")

const (
	// RecordType is the store name of key records.
	RecordType = "KeyRecord"

	keyTypeTag = "keyType"

	defaultCacheSize = 100
)

var (
	// ErrDuplicateRecord is returned by Save when a record with the same identifier exists.
	ErrDuplicateRecord = errors.New("duplicate key record")
	// ErrNotFound is returned when no record exists for an identifier.
	ErrNotFound = errors.New("key record not found")
)

// KeyRecord maps a stable identifier to key material.
type KeyRecord struct {
	ID        string
	Key       *kms.Key
	CreatedAt time.Time
}

// storedKey is the persisted form of a KeyRecord; the secret is wrapped by the store's secret lock.
type storedKey struct {
	ID        string      `json:"id"`
	KeyType   kms.KeyType `json:"keyType"`
	PublicKey string      `json:"publicKey"`
	SecretKey string      `json:"secretKey,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (r *storedKey) RecordID() string {
	return r.ID
}

func (r *storedKey) RecordTags() map[string]string {
	return map[string]string{keyTypeTag: r.KeyType.String()}
}

// Identifier returns the type-qualified record identifier "<keyType>::<base58 public key>".
func Identifier(kt kms.KeyType, publicKeyBase58 string) string {
	return kt.String() + "::" + publicKeyBase58
}

// NewKeyRecord builds the record for k created at createdAt.
func NewKeyRecord(k *kms.Key, createdAt time.Time) (*KeyRecord, error) {
	if len(k.PublicKey()) == 0 {
		return nil, fmt.Errorf("%w: %s keys have no public identity", kms.ErrUnsupportedOperation, k.KeyType())
	}

	return &KeyRecord{
		ID:        Identifier(k.KeyType(), k.PublicKeyBase58()),
		Key:       k,
		CreatedAt: createdAt.UTC(),
	}, nil
}

// Store persists key records. Secret keys are wrapped by a secret lock before they reach storage.
type Store struct {
	records *storage.Service[*storedKey]
	lock    secretlock.Service
	cache   gcache.Cache
}

type options struct {
	lock      secretlock.Service
	cacheSize int
}

// Opt configures a Store.
type Opt func(o *options)

// WithSecretLock sets the lock wrapping secret keys. Defaults to noop.NoLock.
func WithSecretLock(l secretlock.Service) Opt {
	return func(o *options) {
		o.lock = l
	}
}

// WithCacheSize sets the number of decoded records kept in memory.
func WithCacheSize(size int) Opt {
	return func(o *options) {
		o.cacheSize = size
	}
}

// New opens the key record store in p.
func New(p spi.Provider, opts ...Opt) (*Store, error) {
	o := &options{lock: &noop.NoLock{}, cacheSize: defaultCacheSize}

	for _, opt := range opts {
		opt(o)
	}

	records, err := storage.NewService[*storedKey](p, RecordType)
	if err != nil {
		return nil, fmt.Errorf("new key record store: %w", err)
	}

	return &Store{
		records: records,
		lock:    o.lock,
		cache:   gcache.New(o.cacheSize).LRU().Build(),
	}, nil
}

// Save persists r. It fails with ErrDuplicateRecord when the identifier exists; nothing is written in that case.
func (s *Store) Save(r *KeyRecord) error {
	stored := &storedKey{
		ID:        r.ID,
		KeyType:   r.Key.KeyType(),
		PublicKey: r.Key.PublicKeyBase58(),
		CreatedAt: r.CreatedAt,
	}

	if r.Key.HasSecretKey() {
		resp, err := s.lock.Encrypt("", &secretlock.EncryptRequest{
			Plaintext:                   base64.RawURLEncoding.EncodeToString(r.Key.SecretKey()),
			AdditionalAuthenticatedData: r.ID,
		})
		if err != nil {
			return fmt.Errorf("wrap secret key: %w", err)
		}

		stored.SecretKey = resp.Ciphertext
	}

	err := s.records.Save(stored)
	if errors.Is(err, storage.ErrDuplicateRecord) {
		return fmt.Errorf("%w: %s", ErrDuplicateRecord, r.ID)
	}

	if err != nil {
		return err
	}

	s.cacheSet(r)

	logger.Debugf("saved key record %s", r.ID)

	return nil
}

// GetByIdentifier returns the record of the key with the given type and base58 public key.
func (s *Store) GetByIdentifier(kt kms.KeyType, publicKeyBase58 string) (*KeyRecord, error) {
	return s.Get(Identifier(kt, publicKeyBase58))
}

// Get returns the record stored under id.
func (s *Store) Get(id string) (*KeyRecord, error) {
	if cached, err := s.cache.Get(id); err == nil {
		if r, ok := cached.(*KeyRecord); ok {
			return r, nil
		}
	}

	stored, err := s.records.GetByID(id)
	if errors.Is(err, storage.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err != nil {
		return nil, err
	}

	r, err := s.decode(stored)
	if err != nil {
		return nil, err
	}

	s.cacheSet(r)

	return r, nil
}

// List returns the records of keys of type kt.
func (s *Store) List(kt kms.KeyType) ([]*KeyRecord, error) {
	stored, err := s.records.FindByQuery(map[string]string{keyTypeTag: kt.String()})
	if err != nil {
		return nil, err
	}

	records := make([]*KeyRecord, 0, len(stored))

	for _, st := range stored {
		r, err := s.decode(st)
		if err != nil {
			return nil, err
		}

		records = append(records, r)
	}

	return records, nil
}

// Clear removes every key record. It backs whole-wallet deletion.
func (s *Store) Clear() error {
	s.cache.Purge()

	return s.records.Clear()
}

func (s *Store) decode(stored *storedKey) (*KeyRecord, error) {
	var (
		k   *kms.Key
		err error
	)

	if stored.SecretKey == "" {
		k, err = kms.FromBase58(stored.KeyType, stored.PublicKey)
	} else {
		k, err = s.unwrap(stored)
	}

	if err != nil {
		return nil, fmt.Errorf("decode key record %s: %w", stored.ID, err)
	}

	if k.PublicKeyBase58() != stored.PublicKey {
		return nil, fmt.Errorf("decode key record %s: public key mismatch", stored.ID)
	}

	return &KeyRecord{ID: stored.ID, Key: k, CreatedAt: stored.CreatedAt}, nil
}

func (s *Store) unwrap(stored *storedKey) (*kms.Key, error) {
	resp, err := s.lock.Decrypt("", &secretlock.DecryptRequest{
		Ciphertext:                  stored.SecretKey,
		AdditionalAuthenticatedData: stored.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("unwrap secret key: %w", err)
	}

	secret, err := base64.RawURLEncoding.DecodeString(resp.Plaintext)
	if err != nil {
		return nil, fmt.Errorf("unwrap secret key: %w", err)
	}

	return kms.FromSecretBytes(stored.KeyType, secret)
}

func (s *Store) cacheSet(r *KeyRecord) {
	if err := s.cache.Set(r.ID, r); err != nil {
		logger.Warnf("failed to cache key record %s: %s", r.ID, err)
	}
}
