/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package localstorage is an spi storage provider over the browser's Web Storage (window.localStorage).
//
// Entries are JSON documents kept under "<prefix>/<store>/v/<key>". Tags are indexed in a per store tag map,
// and the store configuration is kept next to it.
package localstorage

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hyperledger/aries-framework-go/spi/storage"
)

const (
	defaultPrefix = "aries"
	sep           = "/"
	valueInfix    = "/v/"
	tagMapKey     = "TagMap"
	configKey     = "StoreConfig"

	expressionTagNameOnlyLength     = 1
	expressionTagNameAndValueLength = 2

	invalidTagName               = `"%s" is an invalid tag name since it contains one or more ':' characters`
	invalidTagValue              = `"%s" is an invalid tag value since it contains one or more ':' characters`
	invalidQueryExpressionFormat = `"%s" is not in a valid expression format. ` +
		"it must be in the following format: TagName:TagValue[&&TagName:TagValue]"
)

var (
	// ErrUnavailable is returned when the host offers no Web Storage.
	ErrUnavailable = errors.New("localStorage is not available")

	errIteratorExhausted = errors.New("iterator is exhausted")
)

// WebStorage is the subset of the Web Storage API used by the provider.
type WebStorage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string) error
	RemoveItem(key string)
}

// tagMapping is map[TagName](set of keys).
type tagMapping map[string]map[string]struct{}

type entry struct {
	Value string        `json:"value"`
	Tags  []storage.Tag `json:"tags,omitempty"`
}

// Provider is a Web Storage implementation of the spi storage.Provider interface.
type Provider struct {
	web    WebStorage
	prefix string
	stores map[string]*store
	lock   sync.RWMutex
}

// NewProvider returns a provider keeping its stores in web under prefix ("aries" when empty).
func NewProvider(web WebStorage, prefix string) (*Provider, error) {
	if web == nil {
		return nil, ErrUnavailable
	}

	if prefix == "" {
		prefix = defaultPrefix
	}

	if strings.Contains(prefix, sep) {
		return nil, fmt.Errorf("prefix %q must not contain %q", prefix, sep)
	}

	return &Provider{web: web, prefix: prefix, stores: make(map[string]*store)}, nil
}

// OpenStore opens a store with the given name and returns a handle.
func (p *Provider) OpenStore(name string) (storage.Store, error) {
	if name == "" {
		return nil, errors.New("store name cannot be blank")
	}

	if strings.Contains(name, sep) {
		return nil, fmt.Errorf("store name %q is invalid", name)
	}

	name = strings.ToLower(name)

	p.lock.Lock()
	defer p.lock.Unlock()

	if s, ok := p.stores[name]; ok {
		return s, nil
	}

	s := &store{name: name, base: p.prefix + sep + name, web: p.web, close: p.removeStore}
	p.stores[name] = s

	return s, nil
}

// SetStoreConfig sets the configuration on an open store. Tags are indexed regardless of the config.
func (p *Provider) SetStoreConfig(name string, config storage.StoreConfiguration) error {
	for _, tagName := range config.TagNames {
		if strings.Contains(tagName, ":") {
			return fmt.Errorf(invalidTagName, tagName)
		}
	}

	name = strings.ToLower(name)

	p.lock.RLock()
	s, ok := p.stores[name]
	p.lock.RUnlock()

	if !ok {
		return storage.ErrStoreNotFound
	}

	configBytes, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal store configuration: %w", err)
	}

	return s.web.SetItem(s.base+sep+configKey, string(configBytes))
}

// GetStoreConfig gets the current store configuration.
func (p *Provider) GetStoreConfig(name string) (storage.StoreConfiguration, error) {
	name = strings.ToLower(name)

	configJSON, ok := p.web.GetItem(p.prefix + sep + name + sep + configKey)
	if !ok {
		return storage.StoreConfiguration{}, storage.ErrStoreNotFound
	}

	var config storage.StoreConfiguration

	err := json.Unmarshal([]byte(configJSON), &config)
	if err != nil {
		return storage.StoreConfiguration{}, fmt.Errorf("failed to unmarshal store configuration: %w", err)
	}

	return config, nil
}

// GetOpenStores returns all Stores currently open in the Provider.
func (p *Provider) GetOpenStores() []storage.Store {
	p.lock.RLock()
	defer p.lock.RUnlock()

	openStores := make([]storage.Store, 0, len(p.stores))

	for _, s := range p.stores {
		openStores = append(openStores, s)
	}

	return openStores
}

// Close closes every open store. Data stays in Web Storage.
func (p *Provider) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.stores = make(map[string]*store)

	return nil
}

func (p *Provider) removeStore(name string) {
	p.lock.Lock()
	defer p.lock.Unlock()

	delete(p.stores, name)
}

type store struct {
	name  string
	base  string
	web   WebStorage
	close func(name string)
	lock  sync.Mutex
}

func (s *store) valueKey(key string) string {
	return s.base + valueInfix + key
}

// Put stores the value, replacing any tags previously stored for key.
func (s *store) Put(key string, value []byte, tags ...storage.Tag) error {
	err := validatePut(key, value, tags)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	return s.put(key, value, tags)
}

// Get fetches the value stored under key.
func (s *store) Get(key string) ([]byte, error) {
	e, err := s.getEntry(key)
	if err != nil {
		return nil, err
	}

	value, err := base64.StdEncoding.DecodeString(e.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to base64 decode the store value: %w", err)
	}

	return value, nil
}

// GetTags fetches the tags stored with key.
func (s *store) GetTags(key string) ([]storage.Tag, error) {
	e, err := s.getEntry(key)
	if err != nil {
		return nil, err
	}

	return e.Tags, nil
}

// GetBulk fetches values for keys; missing keys yield nil entries.
func (s *store) GetBulk(keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, errors.New("keys slice must contain at least one key")
	}

	values := make([][]byte, len(keys))

	for i, key := range keys {
		value, err := s.Get(key)
		if err != nil {
			if errors.Is(err, storage.ErrDataNotFound) {
				continue
			}

			return nil, fmt.Errorf("unexpected failure while retrieving the value stored under %s: %w", key, err)
		}

		values[i] = value
	}

	return values, nil
}

// Query returns all data whose tags satisfy the expression. Terms joined with "&&" must all match.
// Paging and sort options are not supported.
func (s *store) Query(expression string, options ...storage.QueryOption) (storage.Iterator, error) {
	var queryOptions storage.QueryOptions

	for _, option := range options {
		option(&queryOptions)
	}

	if queryOptions.InitialPageNum != 0 || queryOptions.SortOptions != nil {
		return nil, errors.New("localStorage provider does not support paging or sort options for query results")
	}

	if expression == "" {
		return nil, fmt.Errorf(invalidQueryExpressionFormat, expression)
	}

	var terms []storage.Tag

	for _, term := range strings.Split(expression, "&&") {
		tag, err := parseTerm(term)
		if err != nil {
			return nil, fmt.Errorf(invalidQueryExpressionFormat, expression)
		}

		terms = append(terms, tag)
	}

	s.lock.Lock()
	tagMap, err := s.getTagMap()
	s.lock.Unlock()

	if err != nil {
		return nil, err
	}

	var keys []string

	for key := range tagMap[terms[0].Name] {
		tags, err := s.GetTags(key)
		if errors.Is(err, storage.ErrDataNotFound) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get tags: %w", err)
		}

		if matchesAll(tags, terms) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return &iterator{keys: keys, store: s, currentIndex: -1}, nil
}

// Delete removes the value and its tag map entries. Deleting a missing key is not an error.
func (s *store) Delete(key string) error {
	if key == "" {
		return errors.New("key cannot be blank")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	return s.delete(key)
}

// Batch applies the operations in order; Web Storage has no transactions.
func (s *store) Batch(operations []storage.Operation) error {
	if len(operations) == 0 {
		return errors.New("batch requires at least one operation")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	for _, op := range operations {
		if op.Value == nil {
			if err := s.delete(op.Key); err != nil {
				return fmt.Errorf("failed to delete: %w", err)
			}

			continue
		}

		err := validatePut(op.Key, op.Value, op.Tags)
		if err != nil {
			return err
		}

		if op.PutOptions != nil && op.PutOptions.IsNewKey {
			if _, exists := s.web.GetItem(s.valueKey(op.Key)); exists {
				return fmt.Errorf("key %s: %w", op.Key, storage.ErrDuplicateKey)
			}
		}

		if err = s.put(op.Key, op.Value, op.Tags); err != nil {
			return fmt.Errorf("failed to put: %w", err)
		}
	}

	return nil
}

// Flush is a no-op, writes are not queued.
func (s *store) Flush() error {
	return nil
}

// Close removes the store from the provider's open stores.
func (s *store) Close() error {
	s.close(s.name)

	return nil
}

func (s *store) put(key string, value []byte, tags []storage.Tag) error {
	entryBytes, err := json.Marshal(entry{Value: base64.StdEncoding.EncodeToString(value), Tags: tags})
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	err = s.web.SetItem(s.valueKey(key), string(entryBytes))
	if err != nil {
		return fmt.Errorf("failed to store data: %w", err)
	}

	tagMap, err := s.getTagMap()
	if err != nil {
		return err
	}

	removeKey(tagMap, key)

	for _, tag := range tags {
		if tagMap[tag.Name] == nil {
			tagMap[tag.Name] = make(map[string]struct{})
		}

		tagMap[tag.Name][key] = struct{}{}
	}

	return s.putTagMap(tagMap)
}

func (s *store) delete(key string) error {
	if _, ok := s.web.GetItem(s.valueKey(key)); !ok {
		return nil
	}

	s.web.RemoveItem(s.valueKey(key))

	tagMap, err := s.getTagMap()
	if err != nil {
		return err
	}

	if removeKey(tagMap, key) {
		return s.putTagMap(tagMap)
	}

	return nil
}

func (s *store) getEntry(key string) (*entry, error) {
	if key == "" {
		return nil, errors.New("key cannot be blank")
	}

	raw, ok := s.web.GetItem(s.valueKey(key))
	if !ok {
		return nil, storage.ErrDataNotFound
	}

	var e entry

	err := json.Unmarshal([]byte(raw), &e)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored entry: %w", err)
	}

	return &e, nil
}

func (s *store) getTagMap() (tagMapping, error) {
	tagMap := make(tagMapping)

	raw, ok := s.web.GetItem(s.base + sep + tagMapKey)
	if !ok {
		return tagMap, nil
	}

	err := json.Unmarshal([]byte(raw), &tagMap)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal tag map: %w", err)
	}

	return tagMap, nil
}

func (s *store) putTagMap(tagMap tagMapping) error {
	tagMapBytes, err := json.Marshal(tagMap)
	if err != nil {
		return fmt.Errorf("failed to marshal tag map: %w", err)
	}

	err = s.web.SetItem(s.base+sep+tagMapKey, string(tagMapBytes))
	if err != nil {
		return fmt.Errorf("failed to put tag map: %w", err)
	}

	return nil
}

// removeKey drops key from every tag set and reports whether the map changed.
func removeKey(tagMap tagMapping, key string) bool {
	changed := false

	for name, keys := range tagMap {
		if _, ok := keys[key]; ok {
			delete(keys, key)

			changed = true
		}

		if len(keys) == 0 {
			delete(tagMap, name)
		}
	}

	return changed
}

func matchesAll(tags []storage.Tag, terms []storage.Tag) bool {
	for _, term := range terms {
		found := false

		for _, tag := range tags {
			if tag.Name == term.Name && (term.Value == "" || tag.Value == term.Value) {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

func validatePut(key string, value []byte, tags []storage.Tag) error {
	if key == "" {
		return errors.New("key cannot be blank")
	}

	if value == nil {
		return errors.New("value cannot be nil")
	}

	for _, tag := range tags {
		if strings.Contains(tag.Name, ":") {
			return fmt.Errorf(invalidTagName, tag.Name)
		}

		if strings.Contains(tag.Value, ":") {
			return fmt.Errorf(invalidTagValue, tag.Value)
		}
	}

	return nil
}

func parseTerm(term string) (storage.Tag, error) {
	split := strings.Split(term, ":")

	switch len(split) {
	case expressionTagNameOnlyLength:
		return storage.Tag{Name: split[0]}, nil
	case expressionTagNameAndValueLength:
		return storage.Tag{Name: split[0], Value: split[1]}, nil
	default:
		return storage.Tag{}, errors.New("invalid term")
	}
}

type iterator struct {
	keys         []string
	currentIndex int
	store        *store
}

func (i *iterator) Next() (bool, error) {
	if i.currentIndex+1 >= len(i.keys) {
		i.currentIndex = len(i.keys)

		return false, nil
	}

	i.currentIndex++

	return true, nil
}

func (i *iterator) current() (string, error) {
	if i.currentIndex < 0 || i.currentIndex >= len(i.keys) {
		return "", errIteratorExhausted
	}

	return i.keys[i.currentIndex], nil
}

func (i *iterator) Key() (string, error) {
	return i.current()
}

func (i *iterator) Value() ([]byte, error) {
	key, err := i.current()
	if err != nil {
		return nil, err
	}

	value, err := i.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get value from store: %w", err)
	}

	return value, nil
}

func (i *iterator) Tags() ([]storage.Tag, error) {
	key, err := i.current()
	if err != nil {
		return nil, err
	}

	tags, err := i.store.GetTags(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}

	return tags, nil
}

func (i *iterator) TotalItems() (int, error) {
	return len(i.keys), nil
}

func (i *iterator) Close() error {
	return nil
}
