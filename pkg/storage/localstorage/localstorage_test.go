/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package localstorage

import (
	"errors"
	"testing"

	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/stretchr/testify/require"
)

type mapStorage struct {
	items  map[string]string
	errSet error
}

func newMapStorage() *mapStorage {
	return &mapStorage{items: make(map[string]string)}
}

func (m *mapStorage) GetItem(key string) (string, bool) {
	v, ok := m.items[key]

	return v, ok
}

func (m *mapStorage) SetItem(key, value string) error {
	if m.errSet != nil {
		return m.errSet
	}

	m.items[key] = value

	return nil
}

func (m *mapStorage) RemoveItem(key string) {
	delete(m.items, key)
}

func setupProvider(t *testing.T) (*Provider, *mapStorage) {
	t.Helper()

	web := newMapStorage()

	p, err := NewProvider(web, "")
	require.NoError(t, err)

	return p, web
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(nil, "")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = NewProvider(newMapStorage(), "a/b")
	require.Error(t, err)
}

func TestProvider(t *testing.T) {
	p, web := setupProvider(t)

	_, err := p.OpenStore("")
	require.EqualError(t, err, "store name cannot be blank")

	_, err = p.OpenStore("a/b")
	require.Error(t, err)

	s1, err := p.OpenStore("KeyRecord")
	require.NoError(t, err)

	s2, err := p.OpenStore("keyrecord")
	require.NoError(t, err)
	require.Equal(t, s1, s2)
	require.Len(t, p.GetOpenStores(), 1)

	t.Run("store config", func(t *testing.T) {
		_, err := p.GetStoreConfig("keyrecord")
		require.ErrorIs(t, err, storage.ErrStoreNotFound)

		err = p.SetStoreConfig("unknown", storage.StoreConfiguration{})
		require.ErrorIs(t, err, storage.ErrStoreNotFound)

		err = p.SetStoreConfig("keyrecord", storage.StoreConfiguration{TagNames: []string{"bad:name"}})
		require.Error(t, err)

		err = p.SetStoreConfig("keyrecord", storage.StoreConfiguration{TagNames: []string{"keyType"}})
		require.NoError(t, err)

		config, err := p.GetStoreConfig("KEYRECORD")
		require.NoError(t, err)
		require.Equal(t, []string{"keyType"}, config.TagNames)

		require.Contains(t, web.items, "aries/keyrecord/StoreConfig")
	})

	require.NoError(t, s1.Close())
	require.Empty(t, p.GetOpenStores())

	_, err = p.OpenStore("other")
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.Empty(t, p.GetOpenStores())
}

func TestStorePutGetDelete(t *testing.T) {
	p, web := setupProvider(t)

	s, err := p.OpenStore("test")
	require.NoError(t, err)

	require.EqualError(t, s.Put("", []byte("v")), "key cannot be blank")
	require.EqualError(t, s.Put("k", nil), "value cannot be nil")
	require.Error(t, s.Put("k", []byte("v"), storage.Tag{Name: "a:b"}))
	require.Error(t, s.Put("k", []byte("v"), storage.Tag{Name: "a", Value: "b:c"}))

	require.NoError(t, s.Put("ed25519::abc", []byte("value"), storage.Tag{Name: "keyType", Value: "ed25519"}))
	require.Contains(t, web.items, "aries/test/v/ed25519::abc")

	v, err := s.Get("ed25519::abc")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)

	tags, err := s.GetTags("ed25519::abc")
	require.NoError(t, err)
	require.Equal(t, []storage.Tag{{Name: "keyType", Value: "ed25519"}}, tags)

	_, err = s.Get("missing")
	require.ErrorIs(t, err, storage.ErrDataNotFound)

	_, err = s.Get("")
	require.Error(t, err)

	values, err := s.GetBulk("ed25519::abc", "missing")
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("value"), nil}, values)

	_, err = s.GetBulk()
	require.Error(t, err)

	require.NoError(t, s.Delete("ed25519::abc"))
	require.NoError(t, s.Delete("ed25519::abc"))
	require.Error(t, s.Delete(""))

	_, err = s.Get("ed25519::abc")
	require.ErrorIs(t, err, storage.ErrDataNotFound)

	require.NoError(t, s.Flush())

	t.Run("corrupt entry", func(t *testing.T) {
		web.items["aries/test/v/bad"] = "{"

		_, err := s.Get("bad")
		require.Error(t, err)

		web.items["aries/test/v/bad"] = `{"value":"***"}`

		_, err = s.Get("bad")
		require.Error(t, err)

		_, err = s.GetBulk("bad")
		require.Error(t, err)
	})

	t.Run("set failure", func(t *testing.T) {
		web.errSet = errors.New("quota exceeded")
		defer func() { web.errSet = nil }()

		require.ErrorContains(t, s.Put("k", []byte("v")), "quota exceeded")
	})
}

func TestStoreQuery(t *testing.T) {
	p, web := setupProvider(t)

	s, err := p.OpenStore("test")
	require.NoError(t, err)

	require.NoError(t, s.Put("k1", []byte("v1"),
		storage.Tag{Name: "keyType", Value: "ed25519"}, storage.Tag{Name: "owner", Value: "alice"}))
	require.NoError(t, s.Put("k2", []byte("v2"),
		storage.Tag{Name: "keyType", Value: "ed25519"}, storage.Tag{Name: "owner", Value: "bob"}))
	require.NoError(t, s.Put("k3", []byte("v3"), storage.Tag{Name: "keyType", Value: "x25519"}))

	collect := func(expression string) []string {
		iter, err := s.Query(expression)
		require.NoError(t, err)

		var keys []string

		for {
			ok, err := iter.Next()
			require.NoError(t, err)

			if !ok {
				break
			}

			key, err := iter.Key()
			require.NoError(t, err)

			keys = append(keys, key)
		}

		require.NoError(t, iter.Close())

		return keys
	}

	require.Equal(t, []string{"k1", "k2"}, collect("keyType:ed25519"))
	require.Equal(t, []string{"k1", "k2", "k3"}, collect("keyType"))
	require.Equal(t, []string{"k2"}, collect("keyType:ed25519&&owner:bob"))
	require.Empty(t, collect("keyType:x25519&&owner"))
	require.Empty(t, collect("unknown"))

	t.Run("retagging replaces the index", func(t *testing.T) {
		require.NoError(t, s.Put("k3", []byte("v3"), storage.Tag{Name: "keyType", Value: "ed25519"}))
		require.Equal(t, []string{"k1", "k2", "k3"}, collect("keyType:ed25519"))
		require.Empty(t, collect("keyType:x25519"))
	})

	t.Run("iterator values", func(t *testing.T) {
		iter, err := s.Query("owner:alice")
		require.NoError(t, err)

		_, err = iter.Value()
		require.EqualError(t, err, errIteratorExhausted.Error())

		ok, err := iter.Next()
		require.NoError(t, err)
		require.True(t, ok)

		v, err := iter.Value()
		require.NoError(t, err)
		require.Equal(t, []byte("v1"), v)

		tags, err := iter.Tags()
		require.NoError(t, err)
		require.Len(t, tags, 2)

		total, err := iter.TotalItems()
		require.NoError(t, err)
		require.Equal(t, 1, total)

		ok, err = iter.Next()
		require.NoError(t, err)
		require.False(t, ok)

		_, err = iter.Tags()
		require.Error(t, err)
	})

	t.Run("invalid expressions", func(t *testing.T) {
		_, err := s.Query("")
		require.Error(t, err)

		_, err = s.Query("a:b:c")
		require.Error(t, err)

		_, err = s.Query("a:b", storage.WithInitialPageNum(1))
		require.Error(t, err)
	})

	t.Run("corrupt tag map", func(t *testing.T) {
		web.items["aries/test/TagMap"] = "{"

		_, err := s.Query("keyType")
		require.Error(t, err)
	})
}

func TestStoreBatch(t *testing.T) {
	p, _ := setupProvider(t)

	s, err := p.OpenStore("test")
	require.NoError(t, err)

	require.Error(t, s.Batch(nil))

	err = s.Batch([]storage.Operation{
		{Key: "k1", Value: []byte("v1"), Tags: []storage.Tag{{Name: "t", Value: "1"}}},
		{Key: "k2", Value: []byte("v2"), PutOptions: &storage.PutOptions{IsNewKey: true}},
	})
	require.NoError(t, err)

	err = s.Batch([]storage.Operation{{Key: "k2", Value: []byte("v2"), PutOptions: &storage.PutOptions{IsNewKey: true}}})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = s.Batch([]storage.Operation{{Key: "k3", Value: []byte("v3"), Tags: []storage.Tag{{Name: "a:b"}}}})
	require.Error(t, err)

	require.NoError(t, s.Batch([]storage.Operation{{Key: "k1"}}))

	_, err = s.Get("k1")
	require.ErrorIs(t, err, storage.ErrDataNotFound)

	iter, err := s.Query("t:1")
	require.NoError(t, err)

	total, err := iter.TotalItems()
	require.NoError(t, err)
	require.Zero(t, total)

	v, err := s.Get("k2")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)
}

func TestPersistence(t *testing.T) {
	web := newMapStorage()

	p, err := NewProvider(web, "wallet")
	require.NoError(t, err)

	s, err := p.OpenStore("test")
	require.NoError(t, err)
	require.NoError(t, s.Put("k", []byte("v"), storage.Tag{Name: "t", Value: "1"}))
	require.NoError(t, p.Close())

	p, err = NewProvider(web, "wallet")
	require.NoError(t, err)

	s, err = p.OpenStore("test")
	require.NoError(t, err)

	v, err := s.Get("k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	iter, err := s.Query("t:1")
	require.NoError(t, err)

	total, err := iter.TotalItems()
	require.NoError(t, err)
	require.Equal(t, 1, total)

	other, err := NewProvider(web, "other")
	require.NoError(t, err)

	s, err = other.OpenStore("test")
	require.NoError(t, err)

	_, err = s.Get("k")
	require.ErrorIs(t, err, storage.ErrDataNotFound)
}
