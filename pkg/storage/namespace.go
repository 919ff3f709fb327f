/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package storage

import (
	"fmt"
	"strings"

	spi "github.com/hyperledger/aries-framework-go/spi/storage"
)

const namespaceSeparator = "_"

// NamespacedProvider opens the stores of one namespace (a wallet) in a shared provider.
// Store names are prefixed with the namespace. Closing it leaves the underlying provider open.
type NamespacedProvider struct {
	namespace string
	provider  spi.Provider
}

// NewNamespacedProvider returns a provider scoped to namespace.
func NewNamespacedProvider(p spi.Provider, namespace string) (*NamespacedProvider, error) {
	if namespace == "" || strings.ContainsAny(namespace, ":\x00") {
		return nil, fmt.Errorf("invalid namespace %q", namespace)
	}

	return &NamespacedProvider{namespace: namespace, provider: p}, nil
}

// OpenStore opens the store name of this namespace.
func (n *NamespacedProvider) OpenStore(name string) (spi.Store, error) {
	if name == "" {
		return nil, fmt.Errorf("store name cannot be blank")
	}

	return n.provider.OpenStore(n.storeName(name))
}

// SetStoreConfig sets the configuration of store name of this namespace.
func (n *NamespacedProvider) SetStoreConfig(name string, config spi.StoreConfiguration) error {
	return n.provider.SetStoreConfig(n.storeName(name), config)
}

// GetStoreConfig gets the configuration of store name of this namespace.
func (n *NamespacedProvider) GetStoreConfig(name string) (spi.StoreConfiguration, error) {
	return n.provider.GetStoreConfig(n.storeName(name))
}

// GetOpenStores returns the open stores of the underlying provider.
func (n *NamespacedProvider) GetOpenStores() []spi.Store {
	return n.provider.GetOpenStores()
}

// Close is a no-op; the underlying provider is owned by the caller.
func (n *NamespacedProvider) Close() error {
	return nil
}

func (n *NamespacedProvider) storeName(name string) string {
	return n.namespace + namespaceSeparator + name
}
