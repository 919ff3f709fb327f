//go:build js && wasm
// +build js,wasm

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package localstorage

import (
	"fmt"
	"syscall/js"
)

type window struct {
	storage js.Value
}

// Window returns the Web Storage of the global scope.
func Window() (WebStorage, error) {
	v := js.Global().Get("localStorage")
	if !v.Truthy() {
		return nil, ErrUnavailable
	}

	return &window{storage: v}, nil
}

func (w *window) GetItem(key string) (string, bool) {
	v := w.storage.Call("getItem", key)
	if v.IsNull() {
		return "", false
	}

	return v.String(), true
}

// SetItem fails when the quota is exceeded.
func (w *window) SetItem(key, value string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("localStorage setItem %s: %v", key, r)
		}
	}()

	w.storage.Call("setItem", key, value)

	return nil
}

func (w *window) RemoveItem(key string) {
	w.storage.Call("removeItem", key)
}
