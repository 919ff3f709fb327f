/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"io"
)

// Exec is controller command execution function type.
type Exec func(rw io.Writer, req io.Reader) Error

// Handler binds an Exec to a command name and method. The JS worker looks commands up by
// name, then method.
type Handler interface {
	Name() string
	Method() string
	Handle() Exec
}

type handler struct {
	name   string
	method string
	exec   Exec
}

// NewHandler returns the Handler running exec for method of the named command.
func NewHandler(name, method string, exec Exec) Handler {
	return &handler{name: name, method: method, exec: exec}
}

func (h *handler) Name() string { return h.name }

func (h *handler) Method() string { return h.method }

func (h *handler) Handle() Exec { return h.exec }

// Notifier represents a notification dispatcher.
type Notifier interface {
	Notify(topic string, message []byte) error
}
