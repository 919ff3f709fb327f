/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"errors"
)

// Type tells whether a command failed on its input or while executing.
type Type int32

const (
	// ValidationError marks a rejected request. REST reports it as 400.
	ValidationError Type = iota

	// ExecuteError marks a failure after the request was accepted. REST reports it as 500.
	ExecuteError
)

func (t Type) String() string {
	switch t {
	case ValidationError:
		return "validation"
	case ExecuteError:
		return "execute"
	default:
		return "unknown"
	}
}

// Code is the error code of command errors.
type Code int32

// UnknownStatus is the code of errors no command claimed.
const UnknownStatus Code = 0

// Group is a block of 1000 error codes owned by one command.
type Group int32

const (
	// Common error group for general command errors.
	Common Group = 1000

	// Wallet error group for wallet command errors.
	Wallet Group = 2000

	// FileSystem error group for file system command errors.
	FileSystem Group = 3000
)

// Group returns the block c belongs to.
func (c Code) Group() Group {
	return Group(c / 1000 * 1000) //nolint:gomnd
}

// Error is a command failure carrying its code and type.
type Error interface {
	error
	Code() Code
	Type() Type
}

// NewValidationError returns new command validation error.
func NewValidationError(code Code, err error) Error {
	return &commandError{err, code, ValidationError}
}

// NewExecuteError returns new command execute error.
func NewExecuteError(code Code, err error) Error {
	return &commandError{err, code, ExecuteError}
}

// HasCode reports whether err wraps a command Error with code.
func HasCode(err error, code Code) bool {
	var cmdErr Error

	return errors.As(err, &cmdErr) && cmdErr.Code() == code
}

type commandError struct {
	error
	code    Code
	errType Type
}

func (c *commandError) Code() Code {
	return c.code
}

func (c *commandError) Type() Type {
	return c.errType
}

func (c *commandError) Unwrap() error {
	return c.error
}
