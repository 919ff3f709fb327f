/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"errors"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/controller/command"
	fscmd "github.com/hyperledger/aries-browser-wallet-go/pkg/controller/command/filesystem"
	walletcmd "github.com/hyperledger/aries-browser-wallet-go/pkg/controller/command/wallet"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/controller/rest"
	walletrest "github.com/hyperledger/aries-browser-wallet-go/pkg/controller/rest/wallet"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/controller/webnotifier"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/filesystem"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/wallet"
)

type allOpts struct {
	webhookURLs      []string
	wsOriginPatterns []string
	notifier         command.Notifier
	fileSystem       *filesystem.FileSystem
}

const wsPath = "/ws"

// Opt represents a controller option.
type Opt func(opts *allOpts)

// WithWebhookURLs is an option for setting up a webhook dispatcher which will notify clients of events.
func WithWebhookURLs(webhookURLs ...string) Opt {
	return func(opts *allOpts) {
		opts.webhookURLs = webhookURLs
	}
}

// WithWSOriginPatterns lets browsers on matching foreign origins open the websocket notification channel.
func WithWSOriginPatterns(patterns ...string) Opt {
	return func(opts *allOpts) {
		opts.wsOriginPatterns = patterns
	}
}

// WithNotifier is an option for setting up a notifier which will notify clients of events.
func WithNotifier(notifier command.Notifier) Opt {
	return func(opts *allOpts) {
		opts.notifier = notifier
	}
}

// WithFileSystem adds the file system commands backed by fs.
func WithFileSystem(fs *filesystem.FileSystem) Opt {
	return func(opts *allOpts) {
		opts.fileSystem = fs
	}
}

// GetRESTHandlers returns all REST handlers provided by controller.
func GetRESTHandlers(w *wallet.Wallet, opts ...Opt) ([]rest.Handler, error) {
	if w == nil {
		return nil, errors.New("wallet is required")
	}

	restAPIOpts := &allOpts{}
	// Apply options
	for _, opt := range opts {
		opt(restAPIOpts)
	}

	notifier := restAPIOpts.notifier
	if notifier == nil {
		notifier = webnotifier.New(wsPath, restAPIOpts.webhookURLs, restAPIOpts.wsOriginPatterns...)
	}

	walletOp := walletrest.New(w, notifier)

	var allHandlers []rest.Handler
	allHandlers = append(allHandlers, walletOp.GetRESTHandlers()...)

	nhp, ok := notifier.(handlerProvider)
	if ok {
		allHandlers = append(allHandlers, nhp.GetRESTHandlers()...)
	}

	return allHandlers, nil
}

type handlerProvider interface {
	GetRESTHandlers() []rest.Handler
}

// GetCommandHandlers returns all command handlers provided by controller.
func GetCommandHandlers(w *wallet.Wallet, opts ...Opt) ([]command.Handler, error) {
	if w == nil {
		return nil, errors.New("wallet is required")
	}

	cmdOpts := &allOpts{}
	// Apply options
	for _, opt := range opts {
		opt(cmdOpts)
	}

	notifier := cmdOpts.notifier
	if notifier == nil && len(cmdOpts.webhookURLs) > 0 {
		notifier = webnotifier.NewHTTPNotifier(cmdOpts.webhookURLs)
	}

	walletCmd := walletcmd.New(w, notifier)

	var allHandlers []command.Handler
	allHandlers = append(allHandlers, walletCmd.GetHandlers()...)

	if cmdOpts.fileSystem != nil {
		allHandlers = append(allHandlers, fscmd.New(cmdOpts.fileSystem).GetHandlers()...)
	}

	return allHandlers, nil
}
