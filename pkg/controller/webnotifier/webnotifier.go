/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/controller/command"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/controller/rest"
)

var logger = log.New("aries-framework/webnotifier")

const (
	notificationSendTimeout = 10 * time.Second

	emptyTopicErrMsg     = "cannot notify with an empty topic"
	emptyMessageErrMsg   = "cannot notify with an empty message"
	failedToCreateErrMsg = "failed to create topic message : %w"
)

// WebNotifier dispatches notifications to webhook subscribers and websocket clients.
type WebNotifier struct {
	notifiers []command.Notifier
	handlers  []rest.Handler
}

// New returns a WebNotifier serving websocket clients on wsPath and posting to webhookURLs.
// Browsers on origins matching wsOriginPatterns may subscribe besides same origin clients.
func New(wsPath string, webhookURLs []string, wsOriginPatterns ...string) *WebNotifier {
	ws := NewWSNotifier(wsPath, wsOriginPatterns...)

	return &WebNotifier{
		notifiers: []command.Notifier{ws, NewHTTPNotifier(webhookURLs)},
		handlers:  ws.GetRESTHandlers(),
	}
}

// Notify sends message on topic to all subscribers. The first error is returned.
func (n *WebNotifier) Notify(topic string, message []byte) error {
	var allErrs error

	for _, notifier := range n.notifiers {
		allErrs = appendError(allErrs, notifier.Notify(topic, message))
	}

	return allErrs
}

// GetRESTHandlers returns the websocket handler.
func (n *WebNotifier) GetRESTHandlers() []rest.Handler {
	return n.handlers
}

// topicMessage is the envelope of a notification.
type topicMessage struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

// PrepareTopicMessage wraps message (JSON) in a topic envelope with a fresh id.
func PrepareTopicMessage(topic string, message []byte) ([]byte, error) {
	return json.Marshal(&topicMessage{
		ID:      uuid.New().String(),
		Topic:   topic,
		Message: message,
	})
}

func appendError(errToAppendTo, err error) error {
	if errToAppendTo == nil {
		return err
	}

	if err == nil {
		return errToAppendTo
	}

	return fmt.Errorf("%w; %s", errToAppendTo, err.Error())
}
