/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultWebhookRetries = 2
	defaultRetryInterval  = 100 * time.Millisecond
)

// HTTPNotifier posts wallet events to webhook subscribers.
//
// Subscribers are notified concurrently. A delivery answered with a server error or failing in transport is
// retried with exponential backoff; a 4xx answer is final.
type HTTPNotifier struct {
	urls          []string
	client        *http.Client
	maxRetries    uint64
	retryInterval time.Duration
}

// HTTPOpt configures an HTTPNotifier.
type HTTPOpt func(n *HTTPNotifier)

// WithHTTPClient sets the client used to post events.
func WithHTTPClient(c *http.Client) HTTPOpt {
	return func(n *HTTPNotifier) {
		n.client = c
	}
}

// WithRetries sets how many times a failed delivery is retried and the initial wait between attempts.
func WithRetries(maxRetries uint64, interval time.Duration) HTTPOpt {
	return func(n *HTTPNotifier) {
		n.maxRetries = maxRetries
		n.retryInterval = interval
	}
}

// NewHTTPNotifier returns a notifier posting to webhookURLs.
func NewHTTPNotifier(webhookURLs []string, opts ...HTTPOpt) *HTTPNotifier {
	n := &HTTPNotifier{
		urls:          webhookURLs,
		client:        http.DefaultClient,
		maxRetries:    defaultWebhookRetries,
		retryInterval: defaultRetryInterval,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Notify posts the topic message to every subscriber and waits for all deliveries.
// Failures of individual subscribers are joined in subscriber order.
func (n *HTTPNotifier) Notify(topic string, message []byte) error {
	if topic == "" {
		return fmt.Errorf(emptyTopicErrMsg)
	}

	if len(message) == 0 {
		return fmt.Errorf(emptyMessageErrMsg)
	}

	topicMsg, err := PrepareTopicMessage(topic, message)
	if err != nil {
		return fmt.Errorf(failedToCreateErrMsg, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), notificationSendTimeout)
	defer cancel()

	errs := make([]error, len(n.urls))

	var wg sync.WaitGroup

	for i, webhookURL := range n.urls {
		wg.Add(1)

		go func(i int, webhookURL string) {
			defer wg.Done()

			errs[i] = n.deliver(ctx, webhookURL, topicMsg)
		}(i, webhookURL)
	}

	wg.Wait()

	var allErrs error

	for _, e := range errs {
		allErrs = appendError(allErrs, e)
	}

	return allErrs
}

func (n *HTTPNotifier) deliver(ctx context.Context, destination string, message []byte) error {
	attempts := 0

	post := func() error {
		attempts++

		return n.post(ctx, destination, message)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.retryInterval
	b.MaxElapsedTime = notificationSendTimeout

	err := backoff.RetryNotify(post, backoff.WithContext(backoff.WithMaxRetries(b, n.maxRetries), ctx),
		func(err error, wait time.Duration) {
			logger.Debugf("webhook delivery to %s failed, retrying in %s: %s", destination, wait, err)
		})
	if err != nil {
		return fmt.Errorf("notify %s after %d attempt(s): %w", destination, attempts, err)
	}

	logger.Debugf("event delivered to webhook %s", destination)

	return nil
}

func (n *HTTPNotifier) post(ctx context.Context, destination string, message []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(message))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create new http post request: %w", err))
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}

	defer closeResponse(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated ||
		resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode < http.StatusInternalServerError:
		return backoff.Permanent(fmt.Errorf("subscriber answered %s", resp.Status))
	default:
		return fmt.Errorf("subscriber answered %s", resp.Status)
	}
}

func closeResponse(c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Errorf("failed to close webhook response body: %s", err)
	}
}
