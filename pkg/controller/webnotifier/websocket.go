/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"nhooyr.io/websocket"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/controller/rest"
)

const (
	topicsQueryParam   = "topics"
	walletIDQueryParam = "walletID"
)

// subscription is what a websocket client asked to receive. Empty fields match everything.
type subscription struct {
	topics   map[string]struct{}
	walletID string
}

func newSubscription(r *http.Request) *subscription {
	s := &subscription{walletID: r.URL.Query().Get(walletIDQueryParam)}

	for _, topic := range strings.Split(r.URL.Query().Get(topicsQueryParam), ",") {
		if topic = strings.TrimSpace(topic); topic == "" {
			continue
		}

		if s.topics == nil {
			s.topics = map[string]struct{}{}
		}

		s.topics[topic] = struct{}{}
	}

	return s
}

func (s *subscription) matches(topic, walletID string) bool {
	if s.topics != nil {
		if _, ok := s.topics[topic]; !ok {
			return false
		}
	}

	return s.walletID == "" || s.walletID == walletID
}

// WSNotifier pushes wallet events to websocket clients.
//
// A client narrows what it receives with the "topics" (comma separated) and "walletID" query parameters
// of the upgrade request.
//
// Upgrades are accepted from the server's own origin and from origins whose host matches one of
// originPatterns (path.Match syntax, e.g. "*.example.com" or "localhost:*").
type WSNotifier struct {
	conns          map[*websocket.Conn]*subscription
	connsLock      sync.RWMutex
	handlers       []rest.Handler
	originPatterns []string
}

// NewWSNotifier returns a notifier accepting websocket clients on wsPath.
func NewWSNotifier(wsPath string, originPatterns ...string) *WSNotifier {
	n := &WSNotifier{
		conns:          map[*websocket.Conn]*subscription{},
		originPatterns: originPatterns,
	}

	n.handlers = []rest.Handler{
		rest.NewHTTPHandler(wsPath, http.MethodGet, n.handleWS),
	}

	return n
}

// Notify writes the topic message to every client subscribed to it.
func (n *WSNotifier) Notify(topic string, message []byte) error {
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

	walletID := eventWalletID(message)

	var targets []*websocket.Conn

	n.connsLock.RLock()
	for conn, sub := range n.conns {
		if sub.matches(topic, walletID) {
			targets = append(targets, conn)
		}
	}
	n.connsLock.RUnlock()

	var allErrs error

	for _, conn := range targets {
		allErrs = appendError(allErrs, notifyWS(context.Background(), conn, topicMsg))
	}

	return allErrs
}

// eventWalletID returns the wallet an event message is about, if it names one.
func eventWalletID(message []byte) string {
	var event struct {
		WalletID string `json:"walletID"`
	}

	if err := json.Unmarshal(message, &event); err != nil {
		return ""
	}

	return event.WalletID
}

func notifyWS(parent context.Context, conn *websocket.Conn, message []byte) error {
	ctx, cancel := context.WithTimeout(parent, notificationSendTimeout)
	defer cancel()

	return conn.Write(ctx, websocket.MessageText, message)
}

func (n *WSNotifier) handleWS(w http.ResponseWriter, r *http.Request) {
	sub := newSubscription(r)

	crossOrigin, err := n.authorizeOrigin(r)
	if err != nil {
		logger.Infof("rejected websocket notification client: %v", err)
		http.Error(w, err.Error(), http.StatusForbidden)

		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: crossOrigin})
	if err != nil {
		logger.Infof("failed to upgrade the websocket notification connection : %v", err)

		return
	}

	logger.Debugf("websocket client subscribed to topics=%v walletID=[%s]", maps.Keys(sub.topics), sub.walletID)

	n.connsLock.Lock()
	n.conns[conn] = sub
	n.connsLock.Unlock()

	n.monitorWSConn(r.Context(), conn)
}

// authorizeOrigin reports whether r comes from an allowed foreign origin. Same origin requests and
// requests without an Origin header are left to the websocket library.
func (n *WSNotifier) authorizeOrigin(r *http.Request) (bool, error) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false, nil
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false, fmt.Errorf("parse origin %q: %w", origin, err)
	}

	if strings.EqualFold(u.Host, r.Host) {
		return false, nil
	}

	for _, pattern := range n.originPatterns {
		matched, err := path.Match(strings.ToLower(pattern), strings.ToLower(u.Host))
		if err != nil {
			return false, fmt.Errorf("origin pattern %q: %w", pattern, err)
		}

		if matched {
			return true, nil
		}
	}

	return false, fmt.Errorf("origin %q is not allowed", origin)
}

// monitorWSConn blocks until the client goes away. Clients only listen; any message they send ends the session.
func (n *WSNotifier) monitorWSConn(ctx context.Context, conn *websocket.Conn) {
	_, _, err := conn.Reader(ctx)
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		logger.Infof("reading from websocket notification client failed: %v", err)
	}

	if err = conn.Close(websocket.StatusPolicyViolation, "unexpected message"); err != nil {
		logger.Debugf("closing websocket notification client failed: %v", err)
	}

	n.connsLock.Lock()
	delete(n.conns, conn)
	n.connsLock.Unlock()

	logger.Debugf("websocket notification client dropped")
}

// GetRESTHandlers returns the websocket upgrade handler.
func (n *WSNotifier) GetRESTHandlers() []rest.Handler {
	return n.handlers
}
