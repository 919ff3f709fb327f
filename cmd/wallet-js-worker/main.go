//go:build js && wasm
// +build js,wasm

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"syscall/js"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"
	spilog "github.com/hyperledger/aries-framework-go/spi/log"
	spi "github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/mitchellh/mapstructure"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/controller"
	cmdctrl "github.com/hyperledger/aries-browser-wallet-go/pkg/controller/command"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/filesystem"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/secretlock/walletkey"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/storage"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/storage/localstorage"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/wallet"
)

func init() {
	log.Initialize(newJSLogger())
}

const (
	wasmStartupTopic = "asset-ready"
	handleResultFn   = "handleResult"
	walletCommandPkg = "walletworker"
	walletStartFn    = "Start"
	walletStopFn     = "Stop"
	workers          = 2
)

var logger = log.New("wallet-js-worker")

// command is received from JS.
type command struct {
	ID      string                 `json:"id"`
	Pkg     string                 `json:"pkg"`
	Fn      string                 `json:"fn"`
	Payload map[string]interface{} `json:"payload"`
}

// result is sent back to JS.
type result struct {
	ID      string                 `json:"id"`
	IsErr   bool                   `json:"isErr"`
	ErrMsg  string                 `json:"errMsg"`
	Payload map[string]interface{} `json:"payload"`
	Topic   string                 `json:"topic"`
}

// walletStartOpts contains opts for starting the wallet.
type walletStartOpts struct {
	LogLevel    string `json:"log-level"`
	DBNamespace string `json:"db-namespace"`
	KDFMemoryKB uint32 `json:"kdf-memory"`
	KDFTime     uint32 `json:"kdf-time"`
}

type handlers map[string]map[string]func(*command) *result

// main registers the 'handleMsg' function in the JS context's global scope to receive commands.
// results are posted back to the 'handleResult' JS function.
func main() {
	input := make(chan *command, 10)
	output := make(chan *result)

	go pipe(input, output)

	go sendTo(output)

	js.Global().Set("handleMsg", js.FuncOf(takeFrom(input)))

	postInitMsg()

	select {}
}

func takeFrom(in chan *command) func(js.Value, []js.Value) interface{} {
	return func(_ js.Value, args []js.Value) interface{} {
		cmd := &command{}
		if err := json.Unmarshal([]byte(args[0].String()), cmd); err != nil {
			logger.Errorf("wallet wasm: unable to unmarshal input=%s. err=%s", args[0].String(), err)

			return nil
		}

		in <- cmd

		return nil
	}
}

func pipe(input chan *command, output chan *result) {
	h := make(handlers)

	addWalletHandlers(h)

	// Start and Stop rewrite the handler map, so dispatch is serialized.
	for w := 0; w < workers; w++ {
		go worker(input, output, h)
	}
}

func worker(input chan *command, output chan *result, h handlers) {
	for c := range input {
		if c.ID == "" {
			logger.Warnf("wallet wasm: missing ID for input: %v", c)
		}

		output <- h.dispatch(c)
	}
}

var dispatchLock sync.Mutex //nolint:gochecknoglobals

func (h handlers) dispatch(c *command) *result {
	dispatchLock.Lock()
	defer dispatchLock.Unlock()

	if pkg, found := h[c.Pkg]; found {
		if fn, found := pkg[c.Fn]; found {
			return fn(c)
		}
	}

	return handlerNotFoundErr(c)
}

func sendTo(out chan *result) {
	for r := range out {
		out, err := json.Marshal(r)
		if err != nil {
			logger.Errorf("wallet wasm: failed to marshal response for id=%s err=%s ", r.ID, err)
		}

		js.Global().Call(handleResultFn, string(out))
	}
}

func cmdExecToFn(exec cmdctrl.Exec) func(*command) *result {
	return func(c *command) *result {
		b, er := json.Marshal(c.Payload)
		if er != nil {
			return newErrResult(c.ID, fmt.Sprintf("failed to unmarshal payload. err=%s", er))
		}

		var buf bytes.Buffer

		err := exec(&buf, bytes.NewBuffer(b))
		if err != nil {
			return newErrResult(c.ID, fmt.Sprintf("code: %d, type: %s, message: %s", err.Code(), err.Type(), err.Error()))
		}

		payload := make(map[string]interface{})

		if buf.Len() > 0 {
			if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
				return newErrResult(c.ID,
					fmt.Sprintf("failed to unmarshal command result=%+v err=%s", buf.String(), err))
			}
		}

		return &result{
			ID:      c.ID,
			Payload: payload,
		}
	}
}

func handlerNotFoundErr(c *command) *result {
	if c.Pkg == walletCommandPkg && c.Fn == walletStartFn {
		return newErrResult(c.ID, "wallet already started")
	} else if c.Pkg == walletCommandPkg && c.Fn == walletStopFn {
		return newErrResult(c.ID, "wallet not running")
	}

	return newErrResult(c.ID, fmt.Sprintf("invalid pkg/fn: %s/%s, make sure the wallet is started", c.Pkg, c.Fn))
}

func addWalletHandlers(h handlers) {
	h[walletCommandPkg] = map[string]func(*command) *result{
		walletStartFn: func(c *command) *result {
			cOpts, err := startOpts(c.Payload)
			if err != nil {
				return newErrResult(c.ID, err.Error())
			}

			err = setLogLevel(cOpts.LogLevel)
			if err != nil {
				return newErrResult(c.ID, err.Error())
			}

			store, err := openStore(cOpts)
			if err != nil {
				return newErrResult(c.ID, err.Error())
			}

			w, err := newWallet(store, cOpts)
			if err != nil {
				return newErrResult(c.ID, err.Error())
			}

			fs, err := filesystem.New(store)
			if err != nil {
				return newErrResult(c.ID, err.Error())
			}

			commands, err := controller.GetCommandHandlers(w,
				controller.WithNotifier(&jsNotifier{}), controller.WithFileSystem(fs))
			if err != nil {
				return newErrResult(c.ID, err.Error())
			}

			addCommandHandlers(commands, h)
			addStopWalletHandler(w, h)

			return &result{
				ID:      c.ID,
				Payload: map[string]interface{}{"message": "wallet started successfully"},
			}
		},
	}
}

// openStore returns the window.localStorage provider, scoped to the configured namespace.
func openStore(opts *walletStartOpts) (spi.Provider, error) {
	web, err := localstorage.Window()
	if err != nil {
		return nil, err
	}

	provider, err := localstorage.NewProvider(web, "")
	if err != nil {
		return nil, err
	}

	if opts.DBNamespace == "" {
		return provider, nil
	}

	return storage.NewNamespacedProvider(provider, opts.DBNamespace)
}

func newWallet(store spi.Provider, opts *walletStartOpts) (*wallet.Wallet, error) {
	params := walletkey.DefaultKDFParams

	if opts.KDFMemoryKB > 0 {
		params.MemoryKB = opts.KDFMemoryKB
	}

	if opts.KDFTime > 0 {
		params.Time = opts.KDFTime
	}

	return wallet.New(store, wallet.WithKDFParams(params))
}

func addCommandHandlers(commands []cmdctrl.Handler, h handlers) {
	for _, cmd := range commands {
		fnMap, ok := h[cmd.Name()]
		if !ok {
			fnMap = make(map[string]func(*command) *result)
		}

		fnMap[cmd.Method()] = cmdExecToFn(cmd.Handle())
		h[cmd.Name()] = fnMap
	}
}

func addStopWalletHandler(w *wallet.Wallet, h handlers) {
	h[walletCommandPkg] = map[string]func(*command) *result{
		walletStopFn: func(c *command) *result {
			if w.IsOpen() {
				if err := w.Close(); err != nil {
					return newErrResult(c.ID, err.Error())
				}
			}

			// reset handlers when stopped
			for k := range h {
				delete(h, k)
			}

			// put back start command once stopped
			addWalletHandlers(h)

			return &result{
				ID:      c.ID,
				Payload: map[string]interface{}{"message": "wallet stopped"},
			}
		},
	}
}

func newErrResult(id, msg string) *result {
	return &result{
		ID:     id,
		IsErr:  true,
		ErrMsg: "wallet wasm: " + msg,
	}
}

func startOpts(payload map[string]interface{}) (*walletStartOpts, error) {
	opts := &walletStartOpts{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  opts,
	})
	if err != nil {
		return nil, err
	}

	err = decoder.Decode(payload)
	if err != nil {
		return nil, err
	}

	return opts, nil
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}

		log.SetLevel("", level)
		logger.Infof("log level set to `%s`", logLevel)
	}

	return nil
}

// jsNotifier posts wallet events to JS as results carrying a topic.
type jsNotifier struct{}

func (n *jsNotifier) Notify(topic string, message []byte) error {
	payload := make(map[string]interface{})
	if err := json.Unmarshal(message, &payload); err != nil {
		return err
	}

	out, err := json.Marshal(&result{
		ID:      uuid.New().String(),
		Topic:   topic,
		Payload: payload,
	})
	if err != nil {
		return err
	}

	js.Global().Call(handleResultFn, string(out))

	return nil
}

func postInitMsg() {
	out, err := json.Marshal(&result{
		ID:    uuid.New().String(),
		Topic: wasmStartupTopic,
	})
	if err != nil {
		panic(err)
	}

	js.Global().Call(handleResultFn, string(out))
}

type jsLogger struct{}

func newJSLogger() *jsLogger {
	return &jsLogger{}
}

// GetLogger returns a logger writing to the JS 'print_log' function.
func (l *jsLogger) GetLogger(module string) spilog.Logger {
	return loggerWrapper{module: module}
}

type loggerWrapper struct {
	module string
}

func (w loggerWrapper) Fatalf(msg string, args ...interface{}) {
	w.write("log_error", fmt.Sprintf(msg, args...))
}

func (w loggerWrapper) Panicf(msg string, args ...interface{}) {
	w.write("log_error", fmt.Sprintf(msg, args...))
}

func (w loggerWrapper) Debugf(msg string, args ...interface{}) {
	w.write("log_debug", fmt.Sprintf(msg, args...))
}

func (w loggerWrapper) Infof(msg string, args ...interface{}) {
	w.write("log_info", fmt.Sprintf(msg, args...))
}

func (w loggerWrapper) Warnf(msg string, args ...interface{}) {
	w.write("log_warn", fmt.Sprintf(msg, args...))
}

func (w loggerWrapper) Errorf(msg string, args ...interface{}) {
	w.write("log_error", fmt.Sprintf(msg, args...))
}

func (w loggerWrapper) write(t, msg string) {
	js.Global().Call("print_log", t, "["+w.module+"] "+msg)
}
