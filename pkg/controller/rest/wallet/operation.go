/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"io"
	"net/http"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/controller/command"
	cmdwallet "github.com/hyperledger/aries-browser-wallet-go/pkg/controller/command/wallet"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/controller/rest"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/wallet"
)

// constants for wallet operations.
const (
	OperationID           = "/wallet"
	CreatePath            = OperationID + "/create"
	OpenPath              = OperationID + "/open"
	ClosePath             = OperationID + "/close"
	DeletePath            = OperationID + "/delete"
	IsOpenPath            = OperationID + "/isopen"
	CreateKeyPath         = OperationID + "/keys"
	ListKeysPath          = OperationID + "/keys/list"
	SignPath              = OperationID + "/sign"
	VerifyPath            = OperationID + "/verify"
	PackPath              = OperationID + "/pack"
	UnpackPath            = OperationID + "/unpack"
	GenerateNoncePath     = OperationID + "/nonce"
	GenerateWalletKeyPath = OperationID + "/walletkey"
)

type walletCommand interface {
	Create(rw io.Writer, req io.Reader) command.Error
	Open(rw io.Writer, req io.Reader) command.Error
	Close(rw io.Writer, req io.Reader) command.Error
	Delete(rw io.Writer, req io.Reader) command.Error
	IsOpen(rw io.Writer, req io.Reader) command.Error
	CreateKey(rw io.Writer, req io.Reader) command.Error
	ListKeys(rw io.Writer, req io.Reader) command.Error
	Sign(rw io.Writer, req io.Reader) command.Error
	Verify(rw io.Writer, req io.Reader) command.Error
	Pack(rw io.Writer, req io.Reader) command.Error
	Unpack(rw io.Writer, req io.Reader) command.Error
	GenerateNonce(rw io.Writer, req io.Reader) command.Error
	GenerateWalletKey(rw io.Writer, req io.Reader) command.Error
}

// Operation contains the wallet operations provided by controller REST API.
type Operation struct {
	handlers []rest.Handler
	command  walletCommand
}

// New returns new wallet operations rest client instance. notifier may be nil.
func New(w *wallet.Wallet, notifier command.Notifier) *Operation {
	o := &Operation{command: cmdwallet.New(w, notifier)}
	o.registerHandler()

	return o
}

// GetRESTHandlers get all controller API handler available for this service.
func (o *Operation) GetRESTHandlers() []rest.Handler {
	return o.handlers
}

// registerHandler register handlers to be exposed from this service as REST API endpoints.
func (o *Operation) registerHandler() {
	o.handlers = []rest.Handler{
		rest.NewHTTPHandler(CreatePath, http.MethodPost, o.Create),
		rest.NewHTTPHandler(OpenPath, http.MethodPost, o.Open),
		rest.NewHTTPHandler(ClosePath, http.MethodPost, o.Close),
		rest.NewHTTPHandler(DeletePath, http.MethodPost, o.Delete),
		rest.NewHTTPHandler(IsOpenPath, http.MethodGet, o.IsOpen),
		rest.NewHTTPHandler(CreateKeyPath, http.MethodPost, o.CreateKey),
		rest.NewHTTPHandler(ListKeysPath, http.MethodPost, o.ListKeys),
		rest.NewHTTPHandler(SignPath, http.MethodPost, o.Sign),
		rest.NewHTTPHandler(VerifyPath, http.MethodPost, o.Verify),
		rest.NewHTTPHandler(PackPath, http.MethodPost, o.Pack),
		rest.NewHTTPHandler(UnpackPath, http.MethodPost, o.Unpack),
		rest.NewHTTPHandler(GenerateNoncePath, http.MethodGet, o.GenerateNonce),
		rest.NewHTTPHandler(GenerateWalletKeyPath, http.MethodGet, o.GenerateWalletKey),
	}
}

// Create swagger:route POST /wallet/create wallet createWalletReq
//
// Creates a new wallet.
//
// Responses:
//    default: genericError
func (o *Operation) Create(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.Create, rw, req.Body)
}

// Open swagger:route POST /wallet/open wallet openWalletReq
//
// Opens a wallet.
//
// Responses:
//    default: genericError
func (o *Operation) Open(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.Open, rw, req.Body)
}

// Close swagger:route POST /wallet/close wallet closeWallet
//
// Closes the open wallet.
//
// Responses:
//    default: genericError
func (o *Operation) Close(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.Close, rw, req.Body)
}

// Delete swagger:route POST /wallet/delete wallet deleteWalletReq
//
// Deletes a wallet and all of its keys.
//
// Responses:
//    default: genericError
func (o *Operation) Delete(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.Delete, rw, req.Body)
}

// IsOpen swagger:route GET /wallet/isopen wallet isOpen
//
// Reports whether a wallet is open.
//
// Responses:
//    default: genericError
//        200: isOpenRes
func (o *Operation) IsOpen(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.IsOpen, rw, req.Body)
}

// CreateKey swagger:route POST /wallet/keys wallet createKeyReq
//
// Creates a key in the open wallet.
//
// Responses:
//    default: genericError
//        200: keyRes
func (o *Operation) CreateKey(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.CreateKey, rw, req.Body)
}

// ListKeys swagger:route POST /wallet/keys/list wallet listKeysReq
//
// Lists the public keys of the open wallet.
//
// Responses:
//    default: genericError
//        200: listKeysRes
func (o *Operation) ListKeys(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.ListKeys, rw, req.Body)
}

// Sign swagger:route POST /wallet/sign wallet signReq
//
// Signs data with a wallet key.
//
// Responses:
//    default: genericError
//        200: signRes
func (o *Operation) Sign(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.Sign, rw, req.Body)
}

// Verify swagger:route POST /wallet/verify wallet verifyReq
//
// Verifies a signature.
//
// Responses:
//    default: genericError
//        200: verifyRes
func (o *Operation) Verify(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.Verify, rw, req.Body)
}

// Pack swagger:route POST /wallet/pack wallet packReq
//
// Packs a DIDComm message for the given recipients.
//
// Responses:
//    default: genericError
//        200: packRes
func (o *Operation) Pack(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.Pack, rw, req.Body)
}

// Unpack swagger:route POST /wallet/unpack wallet unpackReq
//
// Unpacks a DIDComm envelope addressed to a key of the open wallet.
//
// Responses:
//    default: genericError
//        200: unpackRes
func (o *Operation) Unpack(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.Unpack, rw, req.Body)
}

// GenerateNonce swagger:route GET /wallet/nonce wallet generateNonce
//
// Generates a random decimal nonce.
//
// Responses:
//    default: genericError
//        200: generateNonceRes
func (o *Operation) GenerateNonce(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.GenerateNonce, rw, req.Body)
}

// GenerateWalletKey swagger:route GET /wallet/walletkey wallet generateWalletKey
//
// Generates a random wallet key for the RAW key derivation method.
//
// Responses:
//    default: genericError
//        200: generateWalletKeyRes
func (o *Operation) GenerateWalletKey(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.GenerateWalletKey, rw, req.Body)
}
