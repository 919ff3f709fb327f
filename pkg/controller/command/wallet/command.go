/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcutil/base58"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/controller/command"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/internal/logutil"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/kms"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/secretlock/walletkey"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/wallet"
)

var logger = log.New("aries-framework/command/wallet")

// Error codes.
const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Wallet)
	// CreateWalletErrorCode for failures while creating a wallet.
	CreateWalletErrorCode
	// OpenWalletErrorCode for failures while opening a wallet.
	OpenWalletErrorCode
	// CloseWalletErrorCode for failures while closing a wallet.
	CloseWalletErrorCode
	// DeleteWalletErrorCode for failures while deleting a wallet.
	DeleteWalletErrorCode
	// CreateKeyErrorCode for failures while creating a key.
	CreateKeyErrorCode
	// ListKeysErrorCode for failures while listing keys.
	ListKeysErrorCode
	// SignErrorCode for failures while signing.
	SignErrorCode
	// VerifyErrorCode for failures while verifying a signature.
	VerifyErrorCode
	// PackErrorCode for failures while packing a message.
	PackErrorCode
	// UnpackErrorCode for failures while unpacking a message.
	UnpackErrorCode
	// GenerateErrorCode for failures while generating a nonce or wallet key.
	GenerateErrorCode
)

// constants for the wallet commands.
const (
	// command name.
	CommandName = "wallet"

	// command methods.
	CreateMethod            = "Create"
	OpenMethod              = "Open"
	CloseMethod             = "Close"
	DeleteMethod            = "Delete"
	IsOpenMethod            = "IsOpen"
	CreateKeyMethod         = "CreateKey"
	ListKeysMethod          = "ListKeys"
	SignMethod              = "Sign"
	VerifyMethod            = "Verify"
	PackMethod              = "Pack"
	UnpackMethod            = "Unpack"
	GenerateNonceMethod     = "GenerateNonce"
	GenerateWalletKeyMethod = "GenerateWalletKey"

	// Topic of wallet events.
	Topic = "wallet"

	// event types.
	OpenedEvent          = "opened"
	ClosedEvent          = "closed"
	DeletedEvent         = "deleted"
	KeyCreatedEvent      = "key_created"
	MessageUnpackedEvent = "message_unpacked"

	// error messages.
	errEmptyKeyType  = "key type is mandatory"
	errEmptyKey      = "key is mandatory"
	errEmptyEnvelope = "envelope is mandatory"
	errEmptyPayload  = "payload is mandatory"
)

// errors reported as validation errors.
//
//nolint:gochecknoglobals
var validationErrors = []error{
	wallet.ErrInvalidConfig,
	wallet.ErrConflictingKeyInput,
	wallet.ErrInvalidSeed,
	wallet.ErrInvalidPrivateKey,
	wallet.ErrUnsupportedBatchSign,
	wallet.ErrEmptyRecipients,
	kms.ErrUnsupportedAlgorithm,
	kms.ErrInvalidKeyLength,
}

// Command contains the operations of the wallet controller.
type Command struct {
	wallet   *wallet.Wallet
	notifier command.Notifier
}

// New returns a new wallet command. notifier may be nil.
func New(w *wallet.Wallet, notifier command.Notifier) *Command {
	return &Command{wallet: w, notifier: notifier}
}

// GetHandlers returns list of all commands supported by this controller command.
func (o *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		command.NewHandler(CommandName, CreateMethod, o.Create),
		command.NewHandler(CommandName, OpenMethod, o.Open),
		command.NewHandler(CommandName, CloseMethod, o.Close),
		command.NewHandler(CommandName, DeleteMethod, o.Delete),
		command.NewHandler(CommandName, IsOpenMethod, o.IsOpen),
		command.NewHandler(CommandName, CreateKeyMethod, o.CreateKey),
		command.NewHandler(CommandName, ListKeysMethod, o.ListKeys),
		command.NewHandler(CommandName, SignMethod, o.Sign),
		command.NewHandler(CommandName, VerifyMethod, o.Verify),
		command.NewHandler(CommandName, PackMethod, o.Pack),
		command.NewHandler(CommandName, UnpackMethod, o.Unpack),
		command.NewHandler(CommandName, GenerateNonceMethod, o.GenerateNonce),
		command.NewHandler(CommandName, GenerateWalletKeyMethod, o.GenerateWalletKey),
	}
}

// Create provisions a new wallet.
func (o *Command) Create(rw io.Writer, req io.Reader) command.Error {
	cfg, cmdErr := decodeConfig(req, CreateMethod)
	if cmdErr != nil {
		return cmdErr
	}

	err := o.wallet.Create(cfg)
	if err != nil {
		return newError(CreateWalletErrorCode, CreateMethod, err)
	}

	command.WriteNillableResponse(rw, nil, logger)

	logutil.Debug(logger, CommandName, CreateMethod, "success",
		"walletID", cfg.ID)

	return nil
}

// Open opens a wallet.
func (o *Command) Open(rw io.Writer, req io.Reader) command.Error {
	cfg, cmdErr := decodeConfig(req, OpenMethod)
	if cmdErr != nil {
		return cmdErr
	}

	err := o.wallet.Open(cfg)
	if err != nil {
		return newError(OpenWalletErrorCode, OpenMethod, err)
	}

	o.notify(&Event{Type: OpenedEvent, WalletID: cfg.ID})

	command.WriteNillableResponse(rw, nil, logger)

	logutil.Debug(logger, CommandName, OpenMethod, "success",
		"walletID", cfg.ID)

	return nil
}

// Close closes the open wallet.
func (o *Command) Close(rw io.Writer, _ io.Reader) command.Error {
	id := o.wallet.OpenWalletID()

	err := o.wallet.Close()
	if err != nil {
		return newError(CloseWalletErrorCode, CloseMethod, err)
	}

	o.notify(&Event{Type: ClosedEvent, WalletID: id})

	command.WriteNillableResponse(rw, nil, logger)

	logutil.Debug(logger, CommandName, CloseMethod, "success")

	return nil
}

// Delete deletes a wallet and its keys.
func (o *Command) Delete(rw io.Writer, req io.Reader) command.Error {
	cfg, cmdErr := decodeConfig(req, DeleteMethod)
	if cmdErr != nil {
		return cmdErr
	}

	err := o.wallet.Delete(cfg)
	if err != nil {
		return newError(DeleteWalletErrorCode, DeleteMethod, err)
	}

	o.notify(&Event{Type: DeletedEvent, WalletID: cfg.ID})

	command.WriteNillableResponse(rw, nil, logger)

	logutil.Debug(logger, CommandName, DeleteMethod, "success",
		"walletID", cfg.ID)

	return nil
}

// IsOpen reports whether a wallet is open.
func (o *Command) IsOpen(rw io.Writer, _ io.Reader) command.Error {
	command.WriteNillableResponse(rw, &IsOpenResponse{Open: o.wallet.IsOpen()}, logger)

	return nil
}

// CreateKey creates a key in the open wallet.
func (o *Command) CreateKey(rw io.Writer, req io.Reader) command.Error {
	var request CreateKeyRequest

	if cmdErr := decode(req, &request, CreateKeyMethod); cmdErr != nil {
		return cmdErr
	}

	if request.KeyType == "" {
		logutil.Debug(logger, CommandName, CreateKeyMethod, errEmptyKeyType)
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf(errEmptyKeyType))
	}

	kt, err := kms.ParseKeyType(request.KeyType)
	if err != nil {
		return newError(CreateKeyErrorCode, CreateKeyMethod, err)
	}

	opts := wallet.CreateKeyOptions{KeyType: kt, Seed: []byte(request.Seed)}

	if request.PrivateKey != "" {
		opts.PrivateKey = base58.Decode(request.PrivateKey)
		if len(opts.PrivateKey) == 0 {
			return newError(CreateKeyErrorCode, CreateKeyMethod,
				fmt.Errorf("%w: not base58", wallet.ErrInvalidPrivateKey))
		}
	}

	k, err := o.wallet.CreateKey(opts)
	if err != nil {
		return newError(CreateKeyErrorCode, CreateKeyMethod, err)
	}

	resp, err := keyResponse(k)
	if err != nil {
		return newError(CreateKeyErrorCode, CreateKeyMethod, err)
	}

	o.notify(&Event{Type: KeyCreatedEvent, WalletID: o.wallet.OpenWalletID(), PublicKey: resp.PublicKey})

	command.WriteNillableResponse(rw, resp, logger)

	logutil.Debug(logger, CommandName, CreateKeyMethod, "success",
		"publicKey", resp.PublicKey)

	return nil
}

// ListKeys lists the public keys of the open wallet.
func (o *Command) ListKeys(rw io.Writer, req io.Reader) command.Error {
	var request ListKeysRequest

	if cmdErr := decode(req, &request, ListKeysMethod); cmdErr != nil {
		return cmdErr
	}

	if request.KeyType == "" {
		request.KeyType = kms.ED25519.String()
	}

	kt, err := kms.ParseKeyType(request.KeyType)
	if err != nil {
		return newError(ListKeysErrorCode, ListKeysMethod, err)
	}

	keys, err := o.wallet.ListKeys(kt)
	if err != nil {
		return newError(ListKeysErrorCode, ListKeysMethod, err)
	}

	resp := &ListKeysResponse{Keys: make([]KeyResponse, 0, len(keys))}

	for _, k := range keys {
		kr, err := keyResponse(k)
		if err != nil {
			return newError(ListKeysErrorCode, ListKeysMethod, err)
		}

		resp.Keys = append(resp.Keys, *kr)
	}

	command.WriteNillableResponse(rw, resp, logger)

	logutil.Debug(logger, CommandName, ListKeysMethod, "success")

	return nil
}

// Sign signs data with a wallet key.
func (o *Command) Sign(rw io.Writer, req io.Reader) command.Error {
	var request SignRequest

	if cmdErr := decode(req, &request, SignMethod); cmdErr != nil {
		return cmdErr
	}

	if request.Key == "" {
		logutil.Debug(logger, CommandName, SignMethod, errEmptyKey)
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf(errEmptyKey))
	}

	sig, err := o.wallet.Sign(wallet.SignOptions{Key: request.Key, Data: request.Data})
	if err != nil {
		return newError(SignErrorCode, SignMethod, err)
	}

	command.WriteNillableResponse(rw, &SignResponse{Signature: sig}, logger)

	logutil.Debug(logger, CommandName, SignMethod, "success")

	return nil
}

// Verify verifies a signature.
func (o *Command) Verify(rw io.Writer, req io.Reader) command.Error {
	var request VerifyRequest

	if cmdErr := decode(req, &request, VerifyMethod); cmdErr != nil {
		return cmdErr
	}

	if request.Key == "" {
		logutil.Debug(logger, CommandName, VerifyMethod, errEmptyKey)
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf(errEmptyKey))
	}

	valid, err := o.wallet.Verify(wallet.VerifyOptions{
		Key:       request.Key,
		Data:      request.Data,
		Signature: request.Signature,
	})
	if err != nil {
		return newError(VerifyErrorCode, VerifyMethod, err)
	}

	command.WriteNillableResponse(rw, &VerifyResponse{Valid: valid}, logger)

	logutil.Debug(logger, CommandName, VerifyMethod, "success")

	return nil
}

// Pack packs a message for recipients.
func (o *Command) Pack(rw io.Writer, req io.Reader) command.Error {
	var request PackRequest

	if cmdErr := decode(req, &request, PackMethod); cmdErr != nil {
		return cmdErr
	}

	if isEmptyJSON(request.Payload) {
		logutil.Debug(logger, CommandName, PackMethod, errEmptyPayload)
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf(errEmptyPayload))
	}

	envelope, err := o.wallet.Pack(request.Payload, request.RecipientKeys, request.SenderKey)
	if err != nil {
		return newError(PackErrorCode, PackMethod, err)
	}

	command.WriteNillableResponse(rw, &PackResponse{Envelope: envelope}, logger)

	logutil.Debug(logger, CommandName, PackMethod, "success")

	return nil
}

// Unpack unpacks a message addressed to the open wallet.
func (o *Command) Unpack(rw io.Writer, req io.Reader) command.Error {
	var request UnpackRequest

	if cmdErr := decode(req, &request, UnpackMethod); cmdErr != nil {
		return cmdErr
	}

	if isEmptyJSON(request.Envelope) {
		logutil.Debug(logger, CommandName, UnpackMethod, errEmptyEnvelope)
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf(errEmptyEnvelope))
	}

	unpacked, err := o.wallet.Unpack(request.Envelope)
	if err != nil {
		return newError(UnpackErrorCode, UnpackMethod, err)
	}

	o.notify(&Event{
		Type:         MessageUnpackedEvent,
		WalletID:     o.wallet.OpenWalletID(),
		SenderKey:    unpacked.SenderKey,
		RecipientKey: unpacked.RecipientKey,
	})

	command.WriteNillableResponse(rw, &UnpackResponse{
		PlaintextMessage: unpacked.PlaintextMessage,
		SenderKey:        unpacked.SenderKey,
		RecipientKey:     unpacked.RecipientKey,
	}, logger)

	logutil.Debug(logger, CommandName, UnpackMethod, "success")

	return nil
}

// GenerateNonce generates a random decimal nonce.
func (o *Command) GenerateNonce(rw io.Writer, _ io.Reader) command.Error {
	nonce, err := o.wallet.GenerateNonce()
	if err != nil {
		return newError(GenerateErrorCode, GenerateNonceMethod, err)
	}

	command.WriteNillableResponse(rw, &GenerateNonceResponse{Nonce: nonce}, logger)

	return nil
}

// GenerateWalletKey generates a random key for the RAW key derivation method.
func (o *Command) GenerateWalletKey(rw io.Writer, _ io.Reader) command.Error {
	key, err := o.wallet.GenerateWalletKey()
	if err != nil {
		return newError(GenerateErrorCode, GenerateWalletKeyMethod, err)
	}

	command.WriteNillableResponse(rw, &GenerateWalletKeyResponse{Key: key}, logger)

	return nil
}

func (o *Command) notify(event *Event) {
	if o.notifier == nil {
		return
	}

	msg, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("failed to marshal wallet event: %s", err)

		return
	}

	if err = o.notifier.Notify(Topic, msg); err != nil {
		logger.Warnf("failed to notify wallet event %s: %s", event.Type, err)
	}
}

// isEmptyJSON reports whether a raw field was omitted or set to null.
func isEmptyJSON(m json.RawMessage) bool {
	trimmed := bytes.TrimSpace(m)

	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decode(req io.Reader, v interface{}, method string) command.Error {
	err := json.NewDecoder(req).Decode(v)
	if err != nil {
		logutil.Info(logger, CommandName, method, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("failed request decode : %w", err))
	}

	return nil
}

func decodeConfig(req io.Reader, method string) (wallet.Config, command.Error) {
	var request WalletRequest

	if cmdErr := decode(req, &request, method); cmdErr != nil {
		return wallet.Config{}, cmdErr
	}

	return wallet.Config{
		ID:                  request.ID,
		Key:                 request.Key,
		KeyDerivationMethod: walletkey.KeyDerivationMethod(request.KeyDerivationMethod),
	}, nil
}

// newError logs err and classifies it as a validation or an execute error.
func newError(code command.Code, method string, err error) command.Error {
	for _, verr := range validationErrors {
		if errors.Is(err, verr) {
			logutil.Debug(logger, CommandName, method, err.Error())
			return command.NewValidationError(InvalidRequestErrorCode, err)
		}
	}

	logutil.Error(logger, CommandName, method, err.Error())

	return command.NewExecuteError(code, err)
}

func keyResponse(k *kms.Key) (*KeyResponse, error) {
	fp, err := k.Fingerprint()
	if err != nil {
		return nil, err
	}

	return &KeyResponse{
		KeyType:     k.KeyType().String(),
		PublicKey:   k.PublicKeyBase58(),
		Fingerprint: fp,
	}, nil
}
