/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"github.com/hyperledger/aries-browser-wallet-go/pkg/controller/command/wallet"
)

// walletReq model
//
// This is used for the create, open and delete wallet requests.
//
// swagger:parameters createWalletReq openWalletReq deleteWalletReq
type walletReq struct { // nolint: unused,deadcode
	// in: body
	wallet.WalletRequest
}

// isOpenRes model
//
// swagger:response isOpenRes
type isOpenRes struct { // nolint: unused,deadcode
	// in: body
	wallet.IsOpenResponse
}

// createKeyReq model
//
// swagger:parameters createKeyReq
type createKeyReq struct { // nolint: unused,deadcode
	// in: body
	wallet.CreateKeyRequest
}

// keyRes model
//
// swagger:response keyRes
type keyRes struct { // nolint: unused,deadcode
	// in: body
	wallet.KeyResponse
}

// listKeysReq model
//
// swagger:parameters listKeysReq
type listKeysReq struct { // nolint: unused,deadcode
	// in: body
	wallet.ListKeysRequest
}

// listKeysRes model
//
// swagger:response listKeysRes
type listKeysRes struct { // nolint: unused,deadcode
	// in: body
	wallet.ListKeysResponse
}

// signReq model
//
// swagger:parameters signReq
type signReq struct { // nolint: unused,deadcode
	// in: body
	wallet.SignRequest
}

// signRes model
//
// swagger:response signRes
type signRes struct { // nolint: unused,deadcode
	// in: body
	wallet.SignResponse
}

// verifyReq model
//
// swagger:parameters verifyReq
type verifyReq struct { // nolint: unused,deadcode
	// in: body
	wallet.VerifyRequest
}

// verifyRes model
//
// swagger:response verifyRes
type verifyRes struct { // nolint: unused,deadcode
	// in: body
	wallet.VerifyResponse
}

// packReq model
//
// This is used for packing a message.
//
// swagger:parameters packReq
type packReq struct { // nolint: unused,deadcode
	// in: body
	wallet.PackRequest
}

// packRes model
//
// swagger:response packRes
type packRes struct { // nolint: unused,deadcode
	// in: body
	wallet.PackResponse
}

// unpackReq model
//
// swagger:parameters unpackReq
type unpackReq struct { // nolint: unused,deadcode
	// in: body
	wallet.UnpackRequest
}

// unpackRes model
//
// swagger:response unpackRes
type unpackRes struct { // nolint: unused,deadcode
	// in: body
	wallet.UnpackResponse
}

// generateNonceRes model
//
// swagger:response generateNonceRes
type generateNonceRes struct { // nolint: unused,deadcode
	// in: body
	wallet.GenerateNonceResponse
}

// generateWalletKeyRes model
//
// swagger:response generateWalletKeyRes
type generateWalletKeyRes struct { // nolint: unused,deadcode
	// in: body
	wallet.GenerateWalletKeyResponse
}
