/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go-ext/component/storage/couchdb"
	"github.com/hyperledger/aries-framework-go-ext/component/storage/mongodb"
	"github.com/hyperledger/aries-framework-go-ext/component/storage/mysql"
	"github.com/hyperledger/aries-framework-go-ext/component/storage/postgresql"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/component/storage/leveldb"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	spi "github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/controller"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/secretlock/walletkey"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/storage"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/wallet"
)

const (
	// api host flag.
	hostFlagName      = "api-host"
	hostEnvKey        = "WALLET_API_HOST"
	hostFlagShorthand = "a"
	hostFlagUsage     = "Host Name:Port." +
		" Alternatively, this can be set with the following environment variable: " + hostEnvKey

	// api token flag.
	tokenFlagName      = "api-token"
	tokenEnvKey        = "WALLET_API_TOKEN" // nolint:gosec
	tokenFlagShorthand = "t"
	tokenFlagUsage     = "Check for bearer token in the authorization header (optional)." +
		" Alternatively, this can be set with the following environment variable: " + tokenEnvKey

	databaseTypeFlagName      = "database-type"
	databaseTypeEnvKey        = "WALLET_DATABASE_TYPE"
	databaseTypeFlagShorthand = "q"
	databaseTypeFlagUsage     = "The type of database holding wallets. " +
		"Supported options: mem, leveldb, couchdb, mysql, mongodb, postgresql. " +
		" Alternatively, this can be set with the following environment variable: " + databaseTypeEnvKey

	databaseURLFlagName      = "database-url"
	databaseURLEnvKey        = "WALLET_DATABASE_URL"
	databaseURLFlagShorthand = "v"
	databaseURLFlagUsage     = "The location of the database. For leveldb this is a directory path," +
		" for the other persistent types a connection URL." +
		" Not needed if using memstore." +
		" Alternatively, this can be set with the following environment variable: " + databaseURLEnvKey

	databasePrefixFlagName      = "database-prefix"
	databasePrefixEnvKey        = "WALLET_DATABASE_PREFIX"
	databasePrefixFlagShorthand = "u"
	databasePrefixFlagUsage     = "An optional prefix to be used when creating and retrieving underlying stores. " +
		" Alternatively, this can be set with the following environment variable: " + databasePrefixEnvKey

	databaseTimeoutFlagName  = "database-timeout"
	databaseTimeoutFlagUsage = "Total time in seconds to wait until the db is available before giving up." +
		" Default: " + databaseTimeoutDefault + " seconds." +
		" Alternatively, this can be set with the following environment variable: " + databaseTimeoutEnvKey
	databaseTimeoutEnvKey  = "WALLET_DATABASE_TIMEOUT"
	databaseTimeoutDefault = "30"

	// webhook url flag.
	webhookFlagName      = "webhook-url"
	webhookEnvKey        = "WALLET_WEBHOOK_URL"
	webhookFlagShorthand = "w"
	webhookFlagUsage     = "URL to send wallet notifications to." +
		" This flag can be repeated, allowing for multiple listeners." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " + webhookEnvKey

	// websocket origin patterns flag.
	wsOriginPatternsFlagName  = "ws-origin-patterns"
	wsOriginPatternsEnvKey    = "WALLET_WS_ORIGIN_PATTERNS"
	wsOriginPatternsFlagUsage = "Host patterns of foreign origins allowed to open the websocket notification channel," +
		" e.g. *.example.com or localhost:*. Same origin clients are always allowed." +
		" This flag can be repeated." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " +
		wsOriginPatternsEnvKey

	// log level.
	logLevelFlagName  = "log-level"
	logLevelEnvKey    = "WALLET_LOG_LEVEL"
	logLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + logLevelEnvKey

	// argon2id cost.
	kdfMemoryFlagName  = "kdf-memory"
	kdfMemoryEnvKey    = "WALLET_KDF_MEMORY"
	kdfMemoryFlagUsage = "Argon2id memory in KiB used to derive master keys of new wallets." +
		" Defaults to 65536." +
		" Alternatively, this can be set with the following environment variable: " + kdfMemoryEnvKey

	tlsCertFileFlagName      = "tls-cert-file"
	tlsCertFileEnvKey        = "TLS_CERT_FILE"
	tlsCertFileFlagShorthand = "c"
	tlsCertFileFlagUsage     = "tls certificate file." +
		" Alternatively, this can be set with the following environment variable: " + tlsCertFileEnvKey

	tlsKeyFileFlagName      = "tls-key-file"
	tlsKeyFileEnvKey        = "TLS_KEY_FILE"
	tlsKeyFileFlagShorthand = "k"
	tlsKeyFileFlagUsage     = "tls key file." +
		" Alternatively, this can be set with the following environment variable: " + tlsKeyFileEnvKey

	databaseTypeMemOption        = "mem"
	databaseTypeLevelDBOption    = "leveldb"
	databaseTypeCouchDBOption    = "couchdb"
	databaseTypeMYSQLDBOption    = "mysql"
	databaseTypeMongoDBOption    = "mongodb"
	databaseTypePostgreSQLOption = "postgresql"
)

var (
	errMissingHost = errors.New("host not provided")
	logger         = log.New("aries-framework/wallet-rest")
)

type walletParameters struct {
	server                  server
	host, token             string
	tlsCertFile, tlsKeyFile string
	webhookURLs             []string
	wsOriginPatterns        []string
	kdfParams               walletkey.KDFParams
	dbParam                 *dbParam
}

type dbParam struct {
	dbType  string
	url     string
	prefix  string
	timeout uint64
}

// nolint:gochecknoglobals
var supportedStorageProviders = map[string]func(url string) (spi.Provider, error){
	databaseTypeMemOption: func(_ string) (spi.Provider, error) { // nolint:unparam
		return mem.NewProvider(), nil
	},
	databaseTypeLevelDBOption: func(path string) (spi.Provider, error) {
		if path == "" {
			return nil, errors.New("leveldb requires a database url")
		}

		return leveldb.NewProvider(path), nil
	},
	databaseTypeCouchDBOption: func(url string) (spi.Provider, error) {
		return couchdb.NewProvider(url)
	},
	databaseTypeMYSQLDBOption: func(url string) (spi.Provider, error) {
		return mysql.NewProvider(url)
	},
	databaseTypeMongoDBOption: func(url string) (spi.Provider, error) {
		return mongodb.NewProvider(url)
	},
	databaseTypePostgreSQLOption: func(url string) (spi.Provider, error) {
		return postgresql.NewProvider(url)
	},
}

type server interface {
	ListenAndServe(host string, router http.Handler, certFile, keyFile string) error
}

// HTTPServer represents an actual server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler, certFile, keyFile string) error {
	if certFile != "" && keyFile != "" {
		return http.ListenAndServeTLS(host, certFile, keyFile, router)
	}

	return http.ListenAndServe(host, router) // nolint:gosec
}

// Cmd returns the Cobra start command.
func Cmd(server server) (*cobra.Command, error) {
	startCmd := createStartCMD(server)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCMD(server server) *cobra.Command { //nolint: funlen
	return &cobra.Command{
		Use:   "start",
		Short: "Start a wallet",
		Long:  `Start the browser wallet controller API`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// log level
			logLevel, err := getUserSetVar(cmd, logLevelFlagName, logLevelEnvKey, true)
			if err != nil {
				return err
			}

			err = setLogLevel(logLevel)
			if err != nil {
				return err
			}

			host, err := getUserSetVar(cmd, hostFlagName, hostEnvKey, false)
			if err != nil {
				return err
			}

			token, err := getUserSetVar(cmd, tokenFlagName, tokenEnvKey, true)
			if err != nil {
				return err
			}

			dbParam, err := getDBParam(cmd)
			if err != nil {
				return err
			}

			webhookURLs, err := getUserSetVars(cmd, webhookFlagName, webhookEnvKey, true)
			if err != nil {
				return err
			}

			wsOriginPatterns, err := getUserSetVars(cmd, wsOriginPatternsFlagName, wsOriginPatternsEnvKey, true)
			if err != nil {
				return err
			}

			kdfParams, err := getKDFParams(cmd)
			if err != nil {
				return err
			}

			tlsCertFile, err := getUserSetVar(cmd, tlsCertFileFlagName, tlsCertFileEnvKey, true)
			if err != nil {
				return err
			}

			tlsKeyFile, err := getUserSetVar(cmd, tlsKeyFileFlagName, tlsKeyFileEnvKey, true)
			if err != nil {
				return err
			}

			parameters := &walletParameters{
				server:           server,
				host:             host,
				token:            token,
				dbParam:          dbParam,
				webhookURLs:      webhookURLs,
				wsOriginPatterns: wsOriginPatterns,
				kdfParams:        kdfParams,
				tlsCertFile:      tlsCertFile,
				tlsKeyFile:       tlsKeyFile,
			}

			return startWallet(parameters)
		},
	}
}

func getDBParam(cmd *cobra.Command) (*dbParam, error) {
	dbParam := &dbParam{}

	var err error

	dbParam.dbType, err = getUserSetVar(cmd, databaseTypeFlagName, databaseTypeEnvKey, false)
	if err != nil {
		return nil, err
	}

	dbParam.url, err = getUserSetVar(cmd, databaseURLFlagName, databaseURLEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbParam.prefix, err = getUserSetVar(cmd, databasePrefixFlagName, databasePrefixEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbTimeout, err := getUserSetVar(cmd, databaseTimeoutFlagName, databaseTimeoutEnvKey, true)
	if err != nil {
		return nil, err
	}

	if dbTimeout == "" || dbTimeout == "0" {
		dbTimeout = databaseTimeoutDefault
	}

	t, err := strconv.Atoi(dbTimeout)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse db timeout %s", dbTimeout)
	}

	dbParam.timeout = uint64(t)

	return dbParam, nil
}

func getKDFParams(cmd *cobra.Command) (walletkey.KDFParams, error) {
	params := walletkey.DefaultKDFParams

	v, err := getUserSetVar(cmd, kdfMemoryFlagName, kdfMemoryEnvKey, true)
	if err != nil || v == "" {
		return params, err
	}

	memory, err := strconv.ParseUint(v, 10, 32)
	if err != nil || memory == 0 {
		return params, errors.Errorf("invalid kdf memory %q", v)
	}

	params.MemoryKB = uint32(memory)

	return params, nil
}

func createFlags(startCmd *cobra.Command) {
	// host flag
	startCmd.Flags().StringP(hostFlagName, hostFlagShorthand, "", hostFlagUsage)

	// token flag
	startCmd.Flags().StringP(tokenFlagName, tokenFlagShorthand, "", tokenFlagUsage)

	// db type
	startCmd.Flags().StringP(databaseTypeFlagName, databaseTypeFlagShorthand, "", databaseTypeFlagUsage)

	// db url
	startCmd.Flags().StringP(databaseURLFlagName, databaseURLFlagShorthand, "", databaseURLFlagUsage)

	// db prefix
	startCmd.Flags().StringP(databasePrefixFlagName, databasePrefixFlagShorthand, "", databasePrefixFlagUsage)

	// db timeout
	startCmd.Flags().StringP(databaseTimeoutFlagName, "", "", databaseTimeoutFlagUsage)

	// webhook url flag
	startCmd.Flags().StringSliceP(webhookFlagName, webhookFlagShorthand, []string{}, webhookFlagUsage)

	// websocket origin patterns
	startCmd.Flags().StringSliceP(wsOriginPatternsFlagName, "", []string{}, wsOriginPatternsFlagUsage)

	// log level
	startCmd.Flags().StringP(logLevelFlagName, "", "", logLevelFlagUsage)

	// kdf memory
	startCmd.Flags().StringP(kdfMemoryFlagName, "", "", kdfMemoryFlagUsage)

	// tls cert file
	startCmd.Flags().StringP(tlsCertFileFlagName, tlsCertFileFlagShorthand, "", tlsCertFileFlagUsage)

	// tls key file
	startCmd.Flags().StringP(tlsKeyFileFlagName, tlsKeyFileFlagShorthand, "", tlsKeyFileFlagUsage)
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func getUserSetVars(cmd *cobra.Command, flagName, envKey string, isOptional bool) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	var values []string

	if isSet {
		values = strings.Split(value, ",")
	}

	if isOptional || isSet {
		return values, nil
	}

	return nil, fmt.Errorf(" %s not set. "+
		"It must be set via either command line or environment variable", flagName)
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Infof("logger level set to %s", logLevel)
	}

	return nil
}

func validateAuthorizationBearerToken(w http.ResponseWriter, r *http.Request, token string) bool {
	actHdr := r.Header.Get("Authorization")
	expHdr := "Bearer " + token

	if subtle.ConstantTimeCompare([]byte(actHdr), []byte(expHdr)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Unauthorised.\n")) // nolint:gosec,errcheck

		return false
	}

	return true
}

func authorizationMiddleware(token string) mux.MiddlewareFunc {
	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validateAuthorizationBearerToken(w, r, token) {
				next.ServeHTTP(w, r)
			}
		})
	}

	return middleware
}

func startWallet(parameters *walletParameters) error {
	if parameters.host == "" {
		return errMissingHost
	}

	router, err := createRouter(parameters)
	if err != nil {
		return err
	}

	logger.Infof("Starting wallet rest on host [%s]", parameters.host)

	// start server on given port and serve using given handlers
	handler := cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		},
	).Handler(router)

	err = parameters.server.ListenAndServe(parameters.host, handler, parameters.tlsCertFile, parameters.tlsKeyFile)
	if err != nil {
		return fmt.Errorf("failed to start wallet rest on port [%s], cause:  %w", parameters.host, err)
	}

	return nil
}

func createRouter(parameters *walletParameters) (*mux.Router, error) {
	storePro, err := createStoreProvider(parameters)
	if err != nil {
		return nil, err
	}

	w, err := wallet.New(storePro, wallet.WithKDFParams(parameters.kdfParams))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create wallet")
	}

	// get all HTTP REST API handlers available for controller API
	handlers, err := controller.GetRESTHandlers(w, controller.WithWebhookURLs(parameters.webhookURLs...),
		controller.WithWSOriginPatterns(parameters.wsOriginPatterns...))
	if err != nil {
		return nil, fmt.Errorf("failed to start wallet rest on port [%s], failed to get rest service api :  %w",
			parameters.host, err)
	}

	router := mux.NewRouter()
	metrics := newRequestMetrics()

	router.Use(metrics.middleware)

	if parameters.token != "" {
		router.Use(authorizationMiddleware(parameters.token))
	}

	for _, handler := range handlers {
		router.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())
	}

	router.Handle(metricsPath, metrics.handler()).Methods(http.MethodGet)

	return router, nil
}

func createStoreProvider(parameters *walletParameters) (spi.Provider, error) {
	provider, supported := supportedStorageProviders[parameters.dbParam.dbType]
	if !supported {
		return nil, fmt.Errorf("database type not set to a valid type." +
			" run start --help to see the available options")
	}

	var store spi.Provider

	err := backoff.RetryNotify(
		func() error {
			var openErr error
			store, openErr = provider(parameters.dbParam.url)

			return openErr
		},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), parameters.dbParam.timeout),
		func(retryErr error, t time.Duration) {
			logger.Warnf(
				"failed to connect to storage, will sleep for %s before trying again : %s\n",
				t, retryErr)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage at %s : %w", parameters.dbParam.url, err)
	}

	if parameters.dbParam.prefix != "" {
		return storage.NewNamespacedProvider(store, parameters.dbParam.prefix)
	}

	return store, nil
}
