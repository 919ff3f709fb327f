/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logutil formats command log lines as "command=[..] action=[..] key=[value] ... msg=[..]".
package logutil

import (
	"strings"

	"github.com/hyperledger/aries-framework-go/component/log"
)

// Error logs a failed command action. kv holds alternating keys and values.
func Error(logger *log.Log, command, action, errMsg string, kv ...string) {
	logger.Errorf("%s errMsg=[%s]", prefix(command, action, kv), errMsg)
}

// Debug logs a command action.
func Debug(logger *log.Log, command, action, msg string, kv ...string) {
	logger.Debugf("%s msg=[%s]", prefix(command, action, kv), msg)
}

// Info logs a command action.
func Info(logger *log.Log, command, action, msg string, kv ...string) {
	logger.Infof("%s msg=[%s]", prefix(command, action, kv), msg)
}

func prefix(command, action string, kv []string) string {
	var b strings.Builder

	b.WriteString("command=[" + command + "] action=[" + action + "]")

	for i := 0; i < len(kv); i += 2 {
		v := ""
		if i+1 < len(kv) {
			v = kv[i+1]
		}

		b.WriteString(" " + kv[i] + "=[" + v + "]")
	}

	return b.String()
}
