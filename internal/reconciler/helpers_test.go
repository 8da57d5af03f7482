// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

package reconciler_test

import "github.com/go-logr/logr"

func logrDiscard() logr.Logger {
	return logr.Discard()
}
