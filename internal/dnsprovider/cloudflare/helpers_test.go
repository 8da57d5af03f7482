// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

package cloudflare_test

import "context"

func newCtx() context.Context {
	return context.Background()
}
