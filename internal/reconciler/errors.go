// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

package reconciler

import (
	"errors"
	"fmt"
	"time"
)

// ErrAborted marks a reconcile that was pre-empted rather than completed.
// The Per-Object Serialiser produces it only for snapshots still buffered
// behind a delete when that identity's worker terminates; those snapshots
// are never reconciled.
var ErrAborted = errors.New("reconcile aborted")

// retryAfterError is the RETRY(d) outcome of §4.6: an expected-pending
// condition that should be retried after a specific duration rather than
// the default 3 seconds. The Reconciler produces it only when a selector
// matches no load balancer IP yet; an unresolvable zone is returned as an
// ordinary error instead.
type retryAfterError struct {
	after time.Duration
}

func (e *retryAfterError) Error() string {
	return fmt.Sprintf("retry after %s", e.after)
}

// RetryAfter constructs the RETRY(d) outcome.
func RetryAfter(d time.Duration) error {
	return &retryAfterError{after: d}
}

// AsRetryAfter reports whether err (or something it wraps) is a RetryAfter
// outcome, and if so, the requested delay.
func AsRetryAfter(err error) (time.Duration, bool) {
	var rae *retryAfterError
	if errors.As(err, &rae) {
		return rae.after, true
	}
	return 0, false
}
