/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"errors"

	"chainguard.dev/ticketagent/agents/executor/retry"
	"github.com/anthropics/anthropic-sdk-go"
)

// IsRetryable reports whether err is a transient Claude API error: rate
// limiting, overload, or a gateway failure.
func IsRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return retry.Transient(apiErr.StatusCode)
	}
	return false
}
