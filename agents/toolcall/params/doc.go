/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package params defines the error and denial payloads returned to the
// model, shared by every provider adapter.
package params
