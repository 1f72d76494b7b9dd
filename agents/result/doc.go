/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package result pulls structured JSON out of free-form model responses.
//
// Models often wrap JSON in markdown fences or surround it with prose.
// ExtractJSON finds the payload and Strict decodes it with unknown fields
// and trailing data rejected, so any deviation from the schema reads as
// malformed.
package result
