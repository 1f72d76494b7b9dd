/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package reviewgate runs an automated review of a working branch's diff
// before a pull request may be opened.
//
// The reviewer is a hosted model held to a JSON-only contract. Responses
// that do not decode strictly into the verdict schema, and transport
// errors, degrade to an approved verdict with FailedOpen set. A done
// context is returned as an error and never recorded as a verdict.
package reviewgate
