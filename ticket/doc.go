/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package ticket turns ticket webhooks into agent tasks and defines how
// results are reported back.
//
// A Task names its target repository either with a "repo: owner/name" line
// or a github.com URL in the description; otherwise a configured default is
// used. The working branch is the lower-cased key with an "-agent" suffix,
// so a second run for the same ticket reuses the same branch.
package ticket
