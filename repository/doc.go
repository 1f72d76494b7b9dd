/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package repository defines the Gateway an agent session uses to read and
// change a source repository, along with its error taxonomy and the diff
// summary handed to the reviewer.
//
// Implementations:
//
//   - githubrepo talks to the GitHub REST API.
//   - gitrepo works on a local go-git clone and pushes to its remote.
//   - repotest is an in-memory fake for tests.
package repository
