/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gitrepo implements repository.Gateway over a private go-git clone.
//
// Reads resolve branch names against local and origin refs and serve content
// straight from the object store, so they never disturb the worktree. Writes
// check out the working branch, commit a single file, and push the branch to
// origin. Pull requests are delegated to a PullRequestOpener because plain
// git remotes have no such concept.
package gitrepo
