/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a file, directory or ref does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a file that is already present.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnauthorized is returned when the host rejects the credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable is returned when the host cannot be reached or answers
	// with a server error.
	ErrUnavailable = errors.New("repository host unavailable")
)

// MaxSearchResults caps the number of paths returned by SearchText.
const MaxSearchResults = 10

// EntryKind distinguishes files from directories in a listing.
type EntryKind string

const (
	KindFile      EntryKind = "file"
	KindDirectory EntryKind = "directory"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Kind EntryKind `json:"kind"`
}

// SearchResult holds at most MaxSearchResults matching paths and the total
// number of matches reported by the host.
type SearchResult struct {
	Paths []string `json:"paths"`
	Total int      `json:"total"`
}

// WriteMode selects create or update semantics for WriteFile.
type WriteMode string

const (
	ModeCreate WriteMode = "create"
	ModeUpdate WriteMode = "update"
)

// WriteRequest describes a single-file commit to a working branch.
type WriteRequest struct {
	// Branch is the working branch receiving the commit.
	Branch string
	// Base is the default branch, consulted for the prior revision of an
	// update when the path has not yet been touched on Branch.
	Base    string
	Path    string
	Content string
	Message string
	Mode    WriteMode
}

// WriteResult reports the commit produced by WriteFile.
type WriteResult struct {
	Revision string `json:"revision"`
}

// PullRequestRequest describes a pull request to open.
type PullRequestRequest struct {
	Title string
	Body  string
	Head  string
	Base  string
}

// PullRequest identifies an opened pull request.
type PullRequest struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// Gateway is the set of source-control operations available to an agent
// session. Implementations are bound to a single repository.
//
// Gateways never record what was read; that bookkeeping belongs to the
// caller.
type Gateway interface {
	// ReadFile returns the content of path at ref, or ErrNotFound. Here and
	// in ListDirectory an empty ref means the default branch.
	ReadFile(ctx context.Context, ref, path string) (string, error)

	// ListDirectory lists path at ref. It returns ErrNotFound when the path
	// is absent or is a file.
	ListDirectory(ctx context.Context, ref, path string) ([]Entry, error)

	// SearchText finds files containing query on the default branch.
	SearchText(ctx context.Context, query string) (*SearchResult, error)

	// DefaultBranchHead returns the default branch and its latest revision.
	DefaultBranchHead(ctx context.Context) (branch, revision string, err error)

	// CreateBranch creates name at revision. An existing branch is not an
	// error: created reports whether this call made it.
	CreateBranch(ctx context.Context, name, revision string) (created bool, err error)

	// WriteFile commits content to a working branch.
	//
	// ModeUpdate uses the prior revision of the path on the working branch
	// if present, else on the base branch, else fails with ErrNotFound.
	// ModeCreate fails with ErrAlreadyExists if the path exists on the
	// working branch.
	WriteFile(ctx context.Context, req WriteRequest) (*WriteResult, error)

	// Diff compares head against base. An empty diff is not an error.
	Diff(ctx context.Context, base, head string) (*Diff, error)

	// OpenPullRequest opens a pull request from head into base.
	OpenPullRequest(ctx context.Context, req PullRequestRequest) (*PullRequest, error)
}

// ParseSlug splits "owner/name" into its parts.
func ParseSlug(slug string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(slug), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q: want owner/name", slug)
	}
	return owner, name, nil
}

// CleanPath normalizes a repository-relative path and rejects paths that
// escape the repository root.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return "", nil
	}
	var parts []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("path %q escapes the repository root", p)
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, "/"), nil
}
