/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package repotest provides an in-memory repository.Gateway for tests.
package repotest

import (
	"context"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"

	"chainguard.dev/ticketagent/repository"
)

type branch struct {
	files    map[string]string
	revision string
}

// Fake is an in-memory repository.Gateway. It is safe for concurrent use.
type Fake struct {
	mu            sync.Mutex
	defaultBranch string
	branches      map[string]*branch
	pulls         []repository.PullRequestRequest
	created       []string
	writes        int
	failures      map[string][]error
	rev           int
}

var _ repository.Gateway = (*Fake)(nil)

// New returns a fake whose default branch holds files.
func New(defaultBranch string, files map[string]string) *Fake {
	f := &Fake{
		defaultBranch: defaultBranch,
		branches:      map[string]*branch{},
		failures:      map[string][]error{},
	}
	f.branches[defaultBranch] = &branch{files: maps.Clone(files), revision: f.nextRevision()}
	if f.branches[defaultBranch].files == nil {
		f.branches[defaultBranch].files = map[string]string{}
	}
	return f
}

// FailNext queues errors returned, in order, by the next calls to op
// (a Gateway method name such as "WriteFile").
func (f *Fake) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

// File returns the content of path on a branch.
func (f *Fake) File(branchName, p string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.branches[branchName]
	if !ok {
		return "", false
	}
	c, ok := b.files[p]
	return c, ok
}

// CreatedBranches returns the branches created through CreateBranch, in order.
func (f *Fake) CreatedBranches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.created)
}

// PullRequests returns every pull request opened, in order.
func (f *Fake) PullRequests() []repository.PullRequestRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.pulls)
}

// Writes returns the number of successful WriteFile calls.
func (f *Fake) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *Fake) nextRevision() string {
	f.rev++
	return fmt.Sprintf("%040x", f.rev)
}

// fail pops a queued failure for op. Callers hold f.mu.
func (f *Fake) fail(op string) error {
	q := f.failures[op]
	if len(q) == 0 {
		return nil
	}
	f.failures[op] = q[1:]
	return q[0]
}

// ref resolves a branch name; "" is the default branch.
func (f *Fake) ref(name string) (*branch, error) {
	if name == "" {
		name = f.defaultBranch
	}
	if b, ok := f.branches[name]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("ref %q: %w", name, repository.ErrNotFound)
}

func (f *Fake) ReadFile(_ context.Context, ref, p string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ReadFile"); err != nil {
		return "", err
	}
	b, err := f.ref(ref)
	if err != nil {
		return "", err
	}
	p, err = repository.CleanPath(p)
	if err != nil {
		return "", err
	}
	c, ok := b.files[p]
	if !ok {
		return "", fmt.Errorf("%s: %w", p, repository.ErrNotFound)
	}
	return c, nil
}

func (f *Fake) ListDirectory(_ context.Context, ref, p string) ([]repository.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListDirectory"); err != nil {
		return nil, err
	}
	b, err := f.ref(ref)
	if err != nil {
		return nil, err
	}
	dir, err := repository.CleanPath(p)
	if err != nil {
		return nil, err
	}
	if _, isFile := b.files[dir]; isFile {
		return nil, fmt.Errorf("%s is a file: %w", dir, repository.ErrNotFound)
	}

	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	seen := map[string]repository.EntryKind{}
	for fp := range b.files {
		rest, ok := strings.CutPrefix(fp, prefix)
		if !ok {
			continue
		}
		name, _, nested := strings.Cut(rest, "/")
		if nested {
			seen[name] = repository.KindDirectory
		} else if _, ok := seen[name]; !ok {
			seen[name] = repository.KindFile
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, repository.ErrNotFound)
	}

	entries := make([]repository.Entry, 0, len(seen))
	for _, name := range slices.Sorted(maps.Keys(seen)) {
		entries = append(entries, repository.Entry{Name: name, Path: path.Join(dir, name), Kind: seen[name]})
	}
	return entries, nil
}

func (f *Fake) SearchText(_ context.Context, query string) (*repository.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SearchText"); err != nil {
		return nil, err
	}
	res := &repository.SearchResult{Paths: []string{}}
	for _, p := range slices.Sorted(maps.Keys(f.branches[f.defaultBranch].files)) {
		if !strings.Contains(f.branches[f.defaultBranch].files[p], query) {
			continue
		}
		res.Total++
		if len(res.Paths) < repository.MaxSearchResults {
			res.Paths = append(res.Paths, p)
		}
	}
	return res, nil
}

func (f *Fake) DefaultBranchHead(context.Context) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DefaultBranchHead"); err != nil {
		return "", "", err
	}
	return f.defaultBranch, f.branches[f.defaultBranch].revision, nil
}

func (f *Fake) CreateBranch(_ context.Context, name, revision string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateBranch"); err != nil {
		return false, err
	}
	if _, ok := f.branches[name]; ok {
		return false, nil
	}
	var src *branch
	for _, b := range f.branches {
		if b.revision == revision {
			src = b
			break
		}
	}
	if src == nil {
		return false, fmt.Errorf("revision %s: %w", revision, repository.ErrNotFound)
	}
	f.branches[name] = &branch{files: maps.Clone(src.files), revision: src.revision}
	f.created = append(f.created, name)
	return true, nil
}

func (f *Fake) WriteFile(_ context.Context, req repository.WriteRequest) (*repository.WriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("WriteFile"); err != nil {
		return nil, err
	}
	b, err := f.ref(req.Branch)
	if err != nil {
		return nil, err
	}
	p, err := repository.CleanPath(req.Path)
	if err != nil {
		return nil, err
	}

	_, onBranch := b.files[p]
	switch req.Mode {
	case repository.ModeCreate:
		if onBranch {
			return nil, fmt.Errorf("%s: %w", p, repository.ErrAlreadyExists)
		}
	case repository.ModeUpdate:
		if !onBranch {
			base, ok := f.branches[req.Base]
			if !ok {
				return nil, fmt.Errorf("%s: %w", p, repository.ErrNotFound)
			}
			if _, ok := base.files[p]; !ok {
				return nil, fmt.Errorf("%s: %w", p, repository.ErrNotFound)
			}
		}
	default:
		return nil, fmt.Errorf("unknown write mode %q", req.Mode)
	}

	b.files[p] = req.Content
	b.revision = f.nextRevision()
	f.writes++
	return &repository.WriteResult{Revision: b.revision}, nil
}

func (f *Fake) Diff(_ context.Context, base, head string) (*repository.Diff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Diff"); err != nil {
		return nil, err
	}
	bb, err := f.ref(base)
	if err != nil {
		return nil, err
	}
	hb, err := f.ref(head)
	if err != nil {
		return nil, err
	}

	var patch strings.Builder
	for _, p := range slices.Sorted(maps.Keys(hb.files)) {
		before, existed := bb.files[p]
		after := hb.files[p]
		if existed && before == after {
			continue
		}
		patch.WriteString(repository.WholeFilePatch(p, before, after))
	}
	return repository.ParseUnified(base, head, patch.String())
}

func (f *Fake) OpenPullRequest(_ context.Context, req repository.PullRequestRequest) (*repository.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("OpenPullRequest"); err != nil {
		return nil, err
	}
	if _, err := f.ref(req.Head); err != nil {
		return nil, err
	}
	f.pulls = append(f.pulls, req)
	n := len(f.pulls)
	return &repository.PullRequest{
		Number: n,
		URL:    fmt.Sprintf("https://git.example.com/pulls/%d", n),
	}, nil
}
