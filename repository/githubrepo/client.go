/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package githubrepo implements repository.Gateway on the GitHub REST API.
package githubrepo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"chainguard.dev/ticketagent/repository"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// Gateway is a repository.Gateway bound to one GitHub repository.
type Gateway struct {
	client *github.Client
	owner  string
	repo   string
}

var _ repository.Gateway = (*Gateway)(nil)

// New returns a Gateway for the "owner/name" repository slug.
func New(client *github.Client, slug string) (*Gateway, error) {
	owner, repo, err := repository.ParseSlug(slug)
	if err != nil {
		return nil, err
	}
	return &Gateway{client: client, owner: owner, repo: repo}, nil
}

// ReadFile implements repository.Gateway.
func (g *Gateway) ReadFile(ctx context.Context, ref, path string) (string, error) {
	path, err := repository.CleanPath(path)
	if err != nil {
		return "", err
	}
	file, dir, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", classify(err, "reading %s@%s", path, ref)
	}
	if file == nil || dir != nil {
		return "", fmt.Errorf("%s is a directory: %w", path, repository.ErrNotFound)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}
	return content, nil
}

// ListDirectory implements repository.Gateway.
func (g *Gateway) ListDirectory(ctx context.Context, ref, path string) ([]repository.Entry, error) {
	path, err := repository.CleanPath(path)
	if err != nil {
		return nil, err
	}
	file, dir, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, classify(err, "listing %s@%s", path, ref)
	}
	if file != nil {
		return nil, fmt.Errorf("%s is a file: %w", path, repository.ErrNotFound)
	}

	entries := make([]repository.Entry, 0, len(dir))
	for _, c := range dir {
		kind := repository.KindFile
		if c.GetType() == "dir" {
			kind = repository.KindDirectory
		}
		entries = append(entries, repository.Entry{Name: c.GetName(), Path: c.GetPath(), Kind: kind})
	}
	return entries, nil
}

// SearchText implements repository.Gateway using code search, which only
// indexes the default branch.
func (g *Gateway) SearchText(ctx context.Context, query string) (*repository.SearchResult, error) {
	q := fmt.Sprintf("%s repo:%s/%s", query, g.owner, g.repo)
	res, _, err := g.client.Search.Code(ctx, q, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: repository.MaxSearchResults},
	})
	if err != nil {
		return nil, classify(err, "searching for %q", query)
	}

	out := &repository.SearchResult{Paths: []string{}, Total: res.GetTotal()}
	for _, r := range res.CodeResults {
		if len(out.Paths) == repository.MaxSearchResults {
			break
		}
		out.Paths = append(out.Paths, r.GetPath())
	}
	return out, nil
}

// DefaultBranchHead implements repository.Gateway.
func (g *Gateway) DefaultBranchHead(ctx context.Context) (string, string, error) {
	r, _, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
	if err != nil {
		return "", "", classify(err, "getting repository %s/%s", g.owner, g.repo)
	}
	branch := r.GetDefaultBranch()
	ref, _, err := g.client.Git.GetRef(ctx, g.owner, g.repo, "heads/"+branch)
	if err != nil {
		return "", "", classify(err, "resolving %s", branch)
	}
	return branch, ref.GetObject().GetSHA(), nil
}

// CreateBranch implements repository.Gateway.
func (g *Gateway) CreateBranch(ctx context.Context, name, revision string) (bool, error) {
	_, _, err := g.client.Git.CreateRef(ctx, g.owner, g.repo, github.CreateRef{
		Ref: "refs/heads/" + name,
		SHA: revision,
	})
	if err == nil {
		return true, nil
	}
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil &&
		er.Response.StatusCode == http.StatusUnprocessableEntity &&
		strings.Contains(strings.ToLower(er.Message), "already exists") {
		clog.FromContext(ctx).Infof("Branch %s already exists", name)
		return false, nil
	}
	return false, classify(err, "creating branch %s", name)
}

// WriteFile implements repository.Gateway.
func (g *Gateway) WriteFile(ctx context.Context, req repository.WriteRequest) (*repository.WriteResult, error) {
	path, err := repository.CleanPath(req.Path)
	if err != nil {
		return nil, err
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(req.Message),
		Content: []byte(req.Content),
		Branch:  github.Ptr(req.Branch),
	}

	var res *github.RepositoryContentResponse
	switch req.Mode {
	case repository.ModeCreate:
		res, _, err = g.client.Repositories.CreateFile(ctx, g.owner, g.repo, path, opts)
		if err != nil && status(err) == http.StatusUnprocessableEntity {
			return nil, fmt.Errorf("%s: %w", path, repository.ErrAlreadyExists)
		}
	case repository.ModeUpdate:
		sha, serr := g.blobSHA(ctx, path, req.Branch, req.Base)
		if serr != nil {
			return nil, serr
		}
		opts.SHA = github.Ptr(sha)
		res, _, err = g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, path, opts)
	default:
		return nil, fmt.Errorf("unknown write mode %q", req.Mode)
	}
	if err != nil {
		return nil, classify(err, "writing %s on %s", path, req.Branch)
	}
	return &repository.WriteResult{Revision: res.Commit.GetSHA()}, nil
}

// blobSHA finds the prior revision of path, preferring the working branch.
func (g *Gateway) blobSHA(ctx context.Context, path string, refs ...string) (string, error) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		file, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path,
			&github.RepositoryContentGetOptions{Ref: ref})
		switch {
		case err == nil && file != nil:
			return file.GetSHA(), nil
		case err == nil || status(err) == http.StatusNotFound:
			continue
		default:
			return "", classify(err, "resolving %s@%s", path, ref)
		}
	}
	return "", fmt.Errorf("%s: %w", path, repository.ErrNotFound)
}

// Diff implements repository.Gateway.
func (g *Gateway) Diff(ctx context.Context, base, head string) (*repository.Diff, error) {
	raw, _, err := g.client.Repositories.CompareCommitsRaw(ctx, g.owner, g.repo, base, head,
		github.RawOptions{Type: github.Diff})
	if err != nil {
		return nil, classify(err, "comparing %s...%s", base, head)
	}
	return repository.ParseUnified(base, head, raw)
}

// OpenPullRequest implements repository.Gateway.
func (g *Gateway) OpenPullRequest(ctx context.Context, req repository.PullRequestRequest) (*repository.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &github.NewPullRequest{
		Title: github.Ptr(req.Title),
		Body:  github.Ptr(req.Body),
		Head:  github.Ptr(req.Head),
		Base:  github.Ptr(req.Base),
	})
	if err != nil {
		return nil, classify(err, "opening pull request %s -> %s", req.Head, req.Base)
	}
	clog.FromContext(ctx).Infof("Opened PR #%d: %s", pr.GetNumber(), pr.GetHTMLURL())
	return &repository.PullRequest{Number: pr.GetNumber(), URL: pr.GetHTMLURL()}, nil
}

func status(err error) int {
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode
	}
	return 0
}

// classify wraps err with the matching repository sentinel.
func classify(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	var nerr net.Error
	switch code := status(err); {
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, repository.ErrNotFound)
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%s: %w: %w", msg, repository.ErrUnauthorized, err)
	case code >= http.StatusInternalServerError, errors.As(err, &nerr):
		return fmt.Errorf("%s: %w: %w", msg, repository.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
