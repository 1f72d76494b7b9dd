/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"chainguard.dev/ticketagent/repository"
	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"
)

const cloneDirPrefix = "ticketagent-clone-"

// PullRequestOpener opens pull requests on the hosting service. A plain git
// remote has no notion of pull requests, so the Gateway delegates to one.
type PullRequestOpener interface {
	OpenPullRequest(ctx context.Context, req repository.PullRequestRequest) (*repository.PullRequest, error)
}

// Options configures Open.
type Options struct {
	// URL is the remote to clone and push to. Local paths are accepted.
	URL string
	// TokenSource supplies push and clone credentials. Nil means anonymous.
	TokenSource oauth2.TokenSource
	// Identity is the commit author name. It is suffixed with
	// @chainguard.dev when it lacks a domain.
	Identity string
	// Opener opens pull requests. Without one OpenPullRequest fails.
	Opener PullRequestOpener
}

// Gateway is a repository.Gateway over a private clone. Every write is
// committed on the working branch and pushed to origin.
type Gateway struct {
	tokenSource oauth2.TokenSource
	identity    string
	opener      PullRequestOpener

	mu            sync.Mutex
	dir           string
	repo          *git.Repository
	defaultBranch string
}

var _ repository.Gateway = (*Gateway)(nil)

// Open clones opts.URL into a temporary directory. Callers must Close the
// Gateway to remove it.
func Open(ctx context.Context, opts Options) (*Gateway, error) {
	identity := strings.TrimSpace(opts.Identity)
	if identity == "" {
		return nil, errors.New("identity cannot be empty")
	}
	g := &Gateway{tokenSource: opts.TokenSource, identity: identity, opener: opts.Opener}

	dir, err := os.MkdirTemp("", cloneDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	auth, err := g.auth()
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("getting token: %w", err)
	}

	clog.FromContext(ctx).Infof("Cloning repository %s into %s", opts.URL, dir)
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{URL: opts.URL, Auth: auth})
	if err != nil {
		os.RemoveAll(dir)
		return nil, classify(err, "cloning %s", opts.URL)
	}

	head, err := repo.Head()
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	g.dir, g.repo, g.defaultBranch = dir, repo, head.Name().Short()
	return g, nil
}

// Close removes the clone.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dir == "" {
		return nil
	}
	err := os.RemoveAll(g.dir)
	g.dir, g.repo = "", nil
	return err
}

// TokenAuth adapts an OAuth2 token to git HTTP basic auth.
func TokenAuth(ts oauth2.TokenSource) (*githttp.BasicAuth, error) {
	token, err := ts.Token()
	if err != nil {
		return nil, err
	}
	return &githttp.BasicAuth{
		Username: "unused-when-using-access-tokens",
		Password: token.AccessToken,
	}, nil
}

func (g *Gateway) auth() (transport.AuthMethod, error) {
	if g.tokenSource == nil {
		return nil, nil
	}
	return TokenAuth(g.tokenSource)
}

// commit resolves a branch name or revision to its commit. An empty ref is
// the default branch.
func (g *Gateway) commit(ref string) (*object.Commit, error) {
	if ref == "" {
		ref = g.defaultBranch
	}
	var hash plumbing.Hash
	if r, err := g.repo.Reference(plumbing.NewBranchReferenceName(ref), true); err == nil {
		hash = r.Hash()
	} else if r, err := g.repo.Reference(plumbing.NewRemoteReferenceName("origin", ref), true); err == nil {
		hash = r.Hash()
	} else if plumbing.IsHash(ref) {
		hash = plumbing.NewHash(ref)
	} else {
		return nil, fmt.Errorf("ref %q: %w", ref, repository.ErrNotFound)
	}

	c, err := g.repo.CommitObject(hash)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, fmt.Errorf("revision %s: %w", ref, repository.ErrNotFound)
	}
	return c, err
}

func (g *Gateway) tree(ref, dir string) (*object.Tree, error) {
	c, err := g.commit(ref)
	if err != nil {
		return nil, err
	}
	t, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading tree of %s: %w", ref, err)
	}
	if dir == "" {
		return t, nil
	}
	sub, err := t.Tree(dir)
	if errors.Is(err, object.ErrDirectoryNotFound) || errors.Is(err, object.ErrEntryNotFound) {
		return nil, fmt.Errorf("%s: %w", dir, repository.ErrNotFound)
	}
	return sub, err
}

func (g *Gateway) fileAt(ref, p string) (*object.File, error) {
	t, err := g.tree(ref, "")
	if err != nil {
		return nil, err
	}
	f, err := t.File(p)
	if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
		return nil, fmt.Errorf("%s: %w", p, repository.ErrNotFound)
	}
	return f, err
}

// ReadFile implements repository.Gateway.
func (g *Gateway) ReadFile(_ context.Context, ref, p string) (string, error) {
	p, err := repository.CleanPath(p)
	if err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	f, err := g.fileAt(ref, p)
	if err != nil {
		return "", err
	}
	return f.Contents()
}

// ListDirectory implements repository.Gateway.
func (g *Gateway) ListDirectory(_ context.Context, ref, p string) ([]repository.Entry, error) {
	p, err := repository.CleanPath(p)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.tree(ref, p)
	if err != nil {
		return nil, err
	}
	entries := make([]repository.Entry, 0, len(t.Entries))
	for _, e := range t.Entries {
		kind := repository.KindFile
		if e.Mode == filemode.Dir {
			kind = repository.KindDirectory
		}
		entries = append(entries, repository.Entry{Name: e.Name, Path: path.Join(p, e.Name), Kind: kind})
	}
	return entries, nil
}

// SearchText implements repository.Gateway with a literal substring match
// over the default branch.
func (g *Gateway) SearchText(_ context.Context, query string) (*repository.SearchResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.tree(g.defaultBranch, "")
	if err != nil {
		return nil, err
	}
	res := &repository.SearchResult{Paths: []string{}}
	err = t.Files().ForEach(func(f *object.File) error {
		if isHidden(f.Name) || isBinaryFile(f.Name) {
			return nil
		}
		content, err := f.Contents()
		if err != nil || !strings.Contains(content, query) {
			return nil
		}
		res.Total++
		if len(res.Paths) < repository.MaxSearchResults {
			res.Paths = append(res.Paths, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DefaultBranchHead implements repository.Gateway.
func (g *Gateway) DefaultBranchHead(context.Context) (string, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, err := g.commit(g.defaultBranch)
	if err != nil {
		return "", "", err
	}
	return g.defaultBranch, c.Hash.String(), nil
}

// CreateBranch implements repository.Gateway. The branch is pushed to origin
// immediately so the host sees it before the first write.
func (g *Gateway) CreateBranch(ctx context.Context, name, revision string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	refName := plumbing.NewBranchReferenceName(name)
	if _, err := g.repo.Reference(refName, false); err == nil {
		return false, nil
	}
	// Pushed by an earlier attempt: track it locally so writes land on top.
	if remote, err := g.repo.Reference(plumbing.NewRemoteReferenceName("origin", name), true); err == nil {
		if err := g.repo.Storer.SetReference(plumbing.NewHashReference(refName, remote.Hash())); err != nil {
			return false, fmt.Errorf("setting branch reference: %w", err)
		}
		err := g.repo.CreateBranch(&gitconfig.Branch{Name: name, Remote: "origin", Merge: refName})
		if err != nil && !errors.Is(err, git.ErrBranchExists) {
			return false, fmt.Errorf("tracking origin/%s: %w", name, err)
		}
		return false, nil
	}

	c, err := g.commit(revision)
	if err != nil {
		return false, err
	}
	if err := g.repo.Storer.SetReference(plumbing.NewHashReference(refName, c.Hash)); err != nil {
		return false, fmt.Errorf("setting branch reference: %w", err)
	}
	if err := g.push(ctx, refName); err != nil {
		return false, err
	}
	return true, nil
}

// WriteFile implements repository.Gateway.
func (g *Gateway) WriteFile(ctx context.Context, req repository.WriteRequest) (*repository.WriteResult, error) {
	p, err := repository.CleanPath(req.Path)
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, errors.New("path cannot be empty")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	refName := plumbing.NewBranchReferenceName(req.Branch)
	if _, err := g.repo.Reference(refName, true); err != nil {
		return nil, fmt.Errorf("branch %s: %w", req.Branch, repository.ErrNotFound)
	}

	_, err = g.fileAt(req.Branch, p)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	exists := err == nil
	switch req.Mode {
	case repository.ModeCreate:
		if exists {
			return nil, fmt.Errorf("%s: %w", p, repository.ErrAlreadyExists)
		}
	case repository.ModeUpdate:
		if !exists {
			if req.Base == "" {
				return nil, fmt.Errorf("%s: %w", p, repository.ErrNotFound)
			}
			if _, err := g.fileAt(req.Base, p); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unknown write mode %q", req.Mode)
	}

	wt, err := g.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: refName, Force: true}); err != nil {
		return nil, fmt.Errorf("checking out %s: %w", req.Branch, err)
	}

	full := filepath.Join(wt.Filesystem.Root(), filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(full, []byte(req.Content), 0o644); err != nil {
		return nil, err
	}
	if _, err := wt.Add(p); err != nil {
		return nil, fmt.Errorf("staging %s: %w", p, err)
	}

	hash, err := wt.Commit(req.Message, &git.CommitOptions{
		Author: &object.Signature{Name: g.identity, Email: g.email(), When: time.Now()},
	})
	if err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}
	if err := g.push(ctx, refName); err != nil {
		return nil, err
	}
	return &repository.WriteResult{Revision: hash.String()}, nil
}

// Diff implements repository.Gateway.
func (g *Gateway) Diff(ctx context.Context, base, head string) (*repository.Diff, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	from, err := g.commit(base)
	if err != nil {
		return nil, err
	}
	to, err := g.commit(head)
	if err != nil {
		return nil, err
	}
	patch, err := from.PatchContext(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("computing patch %s...%s: %w", base, head, err)
	}
	return repository.ParseUnified(base, head, patch.String())
}

// OpenPullRequest implements repository.Gateway by delegating to the
// configured PullRequestOpener.
func (g *Gateway) OpenPullRequest(ctx context.Context, req repository.PullRequestRequest) (*repository.PullRequest, error) {
	if g.opener == nil {
		return nil, errors.New("no pull request opener configured for this remote")
	}
	return g.opener.OpenPullRequest(ctx, req)
}

func (g *Gateway) email() string {
	if strings.Contains(g.identity, "@") {
		return g.identity
	}
	return g.identity + "@chainguard.dev"
}

func (g *Gateway) push(ctx context.Context, ref plumbing.ReferenceName) error {
	auth, err := g.auth()
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("%s:%s", ref.String(), ref.String()))
	clog.FromContext(ctx).Infof("Pushing %s", refSpec)
	err = g.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth:       auth,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return classify(err, "pushing %s", ref.Short())
	}
	return nil
}

func classify(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%s: %w: %w", msg, repository.ErrUnauthorized, err)
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return fmt.Errorf("%s: %w", msg, repository.ErrNotFound)
	case unavailable(err):
		return fmt.Errorf("%s: %w: %w", msg, repository.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// unavailable reports transport failures and 5xx answers from the remote.
// go-git wraps both in a plumbing.UnexpectedError, which does not unwrap.
func unavailable(err error) bool {
	var ue *plumbing.UnexpectedError
	if errors.As(err, &ue) {
		err = ue.Err
	}
	var herr *githttp.Err
	if errors.As(err, &herr) {
		return herr.StatusCode() >= http.StatusInternalServerError
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}

func isHidden(p string) bool {
	for seg := range strings.SplitSeq(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

var binaryExts = map[string]struct{}{
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {},
	".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".ico": {},
	".pdf": {}, ".doc": {}, ".docx": {},
	".bin": {}, ".dat": {},
}

func isBinaryFile(p string) bool {
	_, ok := binaryExts[strings.ToLower(path.Ext(p))]
	return ok
}
