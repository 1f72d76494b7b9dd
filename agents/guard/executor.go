/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package guard

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/ticketagent/agents/reviewgate"
	"chainguard.dev/ticketagent/agents/toolcall"
	"chainguard.dev/ticketagent/repository"
	"github.com/chainguard-dev/clog"
)

// DefaultMaxUnauthorized is the number of consecutive authorization
// failures after which a session is aborted.
const DefaultMaxUnauthorized = 3

// DefaultMaxUnavailable is the number of consecutive failures to reach the
// repository host after which a session is aborted.
const DefaultMaxUnavailable = 3

// Executor dispatches model tool calls against one Session. Every
// precondition is checked against the Session before the gateway is
// touched; refusals come back as denial results, never as errors.
//
// Execute returns an error only when the session cannot continue: the
// context is done, or the gateway rejected credentials or was unreachable
// too many times in a row.
type Executor struct {
	session         *Session
	repo            repository.Gateway
	gate            *reviewgate.Gate
	maxUnauthorized int
	maxUnavailable  int

	// streakErr is the sentinel of the current run of consecutive
	// failures, streak its length.
	streakErr error
	streak    int
}

// Option configures an Executor.
type Option func(*Executor) error

// WithMaxUnauthorized sets how many consecutive authorization failures abort
// the session.
func WithMaxUnauthorized(n int) Option {
	return func(e *Executor) error {
		if n < 1 {
			return fmt.Errorf("max unauthorized must be at least 1, got %d", n)
		}
		e.maxUnauthorized = n
		return nil
	}
}

// WithMaxUnavailable sets how many consecutive unreachable-host failures
// abort the session.
func WithMaxUnavailable(n int) Option {
	return func(e *Executor) error {
		if n < 1 {
			return fmt.Errorf("max unavailable must be at least 1, got %d", n)
		}
		e.maxUnavailable = n
		return nil
	}
}

// NewExecutor binds a session to its repository and review gate.
func NewExecutor(s *Session, repo repository.Gateway, gate *reviewgate.Gate, opts ...Option) (*Executor, error) {
	switch {
	case s == nil:
		return nil, errors.New("session cannot be nil")
	case s.Branch == "":
		return nil, errors.New("session branch cannot be empty")
	case repo == nil:
		return nil, errors.New("repository gateway cannot be nil")
	case gate == nil:
		return nil, errors.New("review gate cannot be nil")
	}
	e := &Executor{
		session:         s,
		repo:            repo,
		gate:            gate,
		maxUnauthorized: DefaultMaxUnauthorized,
		maxUnavailable:  DefaultMaxUnavailable,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Session returns the session this executor mutates.
func (e *Executor) Session() *Session { return e.session }

// Tools returns the tool definitions offered to the model.
func (e *Executor) Tools() []toolcall.Definition { return Registry.Definitions() }

// BeginTurn records the model turn now in progress on the session.
func (e *Executor) BeginTurn(n int) { e.session.BeginTurn(n) }

// Execute runs one tool call.
func (e *Executor) Execute(ctx context.Context, call toolcall.ToolCall) (toolcall.Result, error) {
	if err := ctx.Err(); err != nil {
		return toolcall.Result{}, err
	}
	run, ok := handlers[call.Name]
	if !ok {
		return e.deny(call, CodeUnknownTool, "unknown tool %q", call.Name), nil
	}
	return run(ctx, e, call)
}

func (e *Executor) deny(call toolcall.ToolCall, code, format string, args ...any) toolcall.Result {
	r := toolcall.Deny(call, code, format, args...)
	e.session.recordDenial(call.Name, code, r.Reason())
	return r
}

// ok resets the failure streak after a successful gateway call.
func (e *Executor) ok(call toolcall.ToolCall, payload map[string]any) (toolcall.Result, error) {
	e.resetStreak()
	return toolcall.Success(call, payload), nil
}

func (e *Executor) resetStreak() { e.streakErr, e.streak = nil, 0 }

// strike extends the streak for kind and reports whether it reached limit.
func (e *Executor) strike(kind error, limit int) bool {
	if e.streakErr != kind {
		e.streakErr, e.streak = kind, 0
	}
	e.streak++
	return e.streak >= limit
}

// failed turns a gateway error into a denial, or into a fatal error when
// the context is done or the host keeps rejecting credentials or cannot be
// reached.
func (e *Executor) failed(ctx context.Context, call toolcall.ToolCall, err error) (toolcall.Result, error) {
	e.session.lastErr = err
	if ctxErr := ctx.Err(); ctxErr != nil {
		return toolcall.Result{}, ctxErr
	}

	log := clog.FromContext(ctx).With("tool", call.Name)
	switch {
	case errors.Is(err, repository.ErrUnauthorized):
		abort := e.strike(repository.ErrUnauthorized, e.maxUnauthorized)
		log.With("consecutive", e.streak).Warnf("Repository rejected credentials: %v", err)
		if abort {
			return toolcall.Result{}, fmt.Errorf("aborting after %d consecutive authorization failures: %w", e.streak, err)
		}
		return e.deny(call, CodeUnauthorized, "%v", err), nil
	case errors.Is(err, repository.ErrUnavailable):
		abort := e.strike(repository.ErrUnavailable, e.maxUnavailable)
		log.With("consecutive", e.streak).Warnf("Repository host unavailable: %v", err)
		if abort {
			return toolcall.Result{}, fmt.Errorf("aborting after %d consecutive unreachable-host failures: %w", e.streak, err)
		}
		return e.deny(call, CodeUnavailable, "%v", err), nil
	case errors.Is(err, repository.ErrNotFound):
		e.resetStreak()
		return e.deny(call, CodeNotFound, "%v", err), nil
	case errors.Is(err, repository.ErrAlreadyExists):
		e.resetStreak()
		return e.deny(call, CodeAlreadyExists, "%v", err), nil
	default:
		e.resetStreak()
		log.Warnf("Repository call failed: %v", err)
		return e.deny(call, CodeGatewayError, "%v", err), nil
	}
}

func (e *Executor) readFile(ctx context.Context, call toolcall.ToolCall, args readFileArgs) (toolcall.Result, error) {
	path, err := repository.CleanPath(args.Path)
	if err != nil || path == "" {
		return e.deny(call, CodeInvalidArguments, "invalid path %q", args.Path), nil
	}
	ref := e.session.readRef()
	content, err := e.repo.ReadFile(ctx, ref, path)
	if err != nil {
		return e.failed(ctx, call, err)
	}
	e.session.markRead(path)
	return e.ok(call, map[string]any{"path": path, "ref": ref, "content": content})
}

func (e *Executor) listFiles(ctx context.Context, call toolcall.ToolCall, args listFilesArgs) (toolcall.Result, error) {
	path, err := repository.CleanPath(args.Path)
	if err != nil {
		return e.deny(call, CodeInvalidArguments, "%v", err), nil
	}
	ref := e.session.readRef()
	entries, err := e.repo.ListDirectory(ctx, ref, path)
	if err != nil {
		return e.failed(ctx, call, err)
	}
	return e.ok(call, map[string]any{"path": path, "ref": ref, "entries": entries})
}

func (e *Executor) searchCode(ctx context.Context, call toolcall.ToolCall, args searchCodeArgs) (toolcall.Result, error) {
	if args.Query == "" {
		return e.deny(call, CodeInvalidArguments, "query cannot be empty"), nil
	}
	res, err := e.repo.SearchText(ctx, args.Query)
	if err != nil {
		return e.failed(ctx, call, err)
	}
	return e.ok(call, map[string]any{
		"query":     args.Query,
		"paths":     res.Paths,
		"total":     res.Total,
		"truncated": res.Total > len(res.Paths),
	})
}

func (e *Executor) getDefaultBranch(ctx context.Context, call toolcall.ToolCall, _ getDefaultBranchArgs) (toolcall.Result, error) {
	branch, revision, err := e.repo.DefaultBranchHead(ctx)
	if err != nil {
		return e.failed(ctx, call, err)
	}
	e.session.recordBase(branch, revision)
	return e.ok(call, map[string]any{"branch": branch, "revision": revision})
}

func (e *Executor) createBranch(ctx context.Context, call toolcall.ToolCall, args createBranchArgs) (toolcall.Result, error) {
	s := e.session
	if args.BranchName != "" && args.BranchName != s.Branch {
		return e.deny(call, CodeBranchMismatch, "this task must use branch %q, not %q", s.Branch, args.BranchName), nil
	}
	if s.baseRevision == "" {
		return e.deny(call, CodeBaseRequired, "base revision not found: call get_default_branch first"), nil
	}
	created, err := e.repo.CreateBranch(ctx, s.Branch, s.baseRevision)
	if err != nil {
		return e.failed(ctx, call, err)
	}
	s.markBranched()
	return e.ok(call, map[string]any{"branch": s.Branch, "base": s.defaultBranch, "created": created})
}

func (e *Executor) updateFile(ctx context.Context, call toolcall.ToolCall, args writeFileArgs) (toolcall.Result, error) {
	path, err := repository.CleanPath(args.Path)
	if err != nil || path == "" {
		return e.deny(call, CodeInvalidArguments, "invalid path %q", args.Path), nil
	}
	if !e.session.HasRead(path) {
		return e.deny(call, CodeReadRequired, "must read %s with read_file before update", path), nil
	}
	return e.write(ctx, call, path, args, repository.ModeUpdate)
}

func (e *Executor) createFile(ctx context.Context, call toolcall.ToolCall, args writeFileArgs) (toolcall.Result, error) {
	path, err := repository.CleanPath(args.Path)
	if err != nil || path == "" {
		return e.deny(call, CodeInvalidArguments, "invalid path %q", args.Path), nil
	}
	res, err := e.write(ctx, call, path, args, repository.ModeCreate)
	if err == nil && !res.Denied {
		e.session.markRead(path)
	}
	return res, err
}

func (e *Executor) write(ctx context.Context, call toolcall.ToolCall, path string, args writeFileArgs, mode repository.WriteMode) (toolcall.Result, error) {
	s := e.session
	if !s.branchReady {
		return e.deny(call, CodeBranchRequired, "create a branch first with create_branch"), nil
	}
	msg := args.CommitMessage
	if msg == "" {
		msg = fmt.Sprintf("%s %s", mode, path)
	}
	res, err := e.repo.WriteFile(ctx, repository.WriteRequest{
		Branch:  s.Branch,
		Base:    s.defaultBranch,
		Path:    path,
		Content: args.Content,
		Message: msg,
		Mode:    mode,
	})
	if errors.Is(err, repository.ErrAlreadyExists) && mode == repository.ModeCreate {
		e.resetStreak()
		return e.deny(call, CodeAlreadyExists, "%s already exists, use update_file", path), nil
	}
	if err != nil {
		return e.failed(ctx, call, err)
	}
	s.markWritten()
	return e.ok(call, map[string]any{"path": path, "branch": s.Branch, "revision": res.Revision})
}

func (e *Executor) requestCodeReview(ctx context.Context, call toolcall.ToolCall, _ requestReviewArgs) (toolcall.Result, error) {
	s := e.session
	if !s.branchReady {
		return e.deny(call, CodeBranchRequired, "create a branch first with create_branch"), nil
	}
	diff, err := e.repo.Diff(ctx, s.defaultBranch, s.Branch)
	if err != nil {
		return e.failed(ctx, call, err)
	}
	if diff.Empty() {
		return e.deny(call, CodeNoChanges, "no changes to review"), nil
	}
	e.resetStreak()

	s.beginReview()
	v, err := e.gate.Review(ctx, reviewgate.Request{Task: s.Task, Diff: diff})
	if err != nil {
		s.lastErr = err
		return toolcall.Result{}, err
	}
	s.recordVerdict(v)

	added, removed := diff.Totals()
	return e.ok(call, map[string]any{
		"approved": v.Approved,
		"summary":  v.Summary,
		"issues":   v.Issues,
		"feedback": reviewgate.Format(v),
		"files":    len(diff.Files),
		"added":    added,
		"removed":  removed,
	})
}

func (e *Executor) createPullRequest(ctx context.Context, call toolcall.ToolCall, args createPullRequestArgs) (toolcall.Result, error) {
	s := e.session
	if s.pr != nil {
		return e.deny(call, CodePullRequestCreated, "pull request #%d already exists: %s", s.pr.Number, s.pr.URL), nil
	}
	switch s.review {
	case ReviewApproved:
	case ReviewChangesRequested:
		return e.deny(call, CodeUnresolvedIssues,
			"unresolved review issues: address them and call request_code_review again\n%s", reviewgate.Format(s.LatestVerdict())), nil
	default:
		return e.deny(call, CodeReviewRequired, "review required: call request_code_review first"), nil
	}

	pr, err := e.repo.OpenPullRequest(ctx, repository.PullRequestRequest{
		Title: args.Title,
		Body:  args.Body,
		Head:  s.Branch,
		Base:  s.defaultBranch,
	})
	if err != nil {
		return e.failed(ctx, call, err)
	}
	s.recordPullRequest(pr)
	clog.FromContext(ctx).With("number", pr.Number, "url", pr.URL).Info("Pull request created")

	res, err := e.ok(call, map[string]any{"number": pr.Number, "url": pr.URL})
	res.Terminal = true
	return res, err
}
