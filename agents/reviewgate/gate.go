/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package reviewgate

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"

	"chainguard.dev/ticketagent/agents/metrics"
	"chainguard.dev/ticketagent/agents/promptbuilder"
	"chainguard.dev/ticketagent/agents/result"
	"chainguard.dev/ticketagent/agents/schema"
	"chainguard.dev/ticketagent/repository"
	"github.com/chainguard-dev/clog"
)

// Reviewer sends one review prompt to a hosted model and returns its raw
// text reply. Implementations retry transient failures themselves.
type Reviewer interface {
	Review(ctx context.Context, system, prompt string) (string, error)
}

// ReviewerFunc adapts a function to Reviewer.
type ReviewerFunc func(ctx context.Context, system, prompt string) (string, error)

// Review implements Reviewer.
func (f ReviewerFunc) Review(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

// Request is the input to one review.
type Request struct {
	// Task is the ticket context the change is meant to resolve.
	Task string
	Diff *repository.Diff
}

type reviewInput struct {
	XMLName xml.Name `xml:"review_request"`
	Task    string   `xml:"task"`
	Diff    string   `xml:"diff"`
}

// wireVerdict is the JSON contract the reviewer must follow.
type wireVerdict struct {
	Approved *bool   `json:"approved" jsonschema:"required" jsonschema_description:"True only when the change resolves the task and has no critical or major issues"`
	Summary  string  `json:"summary" jsonschema_description:"One or two sentences on the overall quality of the change"`
	Issues   []Issue `json:"issues" jsonschema_description:"Issues found, most severe first"`
}

var systemPrompt = promptbuilder.MustNewPrompt(`You are a meticulous code reviewer for a web application.
You receive a task description and the unified diff that claims to resolve it.

Check that the change resolves the task, is minimal, does not break existing
behavior, and follows the conventions visible in the surrounding code.

Respond with a single JSON object and nothing else. It must validate against
this schema:

{{schema}}`)

var userPrompt = promptbuilder.MustNewPrompt(`Review the following change.

{{request}}`)

const defaultMaxDiffBytes = 100_000

// Gate runs automated review. Reviewer failures never block: a transport
// error or a response that does not match the verdict schema yields an
// approved verdict marked FailedOpen, logged at WARN and counted in
// agent_review_fail_open_total.
type Gate struct {
	reviewer     Reviewer
	system       string
	maxDiffBytes int
}

// Option configures a Gate.
type Option func(*Gate) error

// WithMaxDiffBytes truncates diffs longer than n bytes before review.
func WithMaxDiffBytes(n int) Option {
	return func(g *Gate) error {
		if n <= 0 {
			return fmt.Errorf("max diff bytes must be positive, got %d", n)
		}
		g.maxDiffBytes = n
		return nil
	}
}

// New creates a Gate backed by r.
func New(r Reviewer, opts ...Option) (*Gate, error) {
	if r == nil {
		return nil, errors.New("reviewer cannot be nil")
	}
	p, err := systemPrompt.BindJSON("schema", schema.ForPrompt[wireVerdict]())
	if err != nil {
		return nil, err
	}
	system, err := p.Build()
	if err != nil {
		return nil, fmt.Errorf("building review system prompt: %w", err)
	}

	g := &Gate{reviewer: r, system: system, maxDiffBytes: defaultMaxDiffBytes}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// bind prepares req for the user prompt, truncating long diffs.
func (g *Gate) bind(req Request) promptbuilder.Bindable {
	diff := req.Diff.String()
	if len(diff) > g.maxDiffBytes {
		diff = diff[:g.maxDiffBytes] + "\n... diff truncated ..."
	}
	return reviewInput{Task: req.Task, Diff: diff}
}

// Bind implements promptbuilder.Bindable.
func (in reviewInput) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	return p.BindXML("request", in)
}

// Review asks the reviewer for a verdict on req. It returns a verdict for
// every reviewer failure; the only error is ctx's, once ctx is done.
func (g *Gate) Review(ctx context.Context, req Request) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prompt, err := promptbuilder.Render(userPrompt, g.bind(req))
	if err != nil {
		return g.failOpen(ctx, "malformed", fmt.Errorf("building review prompt: %w", err)), nil
	}

	raw, err := g.reviewer.Review(ctx, g.system, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return g.failOpen(ctx, "transport", err), nil
	}

	w, err := result.Strict[wireVerdict](raw)
	if err != nil {
		return g.failOpen(ctx, "malformed", fmt.Errorf("parsing verdict: %w", err)), nil
	}
	v, err := w.validate()
	if err != nil {
		return g.failOpen(ctx, "schema", err), nil
	}

	clog.FromContext(ctx).With("approved", v.Approved, "issues", len(v.Issues)).Info("Automated review completed")
	metrics.RecordReview(v.Approved)
	return v, nil
}

func (w wireVerdict) validate() (*Verdict, error) {
	if w.Approved == nil {
		return nil, errors.New("verdict is missing required field approved")
	}
	v := &Verdict{Approved: *w.Approved, Summary: w.Summary, Issues: []Issue{}}
	for i, issue := range w.Issues {
		if !issue.Severity.Valid() {
			return nil, fmt.Errorf("issue %d has unknown severity %q", i, issue.Severity)
		}
		if issue.Description == "" {
			return nil, fmt.Errorf("issue %d is missing a description", i)
		}
		v.Issues = append(v.Issues, issue)
	}
	return v, nil
}

func (g *Gate) failOpen(ctx context.Context, reason string, cause error) *Verdict {
	clog.FromContext(ctx).With("reason", reason, "error", cause).
		Warn("Automated review failed open; treating change as approved")
	metrics.RecordReviewFailOpen(reason)
	return &Verdict{
		Approved:   true,
		Issues:     []Issue{},
		FailedOpen: true,
		Note:       fmt.Sprintf("%s: %v", FailOpenNote, cause),
	}
}
