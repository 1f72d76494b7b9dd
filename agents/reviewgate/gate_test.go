/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package reviewgate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chainguard.dev/ticketagent/repository"
	"github.com/google/go-cmp/cmp"
)

func testDiff(t *testing.T) *repository.Diff {
	t.Helper()
	d, err := repository.ParseUnified("main", "web-1-agent",
		repository.WholeFilePatch("src/footer.tsx", "old\n", "new\n"))
	if err != nil {
		t.Fatalf("ParseUnified: %v", err)
	}
	return d
}

func reply(text string, err error) ReviewerFunc {
	return func(context.Context, string, string) (string, error) { return text, err }
}

func TestReviewParsesVerdict(t *testing.T) {
	var gotSystem, gotPrompt string
	g, err := New(ReviewerFunc(func(_ context.Context, system, prompt string) (string, error) {
		gotSystem, gotPrompt = system, prompt
		return "```json\n" + `{
  "approved": false,
  "summary": "Link is missing an aria label.",
  "issues": [
    {"severity": "minor", "file": "src/footer.tsx", "description": "inconsistent spacing"},
    {"severity": "critical", "file": "src/footer.tsx", "description": "missing aria-label", "suggested_fix": "add aria-label"}
  ]
}` + "\n```", nil
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	v, err := g.Review(context.Background(), Request{Task: "Add a <privacy> link", Diff: testDiff(t)})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}

	want := &Verdict{
		Approved: false,
		Summary:  "Link is missing an aria label.",
		Issues: []Issue{
			{Severity: SeverityMinor, File: "src/footer.tsx", Description: "inconsistent spacing"},
			{Severity: SeverityCritical, File: "src/footer.tsx", Description: "missing aria-label", SuggestedFix: "add aria-label"},
		},
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("verdict mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(gotSystem, `"approved"`) || !strings.Contains(gotSystem, `"suggestion"`) {
		t.Errorf("system prompt does not carry the verdict schema:\n%s", gotSystem)
	}
	for _, want := range []string{"Add a &lt;privacy&gt; link", "+new", "src/footer.tsx"} {
		if !strings.Contains(gotPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, gotPrompt)
		}
	}
}

func TestReviewFailsOpen(t *testing.T) {
	tests := []struct {
		name     string
		reviewer ReviewerFunc
	}{
		{name: "transport error", reviewer: reply("", errors.New("connection reset"))},
		{name: "prose", reviewer: reply("Looks great to me!", nil)},
		{name: "truncated json", reviewer: reply(`{"approved": fal`, nil)},
		{name: "missing approved", reviewer: reply(`{"summary": "ok", "issues": []}`, nil)},
		{name: "unknown severity", reviewer: reply(`{"approved": false, "issues": [{"severity": "blocker", "description": "x"}]}`, nil)},
		{name: "unknown field", reviewer: reply(`{"approved": false, "score": 3}`, nil)},
		{name: "empty description", reviewer: reply(`{"approved": false, "issues": [{"severity": "major", "description": ""}]}`, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.reviewer)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			v, err := g.Review(context.Background(), Request{Task: "t", Diff: testDiff(t)})
			if err != nil {
				t.Fatalf("Review: %v", err)
			}
			if !v.Approved || !v.FailedOpen || len(v.Issues) != 0 {
				t.Errorf("got %+v, want approved fail-open verdict with no issues", v)
			}
			if !strings.HasPrefix(v.Note, FailOpenNote) {
				t.Errorf("note: got %q, want prefix %q", v.Note, FailOpenNote)
			}
		})
	}
}

func TestReviewCanceledDoesNotApprove(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	called := 0
	g, err := New(ReviewerFunc(func(ctx context.Context, _, _ string) (string, error) {
		called++
		cancel()
		return "", ctx.Err()
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	v, err := g.Review(ctx, Request{Task: "t", Diff: testDiff(t)})
	if !errors.Is(err, context.Canceled) || v != nil {
		t.Errorf("canceled mid-review: got %+v, %v; want nil, context.Canceled", v, err)
	}

	v, err = g.Review(ctx, Request{Task: "t", Diff: testDiff(t)})
	if !errors.Is(err, context.Canceled) || v != nil {
		t.Errorf("already canceled: got %+v, %v; want nil, context.Canceled", v, err)
	}
	if called != 1 {
		t.Errorf("reviewer calls: got %d, want 1", called)
	}
}

func TestWithMaxDiffBytes(t *testing.T) {
	var gotPrompt string
	g, err := New(ReviewerFunc(func(_ context.Context, _, prompt string) (string, error) {
		gotPrompt = prompt
		return `{"approved": true, "summary": "", "issues": []}`, nil
	}), WithMaxDiffBytes(10))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if v, err := g.Review(context.Background(), Request{Task: "t", Diff: testDiff(t)}); err != nil || !v.Approved || v.FailedOpen {
		t.Errorf("verdict: %+v", v)
	}
	if !strings.Contains(gotPrompt, "diff truncated") {
		t.Errorf("prompt was not truncated:\n%s", gotPrompt)
	}

	if _, err := New(reply("", nil), WithMaxDiffBytes(0)); err == nil {
		t.Error("WithMaxDiffBytes(0): got nil error")
	}
	if _, err := New(nil); err == nil {
		t.Error("New(nil): got nil error")
	}
}

func TestFormatGroupsBySeverity(t *testing.T) {
	v := &Verdict{
		Approved: false,
		Summary:  "Two problems.",
		Issues: []Issue{
			{Severity: SeveritySuggestion, Description: "rename variable"},
			{Severity: SeverityCritical, File: "a.ts", Description: "breaks build", SuggestedFix: "fix import"},
		},
	}
	got := Format(v)
	want := `Review: changes requested
Two problems.

CRITICAL (1):
- a.ts: breaks build
  fix: fix import

SUGGESTION (1):
- rename variable`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Format mismatch (-want +got):\n%s", diff)
	}

	failed := Format(&Verdict{Approved: true, FailedOpen: true})
	if failed != "Review: approved ("+FailOpenNote+")" {
		t.Errorf("fail-open Format: got %q", failed)
	}
}
