/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"chainguard.dev/ticketagent/agents/agentloop"
	"chainguard.dev/ticketagent/agents/guard"
	"chainguard.dev/ticketagent/agents/report"
	"chainguard.dev/ticketagent/agents/reviewgate"
	"chainguard.dev/ticketagent/agents/toolcall"
	"chainguard.dev/ticketagent/repository/repotest"
)

func newExecutor(t *testing.T, reviews ...string) *guard.Executor {
	t.Helper()
	repo := repotest.New("main", map[string]string{"src/footer.tsx": "old\n"})
	n := 0
	gate, err := reviewgate.New(reviewgate.ReviewerFunc(func(context.Context, string, string) (string, error) {
		r := reviews[min(n, len(reviews)-1)]
		n++
		if r == "" {
			return "", errors.New("reviewer unavailable")
		}
		return r, nil
	}))
	if err != nil {
		t.Fatalf("reviewgate.New: %v", err)
	}
	exec, err := guard.NewExecutor(guard.NewSession("WEB-1: fix | footer", "acme/site", "web-1-agent"), repo, gate)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return exec
}

func drive(t *testing.T, exec *guard.Executor, calls ...toolcall.ToolCall) {
	t.Helper()
	for i, c := range calls {
		c.ID = fmt.Sprintf("c%d", i)
		if c.Args == nil {
			c.Args = map[string]any{}
		}
		exec.BeginTurn(i + 1)
		if _, err := exec.Execute(context.Background(), c); err != nil {
			t.Fatalf("%s: %v", c.Name, err)
		}
	}
}

var (
	getDefault = toolcall.ToolCall{Name: guard.ToolGetDefaultBranch}
	branch     = toolcall.ToolCall{Name: guard.ToolCreateBranch}
	read       = toolcall.ToolCall{Name: guard.ToolReadFile, Args: map[string]any{"path": "src/footer.tsx"}}
	review     = toolcall.ToolCall{Name: guard.ToolRequestCodeReview}
	openPR     = toolcall.ToolCall{Name: guard.ToolCreatePullRequest, Args: map[string]any{"title": "Fix footer", "body": "WEB-1"}}
	blindEdit  = toolcall.ToolCall{Name: guard.ToolUpdateFile, Args: map[string]any{"path": "README.md", "content": "x"}}
)

func edit(content string) toolcall.ToolCall {
	return toolcall.ToolCall{Name: guard.ToolUpdateFile, Args: map[string]any{"path": "src/footer.tsx", "content": content}}
}

func TestSessionCompleted(t *testing.T) {
	exec := newExecutor(t,
		`{"approved": false, "summary": "link | text wrong", "issues": [{"severity": "major", "description": "wrong text"}, {"severity": "minor", "description": "nit"}]}`,
		`{"approved": true, "summary": "good", "issues": []}`,
	)
	drive(t, exec, getDefault, read, branch, blindEdit, edit("v1"), review, edit("v2"), review, openPR)

	run := &agentloop.Run{Outcome: agentloop.OutcomeCompleted, Turns: 9, FinalText: "Opened the PR.\nDone."}
	got := report.Session(exec.Session(), run)

	for _, want := range []string{
		"✅ Pull request opened: https://git.example.com/pulls/1",
		"Repository", "acme/site",
		"web-1-agent",
		"pr-created",
		"[#1](https://git.example.com/pulls/1)",
		"### Reviews",
		"changes requested", "1 major, 1 minor", `link \| text wrong`,
		"### Denied tool calls",
		guard.CodeReadRequired,
		"> Opened the PR.\n> Done.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
	t.Logf("report:\n%s", got)
}

func TestSessionExhausted(t *testing.T) {
	exec := newExecutor(t, `{"approved": true, "summary": "", "issues": []}`)
	drive(t, exec, getDefault, read)

	got := report.Session(exec.Session(), &agentloop.Run{
		Outcome: agentloop.OutcomeExhausted,
		Turns:   25,
		Err:     context.DeadlineExceeded,
	})
	for _, want := range []string{"stopped after 25 turns", "exhausted", "context deadline exceeded", "web-1-agent (not created)", "Based on", "main@"} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
	for _, unwanted := range []string{"### Reviews", "### Denied tool calls", "Pull request"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("report has %q:\n%s", unwanted, got)
		}
	}
}

func TestSessionFailOpen(t *testing.T) {
	exec := newExecutor(t, "")
	drive(t, exec, getDefault, read, branch, edit("v1"), review)

	got := report.Session(exec.Session(), &agentloop.Run{Outcome: agentloop.OutcomeFailed, Turns: 5, Err: errors.New("model down")})
	for _, want := range []string{"❌ The agent failed", "approved (fail-open)", "model down"} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
}

func TestHeadline(t *testing.T) {
	s := guard.NewSession("t", "acme/site", "b")
	tests := []struct {
		name string
		run  *agentloop.Run
		want string
	}{
		{name: "not run", want: "did not run"},
		{name: "exhausted", run: &agentloop.Run{Outcome: agentloop.OutcomeExhausted, Turns: 3}, want: "after 3 turns"},
		{name: "failed", run: &agentloop.Run{Outcome: agentloop.OutcomeFailed}, want: "failed"},
		{name: "completed without pr", run: &agentloop.Run{Outcome: agentloop.OutcomeCompleted}, want: "without opening"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := report.Headline(s, tt.run); !strings.Contains(got, tt.want) {
				t.Errorf("Headline() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
