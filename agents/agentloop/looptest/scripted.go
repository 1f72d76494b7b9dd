/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package looptest provides a scripted agentloop.Model for tests.
package looptest

import (
	"context"
	"fmt"
	"sync"

	"chainguard.dev/ticketagent/agents/agentloop"
	"chainguard.dev/ticketagent/agents/toolcall"
)

// Step produces one model response. It sees the transcript so far, so a
// step may react to earlier tool results.
type Step func(t agentloop.Transcript) (*agentloop.Response, error)

// Scripted replays a fixed sequence of steps. Once the script runs out the
// last step repeats.
type Scripted struct {
	mu    sync.Mutex
	steps []Step
	calls int
	seen  []agentloop.Transcript
}

var _ agentloop.Model = (*Scripted)(nil)

// New returns a model that plays steps in order.
func New(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

// Name implements agentloop.Model.
func (s *Scripted) Name() string { return "scripted" }

// Generate implements agentloop.Model.
func (s *Scripted) Generate(ctx context.Context, _ string, t agentloop.Transcript, _ []toolcall.Definition) (*agentloop.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if len(s.steps) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("scripted model has no steps")
	}
	step := s.steps[min(s.calls, len(s.steps)-1)]
	s.calls++
	s.seen = append(s.seen, append(agentloop.Transcript(nil), t...))
	s.mu.Unlock()
	return step(t)
}

// Calls returns how many times Generate ran.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Seen returns the transcript passed to each Generate call.
func (s *Scripted) Seen() []agentloop.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]agentloop.Transcript(nil), s.seen...)
}

// Say ends the conversation with text.
func Say(text string) Step {
	return func(agentloop.Transcript) (*agentloop.Response, error) {
		return &agentloop.Response{Text: text, Stop: agentloop.StopEnd}, nil
	}
}

// Truncated returns a response cut off by the token limit.
func Truncated(text string) Step {
	return func(agentloop.Transcript) (*agentloop.Response, error) {
		return &agentloop.Response{Text: text, Stop: agentloop.StopMaxTokens}, nil
	}
}

// Fail returns err from Generate.
func Fail(err error) Step {
	return func(agentloop.Transcript) (*agentloop.Response, error) { return nil, err }
}

// Call is a tool call in a Use step.
type Call struct {
	Name string
	Args map[string]any
}

// Use issues the given tool calls in one turn. Call IDs are derived from the
// transcript length so they are unique within a run.
func Use(calls ...Call) Step {
	return func(t agentloop.Transcript) (*agentloop.Response, error) {
		resp := &agentloop.Response{Stop: agentloop.StopToolUse, Usage: agentloop.Usage{InputTokens: 10, OutputTokens: 5}}
		for i, c := range calls {
			args := c.Args
			if args == nil {
				args = map[string]any{}
			}
			resp.Calls = append(resp.Calls, toolcall.ToolCall{
				ID:   fmt.Sprintf("call_%d_%d", len(t), i),
				Name: c.Name,
				Args: args,
			})
		}
		return resp, nil
	}
}
