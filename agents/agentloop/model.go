/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agentloop

import (
	"context"

	"chainguard.dev/ticketagent/agents/toolcall"
)

// StopReason is why the model stopped generating.
type StopReason string

const (
	// StopEnd is a natural end of turn.
	StopEnd StopReason = "end"
	// StopToolUse means the model is waiting on tool results.
	StopToolUse StopReason = "tool_use"
	// StopMaxTokens means the response was cut off by the output limit.
	StopMaxTokens StopReason = "max_tokens"
)

// Usage is the token accounting of one model call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response is one model turn.
type Response struct {
	Text      string
	Calls     []toolcall.ToolCall
	Stop      StopReason
	Usage     Usage
	Reasoning []string

	// Raw is the provider's own rendering of the turn. Models that need to
	// replay provider-specific content (such as signed thinking blocks) set
	// it and read it back from the transcript.
	Raw any
}

// Model is a tool-calling language model.
type Model interface {
	// Name identifies the model in logs and metrics.
	Name() string

	// Generate produces the next turn given the whole transcript. Transient
	// provider errors are retried inside Generate; an error return means
	// the model is unavailable.
	Generate(ctx context.Context, system string, transcript Transcript, tools []toolcall.Definition) (*Response, error)
}

// Executor runs the tool calls of one session.
type Executor interface {
	// Tools returns the declarations offered to the model.
	Tools() []toolcall.Definition

	// BeginTurn is called before each model call with the 1-based turn.
	BeginTurn(n int)

	// Execute runs one call. Refusals are results; an error aborts the run.
	Execute(ctx context.Context, call toolcall.ToolCall) (toolcall.Result, error)
}
