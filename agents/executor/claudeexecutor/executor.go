/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/ticketagent/agents/agentloop"
	"chainguard.dev/ticketagent/agents/executor/retry"
	"chainguard.dev/ticketagent/agents/toolcall"
	"chainguard.dev/ticketagent/agents/toolcall/claudetool"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

// Model is a Claude model usable both as an agentloop.Model and as a
// single-shot reviewer.
type Model struct {
	client               anthropic.Client
	modelName            string
	maxTokens            int64
	temperature          float64
	thinkingBudgetTokens *int64 // nil = disabled, non-nil = enabled with budget
	retryPolicy          retry.Policy
}

var _ agentloop.Model = (*Model)(nil)

// New creates a Model with the given client.
func New(client anthropic.Client, opts ...Option) (*Model, error) {
	m := &Model{
		client:      client,
		modelName:   "claude-sonnet-4@20250514", // Default to Sonnet 4
		maxTokens:   8192,
		temperature: 0.1,
		retryPolicy: retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return m, nil
}

// Name implements agentloop.Model.
func (m *Model) Name() string { return m.modelName }

func (m *Model) params(system string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(m.modelName),
		MaxTokens:   m.maxTokens,
		Temperature: anthropic.Float(m.temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	// Temperature must be 1.0 when thinking is enabled.
	if m.thinkingBudgetTokens != nil {
		params.Temperature = anthropic.Float(1.0)
		params.Thinking = anthropic.ThinkingConfigParamUnion{
			OfEnabled: &anthropic.ThinkingConfigEnabledParam{
				BudgetTokens: *m.thinkingBudgetTokens,
			},
		}
	}
	return params
}

// Generate implements agentloop.Model. The response is streamed and
// accumulated; transient API errors are retried with backoff.
func (m *Model) Generate(ctx context.Context, system string, transcript agentloop.Transcript, tools []toolcall.Definition) (*agentloop.Response, error) {
	params := m.params(system)
	params.Messages = toMessages(transcript)
	params.Tools = claudetool.Tools(tools)

	message, err := retry.Do(ctx, m.retryPolicy, "claude.generate", IsRetryable, func() (anthropic.Message, error) {
		stream := m.client.Messages.NewStreaming(ctx, params)
		var msg anthropic.Message
		for stream.Next() {
			if err := msg.Accumulate(stream.Current()); err != nil {
				return msg, fmt.Errorf("failed to accumulate event: %w", err)
			}
		}
		return msg, stream.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stream Claude response: %w", err)
	}
	return fromMessage(ctx, &message), nil
}

// Review sends one prompt without tools and returns the text reply.
func (m *Model) Review(ctx context.Context, system, prompt string) (string, error) {
	params := m.params(system)
	params.Messages = []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))}

	message, err := retry.Do(ctx, m.retryPolicy, "claude.review", IsRetryable, func() (*anthropic.Message, error) {
		return m.client.Messages.New(ctx, params)
	})
	if err != nil {
		return "", fmt.Errorf("failed to get Claude review: %w", err)
	}
	resp := fromMessage(ctx, message)
	if resp.Text == "" {
		return "", errors.New("no text content in Claude's response")
	}
	return resp.Text, nil
}

// toMessages renders a transcript as Messages API turns. Model turns that
// carry their original message are replayed verbatim so thinking blocks
// keep their signatures.
func toMessages(t agentloop.Transcript) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(t))
	for _, turn := range t {
		switch turn.Role {
		case agentloop.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Text)))

		case agentloop.RoleModel:
			if raw, ok := turn.Raw.(anthropic.MessageParam); ok {
				out = append(out, raw)
				continue
			}
			var blocks []anthropic.ContentBlockParamUnion
			if turn.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(turn.Text))
			}
			for _, c := range turn.Calls {
				blocks = append(blocks, claudetool.ToolUseBlock(c))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))

		case agentloop.RoleTool:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(turn.Results))
			for _, r := range turn.Results {
				blocks = append(blocks, claudetool.ResultBlock(r))
			}
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func fromMessage(ctx context.Context, message *anthropic.Message) *agentloop.Response {
	resp := &agentloop.Response{
		Usage: agentloop.Usage{InputTokens: message.Usage.InputTokens, OutputTokens: message.Usage.OutputTokens},
		Raw:   message.ToParam(),
	}

	var text []string
	for _, content := range message.Content {
		switch content.Type {
		case "text":
			text = append(text, content.Text)
		case "tool_use":
			call, err := claudetool.FromToolUse(content.ID, content.Name, content.Input)
			if err != nil {
				// The executor denies the call for its missing arguments.
				clog.FromContext(ctx).With("tool", content.Name).With("error", err).Warn("Malformed tool input")
			}
			resp.Calls = append(resp.Calls, call)
		case "thinking", "redacted_thinking":
			resp.Reasoning = append(resp.Reasoning, content.Thinking)
		}
	}
	resp.Text = strings.Join(text, "\n")

	switch message.StopReason {
	case anthropic.StopReasonToolUse:
		resp.Stop = agentloop.StopToolUse
	case anthropic.StopReasonMaxTokens:
		resp.Stop = agentloop.StopMaxTokens
	default:
		resp.Stop = agentloop.StopEnd
	}
	return resp
}
