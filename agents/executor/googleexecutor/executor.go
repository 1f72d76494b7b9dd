/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/ticketagent/agents/agentloop"
	"chainguard.dev/ticketagent/agents/executor/retry"
	"chainguard.dev/ticketagent/agents/toolcall"
	"chainguard.dev/ticketagent/agents/toolcall/googletool"
	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"
)

// syntheticIDPrefix marks call IDs made up for function calls that arrived
// without one. They are never sent back to the API.
const syntheticIDPrefix = "gemini-call-"

// Model is a Gemini model usable both as an agentloop.Model and as a
// single-shot reviewer.
type Model struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
	thinkingBudget  *int32 // nil = disabled, non-nil = enabled with budget
	resourceLabels  map[string]string
	retryPolicy     retry.Policy
}

var _ agentloop.Model = (*Model)(nil)

// New creates a Gemini Model.
func New(client *genai.Client, opts ...Option) (*Model, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	m := &Model{
		client:          client,
		model:           "gemini-2.5-flash", // Default to Gemini 2.5 Flash
		temperature:     0.1,
		maxOutputTokens: 8192,
		retryPolicy:     retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return m, nil
}

// Name implements agentloop.Model.
func (m *Model) Name() string { return m.model }

func (m *Model) config(system string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(m.temperature),
		MaxOutputTokens: m.maxOutputTokens,
		Labels:          m.resourceLabels,
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if m.thinkingBudget != nil {
		config.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  m.thinkingBudget,
		}
	}
	return config
}

func (m *Model) generate(ctx context.Context, operation string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return retry.Do(ctx, m.retryPolicy, operation, IsRetryable, func() (*genai.GenerateContentResponse, error) {
		return m.client.Models.GenerateContent(ctx, m.model, contents, config)
	})
}

// Generate implements agentloop.Model. A malformed function call is
// retried once with a reminder of the available functions.
func (m *Model) Generate(ctx context.Context, system string, transcript agentloop.Transcript, tools []toolcall.Definition) (*agentloop.Response, error) {
	log := clog.FromContext(ctx)
	config := m.config(system)
	if len(tools) > 0 {
		config.Tools = googletool.Tools(tools)
	}
	contents := toContents(transcript)

	var usage agentloop.Usage
	for attempt := 0; ; attempt++ {
		response, err := m.generate(ctx, "gemini.generate", contents, config)
		if err != nil {
			return nil, fmt.Errorf("failed to generate content: %w", err)
		}
		if response.UsageMetadata != nil {
			usage.InputTokens += int64(response.UsageMetadata.PromptTokenCount)
			usage.OutputTokens += int64(response.UsageMetadata.CandidatesTokenCount)
		}
		if len(response.Candidates) == 0 {
			return nil, errors.New("no content generated - no candidates")
		}

		candidate := response.Candidates[0]
		if candidate.FinishReason == genai.FinishReasonMalformedFunctionCall {
			log.With("finish_message", candidate.FinishMessage).
				Warn("Model attempted a malformed function call, asking it to retry")
			if attempt > 0 {
				// Let the loop nudge the model on its next turn.
				return &agentloop.Response{Stop: agentloop.StopMaxTokens, Usage: usage}, nil
			}
			names := make([]string, 0, len(tools))
			for _, d := range tools {
				names = append(names, d.Name)
			}
			contents = append(contents, genai.NewContentFromText(
				fmt.Sprintf("The function call was malformed. Please try again using the available functions: %v", names),
				genai.RoleUser))
			continue
		}

		resp := fromCandidate(ctx, candidate, len(transcript))
		resp.Usage = usage
		return resp, nil
	}
}

// Review sends one prompt without tools, asking for a JSON reply.
func (m *Model) Review(ctx context.Context, system, prompt string) (string, error) {
	config := m.config(system)
	config.ResponseMIMEType = "application/json"

	response, err := m.generate(ctx, "gemini.review", genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to get Gemini review: %w", err)
	}
	text := response.Text()
	if text == "" {
		return "", errors.New("no text content found in response")
	}
	return text, nil
}

func toContents(t agentloop.Transcript) []*genai.Content {
	out := make([]*genai.Content, 0, len(t))
	for _, turn := range t {
		switch turn.Role {
		case agentloop.RoleUser:
			out = append(out, genai.NewContentFromText(turn.Text, genai.RoleUser))

		case agentloop.RoleModel:
			if raw, ok := turn.Raw.(*genai.Content); ok && raw != nil {
				out = append(out, raw)
				continue
			}
			var parts []*genai.Part
			if turn.Text != "" {
				parts = append(parts, genai.NewPartFromText(turn.Text))
			}
			for _, c := range turn.Calls {
				p := googletool.FunctionCall(c)
				if strings.HasPrefix(c.ID, syntheticIDPrefix) {
					p.FunctionCall.ID = ""
				}
				parts = append(parts, p)
			}
			out = append(out, genai.NewContentFromParts(parts, genai.RoleModel))

		case agentloop.RoleTool:
			parts := make([]*genai.Part, 0, len(turn.Results))
			for _, r := range turn.Results {
				p := googletool.FunctionResponse(r)
				if strings.HasPrefix(r.CallID, syntheticIDPrefix) {
					p.FunctionResponse.ID = ""
				}
				parts = append(parts, p)
			}
			out = append(out, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	}
	return out
}

// fromCandidate converts a candidate. turn seeds synthetic call IDs so they
// are unique within a transcript.
func fromCandidate(ctx context.Context, candidate *genai.Candidate, turn int) *agentloop.Response {
	log := clog.FromContext(ctx)
	resp := &agentloop.Response{Stop: agentloop.StopEnd}
	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		resp.Stop = agentloop.StopMaxTokens
	}
	if candidate.Content == nil {
		return resp
	}
	resp.Raw = candidate.Content

	var text []string
	for i, part := range candidate.Content.Parts {
		switch {
		case part.Thought:
			resp.Reasoning = append(resp.Reasoning, part.Text)
		case part.FunctionCall != nil:
			call := googletool.FromFunctionCall(part.FunctionCall)
			if call.ID == "" {
				call.ID = fmt.Sprintf("%s%d-%d", syntheticIDPrefix, turn, i)
			}
			resp.Calls = append(resp.Calls, call)
		case part.Text != "":
			text = append(text, part.Text)
		default:
			log.With("part_index", i).Warn("Found part with unexpected content")
		}
	}
	resp.Text = strings.Join(text, "\n")
	if len(resp.Calls) > 0 {
		resp.Stop = agentloop.StopToolUse
	}
	return resp
}
