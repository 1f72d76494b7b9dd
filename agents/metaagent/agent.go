/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metaagent

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/ticketagent/agents/agentloop"
	"chainguard.dev/ticketagent/agents/reviewgate"
)

// Provider is a configured model that can drive the agent loop and also
// serve as the review function.
type Provider interface {
	agentloop.Model
	reviewgate.Reviewer
}

// New creates a Provider for the given model.
// The model parameter determines which provider implementation is used:
//   - Models starting with "gemini-" use Google's Generative AI SDK
//   - Models starting with "claude-" use Anthropic's SDK via Vertex AI, or
//     the Anthropic API directly when config.AnthropicAPIKey is set
func New(ctx context.Context, projectID, region, model string, config Config) (Provider, error) {
	modelLower := strings.ToLower(model)

	switch {
	case strings.HasPrefix(modelLower, "gemini-"):
		return newGoogleProvider(ctx, projectID, region, model, config)
	case strings.HasPrefix(modelLower, "claude-"):
		return newClaudeProvider(ctx, projectID, region, model, config)
	default:
		return nil, fmt.Errorf("unsupported model: %s (expected gemini-* or claude-*)", model)
	}
}
