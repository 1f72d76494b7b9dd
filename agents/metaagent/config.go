/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metaagent

import "chainguard.dev/ticketagent/agents/executor/retry"

// Config tunes the provider built by New. The zero value is usable.
type Config struct {
	// Temperature for both agent turns and reviews. Zero selects 0.2.
	Temperature float64

	// ThinkingBudget enables extended thinking when positive.
	// For Gemini, -1 selects dynamic thinking.
	ThinkingBudget int64

	// AnthropicAPIKey talks to the Anthropic API directly instead of
	// through Vertex AI. Ignored for Gemini models.
	AnthropicAPIKey string

	// ResourceLabels are attached to Vertex AI Gemini requests.
	ResourceLabels map[string]string

	// Retry overrides the default retry policy for model calls.
	Retry *retry.Policy
}

func (c Config) temperature() float64 {
	if c.Temperature == 0 {
		return 0.2
	}
	return c.Temperature
}
