/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"chainguard.dev/ticketagent/agents/executor/retry"
)

// Option is a functional option for configuring a Model.
type Option func(*Model) error

// WithModel sets the model to use for generation
func WithModel(model string) Option {
	return func(m *Model) error {
		if !strings.HasPrefix(model, "gemini-") {
			return fmt.Errorf("model %q does not appear to be a Gemini model (expected gemini-* format)", model)
		}
		m.model = model
		return nil
	}
}

// WithTemperature sets the temperature for generation.
// Gemini models support temperature values from 0.0 to 2.0.
func WithTemperature(temperature float32) Option {
	return func(m *Model) error {
		if temperature < 0.0 || temperature > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temperature)
		}
		m.temperature = temperature
		return nil
	}
}

// WithMaxOutputTokens sets the maximum output tokens for generation
func WithMaxOutputTokens(tokens int32) Option {
	return func(m *Model) error {
		if tokens <= 0 {
			return fmt.Errorf("max output tokens must be positive, got %d", tokens)
		}
		if tokens > 32768 {
			return fmt.Errorf("max output tokens %d exceeds maximum of 32768", tokens)
		}
		m.maxOutputTokens = tokens
		return nil
	}
}

// WithThinking enables thinking mode with the specified token budget.
// Special value -1 enables dynamic thinking where the model adjusts based on complexity.
// See https://ai.google.dev/gemini-api/docs/thinking
func WithThinking(budgetTokens int32) Option {
	return func(m *Model) error {
		if budgetTokens == -1 {
			m.thinkingBudget = &budgetTokens
			return nil
		}
		if budgetTokens <= 0 {
			return fmt.Errorf("thinking budget must be positive (or -1 for dynamic), got %d", budgetTokens)
		}
		// The API counts thoughts_token_count + output_token_count together against the limit.
		if budgetTokens >= m.maxOutputTokens {
			return fmt.Errorf("thinking budget (%d) must be less than max_output_tokens (%d)", budgetTokens, m.maxOutputTokens)
		}
		m.thinkingBudget = &budgetTokens
		return nil
	}
}

// WithRetryPolicy sets how Gemini calls failing with RESOURCE_EXHAUSTED or a
// server error are repeated.
func WithRetryPolicy(cfg retry.Policy) Option {
	return func(m *Model) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		m.retryPolicy = cfg
		return nil
	}
}

// WithResourceLabels sets labels that are sent with each Vertex AI API request.
// Automatically includes default labels from environment variables:
//   - service_name: from K_SERVICE (defaults to "unknown")
//   - product: from CHAINGUARD_PRODUCT (defaults to "unknown")
//   - team: from CHAINGUARD_TEAM (defaults to "unknown")
//
// Custom labels passed to this function will override defaults if they use the same keys.
// Labels are only accepted by the Vertex AI backend.
func WithResourceLabels(labels map[string]string) Option {
	return func(m *Model) error {
		m.resourceLabels = map[string]string{
			"service_name": envOr("K_SERVICE", "unknown"),
			"product":      envOr("CHAINGUARD_PRODUCT", "unknown"),
			"team":         envOr("CHAINGUARD_TEAM", "unknown"),
		}
		maps.Copy(m.resourceLabels, labels)
		return nil
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
