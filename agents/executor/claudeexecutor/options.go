/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"fmt"
	"strings"

	"chainguard.dev/ticketagent/agents/executor/retry"
)

// Option is a functional option for configuring a Model.
type Option func(*Model) error

// WithMaxTokens sets the maximum tokens for responses
func WithMaxTokens(tokens int64) Option {
	return func(m *Model) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		if tokens > 32000 { // Maximum for Opus
			return fmt.Errorf("max tokens %d exceeds maximum of 32000", tokens)
		}
		m.maxTokens = tokens
		return nil
	}
}

// WithTemperature sets the temperature for responses.
// Claude models support temperature values from 0.0 to 1.0.
func WithTemperature(temp float64) Option {
	return func(m *Model) error {
		if temp < 0.0 || temp > 1.0 {
			return fmt.Errorf("temperature must be between 0.0 and 1.0, got %f", temp)
		}
		m.temperature = temp
		return nil
	}
}

// WithModel allows overriding the model name
func WithModel(model string) Option {
	return func(m *Model) error {
		if !strings.HasPrefix(model, "claude-") {
			return fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", model)
		}
		m.modelName = model
		return nil
	}
}

// WithThinking enables extended thinking mode with the specified token budget.
// The budget must be at least 1024 and less than max tokens, so apply
// WithMaxTokens first.
func WithThinking(budgetTokens int64) Option {
	return func(m *Model) error {
		if budgetTokens < 1024 {
			return fmt.Errorf("thinking budget_tokens must be at least 1024, got %d", budgetTokens)
		}
		if budgetTokens >= m.maxTokens {
			return fmt.Errorf("thinking budget_tokens (%d) must be less than max_tokens (%d)", budgetTokens, m.maxTokens)
		}
		m.thinkingBudgetTokens = &budgetTokens
		return nil
	}
}

// WithRetryPolicy sets how Claude calls failing with 429 or 529 are repeated.
func WithRetryPolicy(cfg retry.Policy) Option {
	return func(m *Model) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		m.retryPolicy = cfg
		return nil
	}
}
