/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metaagent

import (
	"context"
	"fmt"

	"chainguard.dev/ticketagent/agents/executor/claudeexecutor"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
)

func newClaudeProvider(ctx context.Context, projectID, region, model string, config Config) (Provider, error) {
	var client anthropic.Client
	if config.AnthropicAPIKey != "" {
		client = anthropic.NewClient(option.WithAPIKey(config.AnthropicAPIKey))
	} else {
		client = anthropic.NewClient(
			vertex.WithGoogleAuth(ctx, region, projectID),
		)
	}

	opts := []claudeexecutor.Option{
		claudeexecutor.WithModel(model),
		claudeexecutor.WithTemperature(config.temperature()),
		claudeexecutor.WithMaxTokens(32000),
	}
	if config.ThinkingBudget > 0 {
		opts = append(opts, claudeexecutor.WithThinking(config.ThinkingBudget))
	}
	if config.Retry != nil {
		opts = append(opts, claudeexecutor.WithRetryPolicy(*config.Retry))
	}

	m, err := claudeexecutor.New(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Claude executor: %w", err)
	}
	return m, nil
}
