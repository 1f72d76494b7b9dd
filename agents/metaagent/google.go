/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metaagent

import (
	"context"
	"fmt"

	"chainguard.dev/ticketagent/agents/executor/googleexecutor"
	"google.golang.org/genai"
)

func newGoogleProvider(ctx context.Context, projectID, region, model string, config Config) (Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Google AI client: %w", err)
	}

	opts := []googleexecutor.Option{
		googleexecutor.WithModel(model),
		googleexecutor.WithTemperature(float32(config.temperature())),
		googleexecutor.WithMaxOutputTokens(32768),
		googleexecutor.WithResourceLabels(config.ResourceLabels),
	}
	if config.ThinkingBudget != 0 {
		opts = append(opts, googleexecutor.WithThinking(int32(config.ThinkingBudget)))
	}
	if config.Retry != nil {
		opts = append(opts, googleexecutor.WithRetryPolicy(*config.Retry))
	}

	m, err := googleexecutor.New(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Google executor: %w", err)
	}
	return m, nil
}
