/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metaagent builds the model behind a task from its name.
//
// A Provider drives the agent loop (agentloop.Model) and also answers the
// review gate (reviewgate.Reviewer), so one configured model covers both.
//
// # Model Support
//
//   - Models starting with "gemini-" use Google's Generative AI SDK on Vertex AI
//   - Models starting with "claude-" use Anthropic's SDK via Vertex AI, or
//     the Anthropic API when an API key is configured
//
// # Usage
//
//	provider, err := metaagent.New(ctx, projectID, region, "claude-sonnet-4@20250514", metaagent.Config{})
//	if err != nil {
//		return err
//	}
//	gate, err := reviewgate.New(provider)
//	...
//	loop, err := agentloop.New(provider, agentloop.WithSystemPrompt(system))
package metaagent
