/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudeexecutor adapts Anthropic Claude to the agent loop and to
// the review gate.
//
// A Model streams each turn from the Messages API, accumulating events into
// a single message, and converts it into an agentloop.Response. Transcript
// turns are rendered back into Messages API turns on every call; model turns
// are replayed from the provider's own message so that thinking blocks keep
// their signatures.
//
// # Basic Usage
//
//	client := anthropic.NewClient(
//	    vertex.WithGoogleAuth(ctx, region, projectID),
//	)
//
//	model, err := claudeexecutor.New(client,
//	    claudeexecutor.WithModel("claude-sonnet-4-5@20250929"),
//	    claudeexecutor.WithMaxTokens(16000),
//	)
//	if err != nil {
//	    return nil, err
//	}
//
//	loop, err := agentloop.New(model)
//	gate, err := reviewgate.New(model)
//
// # Options
//
//   - WithModel: Override the default model (defaults to claude-sonnet-4@20250514)
//   - WithMaxTokens: Set maximum response tokens (defaults to 8192, max 32000)
//   - WithTemperature: Set response temperature (defaults to 0.1)
//   - WithThinking: Enable extended thinking mode with a token budget
//   - WithRetryPolicy: Tune repeats of 429 and 529 responses
//
// # Extended Thinking
//
// When thinking is enabled, reasoning blocks are returned in
// Response.Reasoning and recorded on the session trace. Temperature is
// forced to 1.0 as required by the Claude API. See:
// https://docs.claude.com/en/docs/build-with-claude/extended-thinking
package claudeexecutor
