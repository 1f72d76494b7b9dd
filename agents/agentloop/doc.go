/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package agentloop drives a bounded, multi-turn conversation between a
// tool-calling Model and an Executor.
//
// Each turn sends the full Transcript and the executor's tool declarations
// to the model. A response with tool calls is executed call by call, in
// issue order, and the results are appended as one tool turn. A response
// without calls ends the run, unless it was truncated, in which case the
// model is asked to continue.
//
// A run ends as:
//
//   - completed: the model stopped on its own, or a tool result was terminal
//   - exhausted: the turn budget ran out or the context was done
//   - failed: the model or the executor returned an error
//
// Exhaustion is not an error. Whatever the executor committed before the
// run stopped stays committed.
//
// # Usage
//
//	loop, err := agentloop.New(model,
//		agentloop.WithBudget(25),
//		agentloop.WithSystemPrompt(system),
//	)
//	if err != nil {
//		return err
//	}
//	run, err := loop.Run(ctx, exec, prompt)
//
// Package looptest provides a scripted Model for tests.
package agentloop
