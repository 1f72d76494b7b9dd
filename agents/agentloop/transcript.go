/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agentloop

import "chainguard.dev/ticketagent/agents/toolcall"

// Role identifies who produced a transcript turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	// RoleTool turns carry the results of the preceding model turn's calls.
	RoleTool Role = "tool"
)

// Turn is one entry of a Transcript.
type Turn struct {
	Role    Role
	Text    string
	Calls   []toolcall.ToolCall
	Results []toolcall.Result
	Raw     any
}

// Transcript is the full conversation, oldest first. Every model turn with
// calls is followed by exactly one tool turn holding a result per call, in
// call order, unless the run ended while that batch was executing.
type Transcript []Turn

// ToolCalls counts the calls issued across the transcript.
func (t Transcript) ToolCalls() int {
	n := 0
	for _, turn := range t {
		n += len(turn.Calls)
	}
	return n
}

// Denials returns every denied result in the transcript.
func (t Transcript) Denials() []toolcall.Result {
	var out []toolcall.Result
	for _, turn := range t {
		for _, r := range turn.Results {
			if r.Denied {
				out = append(out, r)
			}
		}
	}
	return out
}
