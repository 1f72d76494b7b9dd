/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"chainguard.dev/ticketagent/agents/guard"
	"chainguard.dev/ticketagent/agents/promptbuilder"
	"chainguard.dev/ticketagent/ticket"
)

var systemPrompt = promptbuilder.MustNewPrompt(`You are a careful software engineer resolving a ticket in a web
application repository. You work only through the tools you are given.

Work in this order:
1. Call {{get_default_branch}}, then explore with {{list_files}}, {{search_code}} and
   {{read_file}} until you understand the code you need to change.
2. Call {{create_branch}} to create the working branch.
3. Make the smallest change that resolves the ticket. You must {{read_file}} a
   file before you {{update_file}} it, and {{update_file}} replaces the whole file,
   so send the complete new content. Use {{create_file}} for new files.
4. Call {{request_code_review}}. If the reviewer requests changes, address every
   issue and request another review.
5. When the review approves, call {{create_pull_request}} with a clear title and
   a body that references the ticket.

Tool calls in one response run in order, but do not issue calls that depend
on the result of another call in the same response.

A refused tool call returns an error code and a reason. Read the reason,
fix the problem, and continue. Do not repeat a refused call unchanged.`)

// buildSystemPrompt names the guarded tools in the workflow.
func buildSystemPrompt() (string, error) {
	p := systemPrompt
	for _, bind := range []func(*promptbuilder.Prompt) (*promptbuilder.Prompt, error){
		func(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
			return p.BindStringLiteral("get_default_branch", guard.ToolGetDefaultBranch)
		},
		func(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
			return p.BindStringLiteral("list_files", guard.ToolListFiles)
		},
		func(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
			return p.BindStringLiteral("search_code", guard.ToolSearchCode)
		},
		func(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
			return p.BindStringLiteral("read_file", guard.ToolReadFile)
		},
		func(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
			return p.BindStringLiteral("create_branch", guard.ToolCreateBranch)
		},
		func(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
			return p.BindStringLiteral("update_file", guard.ToolUpdateFile)
		},
		func(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
			return p.BindStringLiteral("create_file", guard.ToolCreateFile)
		},
		func(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
			return p.BindStringLiteral("request_code_review", guard.ToolRequestCodeReview)
		},
		func(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
			return p.BindStringLiteral("create_pull_request", guard.ToolCreatePullRequest)
		},
	} {
		var err error
		if p, err = bind(p); err != nil {
			return "", err
		}
	}
	return p.Build()
}

var userPrompt = promptbuilder.MustNewPrompt(`Resolve this ticket. Commit your work to the working branch named below.

{{ticket}}`)

// taskPrompt binds a ticket into the user prompt.
type taskPrompt struct {
	task *ticket.Task
}

// Bind implements promptbuilder.Bindable.
func (t taskPrompt) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	return p.BindYAML("ticket", struct {
		Ticket *ticket.Task `yaml:"ticket"`
		Branch string       `yaml:"working_branch"`
	}{t.task, t.task.Branch()})
}
