/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudetool

import (
	"encoding/json"
	"fmt"

	"chainguard.dev/ticketagent/agents/toolcall"
	"github.com/anthropics/anthropic-sdk-go"
)

// ToolParam converts a definition into an Anthropic tool declaration.
func ToolParam(def toolcall.Definition) anthropic.ToolParam {
	props := make(map[string]any, len(def.Parameters))
	for _, p := range def.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[p.Name] = prop
	}
	return anthropic.ToolParam{
		Name:        def.Name,
		Description: anthropic.String(def.Description),
		InputSchema: anthropic.ToolInputSchemaParam{
			Type:       "object",
			Properties: props,
			Required:   def.Required(),
		},
	}
}

// Tools converts definitions into the tool list of a Messages request.
func Tools(defs []toolcall.Definition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		tp := ToolParam(d)
		out = append(out, anthropic.ToolUnionParam{OfTool: &tp})
	}
	return out
}

// FromToolUse converts a tool_use content block into a ToolCall.
func FromToolUse(id, name string, input json.RawMessage) (toolcall.ToolCall, error) {
	args := map[string]any{}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return toolcall.ToolCall{ID: id, Name: name}, fmt.Errorf("failed to parse tool input: %w", err)
		}
	}
	return toolcall.ToolCall{ID: id, Name: name, Args: args}, nil
}

// ToolUseBlock converts a ToolCall back into the assistant-side block, for
// replaying a transcript.
func ToolUseBlock(call toolcall.ToolCall) anthropic.ContentBlockParamUnion {
	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	return anthropic.ContentBlockParamUnion{
		OfToolUse: &anthropic.ToolUseBlockParam{
			ID:    call.ID,
			Name:  call.Name,
			Input: args,
		},
	}
}

// ResultBlock converts a Result into a tool_result block. Denials and error
// payloads are flagged as errors.
func ResultBlock(r toolcall.Result) anthropic.ContentBlockParamUnion {
	block := &anthropic.ToolResultBlockParam{
		ToolUseID: r.CallID,
		Content: []anthropic.ToolResultBlockParamContentUnion{{
			OfText: &anthropic.TextBlockParam{Text: r.JSON()},
		}},
	}
	if r.Denied || r.Reason() != "" {
		block.IsError = anthropic.Bool(true)
	}
	return anthropic.ContentBlockParamUnion{OfToolResult: block}
}
