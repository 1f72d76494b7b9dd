/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googletool

import (
	"chainguard.dev/ticketagent/agents/toolcall"
	"google.golang.org/genai"
)

// Declaration converts a definition into a Gemini function declaration.
func Declaration(def toolcall.Definition) *genai.FunctionDeclaration {
	props := make(map[string]*genai.Schema, len(def.Parameters))
	for _, p := range def.Parameters {
		props[p.Name] = &genai.Schema{
			Type:        schemaType(p.Type),
			Description: p.Description,
			Enum:        p.Enum,
		}
	}
	return &genai.FunctionDeclaration{
		Name:        def.Name,
		Description: def.Description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   def.Required(),
		},
	}
}

// Tools wraps all definitions into the single Tool a GenerateContent request expects.
func Tools(defs []toolcall.Definition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		decls = append(decls, Declaration(d))
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// FromFunctionCall converts a Gemini function call into a ToolCall.
func FromFunctionCall(fc *genai.FunctionCall) toolcall.ToolCall {
	args := fc.Args
	if args == nil {
		args = map[string]any{}
	}
	return toolcall.ToolCall{ID: fc.ID, Name: fc.Name, Args: args}
}

// FunctionCall converts a ToolCall back into a model-side part, for
// replaying a transcript.
func FunctionCall(call toolcall.ToolCall) *genai.Part {
	return &genai.Part{FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: call.Args}}
}

// FunctionResponse converts a Result into a user-side part.
func FunctionResponse(r toolcall.Result) *genai.Part {
	return &genai.Part{FunctionResponse: &genai.FunctionResponse{
		ID:       r.CallID,
		Name:     r.Name,
		Response: r.Payload,
	}}
}

func schemaType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
