/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googletool_test

import (
	"testing"

	"chainguard.dev/ticketagent/agents/toolcall"
	"chainguard.dev/ticketagent/agents/toolcall/googletool"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"
)

func TestDeclaration(t *testing.T) {
	def := toolcall.Definition{
		Name:        "search_code",
		Description: "Search the repository",
		Parameters: []toolcall.Parameter{
			{Name: "query", Type: "string", Description: "Text to find", Required: true},
			{Name: "limit", Type: "integer"},
			{Name: "exact", Type: "boolean"},
		},
	}

	decl := googletool.Declaration(def)
	if decl.Name != "search_code" {
		t.Errorf("got name %q, want %q", decl.Name, "search_code")
	}
	if decl.Parameters.Type != genai.TypeObject {
		t.Errorf("got type %v, want object", decl.Parameters.Type)
	}
	for name, want := range map[string]genai.Type{
		"query": genai.TypeString,
		"limit": genai.TypeInteger,
		"exact": genai.TypeBoolean,
	} {
		if got := decl.Parameters.Properties[name].Type; got != want {
			t.Errorf("%s type: got %v, want %v", name, got, want)
		}
	}
	if diff := cmp.Diff([]string{"query"}, decl.Parameters.Required); diff != "" {
		t.Errorf("required mismatch (-want +got):\n%s", diff)
	}

	tools := googletool.Tools([]toolcall.Definition{def, {Name: "other"}})
	if len(tools) != 1 || len(tools[0].FunctionDeclarations) != 2 {
		t.Errorf("Tools: got %d tools", len(tools))
	}
}

func TestRoundTrip(t *testing.T) {
	call := googletool.FromFunctionCall(&genai.FunctionCall{ID: "c1", Name: "read_file", Args: map[string]any{"path": "a.go"}})
	want := toolcall.ToolCall{ID: "c1", Name: "read_file", Args: map[string]any{"path": "a.go"}}
	if diff := cmp.Diff(want, call); diff != "" {
		t.Errorf("FromFunctionCall mismatch (-want +got):\n%s", diff)
	}

	if got := googletool.FromFunctionCall(&genai.FunctionCall{Name: "get_default_branch"}); got.Args == nil {
		t.Error("nil args must become an empty map")
	}

	part := googletool.FunctionResponse(toolcall.Deny(call, "read_required", "must read"))
	if part.FunctionResponse.ID != "c1" || part.FunctionResponse.Response["denied"] != true {
		t.Errorf("FunctionResponse: got %+v", part.FunctionResponse)
	}
}
