/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudetool_test

import (
	"encoding/json"
	"testing"

	"chainguard.dev/ticketagent/agents/toolcall"
	"chainguard.dev/ticketagent/agents/toolcall/claudetool"
	"github.com/google/go-cmp/cmp"
)

func TestToolParam(t *testing.T) {
	def := toolcall.Definition{
		Name:        "write_file",
		Description: "Write a file",
		Parameters: []toolcall.Parameter{
			{Name: "path", Type: "string", Description: "The path", Required: true},
			{Name: "mode", Type: "string", Enum: []string{"create", "update"}},
		},
	}

	tp := claudetool.ToolParam(def)
	if tp.Name != "write_file" {
		t.Errorf("got name %q, want %q", tp.Name, "write_file")
	}

	props, ok := tp.InputSchema.Properties.(map[string]any)
	if !ok {
		t.Fatal("properties is not map[string]any")
	}
	if len(props) != 2 {
		t.Errorf("got %d properties, want 2", len(props))
	}
	mode := props["mode"].(map[string]any)
	if diff := cmp.Diff([]string{"create", "update"}, mode["enum"]); diff != "" {
		t.Errorf("enum mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"path"}, tp.InputSchema.Required); diff != "" {
		t.Errorf("required mismatch (-want +got):\n%s", diff)
	}

	tools := claudetool.Tools([]toolcall.Definition{def, {Name: "other"}})
	if len(tools) != 2 || tools[1].OfTool == nil || tools[1].OfTool.Name != "other" {
		t.Errorf("Tools: got %+v", tools)
	}
}

func TestFromToolUse(t *testing.T) {
	call, err := claudetool.FromToolUse("toolu_1", "read_file", json.RawMessage(`{"path":"footer.tsx"}`))
	if err != nil {
		t.Fatalf("FromToolUse: %v", err)
	}
	want := toolcall.ToolCall{ID: "toolu_1", Name: "read_file", Args: map[string]any{"path": "footer.tsx"}}
	if diff := cmp.Diff(want, call); diff != "" {
		t.Errorf("FromToolUse mismatch (-want +got):\n%s", diff)
	}

	if _, err := claudetool.FromToolUse("toolu_2", "read_file", json.RawMessage(`{not json`)); err == nil {
		t.Error("malformed input: got nil error")
	}
}

func TestResultBlock(t *testing.T) {
	call := toolcall.ToolCall{ID: "toolu_1", Name: "update_file"}

	ok := claudetool.ResultBlock(toolcall.Success(call, map[string]any{"committed": true}))
	if ok.OfToolResult == nil || ok.OfToolResult.ToolUseID != "toolu_1" {
		t.Fatalf("ResultBlock: got %+v", ok)
	}
	if ok.OfToolResult.IsError.Valid() {
		t.Error("success result must not be flagged as error")
	}
	if got := ok.OfToolResult.Content[0].OfText.Text; got != `{"committed":true}` {
		t.Errorf("content: got %s", got)
	}

	denied := claudetool.ResultBlock(toolcall.Deny(call, "read_required", "must read before update"))
	if !denied.OfToolResult.IsError.Value {
		t.Error("denial must be flagged as error")
	}
}
