/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chainguard.dev/ticketagent/agents/agentloop"
	"chainguard.dev/ticketagent/agents/executor/retry"
	"chainguard.dev/ticketagent/agents/toolcall"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/go-cmp/cmp"
)

const toolUseMessage = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4@20250514",
  "content": [
    {"type": "thinking", "thinking": "The footer lives in src.", "signature": "sig"},
    {"type": "text", "text": "Let me look at the footer."},
    {"type": "tool_use", "id": "toolu_1", "name": "read_file", "input": {"path": "src/Footer.tsx"}}
  ],
  "stop_reason": "tool_use",
  "stop_sequence": null,
  "usage": {"input_tokens": 120, "output_tokens": 30}
}`

func TestFromMessage(t *testing.T) {
	var msg anthropic.Message
	if err := json.Unmarshal([]byte(toolUseMessage), &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	resp := fromMessage(context.Background(), &msg)

	if resp.Text != "Let me look at the footer." {
		t.Errorf("text: %q", resp.Text)
	}
	if resp.Stop != agentloop.StopToolUse {
		t.Errorf("stop: %s", resp.Stop)
	}
	if diff := cmp.Diff(agentloop.Usage{InputTokens: 120, OutputTokens: 30}, resp.Usage); diff != "" {
		t.Errorf("usage (-want +got):\n%s", diff)
	}
	want := []toolcall.ToolCall{{ID: "toolu_1", Name: "read_file", Args: map[string]any{"path": "src/Footer.tsx"}}}
	if diff := cmp.Diff(want, resp.Calls); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"The footer lives in src."}, resp.Reasoning); diff != "" {
		t.Errorf("reasoning (-want +got):\n%s", diff)
	}
	if _, ok := resp.Raw.(anthropic.MessageParam); !ok {
		t.Errorf("raw: got %T, want anthropic.MessageParam", resp.Raw)
	}
}

func TestToMessages(t *testing.T) {
	call := toolcall.ToolCall{ID: "toolu_1", Name: "read_file", Args: map[string]any{"path": "a"}}
	replayed := anthropic.NewAssistantMessage(anthropic.NewTextBlock("replayed"))

	transcript := agentloop.Transcript{
		{Role: agentloop.RoleUser, Text: "fix the footer"},
		{Role: agentloop.RoleModel, Text: "looking", Calls: []toolcall.ToolCall{call}},
		{Role: agentloop.RoleTool, Results: []toolcall.Result{
			toolcall.Deny(call, "read_required", "read first"),
		}},
		{Role: agentloop.RoleModel, Raw: replayed},
	}

	msgs := toMessages(transcript)
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}

	roles := []anthropic.MessageParamRole{msgs[0].Role, msgs[1].Role, msgs[2].Role, msgs[3].Role}
	wantRoles := []anthropic.MessageParamRole{
		anthropic.MessageParamRoleUser, anthropic.MessageParamRoleAssistant,
		anthropic.MessageParamRoleUser, anthropic.MessageParamRoleAssistant,
	}
	if diff := cmp.Diff(wantRoles, roles); diff != "" {
		t.Errorf("roles (-want +got):\n%s", diff)
	}

	if n := len(msgs[1].Content); n != 2 || msgs[1].Content[1].OfToolUse == nil || msgs[1].Content[1].OfToolUse.ID != "toolu_1" {
		t.Errorf("assistant content: %+v", msgs[1].Content)
	}
	result := msgs[2].Content[0].OfToolResult
	if result == nil || result.ToolUseID != "toolu_1" || !result.IsError.Value {
		t.Errorf("tool result: %+v", result)
	}
	if got := msgs[3].Content[0].OfText; got == nil || got.Text != "replayed" {
		t.Errorf("raw turn was not replayed: %+v", msgs[3].Content)
	}
}

func newTestModel(t *testing.T, handler http.HandlerFunc) *Model {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := anthropic.NewClient(
		option.WithBaseURL(srv.URL+"/"),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)
	m, err := New(client, WithModel("claude-test"), WithRetryPolicy(retry.Policy{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestReview(t *testing.T) {
	var body map[string]any
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
			return
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
  "id": "msg_2", "type": "message", "role": "assistant", "model": "claude-test",
  "content": [{"type": "text", "text": "{\"approved\": true, \"summary\": \"ok\", \"issues\": []}"}],
  "stop_reason": "end_turn", "stop_sequence": null,
  "usage": {"input_tokens": 50, "output_tokens": 10}
}`)
	})

	got, err := m.Review(context.Background(), "be strict", "review this")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if got != `{"approved": true, "summary": "ok", "issues": []}` {
		t.Errorf("reply: %q", got)
	}
	if body["model"] != "claude-test" {
		t.Errorf("model sent: %v", body["model"])
	}
	if _, ok := body["tools"]; ok {
		t.Error("review request carried tools")
	}
}

func TestReviewError(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type": "error", "error": {"type": "invalid_request_error", "message": "bad"}}`)
	})
	if _, err := m.Review(context.Background(), "s", "p"); err == nil {
		t.Fatal("Review: got nil error")
	}
}

func TestOptions(t *testing.T) {
	client := anthropic.NewClient(option.WithAPIKey("test"))
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{name: "defaults"},
		{name: "thinking within max tokens", opts: []Option{WithMaxTokens(16000), WithThinking(4096)}},
		{name: "thinking too small", opts: []Option{WithThinking(512)}, wantErr: true},
		{name: "thinking exceeds max tokens", opts: []Option{WithMaxTokens(2048), WithThinking(4096)}, wantErr: true},
		{name: "not a claude model", opts: []Option{WithModel("gemini-2.5-pro")}, wantErr: true},
		{name: "temperature out of range", opts: []Option{WithTemperature(1.5)}, wantErr: true},
		{name: "negative retries", opts: []Option{WithRetryPolicy(retry.Policy{Retries: -1})}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(client, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New: err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
