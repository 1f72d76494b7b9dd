/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

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
	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"
)

func TestFromCandidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate *genai.Candidate
		want      *agentloop.Response
	}{{
		name: "text",
		candidate: &genai.Candidate{
			FinishReason: genai.FinishReasonStop,
			Content:      genai.NewContentFromText("done", genai.RoleModel),
		},
		want: &agentloop.Response{Text: "done", Stop: agentloop.StopEnd},
	}, {
		name: "calls get synthetic ids",
		candidate: &genai.Candidate{
			FinishReason: genai.FinishReasonStop,
			Content: genai.NewContentFromParts([]*genai.Part{
				{Text: "thinking about the footer", Thought: true},
				genai.NewPartFromText("reading"),
				{FunctionCall: &genai.FunctionCall{Name: "read_file", Args: map[string]any{"path": "a"}}},
				{FunctionCall: &genai.FunctionCall{ID: "fc-9", Name: "list_files"}},
			}, genai.RoleModel),
		},
		want: &agentloop.Response{
			Text:      "reading",
			Stop:      agentloop.StopToolUse,
			Reasoning: []string{"thinking about the footer"},
			Calls: []toolcall.ToolCall{
				{ID: "gemini-call-3-2", Name: "read_file", Args: map[string]any{"path": "a"}},
				{ID: "fc-9", Name: "list_files", Args: map[string]any{}},
			},
		},
	}, {
		name: "max tokens",
		candidate: &genai.Candidate{
			FinishReason: genai.FinishReasonMaxTokens,
			Content:      genai.NewContentFromText("half", genai.RoleModel),
		},
		want: &agentloop.Response{Text: "half", Stop: agentloop.StopMaxTokens},
	}, {
		name:      "no content",
		candidate: &genai.Candidate{FinishReason: genai.FinishReasonSafety},
		want:      &agentloop.Response{Stop: agentloop.StopEnd},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fromCandidate(context.Background(), tt.candidate, 3)
			if got.Raw != nil && got.Raw != tt.candidate.Content {
				t.Errorf("raw: got %v, want candidate content", got.Raw)
			}
			got.Raw = nil
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("fromCandidate (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToContents(t *testing.T) {
	synthetic := toolcall.ToolCall{ID: "gemini-call-1-0", Name: "read_file", Args: map[string]any{"path": "a"}}
	real := toolcall.ToolCall{ID: "fc-1", Name: "list_files", Args: map[string]any{}}
	replayed := genai.NewContentFromText("replayed", genai.RoleModel)

	contents := toContents(agentloop.Transcript{
		{Role: agentloop.RoleUser, Text: "fix the footer"},
		{Role: agentloop.RoleModel, Text: "looking", Calls: []toolcall.ToolCall{synthetic, real}},
		{Role: agentloop.RoleTool, Results: []toolcall.Result{
			toolcall.Success(synthetic, map[string]any{"content": "x"}),
			toolcall.Success(real, map[string]any{"entries": []any{}}),
		}},
		{Role: agentloop.RoleModel, Raw: replayed},
	})

	if len(contents) != 4 {
		t.Fatalf("got %d contents, want 4", len(contents))
	}
	roles := []string{contents[0].Role, contents[1].Role, contents[2].Role, contents[3].Role}
	if diff := cmp.Diff([]string{genai.RoleUser, genai.RoleModel, genai.RoleUser, genai.RoleModel}, roles); diff != "" {
		t.Errorf("roles (-want +got):\n%s", diff)
	}

	model := contents[1].Parts
	if len(model) != 3 || model[0].Text != "looking" {
		t.Fatalf("model parts: %+v", model)
	}
	if id := model[1].FunctionCall.ID; id != "" {
		t.Errorf("synthetic call id sent back: %q", id)
	}
	if id := model[2].FunctionCall.ID; id != "fc-1" {
		t.Errorf("real call id: %q", id)
	}

	results := contents[2].Parts
	if results[0].FunctionResponse.ID != "" || results[0].FunctionResponse.Name != "read_file" {
		t.Errorf("synthetic response: %+v", results[0].FunctionResponse)
	}
	if results[1].FunctionResponse.ID != "fc-1" {
		t.Errorf("real response: %+v", results[1].FunctionResponse)
	}
	if contents[3] != replayed {
		t.Error("raw model turn was not replayed")
	}
}

func newTestModel(t *testing.T, handler http.HandlerFunc) *Model {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	m, err := New(client, WithModel("gemini-test"), WithRetryPolicy(retry.Policy{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestReview(t *testing.T) {
	var body map[string]any
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "gemini-test:generateContent") {
			http.Error(w, "unexpected "+r.URL.Path, http.StatusNotFound)
			return
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
  "candidates": [{
    "content": {"role": "model", "parts": [{"text": "{\"approved\": true, \"summary\": \"ok\", \"issues\": []}"}]},
    "finishReason": "STOP"
  }],
  "usageMetadata": {"promptTokenCount": 40, "candidatesTokenCount": 8}
}`)
	})

	got, err := m.Review(context.Background(), "be strict", "review this")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if got != `{"approved": true, "summary": "ok", "issues": []}` {
		t.Errorf("reply: %q", got)
	}
	if _, ok := body["tools"]; ok {
		t.Error("review request carried tools")
	}
}

func TestGenerateRetriesMalformedCall(t *testing.T) {
	var requests int
	m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		if requests == 1 {
			_, _ = io.WriteString(w, `{"candidates": [{"finishReason": "MALFORMED_FUNCTION_CALL", "finishMessage": "bad json"}],
  "usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 1}}`)
			return
		}
		_, _ = io.WriteString(w, `{"candidates": [{
    "content": {"role": "model", "parts": [{"functionCall": {"name": "read_file", "args": {"path": "a"}}}]},
    "finishReason": "STOP"}],
  "usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 3}}`)
	})

	resp, err := m.Generate(context.Background(), "system",
		agentloop.Transcript{{Role: agentloop.RoleUser, Text: "go"}},
		[]toolcall.Definition{{Name: "read_file", Description: "read"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if requests != 2 {
		t.Errorf("requests: got %d, want 2", requests)
	}
	if resp.Stop != agentloop.StopToolUse || len(resp.Calls) != 1 || resp.Calls[0].ID != "gemini-call-1-0" {
		t.Errorf("response: %+v", resp)
	}
	if diff := cmp.Diff(agentloop.Usage{InputTokens: 22, OutputTokens: 4}, resp.Usage); diff != "" {
		t.Errorf("usage (-want +got):\n%s", diff)
	}
}

func TestOptions(t *testing.T) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: "test", Backend: genai.BackendGeminiAPI})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{name: "defaults"},
		{name: "dynamic thinking", opts: []Option{WithThinking(-1)}},
		{name: "thinking within output", opts: []Option{WithThinking(2048)}},
		{name: "thinking exceeds output", opts: []Option{WithMaxOutputTokens(1024), WithThinking(2048)}, wantErr: true},
		{name: "output too large", opts: []Option{WithMaxOutputTokens(65536)}, wantErr: true},
		{name: "not a gemini model", opts: []Option{WithModel("claude-sonnet-4")}, wantErr: true},
		{name: "temperature out of range", opts: []Option{WithTemperature(2.5)}, wantErr: true},
		{name: "labels", opts: []Option{WithResourceLabels(map[string]string{"team": "web"})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(client, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New: err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := New(nil); err == nil {
		t.Error("New(nil): got nil error")
	}
}

func TestResourceLabelDefaults(t *testing.T) {
	t.Setenv("K_SERVICE", "ticketagent")
	t.Setenv("CHAINGUARD_TEAM", "")

	m := &Model{}
	if err := WithResourceLabels(map[string]string{"product": "web"})(m); err != nil {
		t.Fatalf("WithResourceLabels: %v", err)
	}
	want := map[string]string{"service_name": "ticketagent", "product": "web", "team": "unknown"}
	if diff := cmp.Diff(want, m.resourceLabels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
}
