/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestToolCallOutcomes(t *testing.T) {
	var traces []*Trace[string]
	trace := (&mockTracer[string]{traces: &traces}).NewTrace(context.Background(), randomString())

	trace.StartToolCall("tc1", "read_file", map[string]any{"path": "footer.tsx"}).Complete("contents", nil)
	trace.StartToolCall("tc2", "update_file", map[string]any{"path": "x.ts"}).Deny("must read before update", nil)
	trace.StartToolCall("tc3", "create_branch", nil).Complete(nil, errors.New("boom"))
	trace.BadToolCall("tc4", "delete_repo", nil, errors.New(`unknown tool: "delete_repo"`))

	if got, want := len(trace.ToolCalls), 4; got != want {
		t.Fatalf("tool calls: got = %d, wanted = %d", got, want)
	}
	if got, want := trace.Denials(), 2; got != want {
		t.Errorf("denials: got = %d, wanted = %d", got, want)
	}
	if tc := trace.ToolCalls[2]; tc.Denied || tc.Error == nil {
		t.Errorf("errored call: got denied=%v err=%v, wanted denied=false and an error", tc.Denied, tc.Error)
	}

	s := trace.String()
	for _, want := range []string{"read_file (ID: tc1) ok", "update_file (ID: tc2) denied", "must read before update", "create_branch (ID: tc3) error"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
}

func TestExecutionContextEnrichAttributes(t *testing.T) {
	ec := ExecutionContext{TicketKey: "WEB-1", Repository: "acme/site", Branch: "web-1-agent", TurnNumber: 3}
	attrs := ec.EnrichAttributes([]attribute.KeyValue{attribute.String("model", "m")})

	got := map[string]string{}
	for _, kv := range attrs {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	if got["repository"] != "acme/site" || got["turn"] != "3" || got["model"] != "m" {
		t.Errorf("attributes: got = %v", got)
	}
	if _, ok := got["ticket.key"]; ok {
		t.Error("ticket key must not be a metric label")
	}
}

func TestWithTurn(t *testing.T) {
	ctx := WithExecutionContext(context.Background(), ExecutionContext{Repository: "acme/site"})
	ctx = WithTurn(ctx, 7)

	ec := GetExecutionContext(ctx)
	if ec.TurnNumber != 7 || ec.Repository != "acme/site" {
		t.Errorf("execution context: got = %+v", ec)
	}
	if got := GetExecutionContext(context.Background()); got != (ExecutionContext{}) {
		t.Errorf("empty context: got = %+v, wanted zero value", got)
	}
}
