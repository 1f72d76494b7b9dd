/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// ExecutionContext carries per-session metadata used to label traces and
// metrics for a single agent session.
type ExecutionContext struct {
	TicketKey  string `json:"ticket_key,omitempty"`  // e.g. "WEB-142"
	Repository string `json:"repository,omitempty"`  // "owner/name"
	Branch     string `json:"branch,omitempty"`      // working branch, e.g. "web-142-agent"
	TurnNumber int    `json:"turn_number,omitempty"` // 1-based model turn
}

// EnrichAttributes adds execution context attributes to the provided base attributes.
//
// Only bounded labels are added. The ticket key and branch are unique per
// session and stay on traces, not metrics.
func (e ExecutionContext) EnrichAttributes(baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(baseAttrs), len(baseAttrs)+2)
	copy(attrs, baseAttrs)

	if e.Repository != "" {
		attrs = append(attrs, attribute.String("repository", e.Repository))
	}
	attrs = append(attrs, attribute.Int("turn", e.TurnNumber))
	return attrs
}

// spanAttributes returns the attributes recorded on the session span.
func (e ExecutionContext) spanAttributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if e.TicketKey != "" {
		attrs = append(attrs, attribute.String("ticket.key", e.TicketKey))
	}
	if e.Repository != "" {
		attrs = append(attrs, attribute.String("repository", e.Repository))
	}
	if e.Branch != "" {
		attrs = append(attrs, attribute.String("branch", e.Branch))
	}
	return attrs
}

type contextKey string

const executionContextKey contextKey = "execution_context"

// WithExecutionContext adds execution context to the Go context
func WithExecutionContext(ctx context.Context, execCtx ExecutionContext) context.Context {
	return context.WithValue(ctx, executionContextKey, execCtx)
}

// GetExecutionContext retrieves execution context from the Go context
func GetExecutionContext(ctx context.Context) ExecutionContext {
	if execCtx, ok := ctx.Value(executionContextKey).(ExecutionContext); ok {
		return execCtx
	}
	return ExecutionContext{}
}

// WithTurn returns a copy of ctx whose execution context carries the given turn.
func WithTurn(ctx context.Context, turn int) context.Context {
	execCtx := GetExecutionContext(ctx)
	execCtx.TurnNumber = turn
	return WithExecutionContext(ctx, execCtx)
}
