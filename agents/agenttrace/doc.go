/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package agenttrace provides tracing for agent sessions.

A Trace[T] spans one session from task prompt to outcome and collects every
tool call, including calls the harness denied. Each trace and tool call is
also an OpenTelemetry span.

	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		TicketKey:  "WEB-142",
		Repository: "acme/site",
		Branch:     "web-142-agent",
	})
	ctx = agenttrace.WithTracer[string](ctx, agenttrace.ByCode[string](func(t *agenttrace.Trace[string]) {
		log.Printf("session %s: %d denials", t.ID, t.Denials())
	}))

	trace := agenttrace.StartTrace[string](ctx, prompt)
	tc := trace.StartToolCall("toolu_1", "read_file", map[string]any{"path": "footer.tsx"})
	tc.Complete(content, nil)
	trace.Complete("completed", nil)

Without a tracer in the context, completed traces are logged with clog.
*/
package agenttrace
