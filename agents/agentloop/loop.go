/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agentloop

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/ticketagent/agents/agenttrace"
	"chainguard.dev/ticketagent/agents/metrics"
	"chainguard.dev/ticketagent/agents/toolcall"
	"github.com/chainguard-dev/clog"
)

// Outcome is the state of a Run.
type Outcome string

const (
	OutcomeRunning             Outcome = "running"
	OutcomeAwaitingToolResults Outcome = "awaiting-tool-results"
	OutcomeCompleted           Outcome = "completed"
	OutcomeExhausted           Outcome = "exhausted"
	OutcomeFailed              Outcome = "failed"
)

const (
	// DefaultBudget is the number of model turns a run may use.
	DefaultBudget = 25
	// MaxBudget bounds WithBudget.
	MaxBudget = 100
)

// continueNudge is sent when a response was cut off without tool calls.
const continueNudge = "Your previous response was truncated. Continue where you left off, using tools to make progress."

// Run is the record of one loop execution.
type Run struct {
	Outcome    Outcome
	Turns      int
	FinalText  string
	Transcript Transcript

	// Err is why an exhausted or failed run stopped early, if it did.
	Err error
}

type step int

const (
	stepComplete step = iota
	stepTools
	stepContinue
)

func classify(resp *Response) step {
	switch {
	case len(resp.Calls) > 0:
		return stepTools
	case resp.Stop == StopMaxTokens || resp.Stop == StopToolUse:
		return stepContinue
	default:
		return stepComplete
	}
}

// Loop drives a bounded tool-calling conversation with a Model.
type Loop struct {
	model   Model
	system  string
	budget  int
	metrics *metrics.GenAI
}

// Option configures a Loop.
type Option func(*Loop) error

// WithBudget sets the maximum number of model turns.
func WithBudget(n int) Option {
	return func(l *Loop) error {
		if n < 1 || n > MaxBudget {
			return fmt.Errorf("budget must be between 1 and %d, got %d", MaxBudget, n)
		}
		l.budget = n
		return nil
	}
}

// WithSystemPrompt sets the system instructions sent on every turn.
func WithSystemPrompt(system string) Option {
	return func(l *Loop) error {
		if system == "" {
			return errors.New("system prompt cannot be empty")
		}
		l.system = system
		return nil
	}
}

// WithAttributeEnricher adds contextual attributes to the loop's metrics.
func WithAttributeEnricher(enricher metrics.AttributeEnricher) Option {
	return func(l *Loop) error {
		l.metrics.SetAttributeEnricher(enricher)
		return nil
	}
}

// New creates a Loop for model.
func New(model Model, opts ...Option) (*Loop, error) {
	if model == nil {
		return nil, errors.New("model cannot be nil")
	}
	l := &Loop{
		model:   model,
		budget:  DefaultBudget,
		metrics: metrics.NewGenAI(metrics.MeterName),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return l, nil
}

// Budget returns the configured turn budget.
func (l *Loop) Budget() int { return l.budget }

// Run converses with the model until it finishes, a tool result is
// terminal, or the budget is spent. Budget exhaustion and a done context
// are outcomes, not errors. A non-nil error means the model or the
// executor failed; the partial Run is returned with it.
func (l *Loop) Run(ctx context.Context, exec Executor, prompt string) (run *Run, err error) {
	log := clog.FromContext(ctx).With("model", l.model.Name())

	trace := agenttrace.StartTrace[*Run](ctx, prompt)
	defer func() {
		trace.Complete(run, err)
	}()

	run = &Run{
		Outcome:    OutcomeRunning,
		Transcript: Transcript{{Role: RoleUser, Text: prompt}},
	}
	tools := exec.Tools()
	declared := make(map[string]bool, len(tools))
	for _, d := range tools {
		declared[d.Name] = true
	}

	for {
		if run.Turns >= l.budget {
			log.With("turns", run.Turns).Warn("Turn budget exhausted")
			run.Outcome = OutcomeExhausted
			return run, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return l.stopped(ctx, run, ctxErr), nil
		}

		run.Turns++
		exec.BeginTurn(run.Turns)
		turnCtx := agenttrace.WithTurn(trace.Context(), run.Turns)

		resp, genErr := l.model.Generate(turnCtx, l.system, run.Transcript, tools)
		if genErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return l.stopped(ctx, run, ctxErr), nil
			}
			run.Outcome = OutcomeFailed
			run.Err = genErr
			return run, fmt.Errorf("model turn %d: %w", run.Turns, genErr)
		}

		if resp.Usage.InputTokens > 0 || resp.Usage.OutputTokens > 0 {
			l.metrics.RecordTokens(turnCtx, l.model.Name(), resp.Usage.InputTokens, resp.Usage.OutputTokens)
			trace.RecordTokenUsage(l.model.Name(), resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}
		for _, r := range resp.Reasoning {
			trace.Reasoning = append(trace.Reasoning, agenttrace.ReasoningContent{Thinking: r})
		}
		run.Transcript = append(run.Transcript, Turn{Role: RoleModel, Text: resp.Text, Calls: resp.Calls, Raw: resp.Raw})

		switch classify(resp) {
		case stepComplete:
			log.With("turns", run.Turns).Info("Model finished")
			run.Outcome = OutcomeCompleted
			run.FinalText = resp.Text
			return run, nil

		case stepContinue:
			log.With("turn", run.Turns).Info("Response truncated, asking the model to continue")
			run.Transcript = append(run.Transcript, Turn{Role: RoleUser, Text: continueNudge})

		case stepTools:
			run.Outcome = OutcomeAwaitingToolResults
			results, terminal, execErr := l.executeBatch(turnCtx, trace, exec, declared, resp.Calls)
			run.Transcript = append(run.Transcript, Turn{Role: RoleTool, Results: results})
			if execErr != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return l.stopped(ctx, run, ctxErr), nil
				}
				run.Outcome = OutcomeFailed
				run.Err = execErr
				return run, fmt.Errorf("turn %d: %w", run.Turns, execErr)
			}
			if terminal {
				log.With("turns", run.Turns).Info("Terminal tool succeeded")
				run.Outcome = OutcomeCompleted
				run.FinalText = resp.Text
				return run, nil
			}
			run.Outcome = OutcomeRunning
		}
	}
}

// executeBatch runs calls in issue order. It stops at the first executor
// error, returning the results gathered so far. Calls to tools that were
// not declared still go to the executor, which refuses them, but are
// traced as bad calls and can never be terminal.
func (l *Loop) executeBatch(ctx context.Context, trace *agenttrace.Trace[*Run], exec Executor, declared map[string]bool, calls []toolcall.ToolCall) ([]toolcall.Result, bool, error) {
	log := clog.FromContext(ctx)
	results := make([]toolcall.Result, 0, len(calls))
	terminal := false

	for _, call := range calls {
		log.With("tool", call.Name).With("id", call.ID).Info("Executing tool call")
		l.metrics.RecordToolCall(ctx, l.model.Name(), call.Name)

		if !declared[call.Name] {
			res, err := exec.Execute(ctx, call)
			if err != nil {
				return results, false, fmt.Errorf("executing %s: %w", call.Name, err)
			}
			log.With("tool", call.Name).Warn("Model called an undeclared tool")
			trace.BadToolCall(call.ID, call.Name, call.Args, fmt.Errorf("undeclared tool %q", call.Name))
			if res.Denied {
				l.metrics.RecordDenial(ctx, call.Name, res.Code())
			}
			results = append(results, res)
			continue
		}

		tc := trace.StartToolCall(call.ID, call.Name, call.Args)
		res, err := exec.Execute(ctx, call)
		if err != nil {
			tc.Complete(nil, err)
			return results, false, fmt.Errorf("executing %s: %w", call.Name, err)
		}

		if res.Denied {
			log.With("tool", call.Name).With("code", res.Code()).Info("Tool call denied")
			l.metrics.RecordDenial(ctx, call.Name, res.Code())
			tc.Deny(res.Reason(), res.Payload)
		} else {
			tc.Complete(res.Payload, nil)
		}
		terminal = terminal || (res.Terminal && !res.Denied)
		results = append(results, res)
	}
	return results, terminal, nil
}

func (l *Loop) stopped(ctx context.Context, run *Run, cause error) *Run {
	clog.FromContext(ctx).With("turns", run.Turns).With("error", cause).Warn("Run stopped by context")
	run.Outcome = OutcomeExhausted
	run.Err = cause
	return run
}
