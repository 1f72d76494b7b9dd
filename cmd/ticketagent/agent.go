/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"
	"time"

	"chainguard.dev/ticketagent/agents/agentloop"
	"chainguard.dev/ticketagent/agents/agenttrace"
	"chainguard.dev/ticketagent/agents/guard"
	"chainguard.dev/ticketagent/agents/metrics"
	"chainguard.dev/ticketagent/agents/promptbuilder"
	"chainguard.dev/ticketagent/agents/report"
	"chainguard.dev/ticketagent/agents/reviewgate"
	"chainguard.dev/ticketagent/repository"
	"chainguard.dev/ticketagent/ticket"
	"github.com/chainguard-dev/clog"
)

// gatewayFunc opens a gateway for "owner/name". The returned func releases
// it and is never nil on success.
type gatewayFunc func(ctx context.Context, slug string) (repository.Gateway, func(), error)

// runner executes one ticket task end to end and reports the result.
type runner struct {
	model      agentloop.Model
	reviewer   reviewgate.Reviewer
	gateways   gatewayFunc
	reporter   ticket.Reporter
	budget     int
	timeout    time.Duration
	doneStatus string
}

// run drives the agent for task. The session is returned even when the
// run fails, so its partial state can be inspected.
func (r *runner) run(ctx context.Context, task *ticket.Task) (*guard.Session, *agentloop.Run, error) {
	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		TicketKey:  task.Key,
		Repository: task.Repository,
		Branch:     task.Branch(),
	})
	log := clog.FromContext(ctx).With("ticket", task.Key, "repository", task.Repository, "branch", task.Branch())
	ctx = clog.WithLogger(ctx, log)

	// Reporting happens after the deadline may have passed.
	reportCtx := context.WithoutCancel(ctx)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	session := guard.NewSession(task.Statement(), task.Repository, task.Branch())
	run, err := r.execute(ctx, task, session)

	outcome := agentloop.OutcomeFailed
	turns := 0
	if run != nil {
		outcome, turns = run.Outcome, run.Turns
	}
	metrics.RecordSession(task.Repository, string(outcome), turns)
	log.With("outcome", outcome, "turns", turns, "phase", session.Phase()).Info("Agent session finished")

	r.report(reportCtx, task, session, run, err)
	return session, run, err
}

func (r *runner) execute(ctx context.Context, task *ticket.Task, session *guard.Session) (*agentloop.Run, error) {
	gw, release, err := r.gateways(ctx, task.Repository)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", task.Repository, err)
	}
	defer release()

	gate, err := reviewgate.New(r.reviewer)
	if err != nil {
		return nil, err
	}
	exec, err := guard.NewExecutor(session, gw, gate)
	if err != nil {
		return nil, err
	}

	system, err := buildSystemPrompt()
	if err != nil {
		return nil, fmt.Errorf("building system prompt: %w", err)
	}
	prompt, err := promptbuilder.Render(userPrompt, taskPrompt{task: task})
	if err != nil {
		return nil, fmt.Errorf("building task prompt: %w", err)
	}

	loop, err := agentloop.New(r.model,
		agentloop.WithBudget(r.budget),
		agentloop.WithSystemPrompt(system),
		agentloop.WithAttributeEnricher(metrics.SessionEnricher),
	)
	if err != nil {
		return nil, err
	}
	return loop.Run(ctx, exec, prompt)
}

// report posts the session record to the ticket. Reporting failures are
// logged and never change the task result.
func (r *runner) report(ctx context.Context, task *ticket.Task, session *guard.Session, run *agentloop.Run, runErr error) {
	if r.reporter == nil {
		return
	}
	log := clog.FromContext(ctx)

	body := report.Session(session, run)
	if runErr != nil && run == nil {
		body += fmt.Sprintf("\nError: %v\n", runErr)
	}
	if err := r.reporter.Comment(ctx, task.Key, body); err != nil {
		log.With("error", err).Warn("Failed to comment on ticket")
	}

	if session.PullRequest() == nil || r.doneStatus == "" {
		return
	}
	if err := r.reporter.Transition(ctx, task.Key, r.doneStatus); err != nil {
		log.With("error", err, "status", r.doneStatus).Warn("Failed to transition ticket")
	}
}
