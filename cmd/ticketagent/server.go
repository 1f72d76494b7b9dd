/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"chainguard.dev/ticketagent/ticket"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	secretHeader       = "X-Webhook-Secret"
	maxWebhookBodySize = 1 << 20
)

var webhookCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ticket_webhooks_total",
		Help: "Webhook deliveries by result",
	},
	[]string{"result"},
)

// taskFunc runs one accepted task. It is called on its own goroutine.
type taskFunc func(ctx context.Context, task *ticket.Task)

// branchLocks admits at most one task per working branch.
type branchLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func (l *branchLocks) tryLock(branch string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]struct{}{}
	}
	if _, ok := l.held[branch]; ok {
		return false
	}
	l.held[branch] = struct{}{}
	return true
}

func (l *branchLocks) unlock(branch string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, branch)
}

// server accepts ticket webhooks and runs tasks in the background.
type server struct {
	// ctx is the parent of every task; it outlives the request.
	ctx               context.Context
	secret            string
	label             string
	defaultRepository string
	run               taskFunc

	locks branchLocks
	wg    sync.WaitGroup
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodPost, "/webhook", httpmetrics.Handler("webhook", http.HandlerFunc(s.webhook)))
	return r
}

type webhookResponse struct {
	Status string `json:"status"`
	Ticket string `json:"ticket,omitempty"`
	Branch string `json:"branch,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *server) webhook(w http.ResponseWriter, r *http.Request) {
	log := clog.FromContext(r.Context())

	if subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(s.secret)) != 1 {
		log.With("remote_addr", r.RemoteAddr).Warn("Rejected webhook with bad secret")
		s.respond(w, http.StatusUnauthorized, "unauthorized", webhookResponse{Error: "invalid webhook secret"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		s.respond(w, http.StatusBadRequest, "bad_request", webhookResponse{Error: "reading body"})
		return
	}
	task, err := ticket.ParseWebhook(body, s.defaultRepository)
	if err != nil {
		log.With("error", err).Warn("Rejected malformed webhook")
		status := "bad_request"
		if errors.Is(err, ticket.ErrNoRepository) {
			status = "no_repository"
		}
		s.respond(w, http.StatusBadRequest, status, webhookResponse{Error: err.Error()})
		return
	}

	resp := webhookResponse{Ticket: task.Key, Branch: task.Branch()}
	if s.label != "" && !task.HasLabel(s.label) {
		s.respond(w, http.StatusOK, "ignored", resp)
		return
	}

	if !s.locks.tryLock(task.Branch()) {
		log.With("ticket", task.Key).Info("Task already running for branch")
		resp.Error = "a task is already running for this branch"
		s.respond(w, http.StatusConflict, "conflict", resp)
		return
	}

	log.With("ticket", task.Key, "repository", task.Repository).Info("Accepted ticket task")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.locks.unlock(task.Branch())
		s.run(s.ctx, task)
	}()
	s.respond(w, http.StatusAccepted, "accepted", resp)
}

func (s *server) respond(w http.ResponseWriter, code int, status string, resp webhookResponse) {
	webhookCounter.With(prometheus.Labels{"result": status}).Inc()
	resp.Status = status
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// wait blocks until every running task has finished.
func (s *server) wait() { s.wg.Wait() }
