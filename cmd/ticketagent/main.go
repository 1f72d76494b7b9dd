/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main runs the ticket agent: a webhook server that turns labeled
// tickets into pull requests.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chainguard.dev/ticketagent/agents/metaagent"
	"chainguard.dev/ticketagent/ticket"
	"chainguard.dev/ticketagent/ticket/jira"
	"cloud.google.com/go/compute/metadata"
	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/chainguard-dev/terraform-infra-common/pkg/profiler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/sync/errgroup"
)

type config struct {
	Port        int `env:"PORT,default=8080"`
	MetricsPort int `env:"METRICS_PORT,default=2112"`

	WebhookSecret     string `env:"WEBHOOK_SECRET,required"`
	TriggerLabel      string `env:"TRIGGER_LABEL,default=ai-agent"`
	DefaultRepository string `env:"DEFAULT_REPOSITORY"`

	// Model configuration. The reviewer defaults to the agent model.
	Model           string        `env:"AGENT_MODEL,default=claude-sonnet-4@20250514"`
	ReviewModel     string        `env:"REVIEW_MODEL"`
	ModelRegion     string        `env:"MODEL_REGION"` // Defaults to detected GCP region
	ProjectID       string        `env:"PROJECT_ID"`   // Defaults to detected GCP project
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"`
	ThinkingBudget  int64         `env:"THINKING_BUDGET,default=0"`
	TurnBudget      int           `env:"TURN_BUDGET,default=25"`
	TaskTimeout     time.Duration `env:"TASK_TIMEOUT,default=30m"`

	GitHubAppID          int64  `env:"GITHUB_APP_ID"`
	GitHubInstallationID int64  `env:"GITHUB_INSTALLATION_ID"`
	GitHubAppPrivateKey  string `env:"GITHUB_APP_PRIVATE_KEY"`
	GitHubToken          string `env:"GITHUB_TOKEN"`
	UseClone             bool   `env:"USE_GIT_CLONE,default=false"`
	GitIdentity          string `env:"GIT_IDENTITY,default=ticketagent"`

	JiraURL        string `env:"JIRA_URL"`
	JiraEmail      string `env:"JIRA_EMAIL"`
	JiraToken      string `env:"JIRA_API_TOKEN"`
	JiraDoneStatus string `env:"JIRA_DONE_STATUS,default=In Review"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go httpmetrics.ScrapeDiskUsage(ctx)
	profiler.SetupProfiler()
	defer httpmetrics.SetupTracer(ctx)()

	log := clog.FromContext(ctx)

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "failed to process config: %v", err)
	}

	projectID, region, err := gcpLocation(ctx, cfg)
	if err != nil {
		clog.FatalContextf(ctx, "failed to detect GCP location: %v", err)
	}
	log.With("project_id", projectID, "region", region).Info("Using Google Cloud location")

	modelConfig := metaagent.Config{
		ThinkingBudget:  cfg.ThinkingBudget,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		ResourceLabels:  map[string]string{"component": "ticketagent"},
	}
	log.With("model", cfg.Model).Info("Initializing agent model")
	model, err := metaagent.New(ctx, projectID, region, cfg.Model, modelConfig)
	if err != nil {
		clog.FatalContextf(ctx, "failed to create agent model: %v", err)
	}
	reviewer := model
	if cfg.ReviewModel != "" && cfg.ReviewModel != cfg.Model {
		log.With("model", cfg.ReviewModel).Info("Initializing review model")
		if reviewer, err = metaagent.New(ctx, projectID, region, cfg.ReviewModel, metaagent.Config{
			AnthropicAPIKey: cfg.AnthropicAPIKey,
			ResourceLabels:  modelConfig.ResourceLabels,
		}); err != nil {
			clog.FatalContextf(ctx, "failed to create review model: %v", err)
		}
	}

	client, ts, err := githubAuth(ctx, cfg)
	if err != nil {
		clog.FatalContextf(ctx, "failed to configure GitHub: %v", err)
	}

	r := &runner{
		model:      model,
		reviewer:   reviewer,
		gateways:   newGateways(client, ts, cfg.UseClone, cfg.GitIdentity),
		budget:     cfg.TurnBudget,
		timeout:    cfg.TaskTimeout,
		doneStatus: cfg.JiraDoneStatus,
	}
	if cfg.JiraURL != "" {
		if r.reporter, err = jira.New(cfg.JiraURL, cfg.JiraEmail, cfg.JiraToken); err != nil {
			clog.FatalContextf(ctx, "failed to create Jira reporter: %v", err)
		}
	} else {
		log.Warn("JIRA_URL is not set, results will only be logged")
	}

	srv := &server{
		ctx:               ctx,
		secret:            cfg.WebhookSecret,
		label:             cfg.TriggerLabel,
		defaultRepository: cfg.DefaultRepository,
		run: func(ctx context.Context, task *ticket.Task) {
			_, _, _ = r.run(ctx, task)
		},
	}

	if err := serve(ctx, cfg, srv); err != nil {
		clog.FatalContextf(ctx, "server failed: %v", err)
	}
	log.Info("Waiting for running tasks")
	srv.wait()
}

// serve runs the webhook and metrics servers until ctx is done.
func serve(ctx context.Context, cfg config, srv *server) error {
	webhook := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, s := range []*http.Server{webhook, metricsSrv} {
		eg.Go(func() error {
			clog.FromContext(ctx).With("addr", s.Addr).Info("Listening")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			return s.Shutdown(shutdownCtx)
		})
	}
	return eg.Wait()
}

// gcpLocation returns the project and region, filling gaps from the
// metadata server.
func gcpLocation(ctx context.Context, cfg config) (string, string, error) {
	projectID, region := cfg.ProjectID, cfg.ModelRegion
	if cfg.AnthropicAPIKey != "" && strings.HasPrefix(cfg.Model, "claude-") && (cfg.ReviewModel == "" || strings.HasPrefix(cfg.ReviewModel, "claude-")) {
		// The Anthropic API needs neither.
		return projectID, region, nil
	}
	if projectID == "" {
		id, err := metadata.ProjectIDWithContext(ctx)
		if err != nil {
			return "", "", fmt.Errorf("detecting project ID: %w", err)
		}
		projectID = id
	}
	if region == "" {
		zone, err := metadata.ZoneWithContext(ctx)
		if err != nil {
			return "", "", fmt.Errorf("getting zone from metadata: %w", err)
		}
		if region, err = regionFromZone(zone); err != nil {
			return "", "", err
		}
	}
	return projectID, region, nil
}

// regionFromZone turns a zone such as us-central1-a into its region.
func regionFromZone(zone string) (string, error) {
	i := strings.LastIndex(zone, "-")
	if i <= 0 {
		return "", fmt.Errorf("cannot derive a region from zone %q; set MODEL_REGION", zone)
	}
	return zone[:i], nil
}
