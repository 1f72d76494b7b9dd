/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ticket

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"chainguard.dev/ticketagent/repository"
)

// ErrNoRepository is returned when neither the ticket nor the fallback names
// a repository.
var ErrNoRepository = errors.New("no repository named in ticket")

// Task is a ticket that asked for automation.
type Task struct {
	Key         string   `yaml:"key"`
	Summary     string   `yaml:"summary"`
	Description string   `yaml:"description,omitempty"`
	Labels      []string `yaml:"labels,omitempty"`
	Repository  string   `yaml:"repository"`
}

// Branch is the working branch for the task.
func (t *Task) Branch() string { return BranchName(t.Key) }

// Title is the one-line summary of the task.
func (t *Task) Title() string { return fmt.Sprintf("%s: %s", t.Key, t.Summary) }

// Statement is the full task text: the title followed by the description.
func (t *Task) Statement() string {
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return t.Title()
	}
	return t.Title() + "\n\n" + desc
}

// HasLabel reports whether the task carries label, ignoring case.
func (t *Task) HasLabel(label string) bool {
	return slices.ContainsFunc(t.Labels, func(l string) bool { return strings.EqualFold(l, label) })
}

// BranchName derives the working branch from a ticket key.
func BranchName(key string) string {
	return strings.ToLower(strings.TrimSpace(key)) + "-agent"
}

var (
	repoLine  = regexp.MustCompile(`(?mi)^\s*repo(?:sitory)?\s*:\s*([\w.-]+/[\w.-]+)`)
	githubURL = regexp.MustCompile(`github\.com[/:]([\w.-]+)/([\w.-]+)`)
)

// ExtractRepository finds the target "owner/name" in text. An explicit
// "repo: owner/name" line wins over a github.com URL; fallback is used when
// neither is present.
func ExtractRepository(text, fallback string) (string, error) {
	if m := repoLine.FindStringSubmatch(text); m != nil {
		return normalize(m[1])
	}
	if m := githubURL.FindStringSubmatch(text); m != nil {
		return normalize(m[1] + "/" + strings.TrimSuffix(m[2], ".git"))
	}
	if fallback == "" {
		return "", ErrNoRepository
	}
	return normalize(fallback)
}

func normalize(slug string) (string, error) {
	slug = strings.TrimRight(slug, ".")
	owner, name, err := repository.ParseSlug(slug)
	if err != nil {
		return "", err
	}
	return owner + "/" + name, nil
}

// Reporter posts progress back to the ticketing system.
type Reporter interface {
	// Comment adds a comment to the ticket.
	Comment(ctx context.Context, key, body string) error
	// Transition moves the ticket to the named status.
	Transition(ctx context.Context, key, status string) error
}
