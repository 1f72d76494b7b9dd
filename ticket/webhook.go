/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ticket

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingKey is returned for webhook payloads without an issue key.
var ErrMissingKey = errors.New("webhook payload has no issue key")

type webhookPayload struct {
	WebhookEvent string `json:"webhookEvent"`
	Issue        struct {
		Key    string `json:"key"`
		Fields struct {
			Summary     string          `json:"summary"`
			Description json.RawMessage `json:"description"`
			Labels      []string        `json:"labels"`
		} `json:"fields"`
	} `json:"issue"`
}

// ParseWebhook decodes a Jira issue webhook. The repository is resolved from
// the description, then the summary, then defaultRepository.
func ParseWebhook(body []byte, defaultRepository string) (*Task, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decoding webhook: %w", err)
	}
	if strings.TrimSpace(p.Issue.Key) == "" {
		return nil, ErrMissingKey
	}

	description, err := descriptionText(p.Issue.Fields.Description)
	if err != nil {
		return nil, fmt.Errorf("decoding description of %s: %w", p.Issue.Key, err)
	}

	repo, err := ExtractRepository(description+"\n"+p.Issue.Fields.Summary, defaultRepository)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Issue.Key, err)
	}

	return &Task{
		Key:         strings.TrimSpace(p.Issue.Key),
		Summary:     strings.TrimSpace(p.Issue.Fields.Summary),
		Description: description,
		Labels:      p.Issue.Fields.Labels,
		Repository:  repo,
	}, nil
}

// adfNode is the subset of the Atlassian Document Format we flatten.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

// descriptionText accepts the REST v2 plain string or a v3 ADF document.
func descriptionText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var doc adfNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", err
	}
	var b strings.Builder
	flatten(&b, doc)
	return strings.TrimSpace(b.String()), nil
}

func flatten(b *strings.Builder, n adfNode) {
	switch n.Type {
	case "text":
		b.WriteString(n.Text)
		return
	case "hardBreak":
		b.WriteByte('\n')
		return
	}
	for _, c := range n.Content {
		flatten(b, c)
	}
	switch n.Type {
	case "paragraph", "heading", "codeBlock", "listItem":
		b.WriteByte('\n')
	}
}
