/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"chainguard.dev/ticketagent/ticket"
	jira "github.com/andygrunwald/go-jira"
	"github.com/chainguard-dev/clog"
)

// ErrUnknownTransition is returned when a ticket has no transition with the
// requested name from its current status.
var ErrUnknownTransition = errors.New("no such transition")

// Client is a ticket.Reporter backed by the Jira REST API v2.
type Client struct {
	api *jira.Client
}

var _ ticket.Reporter = (*Client)(nil)

type settings struct {
	http *http.Client
}

// Option configures a Client.
type Option func(*settings) error

// WithHTTPClient replaces the default HTTP client. Its transport carries the
// authenticated requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) error {
		if c == nil {
			return errors.New("http client cannot be nil")
		}
		s.http = c
		return nil
	}
}

// New returns a Client for the Jira site at baseURL, authenticating with an
// account email and API token.
func New(baseURL, email, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	if email == "" || token == "" {
		return nil, errors.New("email and token are required")
	}
	s := settings{http: http.DefaultClient}
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return nil, err
		}
	}

	auth := jira.BasicAuthTransport{Username: email, Password: token, Transport: s.http.Transport}
	hc := auth.Client()
	hc.Timeout = s.http.Timeout
	api, err := jira.NewClient(hc, strings.TrimRight(u.String(), "/")+"/")
	if err != nil {
		return nil, fmt.Errorf("creating jira client: %w", err)
	}
	return &Client{api: api}, nil
}

// Comment implements ticket.Reporter.
func (c *Client) Comment(ctx context.Context, key, body string) error {
	_, resp, err := c.api.Issue.AddCommentWithContext(ctx, key, &jira.Comment{Body: body})
	return wrap(resp, "commenting on "+key, err)
}

// Transition implements ticket.Reporter. status matches either the
// transition name or the name of the status it leads to, ignoring case.
func (c *Client) Transition(ctx context.Context, key, status string) error {
	available, resp, err := c.api.Issue.GetTransitionsWithContext(ctx, key)
	if err != nil {
		return wrap(resp, "listing transitions of "+key, err)
	}
	for _, t := range available {
		if strings.EqualFold(t.Name, status) || strings.EqualFold(t.To.Name, status) {
			clog.FromContext(ctx).With("issue", key, "transition", t.Name).Info("Transitioning issue")
			resp, err := c.api.Issue.DoTransitionWithContext(ctx, key, t.ID)
			return wrap(resp, "transitioning "+key, err)
		}
	}
	return fmt.Errorf("%s to %q: %w", key, status, ErrUnknownTransition)
}

// StatusError is a non-2xx response from Jira.
type StatusError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

func wrap(resp *jira.Response, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case resp != nil && resp.Response != nil:
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Err: err}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
