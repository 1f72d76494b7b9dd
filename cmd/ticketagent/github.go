/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"chainguard.dev/ticketagent/repository"
	"chainguard.dev/ticketagent/repository/githubrepo"
	"chainguard.dev/ticketagent/repository/gitrepo"
	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// installationTokenSource mints GitHub App installation tokens for git
// clone and push.
type installationTokenSource struct {
	ctx       context.Context
	transport *ghinstallation.Transport
}

func (s installationTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.transport.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// githubAuth returns an API client and a token source from either GitHub App
// credentials or a static token. App credentials win when both are set.
func githubAuth(ctx context.Context, cfg config) (*github.Client, oauth2.TokenSource, error) {
	switch {
	case cfg.GitHubAppID != 0:
		if cfg.GitHubInstallationID == 0 || cfg.GitHubAppPrivateKey == "" {
			return nil, nil, errors.New("GITHUB_INSTALLATION_ID and GITHUB_APP_PRIVATE_KEY are required with GITHUB_APP_ID")
		}
		itr, err := ghinstallation.New(http.DefaultTransport, cfg.GitHubAppID, cfg.GitHubInstallationID, []byte(cfg.GitHubAppPrivateKey))
		if err != nil {
			return nil, nil, fmt.Errorf("creating installation transport: %w", err)
		}
		return github.NewClient(&http.Client{Transport: itr}), oauth2.ReuseTokenSource(nil, installationTokenSource{ctx: ctx, transport: itr}), nil

	case cfg.GitHubToken != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
		return github.NewClient(oauth2.NewClient(ctx, ts)), ts, nil

	default:
		return nil, nil, errors.New("either GITHUB_APP_ID or GITHUB_TOKEN must be set")
	}
}

// newGateways returns a gatewayFunc backed by the GitHub API, or by a
// private clone per task when clone is set.
func newGateways(client *github.Client, ts oauth2.TokenSource, clone bool, identity string) gatewayFunc {
	return func(ctx context.Context, slug string) (repository.Gateway, func(), error) {
		api, err := githubrepo.New(client, slug)
		if err != nil {
			return nil, nil, err
		}
		if !clone {
			return api, func() {}, nil
		}

		gw, err := gitrepo.Open(ctx, gitrepo.Options{
			URL:         "https://github.com/" + slug + ".git",
			TokenSource: ts,
			Identity:    identity,
			Opener:      api,
		})
		if err != nil {
			return nil, nil, err
		}
		return gw, func() { _ = gw.Close() }, nil
	}
}
