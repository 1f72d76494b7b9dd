/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package jira reports agent progress to Jira through the REST API v2 using
// the go-jira client.
//
//	reporter, err := jira.New("https://acme.atlassian.net", email, apiToken)
//	if err != nil {
//		return err
//	}
//	_ = reporter.Comment(ctx, "WEB-7", body)
//	_ = reporter.Transition(ctx, "WEB-7", "In Review")
package jira
