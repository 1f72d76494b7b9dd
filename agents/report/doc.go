/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package report renders a finished agent session as markdown for posting
back to the originating ticket.

# Usage

	run, err := loop.Run(ctx, exec, prompt)
	body := report.Session(exec.Session(), run)
	_ = reporter.Comment(ctx, key, body)

The output starts with a one-line Headline, followed by a summary table
(repository, branch, phase, review status, outcome, turns and the pull
request link when one was opened). Review verdicts and denied tool calls
get their own tables when present.
*/
package report
