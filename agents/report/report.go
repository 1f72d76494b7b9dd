/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"chainguard.dev/ticketagent/agents/agentloop"
	"chainguard.dev/ticketagent/agents/guard"
	"chainguard.dev/ticketagent/agents/reviewgate"
)

// Headline is the one-line status for a finished session.
func Headline(s *guard.Session, run *agentloop.Run) string {
	switch {
	case s.PullRequest() != nil:
		return fmt.Sprintf("✅ Pull request opened: %s", s.PullRequest().URL)
	case run == nil:
		return "❌ The agent did not run."
	case run.Outcome == agentloop.OutcomeExhausted:
		return fmt.Sprintf("⚠️ The agent stopped after %d turns without opening a pull request.", run.Turns)
	case run.Outcome == agentloop.OutcomeFailed:
		return "❌ The agent failed before opening a pull request."
	default:
		return "ℹ️ The agent finished without opening a pull request."
	}
}

// Session renders the state of a finished session as markdown: a headline,
// a summary table, then the review verdicts and denials if there were any.
// run may be nil when the loop never started.
func Session(s *guard.Session, run *agentloop.Run) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n\n", Headline(s, run))

	writeSummary(&buf, s, run)

	if verdicts := s.Verdicts(); len(verdicts) > 0 {
		buf.WriteString("\n### Reviews\n\n")
		writeVerdicts(&buf, verdicts)
	}
	if denials := s.Denials(); len(denials) > 0 {
		buf.WriteString("\n### Denied tool calls\n\n")
		writeDenials(&buf, denials)
	}
	if run != nil && run.FinalText != "" {
		fmt.Fprintf(&buf, "\n### Final message\n\n%s\n", quote(run.FinalText))
	}
	return buf.String()
}

func writeSummary(buf *bytes.Buffer, s *guard.Session, run *agentloop.Run) {
	table := createStandardTable([]string{"Field", "Value"}, buf)
	rows := [][]string{
		{"Repository", s.Repository},
		{"Branch", branchCell(s)},
		{"Phase", string(s.Phase())},
		{"Review", string(s.ReviewStatus())},
		{"Files read", strconv.Itoa(len(s.ReadSet()))},
		{"Writes", strconv.Itoa(s.Writes())},
	}
	if run != nil {
		rows = append(rows,
			[]string{"Outcome", string(run.Outcome)},
			[]string{"Turns", strconv.Itoa(run.Turns)},
		)
		if run.Err != nil {
			rows = append(rows, []string{"Stopped by", cell(run.Err.Error())})
		}
	}
	if base := s.DefaultBranch(); base != "" {
		rows = append(rows, []string{"Based on", fmt.Sprintf("%s@%s", base, shortRevision(s.BaseRevision()))})
	}
	if pr := s.PullRequest(); pr != nil {
		rows = append(rows, []string{"Pull request", fmt.Sprintf("[#%d](%s)", pr.Number, pr.URL)})
	}
	if err := s.LastError(); err != nil {
		rows = append(rows, []string{"Last error", cell(err.Error())})
	}
	for _, row := range rows {
		_ = table.Append(row)
	}
	_ = table.Render()
}

func writeVerdicts(buf *bytes.Buffer, verdicts []*reviewgate.Verdict) {
	table := createStandardTable([]string{"#", "Result", "Issues", "Summary"}, buf)
	for i, v := range verdicts {
		result := "changes requested"
		switch {
		case v.FailedOpen:
			result = "approved (fail-open)"
		case v.Approved:
			result = "approved"
		}
		summary := v.Summary
		if v.FailedOpen && v.Note != "" {
			summary = v.Note
		}
		_ = table.Append([]string{strconv.Itoa(i + 1), result, issueCounts(v), cell(summary)})
	}
	_ = table.Render()
}

func issueCounts(v *reviewgate.Verdict) string {
	var parts []string
	for _, sev := range reviewgate.Severities {
		if n := v.Count(sev); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func writeDenials(buf *bytes.Buffer, denials []guard.Denial) {
	table := createStandardTable([]string{"Turn", "Tool", "Code", "Reason"}, buf)
	for _, d := range denials {
		_ = table.Append([]string{strconv.Itoa(d.Turn), d.Tool, d.Code, cell(d.Reason)})
	}
	_ = table.Render()
}

func quote(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

func branchCell(s *guard.Session) string {
	if s.BranchReady() {
		return s.Branch
	}
	return s.Branch + " (not created)"
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
