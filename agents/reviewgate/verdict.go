/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package reviewgate

import (
	"fmt"
	"slices"
	"strings"
)

// Severity ranks a review issue.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityMajor      Severity = "major"
	SeverityMinor      Severity = "minor"
	SeveritySuggestion Severity = "suggestion"
)

// Severities lists every severity, most severe first.
var Severities = []Severity{SeverityCritical, SeverityMajor, SeverityMinor, SeveritySuggestion}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return slices.Contains(Severities, s)
}

// FailOpenNote is attached to verdicts produced without a working reviewer.
const FailOpenNote = "automated review could not run"

// Issue is one finding raised by the reviewer.
type Issue struct {
	Severity     Severity `json:"severity" jsonschema:"required,enum=critical,enum=major,enum=minor,enum=suggestion" jsonschema_description:"How serious the issue is"`
	File         string   `json:"file,omitempty" jsonschema_description:"Repository path the issue refers to, if any"`
	Description  string   `json:"description" jsonschema:"required" jsonschema_description:"What is wrong"`
	SuggestedFix string   `json:"suggested_fix,omitempty" jsonschema_description:"How to fix it"`
}

// Verdict is the outcome of one review. Only Approved gates a pull request;
// issues are feedback for the model.
type Verdict struct {
	Approved bool    `json:"approved"`
	Summary  string  `json:"summary"`
	Issues   []Issue `json:"issues"`

	// FailedOpen is set when the reviewer could not produce a verdict and
	// the gate approved by default. Note carries the operator-facing reason.
	FailedOpen bool   `json:"failed_open,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Count returns the number of issues at severity s.
func (v *Verdict) Count(s Severity) int {
	n := 0
	for _, i := range v.Issues {
		if i.Severity == s {
			n++
		}
	}
	return n
}

// Format renders the verdict with issues grouped by severity, most severe
// first.
func Format(v *Verdict) string {
	if v == nil {
		return "no review"
	}
	var sb strings.Builder
	if v.Approved {
		sb.WriteString("Review: approved")
	} else {
		sb.WriteString("Review: changes requested")
	}
	if v.FailedOpen {
		fmt.Fprintf(&sb, " (%s)", FailOpenNote)
	}
	sb.WriteString("\n")
	if v.Summary != "" {
		sb.WriteString(v.Summary)
		sb.WriteString("\n")
	}

	for _, sev := range Severities {
		n := v.Count(sev)
		if n == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s (%d):\n", strings.ToUpper(string(sev)), n)
		for _, i := range v.Issues {
			if i.Severity != sev {
				continue
			}
			sb.WriteString("- ")
			if i.File != "" {
				sb.WriteString(i.File)
				sb.WriteString(": ")
			}
			sb.WriteString(i.Description)
			sb.WriteString("\n")
			if i.SuggestedFix != "" {
				fmt.Fprintf(&sb, "  fix: %s\n", i.SuggestedFix)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
