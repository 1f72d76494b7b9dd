/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package repository

import (
	"fmt"
	"strings"

	"github.com/waigani/diffparser"
)

// FileStatus is the kind of change made to one file.
type FileStatus string

const (
	StatusAdded    FileStatus = "added"
	StatusModified FileStatus = "modified"
	StatusDeleted  FileStatus = "deleted"
)

// FileDiff summarizes the change to a single file.
type FileDiff struct {
	Path    string     `json:"path"`
	Status  FileStatus `json:"status"`
	Added   int        `json:"added"`
	Removed int        `json:"removed"`
	Patch   string     `json:"-"`
}

// Diff is the change set between two branches.
type Diff struct {
	Base  string     `json:"base"`
	Head  string     `json:"head"`
	Files []FileDiff `json:"files"`
}

// Empty reports whether head carries no changes relative to base.
func (d *Diff) Empty() bool {
	return d == nil || len(d.Files) == 0
}

// Totals returns the summed added and removed line counts.
func (d *Diff) Totals() (added, removed int) {
	if d == nil {
		return 0, 0
	}
	for _, f := range d.Files {
		added += f.Added
		removed += f.Removed
	}
	return added, removed
}

// String renders the human-readable summary handed to the reviewer.
func (d *Diff) String() string {
	if d.Empty() {
		return "no changes"
	}
	added, removed := d.Totals()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d file(s) changed, +%d -%d\n", len(d.Files), added, removed)
	for _, f := range d.Files {
		fmt.Fprintf(&sb, "  %s %s (+%d -%d)\n", f.Status, f.Path, f.Added, f.Removed)
	}
	for _, f := range d.Files {
		if f.Patch == "" {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(strings.TrimRight(f.Patch, "\n"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// ParseUnified builds a Diff from git-style unified diff text, as produced
// by `git diff` or a host's compare endpoint.
func ParseUnified(base, head, text string) (*Diff, error) {
	d := &Diff{Base: base, Head: head}
	if strings.TrimSpace(text) == "" {
		return d, nil
	}

	chunks := splitFiles(text)
	for _, chunk := range chunks {
		parsed, err := diffparser.Parse(chunk)
		if err != nil {
			return nil, fmt.Errorf("parsing diff: %w", err)
		}
		for _, f := range parsed.Files {
			d.Files = append(d.Files, summarize(f, chunk))
		}
	}
	return d, nil
}

// splitFiles cuts a multi-file diff at each "diff --git" header so every
// FileDiff keeps its own patch text.
func splitFiles(text string) []string {
	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.HasPrefix(line, "diff ") && cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if strings.TrimSpace(cur.String()) != "" {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

func summarize(f *diffparser.DiffFile, patch string) FileDiff {
	fd := FileDiff{Patch: patch}
	switch f.Mode {
	case diffparser.NEW:
		fd.Status = StatusAdded
		fd.Path = f.NewName
	case diffparser.DELETED:
		fd.Status = StatusDeleted
		fd.Path = f.OrigName
	default:
		fd.Status = StatusModified
		fd.Path = f.NewName
	}
	if fd.Path == "" {
		fd.Path = f.OrigName
	}
	for _, h := range f.Hunks {
		for _, l := range h.WholeRange.Lines {
			switch l.Mode {
			case diffparser.ADDED:
				fd.Added++
			case diffparser.REMOVED:
				fd.Removed++
			}
		}
	}
	return fd
}

// WholeFilePatch renders a single-hunk git diff replacing before with after.
// An empty before marks a new file.
func WholeFilePatch(path, before, after string) string {
	oldLines, newLines := splitLines(before), splitLines(after)

	var sb strings.Builder
	fmt.Fprintf(&sb, "diff --git a/%s b/%s\n", path, path)
	if len(oldLines) == 0 {
		sb.WriteString("new file mode 100644\n")
		sb.WriteString("--- /dev/null\n")
	} else {
		fmt.Fprintf(&sb, "--- a/%s\n", path)
	}
	fmt.Fprintf(&sb, "+++ b/%s\n", path)
	fmt.Fprintf(&sb, "@@ -%s +%s @@\n", hunkRange(len(oldLines)), hunkRange(len(newLines)))
	for _, l := range oldLines {
		sb.WriteString("-" + l + "\n")
	}
	for _, l := range newLines {
		sb.WriteString("+" + l + "\n")
	}
	return sb.String()
}

func hunkRange(n int) string {
	if n == 0 {
		return "0,0"
	}
	return fmt.Sprintf("1,%d", n)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
