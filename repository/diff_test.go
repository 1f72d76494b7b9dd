/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package repository_test

import (
	"strings"
	"testing"

	"chainguard.dev/ticketagent/repository"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const twoFileDiff = `diff --git a/src/footer.tsx b/src/footer.tsx
index 3b18e51..a9c2f00 100644
--- a/src/footer.tsx
+++ b/src/footer.tsx
@@ -1,3 +1,4 @@
 export function Footer() {
-  return <footer>© Acme</footer>;
+  return <footer>© Acme <a href="/privacy">Privacy</a></footer>;
+  // links
 }
diff --git a/src/links.ts b/src/links.ts
new file mode 100644
index 0000000..e69de29
--- /dev/null
+++ b/src/links.ts
@@ -0,0 +1,2 @@
+export const privacy = "/privacy";
+export const terms = "/terms";
`

func TestParseUnified(t *testing.T) {
	d, err := repository.ParseUnified("main", "web-1-agent", twoFileDiff)
	if err != nil {
		t.Fatalf("ParseUnified: %v", err)
	}

	want := []repository.FileDiff{
		{Path: "src/footer.tsx", Status: repository.StatusModified, Added: 2, Removed: 1},
		{Path: "src/links.ts", Status: repository.StatusAdded, Added: 2},
	}
	if diff := cmp.Diff(want, d.Files, cmpopts.IgnoreFields(repository.FileDiff{}, "Patch")); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(d.Files[1].Patch, "diff --git a/src/links.ts") {
		t.Errorf("second patch should start at its own header, got:\n%s", d.Files[1].Patch)
	}
	if d.Empty() {
		t.Error("Empty(): got true, want false")
	}

	s := d.String()
	for _, want := range []string{"2 file(s) changed, +4 -1", "modified src/footer.tsx (+2 -1)", "added src/links.ts (+2 -0)", "+export const terms"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
}

func TestParseUnifiedEmpty(t *testing.T) {
	d, err := repository.ParseUnified("main", "b", "  \n")
	if err != nil {
		t.Fatalf("ParseUnified: %v", err)
	}
	if !d.Empty() {
		t.Error("Empty(): got false, want true")
	}
	if got := d.String(); got != "no changes" {
		t.Errorf("String(): got %q, want %q", got, "no changes")
	}
}

func TestWholeFilePatch(t *testing.T) {
	tests := []struct {
		name        string
		before      string
		after       string
		wantStatus  repository.FileStatus
		wantAdded   int
		wantRemoved int
	}{{
		name:       "new file",
		after:      "a\nb\n",
		wantStatus: repository.StatusAdded,
		wantAdded:  2,
	}, {
		name:        "modified file",
		before:      "a\nb\nc\n",
		after:       "a\nB\n",
		wantStatus:  repository.StatusModified,
		wantAdded:   2,
		wantRemoved: 3,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch := repository.WholeFilePatch("x.ts", tt.before, tt.after)
			d, err := repository.ParseUnified("main", "b", patch)
			if err != nil {
				t.Fatalf("ParseUnified: %v", err)
			}
			if len(d.Files) != 1 {
				t.Fatalf("files: got %d, want 1", len(d.Files))
			}
			f := d.Files[0]
			if f.Path != "x.ts" || f.Status != tt.wantStatus || f.Added != tt.wantAdded || f.Removed != tt.wantRemoved {
				t.Errorf("got %+v, want status=%s +%d -%d", f, tt.wantStatus, tt.wantAdded, tt.wantRemoved)
			}
		})
	}
}

func TestCleanPath(t *testing.T) {
	for in, want := range map[string]string{
		"":              "",
		".":             "",
		"/":             "",
		"./src/a.go":    "src/a.go",
		"src//b/./c.ts": "src/b/c.ts",
		"/docs/":        "docs",
	} {
		got, err := repository.CleanPath(in)
		if err != nil {
			t.Errorf("CleanPath(%q): unexpected error %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("CleanPath(%q): got %q, want %q", in, got, want)
		}
	}
	if _, err := repository.CleanPath("../etc/passwd"); err == nil {
		t.Error("CleanPath(../etc/passwd): got nil error")
	}
}

func TestParseSlug(t *testing.T) {
	owner, name, err := repository.ParseSlug("acme/site")
	if err != nil || owner != "acme" || name != "site" {
		t.Errorf("ParseSlug(acme/site): got %q %q %v", owner, name, err)
	}
	for _, bad := range []string{"", "acme", "acme/", "/site", "a/b/c"} {
		if _, _, err := repository.ParseSlug(bad); err == nil {
			t.Errorf("ParseSlug(%q): got nil error", bad)
		}
	}
}
