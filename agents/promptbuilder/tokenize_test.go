/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"maps"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewPromptPlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []string
		wantErr  bool
	}{{
		name:     "none",
		template: "Resolve the ticket.",
	}, {
		name:     "repeated and spaced",
		template: "{{ticket}} then {{ repo }} then {{ticket}}",
		want:     []string{"repo", "ticket"},
	}, {
		name:     "unclosed",
		template: "Resolve {{ticket",
		wantErr:  true,
	}, {
		name:     "bad identifier",
		template: "Resolve {{1ticket}}",
		wantErr:  true,
	}, {
		name:     "empty name",
		template: "Resolve {{ }}",
		wantErr:  true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPrompt(stringLiteral(tt.template))
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPrompt: err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(tt.want, slices.Sorted(maps.Keys(p.bound))); diff != "" {
				t.Errorf("placeholders mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
