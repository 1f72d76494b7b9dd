/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmpty is returned when a response holds no JSON payload.
var ErrEmpty = errors.New("response contains no JSON payload")

// ExtractJSON returns the JSON payload of a model response. The body of the
// first ```json fenced block wins; otherwise the trimmed text is returned
// with any surrounding fence removed.
func ExtractJSON(text string) string {
	var (
		buf     strings.Builder
		inBlock bool
	)
	for line := range strings.SplitSeq(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inBlock {
			inBlock = trimmed == "```json"
			continue
		}
		if trimmed == "```" {
			return strings.TrimSpace(buf.String())
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if inBlock {
		// Unterminated fence: take what followed it.
		return strings.TrimSpace(buf.String())
	}

	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// Strict decodes the JSON payload of text into T. Unknown fields and any
// data after the first JSON value are errors.
func Strict[T any](text string) (T, error) {
	var out T
	payload := ExtractJSON(text)
	if payload == "" {
		return out, ErrEmpty
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return out, fmt.Errorf("unexpected data after JSON value")
	}
	return out, nil
}
