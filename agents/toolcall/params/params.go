/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package params

import "fmt"

// Payload keys shared by every refusal and failure sent back to the model.
const (
	KeyError  = "error"
	KeyCode   = "code"
	KeyDenied = "denied"
)

// Error is the payload of a call that failed outside the harness rules.
func Error(format string, args ...any) map[string]any {
	return map[string]any{KeyError: fmt.Sprintf(format, args...)}
}

// Denial is the payload of a call the harness refused. code is stable
// (read_required, review_required, ...); reason is written for the model.
func Denial(code, reason string) map[string]any {
	return map[string]any{
		KeyError:  reason,
		KeyDenied: true,
		KeyCode:   code,
	}
}

// Reason returns the error text of a payload, or "".
func Reason(payload map[string]any) string {
	s, _ := payload[KeyError].(string)
	return s
}

// Code returns the denial code of a payload, or "".
func Code(payload map[string]any) string {
	s, _ := payload[KeyCode].(string)
	return s
}
