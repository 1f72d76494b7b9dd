/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"encoding/json"
	"fmt"

	"chainguard.dev/ticketagent/agents/toolcall/params"
)

// ToolCall is a provider-independent representation of a tool call.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Definition describes a tool's schema (name, description, parameters).
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Parameter describes a single tool parameter.
type Parameter struct {
	Name        string
	Type        string // "string", "integer", "boolean", "number"
	Description string
	Required    bool
	Enum        []string
}

// Required returns the names of the required parameters, in declaration order.
func (d Definition) Required() []string {
	var names []string
	for _, p := range d.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Result is the outcome of one tool call, paired to its call by CallID.
type Result struct {
	CallID  string
	Name    string
	Payload map[string]any

	// Denied is set when the harness refused the call.
	Denied bool
	// Terminal is set when the call ends the session successfully.
	Terminal bool
}

// Success builds a result carrying the given payload.
func Success(call ToolCall, payload map[string]any) Result {
	return Result{CallID: call.ID, Name: call.Name, Payload: payload}
}

// Deny builds a denial result with a stable code and a reason for the model.
func Deny(call ToolCall, code, format string, args ...any) Result {
	return Result{
		CallID:  call.ID,
		Name:    call.Name,
		Payload: params.Denial(code, fmt.Sprintf(format, args...)),
		Denied:  true,
	}
}

// Reason returns the error text of a denial or failed call, or "".
func (r Result) Reason() string { return params.Reason(r.Payload) }

// Code returns the denial code, or "".
func (r Result) Code() string { return params.Code(r.Payload) }

// JSON renders the payload as the text sent back to the model.
func (r Result) JSON() string {
	b, err := json.Marshal(r.Payload)
	if err != nil {
		b, _ = json.Marshal(params.Error("failed to encode tool result: %v", err))
	}
	return string(b)
}
