/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"chainguard.dev/ticketagent/agents/schema"
)

// DefinitionFor reflects the argument struct A into a tool definition.
// Field names come from json tags; required fields are marked with
// `jsonschema:"required"` and descriptions with `jsonschema_description`.
func DefinitionFor[A any](name, description string) Definition {
	s := schema.ReflectType[A]()

	required := make(map[string]bool, len(s.Required))
	for _, n := range s.Required {
		required[n] = true
	}

	def := Definition{Name: name, Description: description}
	if s.Properties == nil {
		return def
	}
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		p := Parameter{
			Name:        pair.Key,
			Type:        pair.Value.Type,
			Description: pair.Value.Description,
			Required:    required[pair.Key],
		}
		for _, e := range pair.Value.Enum {
			if v, ok := e.(string); ok {
				p.Enum = append(p.Enum, v)
			}
		}
		def.Parameters = append(def.Parameters, p)
	}
	return def
}

// Decode validates call arguments against def and decodes them into A.
// Missing required fields, undeclared fields and type mismatches are errors.
func Decode[A any](def Definition, call ToolCall) (A, error) {
	var out A

	declared := make(map[string]Parameter, len(def.Parameters))
	for _, p := range def.Parameters {
		declared[p.Name] = p
	}
	for name := range call.Args {
		if _, ok := declared[name]; !ok {
			return out, fmt.Errorf("unexpected parameter %q for %s", name, def.Name)
		}
	}
	for _, p := range def.Parameters {
		v, ok := call.Args[p.Name]
		if p.Required && (!ok || v == nil) {
			return out, fmt.Errorf("%s parameter is required", p.Name)
		}
		if ok && len(p.Enum) > 0 {
			s, _ := v.(string)
			if !slices.Contains(p.Enum, s) {
				return out, fmt.Errorf("%s parameter must be one of %v, got %v", p.Name, p.Enum, v)
			}
		}
	}

	raw, err := json.Marshal(call.Args)
	if err != nil {
		return out, fmt.Errorf("encoding arguments: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("invalid arguments for %s: %w", def.Name, err)
	}
	return out, nil
}
