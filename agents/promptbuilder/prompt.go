/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"maps"

	"gopkg.in/yaml.v3"
)

// stringLiteral only accepts untyped string constants from callers outside
// this package, so ticket or repository text cannot be bound verbatim.
type stringLiteral string

// Bindable is implemented by values that know how to fill a prompt, such as
// a ticket task or a review request.
type Bindable interface {
	Bind(p *Prompt) (*Prompt, error)
}

// encoder renders a bound value.
type encoder func() (string, error)

// Prompt is an immutable template with {{name}} placeholders. Every Bind
// method returns a new Prompt.
type Prompt struct {
	template string
	bound    map[string]encoder
}

// NewPrompt parses template and records its placeholders.
func NewPrompt(template stringLiteral) (*Prompt, error) {
	bound := map[string]encoder{}
	tmpl, err := walkTemplate(string(template), func(name string) (string, error) {
		bound[name] = nil
		return "{{" + name + "}}", nil
	})
	if err != nil {
		return nil, err
	}
	return &Prompt{template: tmpl, bound: bound}, nil
}

// MustNewPrompt is NewPrompt for package-level templates; it panics on a
// malformed template.
func MustNewPrompt(template stringLiteral) *Prompt {
	p, err := NewPrompt(template)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Prompt) with(name string, enc encoder) (*Prompt, error) {
	cur, ok := p.bound[name]
	switch {
	case !ok:
		return nil, fmt.Errorf("binding %q not found in template", name)
	case cur != nil:
		return nil, fmt.Errorf("binding %q already bound", name)
	}
	next := &Prompt{template: p.template, bound: maps.Clone(p.bound)}
	next.bound[name] = enc
	return next, nil
}

// BindStringLiteral binds a developer-supplied constant.
func (p *Prompt) BindStringLiteral(name string, value stringLiteral) (*Prompt, error) {
	return p.with(name, func() (string, error) { return string(value), nil })
}

// BindXML binds data marshaled as indented XML. Untrusted text such as
// ticket descriptions and file contents goes through here so it is escaped.
func (p *Prompt) BindXML(name string, data any) (*Prompt, error) {
	return p.with(name, func() (string, error) {
		b, err := xml.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal XML: %w", err)
		}
		return string(b), nil
	})
}

// BindJSON binds data marshaled as indented JSON.
func (p *Prompt) BindJSON(name string, data any) (*Prompt, error) {
	return p.with(name, func() (string, error) {
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(b), nil
	})
}

// BindYAML binds data marshaled as YAML.
func (p *Prompt) BindYAML(name string, data any) (*Prompt, error) {
	return p.with(name, func() (string, error) {
		b, err := yaml.Marshal(data)
		if err != nil {
			return "", fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return string(b), nil
	})
}

// Build renders the prompt. Every placeholder must be bound. Substitution is
// single pass, so placeholders inside bound values are left alone.
func (p *Prompt) Build() (string, error) {
	values := make(map[string]string, len(p.bound))
	for name, enc := range p.bound {
		if enc == nil {
			return "", fmt.Errorf("unbound placeholder: %s", name)
		}
		v, err := enc()
		if err != nil {
			return "", err
		}
		values[name] = v
	}
	return walkTemplate(p.template, func(name string) (string, error) {
		return values[name], nil
	})
}

// Render binds b into p and builds the result.
func Render(p *Prompt, b Bindable) (string, error) {
	bound, err := b.Bind(p)
	if err != nil {
		return "", err
	}
	return bound.Build()
}
