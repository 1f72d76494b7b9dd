/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder builds model prompts from developer-owned templates.

Templates are string constants with {{name}} placeholders. Untrusted content
(ticket text, file contents, diffs) can only be bound through an encoder,
so it arrives escaped as XML, JSON or YAML:

	var taskPrompt = promptbuilder.MustNewPrompt(`Resolve this ticket:
	{{ticket}}`)

	p, err := taskPrompt.BindXML("ticket", t)
	if err != nil {
		return err
	}
	text, err := p.Build()

Substitution is a single pass, so placeholders that appear inside bound
values are never expanded. Prompts are immutable and safe to share.
*/
package promptbuilder
