/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package toolcall defines the provider-independent tool vocabulary: calls,
// definitions, results and the static Registry handed to the model.
//
// Tool arguments are declared as Go structs and reflected into definitions:
//
//	type readFileArgs struct {
//		Path string `json:"path" jsonschema:"required" jsonschema_description:"Path relative to the repository root"`
//	}
//
//	def := toolcall.DefinitionFor[readFileArgs]("read_file", "Read a file.")
//	args, err := toolcall.Decode[readFileArgs](def, call)
//
// The claudetool and googletool packages convert definitions and results to
// the SDK types of each provider.
package toolcall
