/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package guard

import (
	"context"

	"chainguard.dev/ticketagent/agents/toolcall"
)

// Tool names exposed to the model.
const (
	ToolReadFile          = "read_file"
	ToolListFiles         = "list_files"
	ToolSearchCode        = "search_code"
	ToolGetDefaultBranch  = "get_default_branch"
	ToolCreateBranch      = "create_branch"
	ToolUpdateFile        = "update_file"
	ToolCreateFile        = "create_file"
	ToolRequestCodeReview = "request_code_review"
	ToolCreatePullRequest = "create_pull_request"
)

// Denial codes carried in denial payloads and on Session.Denials.
const (
	CodeUnknownTool        = "unknown_tool"
	CodeInvalidArguments   = "invalid_arguments"
	CodeBaseRequired       = "base_revision_required"
	CodeBranchMismatch     = "branch_mismatch"
	CodeBranchRequired     = "branch_required"
	CodeReadRequired       = "read_required"
	CodeAlreadyExists      = "already_exists"
	CodeNotFound           = "not_found"
	CodeNoChanges          = "no_changes"
	CodeReviewRequired     = "review_required"
	CodeUnresolvedIssues   = "unresolved_review_issues"
	CodePullRequestCreated = "pull_request_exists"
	CodeUnauthorized       = "unauthorized"
	CodeUnavailable        = "repository_unavailable"
	CodeGatewayError       = "gateway_error"
)

type readFileArgs struct {
	Path      string `json:"path" jsonschema:"required" jsonschema_description:"Repository-relative path of the file to read"`
	Reasoning string `json:"reasoning,omitempty" jsonschema_description:"Why you need this file"`
}

type listFilesArgs struct {
	Path      string `json:"path,omitempty" jsonschema_description:"Directory to list; empty for the repository root"`
	Reasoning string `json:"reasoning,omitempty" jsonschema_description:"What you are looking for"`
}

type searchCodeArgs struct {
	Query     string `json:"query" jsonschema:"required" jsonschema_description:"Text to search for in the default branch"`
	Reasoning string `json:"reasoning,omitempty" jsonschema_description:"What you are looking for"`
}

type getDefaultBranchArgs struct {
	Reasoning string `json:"reasoning,omitempty" jsonschema_description:"Why you need the default branch"`
}

type createBranchArgs struct {
	BranchName string `json:"branch_name,omitempty" jsonschema_description:"Working branch name; must match the branch assigned to this task if given"`
	Reasoning  string `json:"reasoning,omitempty" jsonschema_description:"Why you are ready to branch"`
}

type writeFileArgs struct {
	Path          string `json:"path" jsonschema:"required" jsonschema_description:"Repository-relative path of the file"`
	Content       string `json:"content" jsonschema:"required" jsonschema_description:"Complete new content of the file"`
	CommitMessage string `json:"commit_message,omitempty" jsonschema_description:"Commit message for this change"`
	Reasoning     string `json:"reasoning,omitempty" jsonschema_description:"What this change does"`
}

type requestReviewArgs struct {
	Reasoning string `json:"reasoning,omitempty" jsonschema_description:"What the change is meant to accomplish"`
}

type createPullRequestArgs struct {
	Title     string `json:"title" jsonschema:"required" jsonschema_description:"Pull request title"`
	Body      string `json:"body" jsonschema:"required" jsonschema_description:"Pull request description in markdown"`
	Reasoning string `json:"reasoning,omitempty" jsonschema_description:"Why the change is ready"`
}

type handler func(ctx context.Context, e *Executor, call toolcall.ToolCall) (toolcall.Result, error)

type tool struct {
	def toolcall.Definition
	run handler
}

// bind pairs a definition reflected from A with a handler that receives
// decoded arguments. Argument errors become denials before fn runs.
func bind[A any](name, description string, fn func(*Executor, context.Context, toolcall.ToolCall, A) (toolcall.Result, error)) tool {
	def := toolcall.DefinitionFor[A](name, description)
	return tool{
		def: def,
		run: func(ctx context.Context, e *Executor, call toolcall.ToolCall) (toolcall.Result, error) {
			args, err := toolcall.Decode[A](def, call)
			if err != nil {
				return e.deny(call, CodeInvalidArguments, "%v", err), nil
			}
			return fn(e, ctx, call, args)
		},
	}
}

var tools = []tool{
	bind(ToolReadFile,
		"Read a file. Reads come from the working branch once it exists, otherwise from the default branch. You must read a file before you may update it.",
		(*Executor).readFile),
	bind(ToolListFiles,
		"List the entries of a directory.",
		(*Executor).listFiles),
	bind(ToolSearchCode,
		"Search the default branch for files containing the query. Returns at most 10 paths and the total match count.",
		(*Executor).searchCode),
	bind(ToolGetDefaultBranch,
		"Get the default branch and its latest revision. Required before create_branch.",
		(*Executor).getDefaultBranch),
	bind(ToolCreateBranch,
		"Create the working branch for this task from the default branch head. Safe to call more than once.",
		(*Executor).createBranch),
	bind(ToolUpdateFile,
		"Replace the content of an existing file on the working branch. The file must have been read with read_file first.",
		(*Executor).updateFile),
	bind(ToolCreateFile,
		"Create a new file on the working branch. Fails if the file already exists; use update_file instead.",
		(*Executor).createFile),
	bind(ToolRequestCodeReview,
		"Request an automated review of the working branch against the default branch. A later write invalidates the review.",
		(*Executor).requestCodeReview),
	bind(ToolCreatePullRequest,
		"Open a pull request from the working branch. Only allowed when the latest review approved the change. Ends the task.",
		(*Executor).createPullRequest),
}

var (
	// Registry is the fixed tool vocabulary offered to the model.
	Registry = func() *toolcall.Registry {
		defs := make([]toolcall.Definition, 0, len(tools))
		for _, t := range tools {
			defs = append(defs, t.def)
		}
		return toolcall.MustNewRegistry(defs...)
	}()

	handlers = func() map[string]handler {
		m := make(map[string]handler, len(tools))
		for _, t := range tools {
			m[t.def.Name] = t.run
		}
		return m
	}()
)
