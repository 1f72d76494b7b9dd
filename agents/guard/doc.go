/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package guard executes model tool calls for a single task session and
// enforces the ordering rules that keep an agent honest: a file must be
// read before it is updated, writes need a working branch, and a pull
// request needs an approving review of the latest diff.
//
// Refused calls are returned to the model as denial results with a stable
// code so it can correct course. Only a done context or repeated credential
// rejections end the session from here.
//
// # Usage
//
//	s := guard.NewSession(task, "acme/site", "web-1-agent")
//	exec, err := guard.NewExecutor(s, gateway, gate)
//	if err != nil {
//		return err
//	}
//	res, err := exec.Execute(ctx, call)
package guard
