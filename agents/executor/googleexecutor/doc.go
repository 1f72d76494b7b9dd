/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package googleexecutor adapts Google Gemini to the agent loop and to the
review gate.

A Model renders the transcript as genai contents on every call and converts
the first candidate into an agentloop.Response. Model turns are replayed
from the candidate content the API returned, so thought signatures survive.
Function calls that arrive without an ID get a synthetic one for pairing
inside the harness; it is stripped before the turn is sent back.

# Usage

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return err
	}

	model, err := googleexecutor.New(client,
		googleexecutor.WithModel("gemini-2.5-pro"),
		googleexecutor.WithResourceLabels(map[string]string{"team": "web"}),
	)

Review requests set the response MIME type to application/json so the
verdict arrives without prose around it.

# Malformed function calls

Gemini occasionally finishes with MALFORMED_FUNCTION_CALL. Generate asks
once more with the list of available functions; if that also fails the turn
is reported as truncated and the loop nudges the model to continue.
*/
package googleexecutor
