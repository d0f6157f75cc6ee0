// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package sparql

import "fmt"

// maxQueryInError bounds how much query text is carried in a QueryFailure.
const maxQueryInError = 200

// QueryFailure is returned when an endpoint could not be reached, or kept
// answering with a non-200 status, through every retry.
type QueryFailure struct {
	Endpoint string
	Query    string // truncated
	Attempts int
	Err      error
}

func (e *QueryFailure) Error() string {
	return fmt.Sprintf("sparql query failed on %s after %d attempt(s): %v [query: %s]",
		e.Endpoint, e.Attempts, e.Err, e.Query)
}

func (e *QueryFailure) Unwrap() error { return e.Err }

// MalformedResultError means the endpoint answered but the answer cannot be
// used: undecodable JSON or a required variable missing from a row. It is
// never retried; callers decide whether it means "no data".
type MalformedResultError struct {
	Variable string
	Reason   string
}

func (e *MalformedResultError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("malformed sparql result: %s: ?%s", e.Reason, e.Variable)
	}
	return "malformed sparql result: " + e.Reason
}

// StatusError records a non-200 response from the endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
