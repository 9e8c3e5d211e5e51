// Copyright © 2026 accelerator-io
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package accerr holds the typed error kinds: the daemon/submission
// errors (SubmitError, JobError), the ledger's transport and auth errors
// (TransportError, AuthError, ConflictError), and the two purely
// client-side kinds (ValidationError, UsageError).
package accerr

import "fmt"

// SubmitError wraps a non-empty `error` field in a /submit response.
type SubmitError struct {
	Method string
	Message string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit failed for %s: %s", e.Method, e.Message)
}

// JobError is raised when the daemon's /status response carries a non-empty
// last_error. It carries the (jobid, method, status) triple and formats as
// a multi-line block the way a failing job is reported on the terminal.
type JobError struct {
	JobID string
	Method string
	Status string
}

func (e *JobError) Error() string {
	return e.FormatMessage()
}

// FormatMessage renders the triple as a labelled multi-line block, one
// labelled line per field.
func (e *JobError) FormatMessage() string {
	return fmt.Sprintf("Failed to build job:\n jobid: %s\n method: %s\n status: %s", e.JobID, e.Method, e.Status)
}

// TransportError wraps a network failure or malformed JSON talking to the
// ledger. It is the only retryable kind.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("urd transport error: %v", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// AuthError wraps an HTTP 401 from the ledger. Non-retryable.
type AuthError struct {
	Path string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("urd authentication failed for %s", e.Path)
}

// ConflictError wraps an HTTP 409 from the ledger. Non-retryable.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("urd conflict for %s", e.Path)
}

// ValidationError is a structural violation detected client-side: duplicate
// writer name, mismatched slice line counts, hashlabel mismatch on append,
// unknown column type, corrupt version tuple, columns/filenames key
// mismatch, lines length != SLICES.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}

// UsageError is misuse of the Urd transaction lifecycle: begin within
// begin, finish without begin, duplicate dependency registration.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return "usage error: " + e.Reason
}
