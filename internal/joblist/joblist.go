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

// Package joblist implements the ordered record of (method, jobid)
// pairs an Automation accumulates, and its degrade-to-scalar behavior.
package joblist

import ("fmt"
	"strings")

// Ref is a (method, jobid) pair. Equality and hashing use both fields.
// Go has no string-coercion hook, so callers that need the bare jobid
// call JobID explicitly.
type Ref struct {
	Method string
	JobID string
}

// New builds a Ref, accepting a bare jobid (empty method) for convenience.
func New(method, jobid string) Ref {
	return Ref{Method: method, JobID: jobid}
}

// String renders the Ref as its jobid alone, for contexts that print a
// Ref directly.
func (r Ref) String() string {
	return r.JobID
}

// List is an ordered sequence of Ref. Duplicates are allowed; a List has a
// single owner and is not safe for concurrent mutation.
type List []Ref

// Append adds one Ref.
func (l List) Append(r Ref) List {
	return append(l, r)
}

// AppendJobID adds a bare jobid with an empty method.
func (l List) AppendJobID(jobid string) List {
	return append(l, Ref{JobID: jobid})
}

// Insert is the two-argument form used when the method is already known.
func (l List) Insert(method, jobid string) List {
	return append(l, Ref{Method: method, JobID: jobid})
}

// Extend appends every element of other, in order.
func (l List) Extend(other List) List {
	return append(l, other...)
}

// JobID returns the jobid of the last element, or "" when empty
// ("scalar projection").
func (l List) JobID() string {
	if len(l) == 0 {
		return ""
	}
	return l[len(l)-1].JobID
}

// Method returns the method of the last element, or "" when empty.
func (l List) Method() string {
	if len(l) == 0 {
		return ""
	}
	return l[len(l)-1].Method
}

// All returns a comma-separated list of jobids in order.
func (l List) All() string {
	ids := make([]string, len(l))
	for i, r := range l {
		ids[i] = r.JobID
	}
	return strings.Join(ids, ",")
}

// Find returns a new List of the entries whose method matches exactly, in
// original order.
func (l List) Find(method string) List {
	var out List
	for _, r := range l {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

// Get returns the last Ref with the given method, and whether one was
// found; see MustGet for a variant that panics on a miss.
func (l List) Get(method string) (Ref, bool) {
	found := l.Find(method)
	if len(found) == 0 {
		return Ref{}, false
	}
	return found[len(found)-1], true
}

// MustGet returns the last Ref with the given method, panicking if none
// exists.
func (l List) MustGet(method string) Ref {
	r, ok := l.Get(method)
	if !ok {
		panic(fmt.Sprintf("joblist: no entry for method %q", method))
	}
	return r
}

// Slice returns a new List over [i:j), the Go analogue of integer slicing.
func (l List) Slice(i, j int) List {
	out := make(List, j-i)
	copy(out, l[i:j])
	return out
}

// DeleteRef removes exact (method, jobid) matches.
func (l List) DeleteRef(r Ref) List {
	out := l[:0:0]
	for _, e := range l {
		if e != r {
			out = append(out, e)
		}
	}
	return out
}

// DeleteContaining removes every entry whose jobid or method contains s.
func (l List) DeleteContaining(s string) List {
	out := l[:0:0]
	for _, e := range l {
		if !strings.Contains(e.JobID, s) && !strings.Contains(e.Method, s) {
			out = append(out, e)
		}
	}
	return out
}

// Pretty renders a multi-line, index-annotated, column-aligned view.
func (l List) Pretty() string {
	if len(l) == 0 {
		return "JobList([])"
	}
	width := 0
	for _, e := range l {
		if len(e.Method) > width {
			width = len(e.Method)
		}
	}
	var b strings.Builder
	b.WriteString("JobList(\n")
	for i, e := range l {
		fmt.Fprintf(&b, " [%3d] %*s : %s\n", i, width, e.Method, e.JobID)
	}
	b.WriteString(")")
	return b.String()
}

// Record is the mapping from optional record-name to List that an
// Automation keeps. The anonymous record uses key "".
type Record map[string]List

// Jobs returns the anonymous record's list (the List stored under "").
func (r Record) Jobs() List {
	return r[""]
}
