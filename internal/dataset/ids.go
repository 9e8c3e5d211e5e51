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

package dataset

import ("go/token"
	"strings")

// NormalizeID expands a bare dataset id to its canonical form: the short
// form "<jid>" means "<jid>/default"; an already-qualified id passes
// through untouched.
func NormalizeID(id string) string {
	if id == "" {
		return ""
	}
	if strings.Contains(id, "/") {
		return id
	}
	return id + "/default"
}

// NormalizePair normalizes a (jobid, name) pair the same way: only the
// leading path segment of jobid is kept (so passing an id-with-name as
// jobid here is tolerated), name defaults to "default".
func NormalizePair(jobid, name string) string {
	if jobid == "" {
		return ""
	}
	root := jobid
	if idx := strings.IndexByte(jobid,'/'); idx >= 0 {
		root = jobid[:idx]
	}
	if name == "" {
		name = "default"
	}
	return root + "/" + name
}

// SplitID splits a canonical or short dataset-id into its jobid and name
// projections, defaulting name to "default".
func SplitID(id string) (jobid, name string) {
	idx := strings.IndexByte(id,'/')
	if idx < 0 {
		return id, "default"
	}
	return id[:idx], id[idx+1:]
}

// cleanName sanitizes a user-supplied column or writer name into a
// filesystem- and Go-identifier-safe slug: each non-alphanumeric
// character becomes '_', a leading digit gets a '_' prefix, and collisions (with an
// already-seen name or a Go reserved word) are broken by appending '_'
// until unique.
func cleanName(n string, seen map[string]bool) string {
	b := make([]rune, 0, len(n))
	for _, r := range n {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b = append(b, r)
		} else {
			b = append(b, '_')
		}
	}
	if len(b) == 0 {
		b = []rune{'_'}
	}
	if b[0] >= '0' && b[0] <= '9' {
		b = append([]rune{'_'}, b...)
	}
	out := string(b)
	for seen[out] || token.IsKeyword(out) {
		out += "_"
	}
	seen[out] = true
	return out
}
