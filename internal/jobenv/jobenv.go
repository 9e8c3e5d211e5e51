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

// Package jobenv carries the process-ambient values the running job
// exposes: JOBID, SLICES and the current phase, injected via an explicit
// value passed to Dataset and DatasetWriter constructors rather than held
// as package globals.
package jobenv

import "github.com/accelerator-io/accelerator/internal/common"

// Env is the host-injected environment for the job currently running.
type Env struct {
	// JobID is the id of the job currently executing.
	JobID string
	// Slices is the fixed partition count for this job.
	Slices int
	// Phase is the job phase: prepare, analysis or synthesis.
	Phase common.JobPhase
	// Root is the filesystem root under which job directories live.
	Root string
}

// New builds an Env for the given jobid/slices/phase/root.
func New(jobID string, slices int, phase common.JobPhase, root string) Env {
	return Env{JobID: jobID, Slices: slices, Phase: phase, Root: root}
}
