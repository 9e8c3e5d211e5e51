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

package common

import ("reflect"

	"github.com/JeffreyRichter/enum/enum")

// JobStatus is the lifecycle status the daemon reports for a job.
var EJobStatus = JobStatus(0)

type JobStatus uint32

func (JobStatus) InProgress() JobStatus { return JobStatus(0) }
func (JobStatus) Queued() JobStatus { return JobStatus(1) }
func (JobStatus) Done() JobStatus { return JobStatus(2) }
func (JobStatus) Failed() JobStatus { return JobStatus(3) }
func (JobStatus) Cancelled() JobStatus { return JobStatus(4) }

func (j JobStatus) String() string {
	return enum.StringInt(j, reflect.TypeOf(j))
}

func (j *JobStatus) Parse(s string) error {
	val, err := enum.Parse(reflect.TypeOf(j), s, false)
	if err == nil {
		*j = val.(JobStatus)
	}
	return err
}

// VerboseMode names the wait-loop progress modes false, true, "dots",
// "log". Automation selects its mode through automation.Verbose, not
// through this type.
var EVerboseMode = VerboseMode(0)

type VerboseMode uint8

func (VerboseMode) Silent() VerboseMode { return VerboseMode(0) }
func (VerboseMode) Line() VerboseMode { return VerboseMode(1) } // any other truthy value: CR-refreshed single line
func (VerboseMode) Dots() VerboseMode { return VerboseMode(2) }
func (VerboseMode) Log() VerboseMode { return VerboseMode(3) }

func (v VerboseMode) String() string {
	return enum.StringInt(v, reflect.TypeOf(v))
}

// OutputFormat selects how the CLI renders results.
var EOutputFormat = OutputFormat(0)

type OutputFormat uint8

func (OutputFormat) Text() OutputFormat { return OutputFormat(0) }
func (OutputFormat) Json() OutputFormat { return OutputFormat(1) }

func (o OutputFormat) String() string {
	return enum.StringInt(o, reflect.TypeOf(o))
}

func (o *OutputFormat) Parse(s string) error {
	if s == "" {
		*o = EOutputFormat.Text()
		return nil
	}
	val, err := enum.Parse(reflect.TypeOf(o), s, true)
	if err == nil {
		*o = val.(OutputFormat)
	}
	return err
}

// JobPhase is the phase the host reports for the currently running job,
// injected alongside JOBID/SLICES.
var EJobPhase = JobPhase(0)

type JobPhase uint8

func (JobPhase) Prepare() JobPhase { return JobPhase(0) }
func (JobPhase) Analysis() JobPhase { return JobPhase(1) }
func (JobPhase) Synthesis() JobPhase { return JobPhase(2) }

func (p JobPhase) String() string {
	return enum.StringInt(p, reflect.TypeOf(p))
}
