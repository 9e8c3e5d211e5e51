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

// Package automation implements Automation: builds method invocations,
// submits them to a daemon.Client, waits for completion while surfacing
// progress, and records resulting jobs into named JobLists. Signal
// handling is installed once behind a sync.Once guard, and progress
// waiting is built around a context-cancelable loop.
package automation

import ("context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/accelerator-io/accelerator/internal/daemon"
	"github.com/accelerator-io/accelerator/internal/joblist")

// Monitor receives lifecycle notifications during submit/wait.
type Monitor interface {
	Submit(method string)
	Ping()
	Done()
}

// Verbose selects how the wait loop renders progress.
type Verbose int

const (VerboseSilent Verbose = iota
	VerboseLine // CR-refreshed single line
	VerboseDots
	VerboseLog)

// Automation holds per-instance submission state bound to one
// daemon.Client.
type Automation struct {
	Client *daemon.Client
	Dataset string // legacy workspace name
	SubjobCookie string
	Flags map[string]bool
	Monitor Monitor
	Verbose Verbose

	mu sync.Mutex
	history []historyEntry
	record map[string]joblist.List
	depMethods map[string][]string

	// pending submission state, reset by beginSubmission.
	method string
	caption string
	params map[string]*methodParams
}

type historyEntry struct {
	setup setup
	response *daemon.SubmitResponse
}

type methodParams struct {
	Options map[string]interface{} `json:"options"`
	Datasets map[string]string `json:"datasets"`
	JobIDs map[string]string `json:"jobids"`
}

type setup struct {
	Caption string `json:"caption"`
	Method string `json:"method"`
	Params map[string]*methodParams `json:"params"`
	SubjobCookie string `json:"subjob_cookie,omitempty"`
	ParentPID int `json:"parent_pid,omitempty"`
	WhyBuild string `json:"why_build,omitempty"`
}

// New builds an Automation bound to client, and fetches the method
// dependency registry up front ("refreshed from /methods/
// on construction").
func New(ctx context.Context, client *daemon.Client, dataset string, flags map[string]bool) (*Automation, error) {
	installSignalHandler()
	a := &Automation{
		Client: client,
		Dataset: dataset,
		Flags: flags,
		record: map[string]joblist.List{},
	}
	if err := a.UpdateMethods(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// ClearRecord resets the accumulated job record, the way Urd.begin
// starts a fresh transaction's output.
func (a *Automation) ClearRecord() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record = map[string]joblist.List{}
}

// Jobs is the anonymous record: jobs recorded under no explicit name.
func (a *Automation) Jobs() joblist.List {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.record[""]
}

// Record returns the JobList recorded under name ("" for anonymous).
func (a *Automation) Record(name string) joblist.List {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.record[name]
}

// UpdateMethods re-fetches the method registry from /methods/ and
// rebuilds dep_methods.
func (a *Automation) UpdateMethods(ctx context.Context) error {
	info, err := a.Client.Methods(ctx)
	if err != nil {
		return err
	}
	dep := make(map[string][]string, len(info))
	for name, m := range info {
		dep[name] = append([]string(nil), m.Dep...)
	}
	a.mu.Lock()
	a.depMethods = dep
	a.mu.Unlock()
	return nil
}

func (a *Automation) beginSubmission(method, caption string) {
	if caption == "" {
		caption = "fsm_" + method
	}
	a.method = method
	a.caption = caption
	a.params = map[string]*methodParams{}
}

func (a *Automation) paramsFor(method string) *methodParams {
	p, ok := a.params[method]
	if !ok {
		p = &methodParams{Options: map[string]interface{}{}, Datasets: map[string]string{}, JobIDs: map[string]string{}}
		a.params[method] = p
	}
	return p
}

// whyBuildFlag resolves "why_build" as submit does: an explicit
// request wins, else the "why_build" flag degrades to "on_build"
// (step 1).
func (a *Automation) whyBuildFlag(requested string) string {
	if requested != "" {
		return requested
	}
	if a.Flags["why_build"] {
		return "on_build"
	}
	return ""
}

// Submit encodes the current params and posts them to the daemon,
// waiting for completion unless wait is false or the response is
// already done ("Submission protocol").
func (a *Automation) Submit(ctx context.Context, wait bool, whyBuild string) (*daemon.SubmitResponse, error) {
	why := a.whyBuildFlag(whyBuild)
	if a.Monitor != nil && why == "" {
		a.Monitor.Submit(a.method)
	}
	s := setup{Caption: a.caption, Method: a.method, Params: a.params, WhyBuild: why}
	if a.SubjobCookie != "" {
		s.SubjobCookie = a.SubjobCookie
		s.ParentPID = os.Getpid()
	}
	encoded, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	t0 := time.Now()
	resp, err := a.Client.Submit(ctx, encoded)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.history = append(a.history, historyEntry{setup: s, response: resp})
	a.mu.Unlock()

	if len(resp.WhyBuild) == 0 && a.SubjobCookie == "" {
		printJobList(resp.Jobs)
	}

	if wait && !resp.Done {
		if err := a.wait(ctx, t0); err != nil {
			return resp, err
		}
	}
	if a.Monitor != nil && why == "" {
		a.Monitor.Done()
	}
	return resp, nil
}

func printJobList(jobs map[string]daemon.JobResult) {
	type row struct{ method, link, make string }
	rows := make([]row, 0, len(jobs))
	for method, jr := range jobs {
		rows = append(rows, row{method, jr.Link, jr.MakeLabel()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].link < rows[j].link })
	for _, r := range rows {
		fmt.Printf(" - %44s %s %s\n", r.method, r.make, r.link)
	}
}

// wait polls /status (or /status/full in verbose mode) until idle,
// rendering progress per the selected Verbose mode ("Wait
// loop").
func (a *Automation) wait(ctx context.Context, t0 time.Time) error {
	full := a.Verbose != VerboseSilent
	status, err := a.Client.Status(ctx, full, a.SubjobCookie, 0)
	if err != nil {
		return err
	}
	if status.Idle {
		return nil
	}
	waited := int(time.Since(t0).Round(time.Second).Seconds()) - 1
	if a.Verbose == VerboseDots {
		fmt.Print("[" + strings.Repeat(".", maxInt(waited, 0)))
	}
	for !status.Idle {
		if consumeStatusDumpRequest() {
			dumpStatusStacks(status.StatusStacks)
		}
		waited++
		if waited%60 == 0 && a.Monitor != nil {
			a.Monitor.Ping()
		}
		a.renderProgress(t0, status.Current, waited)

		status, err = a.Client.Status(ctx, full, a.SubjobCookie, 1)
		if err != nil {
			return err
		}
	}
	if a.Verbose == VerboseDots {
		fmt.Printf("(%d)]\n", int(time.Since(t0).Seconds()))
	} else {
		fmt.Printf("\r\033[K %d seconds\n", int(time.Since(t0).Round(time.Second).Seconds()))
	}
	return nil
}

func (a *Automation) renderProgress(t0 time.Time, current *daemon.CurrentStatus, waited int) {
	if a.Verbose == VerboseSilent {
		return
	}
	now := time.Now()
	elapsed := now.Sub(t0).Seconds()
	method := a.method
	methodElapsed := 0.0
	if current != nil {
		elapsed = current.Elapsed
		method = current.Method
		methodElapsed = current.MethodElapsed
	}
	switch a.Verbose {
	case VerboseDots:
		if waited%60 == 0 {
			fmt.Printf("[%d]\n ", waited)
		} else {
			fmt.Print(".")
		}
	case VerboseLog:
		if waited%60 == 0 {
			fmt.Printf("%d seconds, still waiting for %s (%d seconds)\n", waited, method, int(methodElapsed))
		}
	default:
		fmt.Printf("\r\033[K %.1f %s %.1f", elapsed, method, methodElapsed)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// JobID returns the jobid the last submit's response assigned to
// method.
func (a *Automation) JobID(method string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.history) == 0 {
		return "", fmt.Errorf("automation: no submission yet")
	}
	resp := a.history[len(a.history)-1].response
	jr, ok := resp.Jobs[method]
	if !ok {
		return "", fmt.Errorf("automation: no job for method %q", method)
	}
	return jr.Link, nil
}

// History returns the recorded (setup, response) pairs, oldest first.
func (a *Automation) History() []historyEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]historyEntry(nil), a.history...)
}

// CallOptions groups call_method's keyword arguments.
type CallOptions struct {
	DefOpt map[string]map[string]interface{}
	DefData map[string]map[string]string
	DefJob map[string]map[string]string
	// DatasetNames and JobNames are the flat name->value resolution
	// tables Datasets/JobIDs entries are resolved against (one level of
	// indirection, the Go analogue of the Python's single flat `defdata`
	// dict doing double duty as both a per-method default source and a
	// name resolution table). Distinct from DefData/DefJob, which are
	// merged directly into a method's params rather than resolved.
	DatasetNames map[string]string
	JobNames map[string]string
	Options map[string]map[string]interface{}
	Datasets map[string]map[string]string
	JobIDs map[string]map[string]string
	RecordIn string
	// RecordAs renames the originally requested method's record entry.
	RecordAs string
	WhyBuild string
	Caption string
}

// CallMethod computes the transitive closure of dep_methods starting at
// method, submits all of them in one request, waits for completion, and
// records each visited method's resulting jobid (// "call_method").
//
// When opts.WhyBuild is set, the caller is explicitly asking why a build
// would happen rather than asking for one: CallMethod returns the
// daemon's why-build report instead of a jobid, and the caller decides
// what to do with it. The print-and-exit report below only fires for the
// *unrequested* case, where flags alone made the daemon attach a
// why-build payload to an otherwise normal submission.
func (a *Automation) CallMethod(ctx context.Context, method string, opts CallOptions) (string, json.RawMessage, error) {
	a.mu.Lock()
	a.beginSubmission(method, opts.Caption)
	depMethods := a.depMethods
	a.mu.Unlock()

	todo := map[string]bool{method: true}
	visited := map[string]bool{}
	var order []string

	for len(todo) > 0 {
		var m string
		for k := range todo {
			m = k
			break
		}
		delete(todo, m)

		p := a.paramsFor(m)
		for k, v := range opts.DefOpt[m] {
			p.Options[k] = v
		}
		for k, v := range opts.Options[m] {
			p.Options[k] = v
		}
		for k, v := range opts.DefData[m] {
			p.Datasets[k] = v
		}
		for k, v := range resolveNames(opts.Datasets[m], opts.DatasetNames) {
			p.Datasets[k] = v
		}
		for k, v := range opts.DefJob[m] {
			p.JobIDs[k] = v
		}
		for k, v := range resolveNames(opts.JobIDs[m], opts.JobNames) {
			p.JobIDs[k] = v
		}

		visited[m] = true
		order = append(order, m)
		for _, dep := range depMethods[m] {
			if !visited[dep] {
				todo[dep] = true
			}
		}
	}

	resp, err := a.Submit(ctx, true, opts.WhyBuild)
	if err != nil {
		return "", nil, err
	}
	if opts.WhyBuild != "" {
		return "", resp.WhyBuild, nil
	}
	if len(resp.WhyBuild) > 0 && string(resp.WhyBuild) != "null" {
		a.reportWouldHaveBuilt(resp.WhyBuild)
		os.Exit(0)
	}

	a.mu.Lock()
	record := a.record[opts.RecordIn]
	for _, m := range order {
		name := m
		if m == method && opts.RecordAs != "" {
			name = opts.RecordAs
		}
		jr := resp.Jobs[m]
		record = record.Insert(name, jr.Link)
	}
	a.record[opts.RecordIn] = record
	a.mu.Unlock()

	jobid, err := a.JobID(method)
	return jobid, nil, err
}

// reportWouldHaveBuilt prints the would-have-built report and call site,
// mirroring call_method step 7 before the caller terminates the process.
func (a *Automation) reportWouldHaveBuilt(whyBuild json.RawMessage) {
	fmt.Println("Would have built from:")
	fmt.Println("======================")
	enc, _ := json.MarshalIndent(a.history[len(a.history)-1].setup, "", " ")
	fmt.Println(string(enc))
	fmt.Println("Could have avoided build if:")
	fmt.Println("============================")
	fmt.Println(string(whyBuild))
	fmt.Println()
	_, file, line, ok := runtime.Caller(2)
	if ok {
		fmt.Printf("Called from %s line %d\n", file, line)
	}
}

// NormalizeOptions implements automata_common.py's call_method step 2
// dictofdicts for options: a caller who only has options for method
// itself can hand in a flat map (argument name -> value) without
// nesting it under method's own name; a map that already has method as
// a top-level key is assumed already nested per-method (the
// options={m1:{...}, m2:{...}} form) and is returned as-is, reshaped
// into the concrete per-method type CallMethod consumes. This is the
// one normalization point every caller goes through, CLI or otherwise,
// instead of each caller hand-rolling its own wrap.
func NormalizeOptions(method string, flatOrNested map[string]interface{}) map[string]map[string]interface{} {
	if _, ok := flatOrNested[method]; ok {
		out := make(map[string]map[string]interface{}, len(flatOrNested))
		for k, v := range flatOrNested {
			if m, ok := v.(map[string]interface{}); ok {
				out[k] = m
			}
		}
		return out
	}
	return map[string]map[string]interface{}{method: flatOrNested}
}

// NormalizeDatasets is NormalizeOptions for datasets/jobids, whose
// leaves are strings (a dataset name, a comma-joined list of them, or a
// name resolved later via DatasetNames/JobNames) rather than arbitrary
// option values.
func NormalizeDatasets(method string, flatOrNested map[string]interface{}) map[string]map[string]string {
	if _, ok := flatOrNested[method]; ok {
		out := make(map[string]map[string]string, len(flatOrNested))
		for k, v := range flatOrNested {
			out[k] = toStringMap(v)
		}
		return out
	}
	return map[string]map[string]string{method: toStringMap(flatOrNested)}
}

func toStringMap(v interface{}) map[string]string {
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]interface{}:
		out := make(map[string]string, len(m))
		for k, vv := range m {
			if s, ok := vv.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}

// resolveNames resolves each value in in against names, the flat
// method-independent name->value table (CallOptions.DatasetNames or
// .JobNames): a value is either passed through as a literal, or resolved
// against names, where a resolved value that is itself a comma-joined
// list is carried through as-is (one level of indirection before the
// terminal must be a plain string or comma-list).
func resolveNames(in map[string]string, names map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, name := range in {
		out[key] = resolveOne(name, names)
	}
	return out
}

func resolveOne(name string, names map[string]string) string {
	parts := strings.Split(name, ",")
	fixed := make([]string, 0, len(parts))
	for _, n := range parts {
		resolved, ok := names[n]
		if !ok {
			resolved = n
		}
		fixed = append(fixed, resolved)
	}
	return strings.Join(fixed, ",")
}

// --- signal-driven status dump ---------------------------------

var (signalOnce sync.Once
	dumpRequested bool
	dumpRequestMu sync.Mutex)

// installSignalHandler arms SIGUSR1 (and SIGINFO on platforms that
// define it, see signal_bsd.go/signal_other.go) to flip a flag read by
// the wait loop. Installation is a process-wide sync.Once, since Go has
// no portable way to query another package's existing disposition; the
// guard instead ensures this package only calls signal.Notify once no
// matter how many Automation instances are constructed.
func installSignalHandler() {
	signalOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, statusDumpSignals()...)
		go func() {
			for range ch {
				dumpRequestMu.Lock()
				dumpRequested = true
				dumpRequestMu.Unlock()
			}
		}()
	})
}

func consumeStatusDumpRequest() bool {
	dumpRequestMu.Lock()
	defer dumpRequestMu.Unlock()
	r := dumpRequested
	dumpRequested = false
	return r
}

func dumpStatusStacks(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	fmt.Println(string(raw))
}
