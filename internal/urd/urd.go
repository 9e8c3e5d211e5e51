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

// Package urd implements the reproducibility ledger client: a
// transaction's resulting JobList and observed dependencies are posted
// to it over a synchronous retry loop built on net/http plus an
// explicit retry budget, with HTTP Basic auth headers built by hand
// with encoding/base64.
package urd

import ("bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-ieproxy"

	"github.com/accelerator-io/accelerator/internal/accerr"
	"github.com/accelerator-io/accelerator/internal/automation"
	"github.com/accelerator-io/accelerator/internal/joblist")

const (retryBudget = 3
	retryDelay = 4 * time.Second)

// Response is the ledger's stored record for one path/timestamp. A
// Response decoded from an empty or null body (Empty true) is the
// "nothing recorded yet" sentinel.
type Response struct {
	Caption string `json:"caption"`
	Timestamp string `json:"timestamp"`
	JobList joblist.List `json:"joblist"`
	Deps map[string]AsDep `json:"deps"`
	empty bool
}

// Empty reports whether this Response is the "nothing recorded" sentinel,
// the Go analogue of `if urd.latest(...):` over an EmptyUrdResponse.
func (r Response) Empty() bool { return r.empty }

// AsDep is the recorded-dependency projection of a Response: the fields
// finish posts back to the ledger.
type AsDep struct {
	Timestamp string `json:"timestamp"`
	JobList joblist.List `json:"joblist"`
	Caption string `json:"caption"`
}

// Client talks to the reproducibility ledger over HTTP.
type Client struct {
	BaseURL string
	User string
	Password string
	Flags map[string]bool
	Horizon string
	HTTP *http.Client

	automation *automation.Automation

	mu sync.Mutex
	current string
	currentTimestamp string
	currentCaption string
	update bool
	deps map[string]AsDep
	latestJobList *joblist.List
}

// New builds a Client authenticated via HTTP Basic against user/password,
// bound to a (shared) Automation whose anonymous JobList is the
// transaction's accumulating output.
func New(baseURL, user, password string, a *automation.Automation) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		User: user,
		Password: password,
		automation: a,
		HTTP: &http.Client{
			Transport: &http.Transport{Proxy: ieproxy.GetProxyFunc},
		},
	}
}

func (c *Client) authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.User+":"+c.Password))
}

// path prepends "<user>/" to a bare name; names that already contain a
// slash are left alone.
func (c *Client) path(p string) string {
	if strings.Contains(p, "/") {
		return p
	}
	return c.User + "/" + p
}

func (c *Client) latestStr() string {
	if c.Horizon != "" {
		return "<=" + c.Horizon
	}
	return "latest"
}

// call performs one retried request: transport errors and malformed
// JSON each cost one of retryBudget attempts with retryDelay between
// tries; HTTP 401/409 fail immediately ("Retry policy").
func (c *Client) call(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	escaped := strings.ReplaceAll(rawURL, " ", "%20")
	tries := retryBudget
	for {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, escaped, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", c.authHeader())
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			tries--
			if tries <= 0 {
				return nil, &accerr.TransportError{Cause: err}
			}
			time.Sleep(retryDelay)
			continue
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &accerr.AuthError{Path: rawURL}
		}
		if resp.StatusCode == http.StatusConflict {
			return nil, &accerr.ConflictError{Path: rawURL}
		}
		if resp.StatusCode >= 400 {
			tries--
			if tries <= 0 {
				return nil, &accerr.TransportError{Cause: fmt.Errorf("urd: http %d", resp.StatusCode)}
			}
			time.Sleep(retryDelay)
			continue
		}
		if readErr != nil {
			tries--
			if tries <= 0 {
				return nil, &accerr.TransportError{Cause: readErr}
			}
			time.Sleep(retryDelay)
			continue
		}
		if len(respBody) > 0 && !json.Valid(respBody) {
			tries--
			if tries <= 0 {
				return nil, &accerr.TransportError{Cause: fmt.Errorf("urd: malformed JSON response")}
			}
			time.Sleep(retryDelay)
			continue
		}
		return respBody, nil
	}
}

func decodeResponse(raw []byte) (Response, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Response{empty: true}, nil
	}
	var r Response
	if err := json.Unmarshal(raw, &r); err != nil {
		return Response{}, err
	}
	if r.Timestamp == "" {
		r.Timestamp = "0"
	}
	return r, nil
}

// Begin opens a transaction against path, clearing the bound
// Automation's record.
func (c *Client) Begin(path string, timestamp, caption string, update bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != "" {
		return &accerr.UsageError{Reason: fmt.Sprintf("tried to begin %s while running %s", path, c.current)}
	}
	c.current = c.path(path)
	c.currentTimestamp = timestamp
	c.currentCaption = caption
	c.update = update
	c.deps = map[string]AsDep{}
	c.latestJobList = nil
	if c.automation != nil {
		c.automation.ClearRecord()
	}
	return nil
}

// Abort clears the open transaction without posting anything.
func (c *Client) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = ""
}

// get performs a dependency-registering fetch ("get").
func (c *Client) get(ctx context.Context, path string, a...string) (Response, error) {
	c.mu.Lock()
	if c.current == "" {
		c.mu.Unlock()
		return Response{}, &accerr.UsageError{Reason: "can't record dependency with nothing running"}
	}
	p := c.path(path)
	if _, dup := c.deps[p]; dup {
		c.mu.Unlock()
		return Response{}, &accerr.UsageError{Reason: "duplicate " + p}
	}
	c.mu.Unlock()

	parts := append([]string{c.BaseURL, p}, a...)
	raw, err := c.call(ctx, http.MethodGet, strings.Join(parts, "/"), nil)
	if err != nil {
		return Response{}, err
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		return Response{}, err
	}

	c.mu.Lock()
	if !resp.Empty() {
		c.deps[p] = AsDep{Timestamp: resp.Timestamp, JobList: resp.JobList, Caption: resp.Caption}
	}
	jl := resp.JobList
	c.latestJobList = &jl
	c.mu.Unlock()
	return resp, nil
}

// Get fetches path at an exact timestamp, registering it as a dependency.
func (c *Client) Get(ctx context.Context, path, timestamp string) (Response, error) {
	return c.get(ctx, path, timestamp)
}

// Latest fetches the most recent record at or below Horizon, if set.
func (c *Client) Latest(ctx context.Context, path string) (Response, error) {
	return c.get(ctx, path, c.latestStr())
}

// First fetches the earliest record.
func (c *Client) First(ctx context.Context, path string) (Response, error) {
	return c.get(ctx, path, "first")
}

func (c *Client) peek(ctx context.Context, path string, a...string) (Response, error) {
	p := c.path(path)
	parts := append([]string{c.BaseURL, p}, a...)
	raw, err := c.call(ctx, http.MethodGet, strings.Join(parts, "/"), nil)
	if err != nil {
		return Response{}, err
	}
	return decodeResponse(raw)
}

// Peek fetches path at timestamp without registering a dependency or
// updating the latest joblist ("peek*").
func (c *Client) Peek(ctx context.Context, path, timestamp string) (Response, error) {
	return c.peek(ctx, path, timestamp)
}

// PeekLatest is Peek at the latest (or Horizon-bounded) timestamp.
func (c *Client) PeekLatest(ctx context.Context, path string) (Response, error) {
	return c.peek(ctx, path, c.latestStr())
}

// PeekFirst is Peek at the earliest timestamp.
func (c *Client) PeekFirst(ctx context.Context, path string) (Response, error) {
	return c.peek(ctx, path, "first")
}

// Since lists timestamps strictly after the given one.
func (c *Client) Since(ctx context.Context, path, timestamp string) ([]string, error) {
	p := c.path(path)
	u := fmt.Sprintf("%s/%s/since/%s", c.BaseURL, p, timestamp)
	raw, err := c.call(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type finishPayload struct {
	User string `json:"user"`
	Automata string `json:"automation"`
	JobList joblist.List `json:"joblist"`
	Deps map[string]AsDep `json:"deps"`
	Caption string `json:"caption"`
	Timestamp string `json:"timestamp"`
	Flags []string `json:"flags,omitempty"`
}

// Finish posts the transaction's recorded JobList and dependencies to
// <url>/add and closes the transaction.
func (c *Client) Finish(ctx context.Context, path, timestamp, caption string) error {
	c.mu.Lock()
	p := c.path(path)
	if c.current == "" {
		c.mu.Unlock()
		return &accerr.UsageError{Reason: fmt.Sprintf("tried to finish %s with nothing running", p)}
	}
	if p != c.current {
		c.mu.Unlock()
		return &accerr.UsageError{Reason: fmt.Sprintf("tried to finish %s while running %s", p, c.current)}
	}
	idx := strings.IndexByte(p,'/')
	user, automataName := p[:idx], p[idx+1:]
	if caption == "" {
		caption = c.currentCaption
	}
	if timestamp == "" {
		timestamp = c.currentTimestamp
	}
	update := c.update
	deps := c.deps
	c.current = ""
	c.mu.Unlock()

	if timestamp == "" {
		return &accerr.UsageError{Reason: fmt.Sprintf("no timestamp specified in begin or finish for %s", p)}
	}

	var jl joblist.List
	if c.automation != nil {
		jl = c.automation.Jobs()
	}
	payload := finishPayload{User: user, Automata: automataName, JobList: jl, Deps: deps, Caption: caption, Timestamp: timestamp}
	if update {
		payload.Flags = []string{"update"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, http.MethodPost, c.BaseURL+"/add", body)
	return err
}

// Truncate removes every record at or after timestamp.
func (c *Client) Truncate(ctx context.Context, path, timestamp string) error {
	u := fmt.Sprintf("%s/truncate/%s/%s", c.BaseURL, c.path(path), timestamp)
	_, err := c.call(ctx, http.MethodPost, u, []byte(""))
	return err
}

// BuildOptions groups Build/BuildChained's keyword arguments.
type BuildOptions struct {
	Options map[string]interface{}
	Datasets map[string]string
	JobIDs map[string]string
	Name string
	Caption string
	WhyBuild string
}

// Build is a thin wrapper over the bound Automation's CallMethod
// ("build"). When opts.WhyBuild is set, the returned jobid is empty and
// whyBuild carries the daemon's report instead.
func (c *Client) Build(ctx context.Context, method string, opts BuildOptions) (jobid string, whyBuild json.RawMessage, err error) {
	return c.automation.CallMethod(ctx, method, automation.CallOptions{
		Options: map[string]map[string]interface{}{method: opts.Options},
		Datasets: map[string]map[string]string{method: opts.Datasets},
		JobIDs: map[string]map[string]string{method: opts.JobIDs},
		RecordAs: opts.Name,
		Caption: opts.Caption,
		WhyBuild: opts.WhyBuild,
	})
}

// BuildChained is Build with datasets["previous"] injected from the
// last get/latest/first response's joblist under Name (// "build_chained").
func (c *Client) BuildChained(ctx context.Context, method string, opts BuildOptions) (string, json.RawMessage, error) {
	if opts.Name == "" {
		return "", nil, &accerr.UsageError{Reason: "build_chained must have a name"}
	}
	if _, has := opts.Datasets["previous"]; has {
		return "", nil, &accerr.UsageError{Reason: "don't specify previous dataset to build_chained"}
	}
	c.mu.Lock()
	latest := c.latestJobList
	c.mu.Unlock()
	if latest == nil {
		return "", nil, &accerr.UsageError{Reason: "can't build_chained without a dependency to chain from"}
	}
	ref, ok := latest.Get(opts.Name)
	if !ok {
		return "", nil, &accerr.UsageError{Reason: fmt.Sprintf("no %q entry to chain from", opts.Name)}
	}
	datasets := map[string]string{}
	for k, v := range opts.Datasets {
		datasets[k] = v
	}
	datasets["previous"] = ref.JobID
	opts.Datasets = datasets
	return c.Build(ctx, method, opts)
}
