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

// Package daemon implements the HTTP surface an Automation talks to for
// submission, polling, workspace and method metadata: a plain REST
// client over a base URL.
package daemon

import ("bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mattn/go-ieproxy"

	"github.com/accelerator-io/accelerator/internal/accerr")

// JobResult is one entry of a submit response's "jobs" map: whether the
// method was built fresh or linked to an existing job, and its jobid.
type JobResult struct {
	Link string `json:"link"`
	// Make is true for a fresh build, or a string reason for a link when
	// the daemon wants to report why ("link|<reason>").
	Make json.RawMessage `json:"make"`
}

// MakeLabel renders Make for display: "MAKE" for a literal true, the
// string reason if one was given, or "link".
func (j JobResult) MakeLabel() string {
	var b bool
	if json.Unmarshal(j.Make, &b) == nil {
		if b {
			return "MAKE"
		}
		return "link"
	}
	var s string
	if json.Unmarshal(j.Make, &s) == nil && s != "" {
		return s
	}
	return "link"
}

// LastError is one (jobid, method, status) triple reported by /status
// when a build has failed.
type LastError struct {
	JobID string
	Method string
	Status string
}

func (e *LastError) UnmarshalJSON(b []byte) error {
	var triple [3]string
	if err := json.Unmarshal(b, &triple); err != nil {
		return err
	}
	e.JobID, e.Method, e.Status = triple[0], triple[1], triple[2]
	return nil
}

// SubmitResponse is the decoded body of POST /submit.
type SubmitResponse struct {
	Error string `json:"error,omitempty"`
	Jobs map[string]JobResult `json:"jobs,omitempty"`
	WhyBuild json.RawMessage `json:"why_build,omitempty"`
	Done bool `json:"done,omitempty"`
}

// StatusResponse is the decoded body of GET /status and /status/full.
type StatusResponse struct {
	Idle bool `json:"idle"`
	StatusStacks json.RawMessage `json:"status_stacks,omitempty"`
	// Current is (elapsed-seconds, method, this-job-elapsed-seconds),
	// absent/null while idle.
	Current *CurrentStatus `json:"current,omitempty"`
	LastError []LastError `json:"last_error,omitempty"`
}

// CurrentStatus decodes the wire's (elapsed, method, method-elapsed) triple.
type CurrentStatus struct {
	Elapsed float64
	Method string
	MethodElapsed float64
}

func (c *CurrentStatus) UnmarshalJSON(b []byte) error {
	var triple [3]json.RawMessage
	if err := json.Unmarshal(b, &triple); err != nil {
		return err
	}
	if err := json.Unmarshal(triple[0], &c.Elapsed); err != nil {
		return err
	}
	if err := json.Unmarshal(triple[1], &c.Method); err != nil {
		return err
	}
	return json.Unmarshal(triple[2], &c.MethodElapsed)
}

// MethodInfo is one entry of GET /methods/.
type MethodInfo struct {
	Dep []string `json:"dep,omitempty"`
	Fields json.RawMessage `json:"-"`
}

// Client is the daemon's HTTP surface, stateless beyond its base URL and
// transport ("Stateless HTTP client").
type Client struct {
	BaseURL string
	HTTP *http.Client
}

// New builds a Client with a proxy-aware transport, wiring
// mattn/go-ieproxy into the HTTP client construction.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Transport: &http.Transport{Proxy: ieproxy.GetProxyFunc},
		},
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) getText(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return string(body), err
}

// Submit POSTs a form-encoded `json=<encoded-setup>` to /submit. setup is
// the already-JSON-encoded submission body.
func (c *Client) Submit(ctx context.Context, setup []byte) (*SubmitResponse, error) {
	form := url.Values{"json": {string(setup)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/submit", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out SubmitResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &accerr.SubmitError{Message: out.Error}
	}
	return &out, nil
}

// Status polls GET /status (or /status/full when full is set), with the
// given subjob cookie and long-poll timeout in seconds.
func (c *Client) Status(ctx context.Context, full bool, subjobCookie string, timeoutSeconds int) (*StatusResponse, error) {
	path := "/status"
	if full {
		path = "/status/full"
	}
	path += "?subjob_cookie=" + url.QueryEscape(subjobCookie) + "&timeout=" + strconv.Itoa(timeoutSeconds)
	var out StatusResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	if len(out.LastError) > 0 {
		first := out.LastError[0]
		return &out, &accerr.JobError{JobID: first.JobID, Method: first.Method, Status: first.Status}
	}
	return &out, nil
}

// Abort GETs /abort.
func (c *Client) Abort(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.getJSON(ctx, "/abort", &out)
	return out, err
}

// WorkspaceInfo GETs /workspace_info.
func (c *Client) WorkspaceInfo(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.getJSON(ctx, "/workspace_info", &out)
	return out, err
}

// Config GETs /config.
func (c *Client) Config(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.getJSON(ctx, "/config", &out)
	return out, err
}

// SetWorkspace GETs /set_workspace/<name>, returning the server's text
// acknowledgement.
func (c *Client) SetWorkspace(ctx context.Context, name string) (string, error) {
	return c.getText(ctx, "/set_workspace/"+url.PathEscape(name))
}

// MethodInfo GETs /method_info/<name>.
func (c *Client) MethodInfo(ctx context.Context, name string) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.getJSON(ctx, "/method_info/"+url.PathEscape(name), &out)
	return out, err
}

// Methods GETs /methods/, the full method-dependency registry Automation
// refreshes dep_methods from.
func (c *Client) Methods(ctx context.Context) (map[string]MethodInfo, error) {
	var out map[string]MethodInfo
	if err := c.getJSON(ctx, "/methods/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateMethods GETs /update_methods, returning the server's text
// acknowledgement; callers should follow with Methods to refresh their
// local dep_methods cache.
func (c *Client) UpdateMethods(ctx context.Context) (string, error) {
	return c.getText(ctx, "/update_methods")
}

// ListWorkspaces GETs /list_workspaces/.
func (c *Client) ListWorkspaces(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.getJSON(ctx, "/list_workspaces/", &out)
	return out, err
}

// Remake GETs /update/<jobid>[/<phase>]. phase == "" rebuilds every
// phase.
func (c *Client) Remake(ctx context.Context, jobid, phase string) (string, error) {
	path := "/update/" + url.PathEscape(jobid)
	if phase != "" {
		path += "/" + url.PathEscape(phase)
	}
	return c.getText(ctx, path)
}

// UnmarshalJSON lets MethodInfo also retain the full raw object, since
// the registry may carry method-specific fields beyond "dep" that
// callers outside this package want to inspect.
func (m *MethodInfo) UnmarshalJSON(b []byte) error {
	type alias MethodInfo
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*m = MethodInfo(a)
	m.Fields = append([]byte(nil), b...)
	return nil
}
