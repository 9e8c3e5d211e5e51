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

// Monitor receives the coarse progress pings an Automation emits around a
// submission (monitor.submit / monitor.ping / monitor.done), the same
// lifecycle-callback shape azcopy's own lifecycle manager (glcm) exposes
// to its command layer. Implemented as a struct of optional callbacks, so
// callers only override the one or two hooks they care about; the
// exported Submit/Ping/Done methods satisfy automation.Monitor.
type Monitor struct {
	OnSubmit func(method string)
	OnPing func()
	OnDone func()
}

// NewMonitor returns a Monitor whose hooks are all safe no-ops.
func NewMonitor() *Monitor {
	return &Monitor{
		OnSubmit: func(string) {},
		OnPing: func() {},
		OnDone: func() {},
	}
}

// Submit notifies the monitor that a submission is starting.
func (m *Monitor) Submit(method string) {
	if m != nil && m.OnSubmit != nil {
		m.OnSubmit(method)
	}
}

// Ping notifies the monitor that the wait loop is still alive.
func (m *Monitor) Ping() {
	if m != nil && m.OnPing != nil {
		m.OnPing()
	}
}

// Done notifies the monitor that a submission has completed.
func (m *Monitor) Done() {
	if m != nil && m.OnDone != nil {
		m.OnDone()
	}
}
