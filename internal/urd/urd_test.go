package urd

import ("context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/accelerator-io/accelerator/internal/accerr")

func TestPathPrependsUserToBareName(t *testing.T) {
	a := assert.New(t)
	c := New("http://example", "alice", "secret", nil)
	a.Equal("alice/build", c.path("build"))
	a.Equal("bob/build", c.path("bob/build"))
}

func TestBeginRejectsNestedTransaction(t *testing.T) {
	a := assert.New(t)
	c := New("http://example", "alice", "secret", nil)
	a.NoError(c.Begin("build", "1", "", false))
	err := c.Begin("other", "1", "", false)
	a.Error(err)
	var usageErr *accerr.UsageError
	a.ErrorAs(err, &usageErr)
}

func TestGetRejectsDuplicatePath(t *testing.T) {
	a := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"caption":"c","timestamp":"1","joblist":[{"Method":"m","JobID":"j1"}],"deps":{}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "alice", "secret", nil)
	a.NoError(c.Begin("build", "1", "", false))

	_, err := c.Get(context.Background(), "dep1", "1")
	a.NoError(err)

	_, err = c.Get(context.Background(), "dep1", "2")
	a.Error(err)
	var usageErr *accerr.UsageError
	a.ErrorAs(err, &usageErr)
}

func TestGetWithNothingRunningIsUsageError(t *testing.T) {
	c := New("http://example", "alice", "secret", nil)
	_, err := c.Get(context.Background(), "dep1", "1")
	assert.Error(t, err)
	var usageErr *accerr.UsageError
	assert.ErrorAs(t, err, &usageErr)
}

func TestPeekDoesNotRegisterDependency(t *testing.T) {
	a := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"caption":"c","timestamp":"1","joblist":[{"Method":"m","JobID":"j1"}],"deps":{}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "alice", "secret", nil)
	a.NoError(c.Begin("build", "1", "", false))

	_, err := c.Peek(context.Background(), "dep1", "1")
	a.NoError(err)

	// Since Peek doesn't register a dependency, Get on the same path
	// must still succeed.
	_, err = c.Get(context.Background(), "dep1", "1")
	a.NoError(err)
}

func TestCallFailsFastOn401(t *testing.T) {
	a := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "alice", "wrong", nil)
	a.NoError(c.Begin("build", "1", "", false))
	_, err := c.Get(context.Background(), "dep1", "1")
	a.Error(err)
	var authErr *accerr.AuthError
	a.ErrorAs(err, &authErr)
}

func TestCallFailsFastOn409(t *testing.T) {
	a := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := New(srv.URL, "alice", "secret", nil)
	a.NoError(c.Begin("build", "1", "", false))
	_, err := c.Get(context.Background(), "dep1", "1")
	a.Error(err)
	var conflictErr *accerr.ConflictError
	a.ErrorAs(err, &conflictErr)
}

func TestDecodeResponseTreatsNullAsEmpty(t *testing.T) {
	a := assert.New(t)
	resp, err := decodeResponse([]byte("null"))
	a.NoError(err)
	a.True(resp.Empty())

	resp, err = decodeResponse(nil)
	a.NoError(err)
	a.True(resp.Empty())
}

func TestFinishRejectsMismatchedPath(t *testing.T) {
	a := assert.New(t)
	c := New("http://example", "alice", "secret", nil)
	a.NoError(c.Begin("build", "1", "", false))
	err := c.Finish(context.Background(), "other", "1", "")
	a.Error(err)
	var usageErr *accerr.UsageError
	a.ErrorAs(err, &usageErr)
}

func TestFinishRequiresTimestamp(t *testing.T) {
	a := assert.New(t)
	c := New("http://example", "alice", "secret", nil)
	a.NoError(c.Begin("build", "", "", false))
	err := c.Finish(context.Background(), "build", "", "")
	a.Error(err)
	var usageErr *accerr.UsageError
	a.ErrorAs(err, &usageErr)
}

func TestBuildChainedRequiresName(t *testing.T) {
	c := New("http://example", "alice", "secret", nil)
	_, _, err := c.BuildChained(context.Background(), "synthesis", BuildOptions{})
	assert.Error(t, err)
}

func TestBuildChainedRequiresPriorDependency(t *testing.T) {
	c := New("http://example", "alice", "secret", nil)
	_, _, err := c.BuildChained(context.Background(), "synthesis", BuildOptions{Name: "result"})
	assert.Error(t, err)
}
