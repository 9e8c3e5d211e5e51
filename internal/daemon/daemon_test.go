package daemon

import ("context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/accelerator-io/accelerator/internal/accerr")

func TestJobResultMakeLabel(t *testing.T) {
	a := assert.New(t)

	jr := JobResult{Make: []byte("true")}
	a.Equal("MAKE", jr.MakeLabel())

	jr = JobResult{Make: []byte("false")}
	a.Equal("link", jr.MakeLabel())

	jr = JobResult{Make: []byte(`"cached"`)}
	a.Equal("cached", jr.MakeLabel())
}

func TestLastErrorUnmarshalsTriple(t *testing.T) {
	a := assert.New(t)
	var e LastError
	a.NoError(e.UnmarshalJSON([]byte(`["job1","analysis","FAILED"]`)))
	a.Equal("job1", e.JobID)
	a.Equal("analysis", e.Method)
	a.Equal("FAILED", e.Status)
}

func TestCurrentStatusUnmarshalsTriple(t *testing.T) {
	a := assert.New(t)
	var c CurrentStatus
	a.NoError(c.UnmarshalJSON([]byte(`[12.5,"analysis",3.25]`)))
	a.Equal(12.5, c.Elapsed)
	a.Equal("analysis", c.Method)
	a.Equal(3.25, c.MethodElapsed)
}

func TestMethodInfoUnmarshalKeepsRawAlongsideDep(t *testing.T) {
	a := assert.New(t)
	var m MethodInfo
	a.NoError(m.UnmarshalJSON([]byte(`{"dep":["other"],"extra":"field"}`)))
	a.Equal([]string{"other"}, m.Dep)
	a.Contains(string(m.Fields), "extra")
}

func TestSubmitReturnsSubmitError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"bad method"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Submit(context.Background(), []byte(`{}`))
	assert.Error(t, err)
	var submitErr *accerr.SubmitError
	assert.ErrorAs(t, err, &submitErr)
}

func TestSubmitDecodesJobs(t *testing.T) {
	a := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.Equal("/submit", r.URL.Path)
		a.Equal(http.MethodPost, r.Method)
		w.Write([]byte(`{"jobs":{"analysis":{"link":"job1","make":true}},"done":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.Submit(context.Background(), []byte(`{}`))
	a.NoError(err)
	a.True(resp.Done)
	a.Equal("job1", resp.Jobs["analysis"].Link)
	a.Equal("MAKE", resp.Jobs["analysis"].MakeLabel())
}

func TestStatusReturnsJobError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"idle":true,"last_error":[["job1","analysis","FAILED"]]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Status(context.Background(), false, "", 0)
	assert.Error(t, err)
	var jobErr *accerr.JobError
	assert.ErrorAs(t, err, &jobErr)
}

func TestStatusIdleNoError(t *testing.T) {
	a := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"idle":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	status, err := c.Status(context.Background(), false, "", 0)
	a.NoError(err)
	a.True(status.Idle)
}

func TestMethodsDecodesRegistry(t *testing.T) {
	a := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.Equal("/methods/", r.URL.Path)
		w.Write([]byte(`{"analysis":{"dep":[]},"synthesis":{"dep":["analysis"]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	methods, err := c.Methods(context.Background())
	a.NoError(err)
	a.Equal([]string{"analysis"}, methods["synthesis"].Dep)
}
