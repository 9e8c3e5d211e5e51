package automation

import ("context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/accelerator-io/accelerator/internal/daemon")

// fakeDaemon answers /methods/, /submit and /status the way a running
// daemon would for a two-method pipeline ("analysis" depending on
// nothing, "synthesis" depending on "analysis"), reporting busy on the
// first status poll after submit and idle on every later one.
func fakeDaemon(t *testing.T) *httptest.Server {
	var polls int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/methods/":
			json.NewEncoder(w).Encode(map[string]daemon.MethodInfo{
				"analysis": {Dep: nil},
				"synthesis": {Dep: []string{"analysis"}},
			})
		case r.URL.Path == "/submit":
			w.Write([]byte(`{"jobs":{"analysis":{"link":"job-analysis","make":true},"synthesis":{"link":"job-synthesis","make":true}},"done":false}`))
		case r.URL.Path == "/status" || r.URL.Path == "/status/full":
			n := atomic.AddInt32(&polls, 1)
			if n == 1 {
				w.Write([]byte(`{"idle":false,"current":[1.0,"synthesis",1.0]}`))
			} else {
				w.Write([]byte(`{"idle":true}`))
			}
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestNewFetchesMethodRegistry(t *testing.T) {
	a := assert.New(t)
	srv := fakeDaemon(t)
	defer srv.Close()

	client := daemon.New(srv.URL)
	auto, err := New(context.Background(), client, "", nil)
	a.NoError(err)
	a.Equal([]string{"analysis"}, auto.depMethods["synthesis"])
}

func TestCallMethodSubmitsDependencyClosure(t *testing.T) {
	a := assert.New(t)
	srv := fakeDaemon(t)
	defer srv.Close()

	client := daemon.New(srv.URL)
	auto, err := New(context.Background(), client, "", nil)
	a.NoError(err)

	jobid, whyBuild, err := auto.CallMethod(context.Background(), "synthesis", CallOptions{})
	a.NoError(err)
	a.Nil(whyBuild)
	a.Equal("job-synthesis", jobid)

	a.Equal("job-analysis", auto.Jobs().MustGet("analysis").JobID)
	a.Equal("job-synthesis", auto.Jobs().MustGet("synthesis").JobID)
}

func TestCallMethodResolvesDatasetNamesFromFlatTable(t *testing.T) {
	a := assert.New(t)
	var captured string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/methods/":
			json.NewEncoder(w).Encode(map[string]daemon.MethodInfo{"analysis": {Dep: nil}})
		case r.URL.Path == "/submit":
			r.ParseForm()
			captured = r.FormValue("json")
			w.Write([]byte(`{"jobs":{"analysis":{"link":"job-analysis","make":true}},"done":true}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := daemon.New(srv.URL)
	auto, err := New(context.Background(), client, "", nil)
	a.NoError(err)

	_, _, err = auto.CallMethod(context.Background(), "analysis", CallOptions{
		Datasets: map[string]map[string]string{"analysis": {"src": "a,b"}},
		DatasetNames: map[string]string{"a": "j1/default", "b": "j2/default"},
	})
	a.NoError(err)

	a.Contains(captured, `"src":"j1/default,j2/default"`)
	a.NotContains(captured, `"a":`)
	a.NotContains(captured, `"b":`)
}

func TestCallMethodRecordsUnderRecordAs(t *testing.T) {
	a := assert.New(t)
	srv := fakeDaemon(t)
	defer srv.Close()

	client := daemon.New(srv.URL)
	auto, err := New(context.Background(), client, "", nil)
	a.NoError(err)

	_, _, err = auto.CallMethod(context.Background(), "synthesis", CallOptions{RecordAs: "result"})
	a.NoError(err)
	a.Equal("job-synthesis", auto.Jobs().MustGet("result").JobID)
}

func TestCallMethodReturnsWhyBuildReportOnExplicitRequest(t *testing.T) {
	a := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/methods/":
			json.NewEncoder(w).Encode(map[string]daemon.MethodInfo{"analysis": {Dep: nil}})
		case r.URL.Path == "/submit":
			w.Write([]byte(`{"why_build":{"analysis":"cached"},"done":true}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := daemon.New(srv.URL)
	auto, err := New(context.Background(), client, "", nil)
	a.NoError(err)

	jobid, whyBuild, err := auto.CallMethod(context.Background(), "analysis", CallOptions{WhyBuild: "true"})
	a.NoError(err)
	a.Equal("", jobid)
	a.JSONEq(`{"analysis":"cached"}`, string(whyBuild))
}

func TestNormalizeOptionsWrapsFlatDict(t *testing.T) {
	a := assert.New(t)
	out := NormalizeOptions("analysis", map[string]interface{}{"x": 1.0})
	a.Equal(map[string]map[string]interface{}{"analysis": {"x": 1.0}}, out)
}

func TestNormalizeOptionsPassesThroughAlreadyNested(t *testing.T) {
	a := assert.New(t)
	out := NormalizeOptions("b", map[string]interface{}{
		"a": map[string]interface{}{"x": 1.0},
		"b": map[string]interface{}{"y": 2.0},
	})
	a.Equal(map[string]interface{}{"x": 1.0}, out["a"])
	a.Equal(map[string]interface{}{"y": 2.0}, out["b"])
}

func TestNormalizeDatasetsWrapsFlatDict(t *testing.T) {
	a := assert.New(t)
	out := NormalizeDatasets("analysis", map[string]interface{}{"src": "job1"})
	a.Equal(map[string]map[string]string{"analysis": {"src": "job1"}}, out)
}

func TestNormalizeDatasetsPassesThroughAlreadyNested(t *testing.T) {
	a := assert.New(t)
	out := NormalizeDatasets("b", map[string]interface{}{
		"a": map[string]interface{}{"src": "j1"},
		"b": map[string]interface{}{"src": "j2"},
	})
	a.Equal(map[string]string{"src": "j1"}, out["a"])
	a.Equal(map[string]string{"src": "j2"}, out["b"])
}

func TestCallMethodAcceptsMultiMethodOptionsViaNormalize(t *testing.T) {
	a := assert.New(t)
	srv := fakeDaemon(t)
	defer srv.Close()

	client := daemon.New(srv.URL)
	auto, err := New(context.Background(), client, "", nil)
	a.NoError(err)

	opts := CallOptions{
		Options: NormalizeOptions("synthesis", map[string]interface{}{
			"analysis": map[string]interface{}{"a_opt": 1.0},
			"synthesis": map[string]interface{}{"s_opt": 2.0},
		}),
	}
	_, _, err = auto.CallMethod(context.Background(), "synthesis", opts)
	a.NoError(err)
}

func TestResolveNamesJoinsCommaLists(t *testing.T) {
	a := assert.New(t)
	def := map[string]string{"x": "a,b"}
	out := resolveNames(map[string]string{"k": "x"}, def)
	a.Equal("a,b", out["k"])
}

func TestResolveOnePassesThroughUnknownNames(t *testing.T) {
	assert.Equal(t, "literal", resolveOne("literal", map[string]string{}))
}

func TestWhyBuildFlagDegradesToOnBuild(t *testing.T) {
	a := assert.New(t)
	auto := &Automation{Flags: map[string]bool{"why_build": true}}
	a.Equal("on_build", auto.whyBuildFlag(""))
	a.Equal("explicit", auto.whyBuildFlag("explicit"))

	auto2 := &Automation{}
	a.Equal("", auto2.whyBuildFlag(""))
}
