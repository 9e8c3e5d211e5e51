package dataset

import ("testing"

	"github.com/stretchr/testify/assert"

	"github.com/accelerator-io/accelerator/internal/common"
	"github.com/accelerator-io/accelerator/internal/jobenv")

func newTestEnv(jobid, root string) jobenv.Env {
	return jobenv.New(jobid, 4, common.EJobPhase.Analysis(), root)
}

func TestNewAndOpenRoundTrip(t *testing.T) {
	a := assert.New(t)
	root := t.TempDir()
	store := NewStore(root, 8)
	env := newTestEnv("job1", root)

	cols := map[string]ColumnDescriptor{
		"a": {Type: "int64", Name: "a", Location: "job1/%d/a"},
	}
	d, err := New(store, env, "default", "a", []int64{2, 3}, cols, "", "", "")
	a.NoError(err)
	a.Equal("job1/default", d.ID())

	reopened, err := store.Open("job1")
	a.NoError(err)
	a.Equal("a", reopened.Hashlabel())
	colcount, rows := reopened.Shape()
	a.Equal(1, colcount)
	a.EqualValues(5, rows)
}

func TestNewRejectsUnknownHashlabel(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, 8)
	env := newTestEnv("job1", root)
	_, err := New(store, env, "default", "missing", []int64{1}, map[string]ColumnDescriptor{}, "", "", "")
	assert.Error(t, err)
}

func TestAppendRejectsLineCountMismatch(t *testing.T) {
	a := assert.New(t)
	root := t.TempDir()
	store := NewStore(root, 8)
	env := newTestEnv("job1", root)
	cols := map[string]ColumnDescriptor{"a": {Type: "int64", Name: "a", Location: "job1/%d/a"}}
	_, err := New(store, env, "default", "", []int64{2, 3}, cols, "", "", "")
	a.NoError(err)

	env2 := newTestEnv("job2", root)
	cols2 := map[string]ColumnDescriptor{"b": {Type: "int64", Name: "b", Location: "job2/%d/b"}}
	_, err = Append(store, env2, "job1", "default", "", false, []int64{9, 9}, cols2, "", "", "")
	assert.Error(t, err)
}

func TestAppendRejectsHashlabelMismatch(t *testing.T) {
	a := assert.New(t)
	root := t.TempDir()
	store := NewStore(root, 8)
	env := newTestEnv("job1", root)
	cols := map[string]ColumnDescriptor{"a": {Type: "int64", Name: "a", Location: "job1/%d/a"}}
	_, err := New(store, env, "default", "a", []int64{2, 3}, cols, "", "", "")
	a.NoError(err)

	env2 := newTestEnv("job2", root)
	cols2 := map[string]ColumnDescriptor{"b": {Type: "int64", Name: "b", Location: "job2/%d/b"}}
	_, err = Append(store, env2, "job1", "default", "b", false, []int64{2, 3}, cols2, "", "", "")
	assert.Error(t, err)
}

func TestAppendWithHashlabelOverrideAllowsMismatch(t *testing.T) {
	a := assert.New(t)
	root := t.TempDir()
	store := NewStore(root, 8)
	env := newTestEnv("job1", root)
	cols := map[string]ColumnDescriptor{"a": {Type: "int64", Name: "a", Location: "job1/%d/a"}}
	_, err := New(store, env, "default", "a", []int64{2, 3}, cols, "", "", "")
	a.NoError(err)

	env2 := newTestEnv("job2", root)
	cols2 := map[string]ColumnDescriptor{"b": {Type: "int64", Name: "b", Location: "job2/%d/b"}}
	d, err := Append(store, env2, "job1", "default", "b", true, []int64{2, 3}, cols2, "", "", "")
	a.NoError(err)
	a.Equal("b", d.Hashlabel())
}

func TestChainWalksPreviousLinks(t *testing.T) {
	a := assert.New(t)
	root := t.TempDir()
	store := NewStore(root, 8)

	env1 := newTestEnv("job1", root)
	cols := map[string]ColumnDescriptor{"a": {Type: "int64", Name: "a", Location: "job1/%d/a"}}
	d1, err := New(store, env1, "default", "", []int64{1}, cols, "", "", "")
	a.NoError(err)

	env2 := newTestEnv("job2", root)
	d2, err := New(store, env2, "default", "", []int64{1}, cols, "", "", d1.ID())
	a.NoError(err)

	env3 := newTestEnv("job3", root)
	d3, err := New(store, env3, "default", "", []int64{1}, cols, "", "", d2.ID())
	a.NoError(err)

	chain, err := d3.Chain(-1, false, "")
	a.NoError(err)
	a.Len(chain, 3)
	a.Equal(d1.ID(), chain[0].ID())
	a.Equal(d3.ID(), chain[2].ID())

	reverseChain, err := d3.Chain(-1, true, "")
	a.NoError(err)
	a.Equal(d3.ID(), reverseChain[0].ID())
}

func TestChainCacheSnapshotsAt64(t *testing.T) {
	a := assert.New(t)
	root := t.TempDir()
	store := NewStore(root, 256)
	cols := map[string]ColumnDescriptor{"a": {Type: "int64", Name: "a", Location: "job/%d/a"}}

	var previous string
	var last *Dataset
	for i := 0; i < 65; i++ {
		jobid := jobIDFor(i)
		env := newTestEnv(jobid, root)
		d, err := New(store, env, "default", "", []int64{1}, cols, "", "", previous)
		a.NoError(err)
		previous = d.ID()
		last = d
	}
	a.Equal(0, last.data.CacheDistance)
	a.NotEmpty(last.data.Cache)
}

func jobIDFor(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	return "job_" + string(letters[i%len(letters)]) + string(letters[(i/len(letters))%len(letters)])
}
