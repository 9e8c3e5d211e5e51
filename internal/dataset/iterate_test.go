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

package dataset

import ("os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/accelerator-io/accelerator/internal/coltypes"
	"github.com/accelerator-io/accelerator/internal/common"
	"github.com/accelerator-io/accelerator/internal/jobenv")

// writeIntDataset writes a single-slice int64 column "n" holding values,
// under a job rooted at root, and returns the finished Dataset.
func writeIntDataset(t *testing.T, store *Store, root, jobid string, values []int64) *Dataset {
	t.Helper()
	jobDir := filepath.Join(root, jobid)
	assert.NoError(t, os.MkdirAll(jobDir, 0o755))
	t.Chdir(jobDir)

	env := jobenv.New(jobid, 1, common.EJobPhase.Prepare(), root)
	w, err := NewWriter(store, env, WriterOptions{})
	assert.NoError(t, err)
	assert.NoError(t, w.Add("n", "int64"))
	assert.NoError(t, w.SetSlice(0))
	for _, v := range values {
		assert.NoError(t, w.Write(v))
	}
	d, err := w.Finish()
	assert.NoError(t, err)
	return d
}

func TestIterateAppliesFilterThenTranslator(t *testing.T) {
	a := assert.New(t)
	root := t.TempDir()
	store := NewStore(root, 8)
	d := writeIntDataset(t, store, root, "job1", []int64{1, 2, 3, 4, 5})

	reopened, err := store.Open("job1")
	a.NoError(err)

	it, err := reopened.Iterate(intp(0), []string{"n"}, "", 1,
		map[string]Filter{"n": func(v coltypes.Value) bool { return v.(int64)%2 == 0 }},
		map[string]Translator{"n": func(v coltypes.Value) coltypes.Value { return v.(int64) * 10 }},
	)
	a.NoError(err)
	defer it.Close()

	var got []int64
	for {
		row, ok, err := it.Next()
		a.NoError(err)
		if !ok {
			break
		}
		got = append(got, row[0].(int64))
	}
	a.Equal([]int64{20, 40}, got)
	a.Equal(d.ID(), reopened.ID())
}

func TestIterateWithoutFiltersReturnsEveryRow(t *testing.T) {
	a := assert.New(t)
	root := t.TempDir()
	store := NewStore(root, 8)
	writeIntDataset(t, store, root, "job1", []int64{7, 8, 9})

	reopened, err := store.Open("job1")
	a.NoError(err)

	it, err := reopened.Iterate(intp(0), []string{"n"}, "", 1, nil, nil)
	a.NoError(err)
	defer it.Close()

	var got []int64
	for {
		row, ok, err := it.Next()
		a.NoError(err)
		if !ok {
			break
		}
		got = append(got, row[0].(int64))
	}
	a.Equal([]int64{7, 8, 9}, got)
}

func intp(i int) *int { return &i }
