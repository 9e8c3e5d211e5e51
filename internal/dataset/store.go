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

// Package dataset implements the on-disk, versioned, columnar,
// chainable dataset descriptor and the writer that produces it, with
// the descriptor serialized as JSON (field names, version order and
// string encoding are preserved across reads and writes) and the
// process-wide load memo backed by github.com/golang/groupcache/lru.
package dataset

import ("encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/groupcache/lru"
	"github.com/pkg/errors"

	"github.com/accelerator-io/accelerator/internal/accerr"
	"github.com/accelerator-io/accelerator/internal/jobenv")

const descriptorFile = "dataset.pickle"
const manifestFile = "dataset.txt"

// Store is the process-wide handle datasets are loaded and saved through.
// One Store, and its load memo, should be shared by every Dataset/Writer
// in a job.
type Store struct {
	Root string
	memo *lru.Cache
}

// NewStore opens a Store rooted at root, with a memo holding up to
// memoSize descriptors (0 means unbounded).
func NewStore(root string, memoSize int) *Store {
	return &Store{Root: root, memo: lru.New(memoSize)}
}

func (s *Store) resolve(jobid, rel string) string {
	return filepath.Join(s.Root, jobid, rel)
}

// Open loads the dataset named by id (canonical "<jobid>/<name>" or the
// short "<jobid>" form) through the load memo, upgrading a version-1
// descriptor in place.
func (s *Store) Open(id string) (*Dataset, error) {
	id = NormalizeID(id)
	jobid, name := SplitID(id)
	return s.open(jobid, name)
}

func (s *Store) open(jobid, name string) (*Dataset, error) {
	key := jobid + "/" + name
	if v, ok := s.memo.Get(key); ok {
		return &Dataset{store: s, jobID: jobid, name: name, data: v.(*Descriptor).clone()}, nil
	}
	data, err := s.loadDescriptor(jobid, name)
	if err != nil {
		return nil, err
	}
	s.populateMemo(jobid, name, data)
	v, _ := s.memo.Get(key)
	return &Dataset{store: s, jobID: jobid, name: name, data: v.(*Descriptor).clone()}, nil
}

func (s *Store) loadDescriptor(jobid, name string) (*Descriptor, error) {
	p := s.resolve(jobid, filepath.Join(name, descriptorFile))
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Wrapf(err, "loading dataset %s/%s", jobid, name)
	}
	var onDisk onDiskDescriptor
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		return nil, &accerr.ValidationError{Reason: fmt.Sprintf("corrupt dataset pickle %s/%s: %v", jobid, name, err)}
	}
	data, err := onDisk.upgrade(jobid, name)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// populateMemo inserts data for jobid/name and seeds the memo from any
// inlined cache snapshot so later chain walks short circuit instead of
// hitting disk.
func (s *Store) populateMemo(jobid, name string, data *Descriptor) {
	s.memo.Add(jobid+"/"+name, data.clone())
	for id, snap := range data.Cache {
		s.memo.Add(id, snap.clone())
	}
}

// newDataset builds the "new" marker descriptor: an empty, writable
// version (2,1) descriptor bound to the job currently running.
func (s *Store) newDataset(env jobenv.Env, name string) *Dataset {
	if name == "" {
		name = "default"
	}
	data := &Descriptor{Version: [2]int{2, 1}, Columns: map[string]ColumnDescriptor{}}
	return &Dataset{store: s, jobID: env.JobID, name: name, data: data}
}

// save persists the descriptor and the companion text manifest.
func (d *Dataset) save() error {
	dir := filepath.Join(d.store.Root, d.jobID, d.name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating dataset dir %s", dir)
	}
	onDisk := toOnDisk(d.data)
	raw, err := json.MarshalIndent(onDisk, "", " ")
	if err != nil {
		return errors.Wrap(err, "encoding dataset descriptor")
	}
	if err := os.WriteFile(filepath.Join(dir, descriptorFile), raw, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", descriptorFile)
	}
	if err := d.writeManifest(dir); err != nil {
		return err
	}
	d.store.memo.Add(d.jobID+"/"+d.name, d.data.clone())
	return nil
}
