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

import ("fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/accelerator-io/accelerator/internal/accerr"
	"github.com/accelerator-io/accelerator/internal/coltypes"
	"github.com/accelerator-io/accelerator/internal/jobenv")

// ColumnDescriptor is version 2.1's per-column record.
type ColumnDescriptor struct {
	Type string
	Name string
	Location string
	Min coltypes.Value
	Max coltypes.Value
	Offsets []int64
}

// Descriptor is the in-memory projection of the persisted dataset record.
type Descriptor struct {
	Version [2]int
	Filename string
	Hashlabel string
	Caption string
	Columns map[string]ColumnDescriptor
	Previous string
	Parent string
	Lines []int64
	Cache map[string]Descriptor
	CacheDistance int
}

// clone deep-copies d so the caller can mutate Columns/Lines/Cache without
// reaching back into the load memo's own copy (or another Dataset's). Every
// descriptor handed out of Store's memo, or seeded into it, goes through
// this rather than a bare struct copy, since a shallow `*d` still shares
// the Columns map, Lines slice and Cache map with whatever it was copied
// from.
func (d *Descriptor) clone() *Descriptor {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Columns = cloneColumns(d.Columns)
	cp.Lines = cloneInt64s(d.Lines)
	if d.Cache != nil {
		cp.Cache = make(map[string]Descriptor, len(d.Cache))
		for id, snap := range d.Cache {
			cp.Cache[id] = *snap.clone()
		}
	}
	return &cp
}

func cloneColumns(in map[string]ColumnDescriptor) map[string]ColumnDescriptor {
	if in == nil {
		return nil
	}
	out := make(map[string]ColumnDescriptor, len(in))
	for name, cd := range in {
		cd.Offsets = cloneInt64s(cd.Offsets)
		out[name] = cd
	}
	return out
}

func cloneInt64s(in []int64) []int64 {
	if in == nil {
		return nil
	}
	return append([]int64(nil), in...)
}

// Dataset is a loaded or newly-constructed dataset descriptor bound to a
// jobid/name, with an explicit ID method for stringification.
type Dataset struct {
	store *Store
	jobID string
	name string
	data *Descriptor
}

// JobID is the id of the job that produced this dataset.
func (d *Dataset) JobID() string { return d.jobID }

// Name is the dataset's name within its job ("default" unless overridden).
func (d *Dataset) Name() string { return d.name }

// ID renders the canonical dataset-id "<jobid>/<name>", using "default"
// as the name of the default-named dataset in a job.
func (d *Dataset) ID() string {
	name := d.name
	if name == "" {
		name = "default"
	}
	return d.jobID + "/" + name
}

func (d *Dataset) String() string { return d.ID() }

func (d *Dataset) Columns() map[string]ColumnDescriptor { return d.data.Columns }
func (d *Dataset) Previous() string { return d.data.Previous }
func (d *Dataset) Parent() string { return d.data.Parent }
func (d *Dataset) Filename() string { return d.data.Filename }
func (d *Dataset) Hashlabel() string { return d.data.Hashlabel }
func (d *Dataset) Caption() string { return d.data.Caption }
func (d *Dataset) Lines() []int64 { return d.data.Lines }

// Shape returns (column count, total row count across slices).
func (d *Dataset) Shape() (int, int64) {
	var total int64
	for _, n := range d.data.Lines {
		total += n
	}
	return len(d.data.Columns), total
}

// Backward-compatible read-only projections, folding a deprecated
// wrapper type's accessors directly onto Dataset: NameTypeList,
// GetFilename, GetHashlabel, GetJobID, GetCaption, GetNumLinesPerSplit.
func (d *Dataset) NameTypeList() [][2]string {
	names := make([]string, 0, len(d.data.Columns))
	for n := range d.data.Columns {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([][2]string, len(names))
	for i, n := range names {
		out[i] = [2]string{n, d.data.Columns[n].Type}
	}
	return out
}
func (d *Dataset) GetFilename() string { return d.Filename() }
func (d *Dataset) GetHashlabel() string { return d.Hashlabel() }
func (d *Dataset) GetJobID() string { return d.JobID() }
func (d *Dataset) GetCaption() string { return d.Caption() }
func (d *Dataset) GetNumLinesPerSplit() []int64 { return d.Lines() }

// ColumnFilename yields the absolute path for a column's data. When the
// column is merged (Offsets set), sliceno is ignored. When sliceno is nil,
// the per-slice template is returned with its "%d" placeholder intact, for
// the caller to substitute.
func (d *Dataset) ColumnFilename(col string, sliceno *int) (string, error) {
	cd, ok := d.data.Columns[col]
	if !ok {
		return "", errors.Errorf("dataset: no such column %q", col)
	}
	jid, rel := splitLocation(cd.Location)
	if len(cd.Offsets) > 0 {
		return d.store.resolve(jid, rel), nil
	}
	if sliceno == nil {
		return d.store.resolve(jid, rel), nil
	}
	return d.store.resolve(jid, fmt.Sprintf(rel, *sliceno)), nil
}

func splitLocation(loc string) (jobid, rel string) {
	for i := 0; i < len(loc); i++ {
		if loc[i] =='/' {
			return loc[:i], loc[i+1:]
		}
	}
	return loc, ""
}

// LinkToHere re-exposes a sub-job's dataset under the current job
// : it records d as `parent`, reassigns the dataset to the
// current job under `name`, and persists.
func (d *Dataset) LinkToHere(env jobenv.Env, name string) error {
	if name == "" {
		name = "default"
	}
	d.data.Parent = d.ID()
	d.jobID = env.JobID
	d.name = name
	return d.save()
}

// Chain walks `previous` links. length<0 means unbounded; stopJobid, if
// set, is resolved to a bare jobid by loading it and the walk stops before
// including a dataset whose jobid matches. The default (reverse=false)
// returns the chain root-first; reverse=true returns it tip-first.
func (d *Dataset) Chain(length int, reverse bool, stopJobid string) ([]*Dataset, error) {
	if stopJobid != "" {
		resolved, err := d.store.Open(stopJobid)
		if err != nil {
			return nil, err
		}
		stopJobid = resolved.jobID
	}
	var chain []*Dataset
	current := d
	for length != len(chain) && current.jobID != stopJobid {
		chain = append(chain, current)
		if current.data.Previous == "" {
			break
		}
		next, err := d.store.Open(current.data.Previous)
		if err != nil {
			return nil, err
		}
		current = next
	}
	if !reverse {
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
	}
	return chain, nil
}

func updateCaches(d *Dataset) error {
	if d.data.Previous == "" {
		return nil
	}
	pj, pn := SplitID(d.data.Previous)
	prev, err := d.store.open(pj, pn)
	if err != nil {
		return err
	}
	cacheDistance := prev.data.CacheDistance + 1
	if cacheDistance == 64 {
		cacheDistance = 0
		chainList, err := d.Chain(64, true, "")
		if err != nil {
			return err
		}
		cache := map[string]Descriptor{}
		for _, member := range chainList[1:] {
			cache[member.ID()] = *member.data
		}
		d.data.Cache = cache
	}
	d.data.CacheDistance = cacheDistance
	return nil
}

type appendArgs struct {
	Name string
	Filename string
	Caption string
	Previous string
	Columns map[string]ColumnDescriptor
}

func appendInto(d *Dataset, env jobenv.Env, args appendArgs) (*Dataset, error) {
	jobid := env.JobID
	name := args.Name
	if name == "" {
		name = "default"
	}
	if d.jobID != "" && (d.jobID != jobid || d.name != name) {
		d.data.Parent = d.ID()
	}
	d.jobID = jobid
	d.name = name
	if args.Filename != "" {
		d.data.Filename = args.Filename
	}
	if args.Caption != "" {
		d.data.Caption = args.Caption
	} else if d.data.Caption == "" {
		d.data.Caption = jobid
	}
	d.data.Previous = NormalizeID(args.Previous)
	d.data.Cache = nil
	d.data.CacheDistance = 0
	if d.data.Columns == nil {
		d.data.Columns = map[string]ColumnDescriptor{}
	}
	for n, cd := range args.Columns {
		d.data.Columns[n] = cd
	}
	if err := updateCaches(d); err != nil {
		return nil, errors.Wrap(err, "updating chain cache")
	}
	if err := d.save(); err != nil {
		return nil, err
	}
	return d, nil
}

// New constructs a fresh dataset for the job currently running.
func New(store *Store, env jobenv.Env, name, hashlabel string, lines []int64, cols map[string]ColumnDescriptor, filename, caption, previous string) (*Dataset, error) {
	if hashlabel != "" {
		if _, ok := cols[hashlabel]; !ok {
			return nil, &accerr.ValidationError{Reason: fmt.Sprintf("hashlabel %q is not a column", hashlabel)}
		}
	}
	if name == "" {
		name = "default"
	}
	d := store.newDataset(env, name)
	d.data.Lines = lines
	d.data.Hashlabel = hashlabel
	return appendInto(d, env, appendArgs{Name: name, Filename: filename, Caption: caption, Previous: previous, Columns: cols})
}

// Append extends an existing dataset with new/overridden columns
// (instance `append`, used when a DatasetWriter has `parent`
// set). hashlabelOverride, when false, requires hashlabel (if given) to
// match the parent's.
func Append(store *Store, env jobenv.Env, parentID string, name, hashlabel string, hashlabelOverride bool, lines []int64, cols map[string]ColumnDescriptor, filename, caption, previous string) (*Dataset, error) {
	parent, err := store.Open(parentID)
	if err != nil {
		return nil, err
	}
	if hashlabel != "" && !hashlabelOverride && parent.data.Hashlabel != "" && parent.data.Hashlabel != hashlabel {
		return nil, &accerr.ValidationError{Reason: fmt.Sprintf("hashlabel mismatch %s != %s", parent.data.Hashlabel, hashlabel)}
	}
	if !linesEqual(lines, parent.data.Lines) {
		return nil, &accerr.ValidationError{Reason: "new columns don't have the same number of lines as parent columns"}
	}
	if hashlabel != "" {
		parent.data.Hashlabel = hashlabel
	}
	if name == "" {
		name = "default"
	}
	return appendInto(parent, env, appendArgs{Name: name, Filename: filename, Caption: caption, Previous: previous, Columns: cols})
}

func linesEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
