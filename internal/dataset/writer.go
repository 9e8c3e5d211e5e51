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
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/accelerator-io/accelerator/internal/accerr"
	"github.com/accelerator-io/accelerator/internal/coltypes"
	"github.com/accelerator-io/accelerator/internal/common"
	"github.com/accelerator-io/accelerator/internal/jobenv")

// mergeThreshold is the "≈512 KiB" average per-slice size below which a
// column's slice files are merged into one.
const mergeThreshold = 524288

var (writersMu sync.Mutex
	writers = map[string]*Writer{})

type columnSpec struct {
	coltype string
	hasDefault bool
	def coltypes.Value
}

// Writer holds per-slice typed column writers, or a hash-partitioned
// split writer, finalized into a Dataset.
type Writer struct {
	store *Store
	env jobenv.Env

	name string
	filename string
	hashlabel string
	hashlabelOverride bool
	caption string
	previous string
	parent string

	order []string
	columns map[string]columnSpec
	clean map[string]string
	seenN map[string]bool
	pcols map[string]ColumnDescriptor

	mu sync.Mutex
	started int // 0 = unset, 1 = sliced, 2 = split
	sliceno int
	current map[string]coltypes.Writer
	allSlices []map[string]coltypes.Writer

	lens map[int]uint64
	minmax map[string][2]coltypes.Value
}

// WriterOptions configures a new Writer.
type WriterOptions struct {
	Name string
	Filename string
	Hashlabel string
	HashlabelOverride bool
	Caption string
	Previous string
	Parent string
}

// NewWriter creates a writer in "prepare" or "synthesis" phase, or returns
// the existing writer of that name when running in "analysis": at most
// one writer exists per name per job.
func NewWriter(store *Store, env jobenv.Env, opts WriterOptions) (*Writer, error) {
	name := opts.Name
	if name == "" {
		name = "default"
	}

	writersMu.Lock()
	defer writersMu.Unlock()

	key := env.JobID + "/" + name
	if env.Phase == common.EJobPhase.Analysis() {
		w, ok := writers[key]
		if !ok {
			return nil, &accerr.ValidationError{Reason: "dataset with name \"" + name + "\" not created"}
		}
		return w, nil
	}

	if _, exists := writers[key]; exists {
		return nil, &accerr.ValidationError{Reason: "duplicate dataset name \"" + name + "\""}
	}
	if err := os.MkdirAll(name, 0o755); err != nil {
		return nil, err
	}

	w := &Writer{
		store: store,
		env: env,
		name: name,
		filename: opts.Filename,
		hashlabel: opts.Hashlabel,
		hashlabelOverride: opts.HashlabelOverride,
		caption: opts.Caption,
		previous: opts.Previous,
		parent: NormalizeID(opts.Parent),
		columns: map[string]columnSpec{},
		clean: map[string]string{},
		seenN: map[string]bool{},
		lens: map[int]uint64{},
		minmax: map[string][2]coltypes.Value{},
	}
	if w.parent != "" {
		pd, err := store.Open(w.parent)
		if err != nil {
			return nil, err
		}
		w.pcols = pd.Columns()
		for _, c := range w.pcols {
			w.seenN[c.Name] = true
		}
	} else {
		w.pcols = map[string]ColumnDescriptor{}
	}
	writers[key] = w
	return w, nil
}

// Add registers a column. Columns must all be added before the first
// SetSlice/GetSplitWrite* call.
func (w *Writer) Add(colname, coltype string) error {
	return w.addColumn(colname, coltype, false, nil)
}

// AddWithDefault registers a column with a default value used for any row
// that omits it.
func (w *Writer) AddWithDefault(colname, coltype string, def coltypes.Value) error {
	return w.addColumn(colname, coltype, true, def)
}

func (w *Writer) addColumn(colname, coltype string, hasDefault bool, def coltypes.Value) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started != 0 {
		return &accerr.ValidationError{Reason: "add all columns before setting slice"}
	}
	if _, exists := w.columns[colname]; exists {
		return &accerr.ValidationError{Reason: "duplicate column " + colname}
	}
	if _, ok := coltypes.Lookup(coltype); !ok {
		return &accerr.ValidationError{Reason: "unknown column type " + coltype}
	}
	w.columns[colname] = columnSpec{coltype: coltype, hasDefault: hasDefault, def: def}
	w.order = append(w.order, colname)
	if pc, ok := w.pcols[colname]; ok {
		w.clean[colname] = pc.Name
	} else {
		w.clean[colname] = cleanName(colname, w.seenN)
	}
	return nil
}

func (w *Writer) columnFilename(colname string, sliceno int) string {
	return filenameSliceTemplate(w.name, sliceno, w.clean[colname])
}

func filenameSliceTemplate(name string, sliceno int, slug string) string {
	return name + "/" + itoa(sliceno) + "." + slug
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}

// SetSlice opens per-column writers for the given slice. Using SetSlice
// and a split writer on the same Writer is rejected.
func (w *Writer) SetSlice(sliceno int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started == 2 {
		return &accerr.ValidationError{Reason: "don't use both set_slice and a split writer"}
	}
	if w.current != nil {
		if err := w.closeSliceLocked(); err != nil {
			return err
		}
	}
	w.started = 1
	w.sliceno = sliceno
	cur, err := w.mkWriters(sliceno, true)
	if err != nil {
		return err
	}
	w.current = cur
	return nil
}

func (w *Writer) mkWriters(sliceno int, filtered bool) (map[string]coltypes.Writer, error) {
	if len(w.columns) == 0 {
		return nil, &accerr.ValidationError{Reason: "no columns in dataset"}
	}
	if w.hashlabel != "" {
		if _, ok := w.columns[w.hashlabel]; !ok {
			return nil, &accerr.ValidationError{Reason: "hashed column (" + w.hashlabel + ") missing"}
		}
	}
	out := map[string]coltypes.Writer{}
	for colname, spec := range w.columns {
		codec, _ := coltypes.Lookup(spec.coltype)
		fn := w.columnFilename(colname, sliceno)
		f, err := os.Create(fn)
		if err != nil {
			for _, wr := range out {
				wr.Close()
			}
			return nil, err
		}
		cw, err := codec.NewWriter(f, spec.hasDefault, spec.def)
		if err != nil {
			f.Close()
			for _, wr := range out {
				wr.Close()
			}
			return nil, err
		}
		if filtered && colname == w.hashlabel {
			out[colname] = &hashFilterWriter{inner: cw, hl: colname, slices: w.env.Slices, target: sliceno}
		} else {
			out[colname] = cw
		}
	}
	return out, nil
}

// hashFilterWriter discards rows whose hashlabel value doesn't belong to
// this slice ("the hashlabel's writer is a filtering writer").
type hashFilterWriter struct {
	inner coltypes.Writer
	hl string
	slices int
	target int
}

func (h *hashFilterWriter) hashcheck(v coltypes.Value) bool {
	return sliceFor(v, h.slices) == h.target
}

func (h *hashFilterWriter) Write(v coltypes.Value) error {
	if !h.hashcheck(v) {
		return nil
	}
	return h.inner.Write(v)
}
func (h *hashFilterWriter) Count() uint64 { return h.inner.Count() }
func (h *hashFilterWriter) Min() coltypes.Value { return h.inner.Min() }
func (h *hashFilterWriter) Max() coltypes.Value { return h.inner.Max() }
func (h *hashFilterWriter) Close() error { return h.inner.Close() }

// HashCheck reports whether v belongs in the slice currently open via
// SetSlice, for callers that want to test before writing.
func (w *Writer) HashCheck(v coltypes.Value) bool {
	if w.hashlabel == "" || w.current == nil {
		return true
	}
	hw, ok := w.current[w.hashlabel].(*hashFilterWriter)
	if !ok {
		return true
	}
	return hw.hashcheck(v)
}

// Write appends one row, values given positionally in Add order.
func (w *Writer) Write(values...coltypes.Value) error {
	return w.WriteList(values)
}

// WriteList appends one row, values given positionally in Add order.
func (w *Writer) WriteList(values []coltypes.Value) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return &accerr.ValidationError{Reason: "set_slice was not called"}
	}
	if len(values) != len(w.order) {
		return &accerr.ValidationError{Reason: "wrong number of values"}
	}
	if w.hashlabel != "" {
		hix := indexOf(w.order, w.hashlabel)
		if !w.current[w.hashlabel].(*hashFilterWriter).hashcheck(values[hix]) {
			return nil
		}
	}
	for i, col := range w.order {
		if err := w.current[col].Write(values[i]); err != nil {
			return err
		}
	}
	return nil
}

// WriteDict appends one row given by column name.
func (w *Writer) WriteDict(values map[string]coltypes.Value) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return &accerr.ValidationError{Reason: "set_slice was not called"}
	}
	if w.hashlabel != "" {
		if !w.current[w.hashlabel].(*hashFilterWriter).hashcheck(values[w.hashlabel]) {
			return nil
		}
	}
	for _, col := range w.order {
		if err := w.current[col].Write(values[col]); err != nil {
			return err
		}
	}
	return nil
}

func indexOf(xs []string, v string) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}

func (w *Writer) closeSliceLocked() error {
	if w.current == nil {
		return nil
	}
	lens := map[string]uint64{}
	minmax := map[string][2]coltypes.Value{}
	for k, cw := range w.current {
		lens[k] = cw.Count()
		minmax[k] = [2]coltypes.Value{cw.Min(), cw.Max()}
		if err := cw.Close(); err != nil {
			return err
		}
	}
	var count uint64
	first := true
	for _, n := range lens {
		if first {
			count = n
			first = false
		} else if n != count {
			return &accerr.ValidationError{Reason: "not all columns have the same linecount in this slice"}
		}
	}
	w.lens[w.sliceno] = count
	for col, mm := range minmax {
		w.mergeColumnMinMax(col, mm)
	}
	w.current = nil
	return nil
}

func (w *Writer) mergeColumnMinMax(col string, mm [2]coltypes.Value) {
	existing, ok := w.minmax[col]
	if !ok {
		w.minmax[col] = mm
		return
	}
	w.minmax[col] = [2]coltypes.Value{minValue(existing[0], mm[0]), maxValue(existing[1], mm[1])}
}

func minValue(a, b coltypes.Value) coltypes.Value {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	switch av := a.(type) {
	case int64:
		if bv, ok := b.(int64); ok && bv < av {
			return bv
		}
	case float64:
		if bv, ok := b.(float64); ok && bv < av {
			return bv
		}
	case string:
		if bv, ok := b.(string); ok && bv < av {
			return bv
		}
	}
	return a
}

func maxValue(a, b coltypes.Value) coltypes.Value {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	switch av := a.(type) {
	case int64:
		if bv, ok := b.(int64); ok && bv > av {
			return bv
		}
	case float64:
		if bv, ok := b.(float64); ok && bv > av {
			return bv
		}
	case string:
		if bv, ok := b.(string); ok && bv > av {
			return bv
		}
	}
	return a
}

// GetSplitWrite returns a positional split-write function.
func (w *Writer) GetSplitWrite() (func(values...coltypes.Value) error, error) {
	if err := w.mkSplit(); err != nil {
		return nil, err
	}
	return func(values...coltypes.Value) error { return w.splitWriteList(values) }, nil
}

// GetSplitWriteList returns a positional-slice split-write function.
func (w *Writer) GetSplitWriteList() (func(values []coltypes.Value) error, error) {
	if err := w.mkSplit(); err != nil {
		return nil, err
	}
	return w.splitWriteList, nil
}

// GetSplitWriteDict returns a by-name split-write function.
func (w *Writer) GetSplitWriteDict() (func(values map[string]coltypes.Value) error, error) {
	if err := w.mkSplit(); err != nil {
		return nil, err
	}
	return w.splitWriteDict, nil
}

func (w *Writer) mkSplit() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started == 1 {
		return &accerr.ValidationError{Reason: "don't use both a split writer and set_slice"}
	}
	if w.allSlices != nil {
		return nil
	}
	w.started = 2
	w.allSlices = make([]map[string]coltypes.Writer, w.env.Slices)
	for s := 0; s < w.env.Slices; s++ {
		cur, err := w.mkWriters(s, false)
		if err != nil {
			return err
		}
		w.allSlices[s] = cur
	}
	return nil
}

var roundRobin struct {
	mu sync.Mutex
	ctr map[*Writer]int
}

func (w *Writer) nextRoundRobinSlice() int {
	roundRobin.mu.Lock()
	defer roundRobin.mu.Unlock()
	if roundRobin.ctr == nil {
		roundRobin.ctr = map[*Writer]int{}
	}
	s := roundRobin.ctr[w] % w.env.Slices
	roundRobin.ctr[w] = s + 1
	return s
}

func (w *Writer) splitWriteList(values []coltypes.Value) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var target int
	if w.hashlabel != "" {
		hix := indexOf(w.order, w.hashlabel)
		target = sliceFor(values[hix], w.env.Slices)
	} else {
		target = w.nextRoundRobinSlice()
	}
	dst := w.allSlices[target]
	for i, col := range w.order {
		if err := dst[col].Write(values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) splitWriteDict(values map[string]coltypes.Value) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var target int
	if w.hashlabel != "" {
		target = sliceFor(values[w.hashlabel], w.env.Slices)
	} else {
		target = w.nextRoundRobinSlice()
	}
	dst := w.allSlices[target]
	for _, col := range w.order {
		if err := dst[col].Write(values[col]); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the writer's currently open slice (if any). Called
// automatically by Finish.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeSliceLocked()
}

// Finish closes every open writer, validates the line-count invariant,
// merges small per-slice files, and persists the resulting Dataset
// ("Line-count invariant", "Merge threshold").
func (w *Writer) Finish() (*Dataset, error) {
	w.mu.Lock()
	if w.started == 2 {
		w.mu.Unlock()
		var g errgroup.Group
		for s, cur := range w.allSlices {
			s, cur := s, cur
			g.Go(func() error {
				return w.closeSplitSlice(s, cur)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		w.mu.Lock()
	} else {
		if err := w.closeSliceLocked(); err != nil {
			w.mu.Unlock()
			return nil, err
		}
	}
	defer w.mu.Unlock()

	if len(w.lens) != w.env.Slices {
		var missing []int
		for s := 0; s < w.env.Slices; s++ {
			if _, ok := w.lens[s]; !ok {
				missing = append(missing, s)
			}
		}
		return nil, &accerr.ValidationError{Reason: fmt.Sprintf("not all slices written, missing %v", missing)}
	}

	lines := make([]int64, w.env.Slices)
	for s, n := range w.lens {
		lines[s] = int64(n)
	}

	cols := make(map[string]ColumnDescriptor, len(w.order))
	for colname, spec := range w.columns {
		slug := w.clean[colname]
		mm := w.minmax[colname]
		loc, offsets, err := w.maybeMerge(slug, w.env.Slices)
		if err != nil {
			return nil, err
		}
		cols[colname] = ColumnDescriptor{
			Type: spec.coltype,
			Name: slug,
			Location: w.env.JobID + "/" + w.name + "/" + loc,
			Min: mm[0],
			Max: mm[1],
			Offsets: offsets,
		}
	}

	var res *Dataset
	var err error
	if w.parent != "" {
		res, err = Append(w.store, w.env, w.parent, w.name, w.hashlabel, w.hashlabelOverride, lines, cols, w.filename, w.caption, w.previous)
	} else {
		res, err = New(w.store, w.env, w.name, w.hashlabel, lines, cols, w.filename, w.caption, w.previous)
	}
	if err != nil {
		return nil, err
	}

	writersMu.Lock()
	delete(writers, w.env.JobID+"/"+w.name)
	writersMu.Unlock()
	return res, nil
}

func (w *Writer) closeSplitSlice(sliceno int, cur map[string]coltypes.Writer) error {
	lens := map[string]uint64{}
	minmax := map[string][2]coltypes.Value{}
	for k, cw := range cur {
		lens[k] = cw.Count()
		minmax[k] = [2]coltypes.Value{cw.Min(), cw.Max()}
		if err := cw.Close(); err != nil {
			return err
		}
	}
	var count uint64
	first := true
	for _, n := range lens {
		if first {
			count = n
			first = false
		} else if n != count {
			return &accerr.ValidationError{Reason: "not all columns have the same linecount in this slice"}
		}
	}
	w.mu.Lock()
	w.lens[sliceno] = count
	for col, mm := range minmax {
		w.mergeColumnMinMax(col, mm)
	}
	w.mu.Unlock()
	return nil
}

// maybeMerge merges a column's per-slice files into one when their
// average size is below mergeThreshold.
func (w *Writer) maybeMerge(slug string, slices int) (location string, offsets []int64, err error) {
	if slices < 2 {
		return "%d." + slug, nil, nil
	}
	dir := w.name
	sizes := make([]int64, slices)
	var total int64
	for s := 0; s < slices; s++ {
		fi, err := os.Stat(dir + "/" + itoa(s) + "." + slug)
		if err != nil {
			return "", nil, err
		}
		sizes[s] = fi.Size()
		total += sizes[s]
	}
	if total/int64(slices) > mergeThreshold {
		return "%d." + slug, nil, nil
	}
	mergedPath := dir + "/m." + slug
	mf, err := os.Create(mergedPath)
	if err != nil {
		return "", nil, err
	}
	defer mf.Close()
	offsets = make([]int64, slices)
	var pos int64
	for s := 0; s < slices; s++ {
		p := dir + "/" + itoa(s) + "." + slug
		data, err := os.ReadFile(p)
		if err != nil {
			return "", nil, err
		}
		if int64(len(data)) != sizes[s] {
			return "", nil, &accerr.ValidationError{Reason: "slice size changed during merge"}
		}
		if _, err := mf.Write(data); err != nil {
			return "", nil, err
		}
		offsets[s] = pos
		pos += sizes[s]
		os.Remove(p)
	}
	return "m." + slug, offsets, nil
}
