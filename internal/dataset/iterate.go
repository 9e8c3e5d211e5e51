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
	"sort"

	"github.com/pkg/errors"

	"github.com/accelerator-io/accelerator/internal/coltypes")

// RowIterator yields rows as a slice of column values, in column order,
// across one or more datasets and one or more slices (// iterate/iterate_chain).
type RowIterator interface {
	// Columns is the ordered column list this iterator yields values for.
	Columns() []string
	// Next returns the next row, or ok=false once every source is exhausted.
	Next() ([]coltypes.Value, bool, error)
	Close() error
}

// Filter decides whether a row survives based on one column's value.
type Filter func(coltypes.Value) bool

// Translator rewrites one column's value before it reaches the caller.
type Translator func(coltypes.Value) coltypes.Value

// datasetRowIterator iterates a single dataset's columns over one or all
// slices, with optional foreign-hashlabel filtering and per-column
// filter/translate hooks keyed by requested-column position.
type datasetRowIterator struct {
	cols []string
	readers []coltypes.Reader
	hashIdx int // index into readers of the filtering column, -1 if none
	hashTo int
	slices int
	filters []Filter // parallel to cols; nil entries pass everything
	translators []Translator // parallel to cols; nil entries pass through
}

func (it *datasetRowIterator) Columns() []string { return it.cols }

// Next returns the next row, or ok=false once every source is exhausted.
func (it *datasetRowIterator) Next() ([]coltypes.Value, bool, error) {
	for {
		row := make([]coltypes.Value, len(it.readers))
		var hashVal coltypes.Value
		for i, r := range it.readers {
			v, ok, err := r.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				if i != 0 {
					return nil, false, errors.New("dataset: column readers out of sync")
				}
				return nil, false, nil
			}
			row[i] = v
			if i == it.hashIdx {
				hashVal = v
			}
		}
		if it.hashIdx >= 0 && sliceFor(hashVal, it.slices) != it.hashTo {
			continue
		}
		// the hash column, if opened only for filtering, isn't requested.
		out := row[:len(it.cols)]
		skip := false
		for i := range out {
			if i < len(it.filters) && it.filters[i] != nil && !it.filters[i](out[i]) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		for i := range out {
			if i < len(it.translators) && it.translators[i] != nil {
				out[i] = it.translators[i](out[i])
			}
		}
		return out, true, nil
	}
}

func (it *datasetRowIterator) Close() error {
	var firstErr error
	for _, r := range it.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// openColumnSlice opens a reader for one column's data in one slice,
// honoring merged-file offsets and the per-slice row-count bound.
func (d *Dataset) openColumnSlice(col string, sliceno int) (coltypes.Reader, error) {
	cd, ok := d.data.Columns[col]
	if !ok {
		return nil, errors.Errorf("dataset: no such column %q", col)
	}
	codec, ok := coltypes.Lookup(cd.Type)
	if !ok {
		return nil, errors.Errorf("dataset: unknown column type %q", cd.Type)
	}
	s := sliceno
	fn, err := d.ColumnFilename(col, &s)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening column %s slice %d", col, sliceno)
	}
	if len(cd.Offsets) > 0 {
		if _, err := f.Seek(cd.Offsets[sliceno], 0); err != nil {
			f.Close()
			return nil, err
		}
		r, err := codec.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &boundReader{inner: r, file: f, n: uint64(d.data.Lines[sliceno])}, nil
	}
	r, err := codec.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileBoundReader{inner: r, file: f}, nil
}

// boundReader stops after n values, for reading one slice's region out of
// a column file merged across all slices.
type boundReader struct {
	inner coltypes.Reader
	file *os.File
	n, i uint64
}

func (b *boundReader) Next() (coltypes.Value, bool, error) {
	if b.i >= b.n {
		return nil, false, nil
	}
	v, ok, err := b.inner.Next()
	if err != nil || !ok {
		return v, ok, err
	}
	b.i++
	return v, true, nil
}

func (b *boundReader) Close() error {
	b.inner.Close()
	return b.file.Close()
}

// fileBoundReader closes the backing file alongside the codec reader.
type fileBoundReader struct {
	inner coltypes.Reader
	file *os.File
}

func (b *fileBoundReader) Next() (coltypes.Value, bool, error) { return b.inner.Next() }
func (b *fileBoundReader) Close() error {
	b.inner.Close()
	return b.file.Close()
}

// concatReader chains per-slice readers for a single column across all
// slices (sliceno=nil in Iterate).
type concatReader struct {
	parts []coltypes.Reader
	idx int
}

func (c *concatReader) Next() (coltypes.Value, bool, error) {
	for c.idx < len(c.parts) {
		v, ok, err := c.parts[c.idx].Next()
		if err != nil {
			return nil, false, err
		}
		if ok {
			return v, true, nil
		}
		c.idx++
	}
	return nil, false, nil
}

func (c *concatReader) Close() error {
	var firstErr error
	for _, p := range c.parts {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Dataset) openColumn(col string, sliceno *int, slices int) (coltypes.Reader, error) {
	if sliceno != nil {
		return d.openColumnSlice(col, *sliceno)
	}
	parts := make([]coltypes.Reader, slices)
	for s := 0; s < slices; s++ {
		r, err := d.openColumnSlice(col, s)
		if err != nil {
			for _, p := range parts[:s] {
				p.Close()
			}
			return nil, err
		}
		parts[s] = r
	}
	return &concatReader{parts: parts}, nil
}

// Iterate yields rows from this dataset's columns. sliceno=nil iterates
// every slice concatenated. When hashlabel is set and differs from the
// dataset's own, rows are filtered so the caller sees only the rows
// belonging to sliceno of slices; with sliceno nil that filtering is not
// applied and every row of every slice is returned. filters and translators are optional, keyed by column name: a
// filter rejects a whole row when its column's value doesn't pass, a
// translator rewrites its column's value before the row is returned;
// both are applied after hashlabel filtering, in requested-column order.
func (d *Dataset) Iterate(sliceno *int, columns []string, hashlabel string, slices int, filters map[string]Filter, translators map[string]Translator) (RowIterator, error) {
	cols := columns
	if len(cols) == 0 {
		cols = make([]string, 0, len(d.data.Columns))
		for n := range d.data.Columns {
			cols = append(cols, n)
		}
		sort.Strings(cols)
	}
	for _, c := range cols {
		if _, ok := d.data.Columns[c]; !ok {
			return nil, errors.Errorf("dataset: column %q not found in %s", c, d.ID())
		}
	}

	readers := make([]coltypes.Reader, 0, len(cols)+1)
	closeAll := func() {
		for _, r := range readers {
			r.Close()
		}
	}
	for _, c := range cols {
		r, err := d.openColumn(c, sliceno, slices)
		if err != nil {
			closeAll()
			return nil, err
		}
		readers = append(readers, r)
	}

	hashIdx := -1
	hashTo := 0
	if hashlabel != "" && hashlabel != d.data.Hashlabel && sliceno != nil {
		hashTo = *sliceno
		// find or open the filter column.
		found := -1
		for i, c := range cols {
			if c == hashlabel {
				found = i
				break
			}
		}
		if found >= 0 {
			hashIdx = found
		} else {
			r, err := d.openColumn(hashlabel, sliceno, slices)
			if err != nil {
				closeAll()
				return nil, err
			}
			readers = append(readers, r)
			hashIdx = len(readers) - 1
		}
	}

	var colFilters []Filter
	if len(filters) > 0 {
		colFilters = make([]Filter, len(cols))
		for i, c := range cols {
			colFilters[i] = filters[c]
		}
	}
	var colTranslators []Translator
	if len(translators) > 0 {
		colTranslators = make([]Translator, len(cols))
		for i, c := range cols {
			colTranslators[i] = translators[c]
		}
	}

	return &datasetRowIterator{
		cols: cols,
		readers: readers,
		hashIdx: hashIdx,
		hashTo: hashTo,
		slices: slices,
		filters: colFilters,
		translators: colTranslators,
	}, nil
}

// chainRowIterator concatenates whole rows from a sequence of per-member
// RowIterators, advancing to the next member only once the current one is
// exhausted — unlike per-column concatenation, this keeps every column of
// a row drawn from the same underlying dataset member.
type chainRowIterator struct {
	cols []string
	its []RowIterator
	idx int
}

func (c *chainRowIterator) Columns() []string { return c.cols }

func (c *chainRowIterator) Next() ([]coltypes.Value, bool, error) {
	for c.idx < len(c.its) {
		row, ok, err := c.its[c.idx].Next()
		if err != nil {
			return nil, false, err
		}
		if ok {
			return row, true, nil
		}
		c.its[c.idx].Close()
		c.idx++
	}
	return nil, false, nil
}

func (c *chainRowIterator) Close() error {
	var firstErr error
	for ; c.idx < len(c.its); c.idx++ {
		if err := c.its[c.idx].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// IterateChain iterates over this dataset's Chain(length, reverse,
// stopJobid), concatenating rows across every member in chain order.
// filters/translators are applied per member exactly as in Iterate.
func (d *Dataset) IterateChain(sliceno *int, columns []string, length int, reverse bool, hashlabel string, stopJobid string, slices int, filters map[string]Filter, translators map[string]Translator) (RowIterator, error) {
	chain, err := d.Chain(length, reverse, stopJobid)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return &chainRowIterator{cols: columns}, nil
	}
	its := make([]RowIterator, 0, len(chain))
	for _, member := range chain {
		it, err := member.Iterate(sliceno, columns, hashlabel, slices, filters, translators)
		if err != nil {
			for _, prev := range its {
				prev.Close()
			}
			return nil, err
		}
		its = append(its, it)
	}
	return &chainRowIterator{cols: its[0].Columns(), its: its}, nil
}
