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

import ("bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/accelerator-io/accelerator/internal/accerr")

// onDisk* mirror the persisted descriptor shape exactly: field names,
// version tuple order, and string encoding are all preserved, with JSON
// as the on-disk format.

type onDiskColumn struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Location string `json:"location"`
	Min interface{} `json:"min,omitempty"`
	Max interface{} `json:"max,omitempty"`
	Offsets []int64 `json:"offsets,omitempty"`
}

type onDiskDescriptor struct {
	Version []int `json:"version"`
	Filename string `json:"filename,omitempty"`
	Hashlabel string `json:"hashlabel,omitempty"`
	Caption string `json:"caption,omitempty"`
	Columns map[string]onDiskColumn `json:"columns"`
	Previous string `json:"previous,omitempty"`
	Parent string `json:"parent,omitempty"`
	Lines []int64 `json:"lines"`
	Cache map[string]onDiskDescriptor `json:"cache,omitempty"`
	CacheDistance *int `json:"cache_distance,omitempty"`
}

// upgrade converts an on-disk descriptor of any supported major version
// into the current in-memory shape, rewriting version-1 column locations
// into ("<origin-jobid>/%d/<colname>", offsets=nil) form.
func (o onDiskDescriptor) upgrade(jobid, name string) (*Descriptor, error) {
	if len(o.Version) == 0 {
		return nil, &accerr.ValidationError{Reason: fmt.Sprintf("%s/%s: missing dataset version", jobid, name)}
	}
	major := o.Version[0]
	if major != 1 && major != 2 {
		return nil, &accerr.ValidationError{Reason: fmt.Sprintf("%s/%s: unsupported dataset pickle version %v", jobid, name, o.Version)}
	}

	cols := make(map[string]ColumnDescriptor, len(o.Columns))
	switch major {
	case 1:
		for k, c := range o.Columns {
			cols[k] = ColumnDescriptor{
				Type: c.Type,
				Name: c.Name,
				Location: fmt.Sprintf("%s/%%d/%s", c.Location, c.Name),
				Min: c.Min,
				Max: c.Max,
				Offsets: nil,
			}
		}
	case 2:
		for k, c := range o.Columns {
			cols[k] = ColumnDescriptor{Type: c.Type, Name: c.Name, Location: c.Location, Min: c.Min, Max: c.Max, Offsets: c.Offsets}
		}
	}

	version := [2]int{2, 0}
	if major == 2 && len(o.Version) > 1 {
		version[1] = o.Version[1]
	}

	cache := map[string]Descriptor{}
	for id, snap := range o.Cache {
		sub, err := snap.upgrade(jobid, name)
		if err != nil {
			return nil, err
		}
		cache[id] = *sub
	}

	cacheDistance := 0
	if o.CacheDistance != nil {
		cacheDistance = *o.CacheDistance
	}

	return &Descriptor{
		Version: version,
		Filename: o.Filename,
		Hashlabel: o.Hashlabel,
		Caption: o.Caption,
		Columns: cols,
		Previous: o.Previous,
		Parent: o.Parent,
		Lines: o.Lines,
		Cache: cache,
		CacheDistance: cacheDistance,
	}, nil
}

func toOnDisk(d *Descriptor) onDiskDescriptor {
	cols := make(map[string]onDiskColumn, len(d.Columns))
	for k, c := range d.Columns {
		cols[k] = onDiskColumn{Type: c.Type, Name: c.Name, Location: c.Location, Min: c.Min, Max: c.Max, Offsets: c.Offsets}
	}
	var cache map[string]onDiskDescriptor
	if len(d.Cache) > 0 {
		cache = make(map[string]onDiskDescriptor, len(d.Cache))
		for id, snap := range d.Cache {
			snap := snap
			cache[id] = toOnDisk(&snap)
		}
	}
	cd := d.CacheDistance
	return onDiskDescriptor{
		Version: []int{d.Version[0], d.Version[1]},
		Filename: d.Filename,
		Hashlabel: d.Hashlabel,
		Caption: d.Caption,
		Columns: cols,
		Previous: d.Previous,
		Parent: d.Parent,
		Lines: d.Lines,
		Cache: cache,
		CacheDistance: &cd,
	}
}

// writeManifest writes the dataset's human-readable manifest: an
// optional "hashlabel <name>" line, an optional "previous <id>" line, a
// blank line if either was written, then a right-aligned name/type/location
// table with a "====" underline row.
func (d *Dataset) writeManifest(dir string) error {
	f, err := os.Create(filepath.Join(dir, manifestFile))
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	wroteHeader := false
	if d.data.Hashlabel != "" {
		fmt.Fprintf(w, "hashlabel %s\n", d.data.Hashlabel)
		wroteHeader = true
	}
	if d.data.Previous != "" {
		fmt.Fprintf(w, "previous %s\n", d.data.Previous)
		wroteHeader = true
	}
	if wroteHeader {
		fmt.Fprintln(w)
	}

	type row struct{ name, typ, location string }
	rows := make([]row, 0, len(d.data.Columns))
	for name, c := range d.data.Columns {
		rows = append(rows, row{name, c.Type, c.Location})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].name != rows[j].name {
			return rows[i].name < rows[j].name
		}
		if rows[i].typ != rows[j].typ {
			return rows[i].typ < rows[j].typ
		}
		return rows[i].location < rows[j].location
	})

	nameW, typW, locW := 4, 4, 8
	for _, r := range rows {
		nameW = maxLen(nameW, len(r.name))
		typW = maxLen(typW, len(r.typ))
		locW = maxLen(locW, len(r.location))
	}
	template := fmt.Sprintf("%%%ds %%%ds %%%ds\n", nameW, typW, locW)
	fmt.Fprintf(w, template, "name", "type", "location")
	fmt.Fprintf(w, template, repeat('=', nameW), repeat('=', typW), repeat('=', locW))
	for _, r := range rows {
		fmt.Fprintf(w, template, r.name, r.typ, r.location)
	}
	return w.Flush()
}

func maxLen(a, b int) int {
	if b > a {
		return b
	}
	return a
}

func repeat(c byte, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = c
	}
	return string(b)
}
