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

// Package coltypes is the external, pluggable column-codec registry: the
// rest of the module only sees a registry keyed by type name, never a
// fixed wire format. This package carries a minimal set (int64, float64,
// utf8) sufficient to exercise the writer/reader paths in
// internal/dataset; production deployments are expected to register
// their own codecs for the types their methods actually use.
package coltypes

import ("bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math")

// Value is whatever a codec reads or writes; callers type-assert.
type Value interface{}

// Writer appends values of one column's type to a single slice file.
type Writer interface {
	Write(v Value) error
	Count() uint64
	Min() Value
	Max() Value
	Close() error
}

// Reader streams values of one column's type back out, in write order.
type Reader interface {
	// Next returns the next value, or ok=false at end of stream.
	Next() (v Value, ok bool, err error)
	Close() error
}

// Codec names a type registered for column storage (ColumnDescriptor.Type).
type Codec interface {
	Name() string
	NewWriter(w io.Writer, hasDefault bool, def Value) (Writer, error)
	NewReader(r io.Reader) (Reader, error)
}

var registry = map[string]Codec{}

// Register adds a codec under its own Name. Panics on duplicate
// registration, the way a misconfigured method registry is a programmer
// error rather than a runtime condition to recover from.
func Register(c Codec) {
	if _, exists := registry[c.Name()]; exists {
		panic(fmt.Sprintf("coltypes: duplicate registration for %q", c.Name()))
	}
	registry[c.Name()] = c
}

// Lookup returns the codec for a type name, and whether it was found.
func Lookup(name string) (Codec, bool) {
	c, ok := registry[name]
	return c, ok
}

func init() {
	Register(int64Codec{})
	Register(float64Codec{})
	Register(utf8Codec{})
}

// --- int64 -----------------------------------------------------------------

type int64Codec struct{}

func (int64Codec) Name() string { return "int64" }

func (int64Codec) NewWriter(w io.Writer, hasDefault bool, def Value) (Writer, error) {
	var defVal int64
	if hasDefault {
		v, ok := def.(int64)
		if !ok {
			return nil, fmt.Errorf("coltypes: int64 default must be int64, got %T", def)
		}
		defVal = v
	}
	return &int64Writer{w: bufio.NewWriter(w), hasDefault: hasDefault, def: defVal, min: math.MaxInt64, max: math.MinInt64}, nil
}

func (int64Codec) NewReader(r io.Reader) (Reader, error) {
	return &int64Reader{r: bufio.NewReader(r)}, nil
}

type int64Writer struct {
	w *bufio.Writer
	hasDefault bool
	def int64
	count uint64
	min, max int64
}

func (c *int64Writer) Write(v Value) error {
	n, ok := v.(int64)
	if !ok {
		if v == nil && c.hasDefault {
			n = c.def
		} else {
			return fmt.Errorf("coltypes: expected int64, got %T", v)
		}
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	if _, err := c.w.Write(buf[:]); err != nil {
		return err
	}
	if n < c.min {
		c.min = n
	}
	if n > c.max {
		c.max = n
	}
	c.count++
	return nil
}

func (c *int64Writer) Count() uint64 { return c.count }
func (c *int64Writer) Min() Value {
	if c.count == 0 {
		return nil
	}
	return c.min
}
func (c *int64Writer) Max() Value {
	if c.count == 0 {
		return nil
	}
	return c.max
}
func (c *int64Writer) Close() error { return c.w.Flush() }

type int64Reader struct {
	r *bufio.Reader
}

func (c *int64Reader) Next() (Value, bool, error) {
	var buf [8]byte
	_, err := io.ReadFull(c.r, buf[:])
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), true, nil
}

func (c *int64Reader) Close() error { return nil }

// --- float64 -----------------------------------------------------------------

type float64Codec struct{}

func (float64Codec) Name() string { return "float64" }

func (float64Codec) NewWriter(w io.Writer, hasDefault bool, def Value) (Writer, error) {
	var defVal float64
	if hasDefault {
		v, ok := def.(float64)
		if !ok {
			return nil, fmt.Errorf("coltypes: float64 default must be float64, got %T", def)
		}
		defVal = v
	}
	return &float64Writer{w: bufio.NewWriter(w), hasDefault: hasDefault, def: defVal, min: math.Inf(1), max: math.Inf(-1)}, nil
}

func (float64Codec) NewReader(r io.Reader) (Reader, error) {
	return &float64Reader{r: bufio.NewReader(r)}, nil
}

type float64Writer struct {
	w *bufio.Writer
	hasDefault bool
	def float64
	count uint64
	min, max float64
}

func (c *float64Writer) Write(v Value) error {
	n, ok := v.(float64)
	if !ok {
		if v == nil && c.hasDefault {
			n = c.def
		} else {
			return fmt.Errorf("coltypes: expected float64, got %T", v)
		}
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(n))
	if _, err := c.w.Write(buf[:]); err != nil {
		return err
	}
	if n < c.min {
		c.min = n
	}
	if n > c.max {
		c.max = n
	}
	c.count++
	return nil
}

func (c *float64Writer) Count() uint64 { return c.count }
func (c *float64Writer) Min() Value {
	if c.count == 0 {
		return nil
	}
	return c.min
}
func (c *float64Writer) Max() Value {
	if c.count == 0 {
		return nil
	}
	return c.max
}
func (c *float64Writer) Close() error { return c.w.Flush() }

type float64Reader struct {
	r *bufio.Reader
}

func (c *float64Reader) Next() (Value, bool, error) {
	var buf [8]byte
	_, err := io.ReadFull(c.r, buf[:])
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), true, nil
}

func (c *float64Reader) Close() error { return nil }

// --- utf8 --------------------------------------------------------------------

type utf8Codec struct{}

func (utf8Codec) Name() string { return "utf8" }

func (utf8Codec) NewWriter(w io.Writer, hasDefault bool, def Value) (Writer, error) {
	var defVal string
	if hasDefault {
		v, ok := def.(string)
		if !ok {
			return nil, fmt.Errorf("coltypes: utf8 default must be string, got %T", def)
		}
		defVal = v
	}
	return &utf8Writer{w: bufio.NewWriter(w), hasDefault: hasDefault, def: defVal}, nil
}

func (utf8Codec) NewReader(r io.Reader) (Reader, error) {
	return &utf8Reader{r: bufio.NewReader(r)}, nil
}

type utf8Writer struct {
	w *bufio.Writer
	hasDefault bool
	def string
	count uint64
	min, max string
}

func (c *utf8Writer) Write(v Value) error {
	s, ok := v.(string)
	if !ok {
		if v == nil && c.hasDefault {
			s = c.def
		} else {
			return fmt.Errorf("coltypes: expected string, got %T", v)
		}
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	if _, err := c.w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := c.w.WriteString(s); err != nil {
		return err
	}
	if c.count == 0 || s < c.min {
		c.min = s
	}
	if c.count == 0 || s > c.max {
		c.max = s
	}
	c.count++
	return nil
}

func (c *utf8Writer) Count() uint64 { return c.count }
func (c *utf8Writer) Min() Value {
	if c.count == 0 {
		return nil
	}
	return c.min
}
func (c *utf8Writer) Max() Value {
	if c.count == 0 {
		return nil
	}
	return c.max
}
func (c *utf8Writer) Close() error { return c.w.Flush() }

type utf8Reader struct {
	r *bufio.Reader
}

func (c *utf8Reader) Next() (Value, bool, error) {
	var lenBuf [4]byte
	_, err := io.ReadFull(c.r, lenBuf[:])
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return nil, false, err
	}
	return string(buf), true, nil
}

func (c *utf8Reader) Close() error { return nil }
