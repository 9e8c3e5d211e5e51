package coltypes

import ("bytes"
	"testing"

	"github.com/stretchr/testify/assert")

func TestInt64RoundTrip(t *testing.T) {
	a := assert.New(t)
	codec, ok := Lookup("int64")
	a.True(ok)

	var buf bytes.Buffer
	w, err := codec.NewWriter(&buf, false, nil)
	a.NoError(err)
	a.NoError(w.Write(int64(3)))
	a.NoError(w.Write(int64(-7)))
	a.NoError(w.Write(int64(5)))
	a.NoError(w.Close())

	a.Equal(uint64(3), w.Count())
	a.Equal(int64(-7), w.Min())
	a.Equal(int64(5), w.Max())

	r, err := codec.NewReader(&buf)
	a.NoError(err)
	var got []int64
	for {
		v, ok, err := r.Next()
		a.NoError(err)
		if !ok {
			break
		}
		got = append(got, v.(int64))
	}
	a.Equal([]int64{3, -7, 5}, got)
}

func TestFloat64RoundTrip(t *testing.T) {
	a := assert.New(t)
	codec, ok := Lookup("float64")
	a.True(ok)

	var buf bytes.Buffer
	w, err := codec.NewWriter(&buf, false, nil)
	a.NoError(err)
	a.NoError(w.Write(1.5))
	a.NoError(w.Write(-2.25))
	a.NoError(w.Close())

	r, err := codec.NewReader(&buf)
	a.NoError(err)
	v1, ok, err := r.Next()
	a.NoError(err)
	a.True(ok)
	a.Equal(1.5, v1)
	v2, ok, err := r.Next()
	a.NoError(err)
	a.True(ok)
	a.Equal(-2.25, v2)
	_, ok, err = r.Next()
	a.NoError(err)
	a.False(ok)
}

func TestUtf8RoundTrip(t *testing.T) {
	a := assert.New(t)
	codec, ok := Lookup("utf8")
	a.True(ok)

	var buf bytes.Buffer
	w, err := codec.NewWriter(&buf, false, nil)
	a.NoError(err)
	a.NoError(w.Write("hello"))
	a.NoError(w.Write(""))
	a.NoError(w.Write("world"))
	a.NoError(w.Close())
	a.Equal("", w.Min())
	a.Equal("world", w.Max())

	r, err := codec.NewReader(&buf)
	a.NoError(err)
	var got []string
	for {
		v, ok, err := r.Next()
		a.NoError(err)
		if !ok {
			break
		}
		got = append(got, v.(string))
	}
	a.Equal([]string{"hello", "", "world"}, got)
}

func TestWriteWrongTypeErrors(t *testing.T) {
	codec, _ := Lookup("int64")
	var buf bytes.Buffer
	w, err := codec.NewWriter(&buf, false, nil)
	assert.NoError(t, err)
	assert.Error(t, w.Write("not an int64"))
}

func TestDefaultValueFillsNil(t *testing.T) {
	a := assert.New(t)
	codec, _ := Lookup("int64")
	var buf bytes.Buffer
	w, err := codec.NewWriter(&buf, true, int64(42))
	a.NoError(err)
	a.NoError(w.Write(nil))
	a.NoError(w.Close())

	r, _ := codec.NewReader(&buf)
	v, ok, err := r.Next()
	a.NoError(err)
	a.True(ok)
	a.Equal(int64(42), v)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(int64Codec{})
	})
}

func TestLookupMissing(t *testing.T) {
	_, ok := Lookup("does-not-exist")
	assert.False(t, ok)
}

func TestEmptyWriterHasNoMinMax(t *testing.T) {
	a := assert.New(t)
	codec, _ := Lookup("int64")
	var buf bytes.Buffer
	w, err := codec.NewWriter(&buf, false, nil)
	a.NoError(err)
	a.Nil(w.Min())
	a.Nil(w.Max())
	a.Equal(uint64(0), w.Count())
}
