package joblist

import ("testing"

	"github.com/stretchr/testify/assert")

func TestScalarization(t *testing.T) {
	a := assert.New(t)
	var l List
	a.Equal("", l.JobID())
	l = l.Insert("A", "j1")
	l = l.Insert("B", "j2")
	a.Equal("j2", l.JobID())
	a.Equal("j1,j2", l.All())
}

func TestFindAndGet(t *testing.T) {
	a := assert.New(t)
	var l List
	l = l.Insert("A", "j1")
	l = l.Insert("B", "j2")
	l = l.Insert("A", "j3")

	found := l.Find("A")
	a.Len(found, 2)
	a.Equal("j1", found[0].JobID)
	a.Equal("j3", found[1].JobID)

	got := l.MustGet("A")
	a.Equal("j3", got.JobID)

	_, ok := l.Get("missing")
	a.False(ok)
}

func TestMustGetPanicsOnMiss(t *testing.T) {
	var l List
	l = l.Insert("A", "j1")
	assert.Panics(t, func() {
		l.MustGet("B")
	})
}

func TestSliceAndDelete(t *testing.T) {
	a := assert.New(t)
	var l List
	l = l.Insert("A", "j1")
	l = l.Insert("B", "j2")
	l = l.Insert("C", "j3")

	sliced := l.Slice(1, 3)
	a.Equal(List{Ref{"B", "j2"}, Ref{"C", "j3"}}, sliced)

	afterDelete := l.DeleteRef(Ref{"B", "j2"})
	a.Equal(List{Ref{"A", "j1"}, Ref{"C", "j3"}}, afterDelete)

	afterContains := l.DeleteContaining("j2")
	a.Equal(List{Ref{"A", "j1"}, Ref{"C", "j3"}}, afterContains)
}

func TestPretty(t *testing.T) {
	var l List
	l = l.Insert("A", "j1")
	out := l.Pretty()
	assert.Contains(t, out, "[  0]")
	assert.Contains(t, out, "j1")
}

func TestRefStringIsJobID(t *testing.T) {
	r := New("A", "j1")
	assert.Equal(t, "j1", r.String())
}
