package dataset

import ("testing"

	"github.com/stretchr/testify/assert")

func TestUpgradeVersion1RewritesLocation(t *testing.T) {
	a := assert.New(t)
	o := onDiskDescriptor{
		Version: []int{1},
		Lines: []int64{10},
		Columns: map[string]onDiskColumn{
			"a": {Type: "int64", Name: "a", Location: "job1"},
		},
	}
	d, err := o.upgrade("job2", "default")
	a.NoError(err)
	a.Equal([2]int{2, 0}, d.Version)
	a.Equal("job1/%d/a", d.Columns["a"].Location)
	a.Nil(d.Columns["a"].Offsets)
}

func TestUpgradeVersion2PreservesLocationAndOffsets(t *testing.T) {
	a := assert.New(t)
	o := onDiskDescriptor{
		Version: []int{2, 3},
		Lines: []int64{5, 5},
		Columns: map[string]onDiskColumn{
			"a": {Type: "int64", Name: "a", Location: "job1/0/a", Offsets: []int64{0, 40}},
		},
	}
	d, err := o.upgrade("job1", "default")
	a.NoError(err)
	a.Equal([2]int{2, 3}, d.Version)
	a.Equal("job1/0/a", d.Columns["a"].Location)
	a.Equal([]int64{0, 40}, d.Columns["a"].Offsets)
}

func TestUpgradeRejectsMissingVersion(t *testing.T) {
	o := onDiskDescriptor{}
	_, err := o.upgrade("job1", "default")
	assert.Error(t, err)
}

func TestUpgradeRejectsUnsupportedMajor(t *testing.T) {
	o := onDiskDescriptor{Version: []int{9}}
	_, err := o.upgrade("job1", "default")
	assert.Error(t, err)
}

func TestToOnDiskRoundTrip(t *testing.T) {
	a := assert.New(t)
	d := &Descriptor{
		Version: [2]int{2, 0},
		Hashlabel: "a",
		Lines: []int64{1, 2},
		Columns: map[string]ColumnDescriptor{
			"a": {Type: "int64", Name: "a", Location: "job1/0/a"},
		},
	}
	o := toOnDisk(d)
	back, err := o.upgrade("job1", "default")
	a.NoError(err)
	a.Equal(d.Hashlabel, back.Hashlabel)
	a.Equal(d.Lines, back.Lines)
	a.Equal(d.Columns["a"].Location, back.Columns["a"].Location)
}
