package dataset

import ("testing"

	"github.com/stretchr/testify/assert")

func TestNormalizeID(t *testing.T) {
	a := assert.New(t)
	a.Equal("", NormalizeID(""))
	a.Equal("job1/default", NormalizeID("job1"))
	a.Equal("job1/profile", NormalizeID("job1/profile"))
}

func TestNormalizePair(t *testing.T) {
	a := assert.New(t)
	a.Equal("", NormalizePair("", "x"))
	a.Equal("job1/default", NormalizePair("job1", ""))
	a.Equal("job1/profile", NormalizePair("job1", "profile"))
	a.Equal("job1/profile", NormalizePair("job1/ignored", "profile"))
}

func TestSplitID(t *testing.T) {
	a := assert.New(t)
	jobid, name := SplitID("job1")
	a.Equal("job1", jobid)
	a.Equal("default", name)

	jobid, name = SplitID("job1/profile")
	a.Equal("job1", jobid)
	a.Equal("profile", name)
}

func TestCleanNameSanitizesAndDedupes(t *testing.T) {
	a := assert.New(t)
	seen := map[string]bool{}

	a.Equal("a_b_c", cleanName("a b-c", seen))
	a.Equal("_123", cleanName("123", seen))
	a.Equal("col", cleanName("col", seen))
	// a second "col" collides with the first and gets bumped.
	a.Equal("col_", cleanName("col", seen))
}

func TestCleanNameAvoidsGoKeywords(t *testing.T) {
	seen := map[string]bool{}
	assert.Equal(t, "type_", cleanName("type", seen))
}

func TestCleanNameEmptyInput(t *testing.T) {
	seen := map[string]bool{}
	assert.Equal(t, "_", cleanName("", seen))
}
