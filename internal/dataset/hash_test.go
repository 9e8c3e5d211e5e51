package dataset

import ("testing"

	"github.com/stretchr/testify/assert")

func TestHashValueIsStable(t *testing.T) {
	a := assert.New(t)
	a.Equal(hashValue(int64(7)), hashValue(int64(7)))
	a.NotEqual(hashValue(int64(7)), hashValue(int64(8)))
}

func TestSliceForStaysInRange(t *testing.T) {
	a := assert.New(t)
	for _, v := range []interface{}{int64(1), int64(2), "a", "bbbb"} {
		s := sliceFor(v, 8)
		a.GreaterOrEqual(s, 0)
		a.Less(s, 8)
	}
}

func TestSliceForIsDeterministic(t *testing.T) {
	assert.Equal(t, sliceFor("same-value", 16), sliceFor("same-value", 16))
}
