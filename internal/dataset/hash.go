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
	"hash/fnv"

	"github.com/accelerator-io/accelerator/internal/coltypes")

// hashValue gives a stable partition hash for any column value. The
// typed-codec registry is out of scope, so there is no language-native
// hash to reproduce bit-for-bit; FNV-1a over the value's canonical string
// form gives the writer and the reader a hash that at least agrees with
// itself, which is all the hash-partitioning invariant requires.
func hashValue(v coltypes.Value) uint64 {
	h := fnv.New64a()
	fmt.Fprint(h, v)
	return h.Sum64()
}

// sliceFor returns the destination slice for a hashlabel value.
func sliceFor(v coltypes.Value, slices int) int {
	return int(hashValue(v) % uint64(slices))
}
