// Package testutil provides shared test helpers for the sim/ and
// sim/ensemble/ test packages.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertSlicesClose compares two float64 slices elementwise with absolute
// tolerance over the index range [from, to).
func AssertSlicesClose(t *testing.T, name string, want, got []float64, from, to int, absTol float64) {
	t.Helper()
	for i := from; i < to; i++ {
		if math.Abs(want[i]-got[i]) > absTol {
			t.Errorf("%s[%d]: got %v, want %v (tolerance %v)", name, i, got[i], want[i], absTol)
		}
	}
}

// WriteTempFile writes content to a file named name in a fresh test
// directory and returns its path.
func WriteTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
