// Package testutil provides shared test infrastructure for the game engine.
// It has no dependency on sim/ so every package, sim included, can use it.
package testutil

import (
	"math"
	"path/filepath"
	"runtime"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
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

// BinomialInterval returns the normal-approximation confidence interval
// for the number of successes in n trials with success probability p.
func BinomialInterval(n int, p, confidence float64) (lo, hi float64) {
	mean := float64(n) * p
	sd := math.Sqrt(float64(n) * p * (1 - p))
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	return mean - z*sd, mean + z*sd
}

// AssertBinomialWithin fails unless successes lies in the confidence
// interval around n*p.
func AssertBinomialWithin(t *testing.T, name string, successes, n int, p, confidence float64) {
	t.Helper()
	lo, hi := BinomialInterval(n, p, confidence)
	if float64(successes) < lo || float64(successes) > hi {
		t.Errorf("%s: %d successes of %d outside %.0f%% interval [%.1f, %.1f]",
			name, successes, n, confidence*100, lo, hi)
	}
}

// RepoPath resolves a path relative to the repository root.
// The path is resolved relative to this source file: sim/internal/testutil/ → repo root.
func RepoPath(t *testing.T, elem ...string) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	parts := append([]string{filepath.Dir(thisFile), "..", "..", ".."}, elem...)
	return filepath.Join(parts...)
}
