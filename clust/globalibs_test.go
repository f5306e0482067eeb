// ibdclust: a high-performance tool for multi-individual IBD clustering.
// Copyright (c) 2023-2026 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/exascience/ibdclust/blob/master/LICENSE.txt>.

package clust

import (
	"testing"
)

func testMorganGrid(nMarkers int) []float64 {
	morgans := make([]float64, nMarkers)
	for m := range morgans {
		morgans[m] = 0.001 * float64(m+1)
	}
	return morgans
}

func newTestGlobalIbsProbs(t *testing.T) *GlobalIbsProbs {
	t.Helper()
	alleles := randomAlleles(31, 50, 16, 2)
	refGT := testRefGT(t, alleles)
	par := testPar(t, "x", "y", "z")
	par.GlobalLoci = 20
	par.GlobalSegments = 50
	return NewGlobalIbsProbs(par, refGT, testMorganGrid(50))
}

func TestGlobalIbsProbsCdf(t *testing.T) {
	gip := newTestGlobalIbsProbs(t)
	if gip.NLengths() == 0 {
		t.Fatal("no sampled lengths")
	}
	prev := 0.0
	for x := -0.01; x <= 0.2; x += 0.001 {
		cdf := gip.Cdf(x)
		if cdf <= 0 || cdf >= 1 {
			t.Fatalf("Cdf(%v) = %v out of (0, 1)", x, cdf)
		}
		if cdf < prev {
			t.Fatalf("Cdf not monotone at %v", x)
		}
		prev = cdf
	}
}

func TestGlobalIbsProbsDeterminism(t *testing.T) {
	gip1 := newTestGlobalIbsProbs(t)
	gip2 := newTestGlobalIbsProbs(t)
	if gip1.NLengths() != gip2.NLengths() {
		t.Fatal("sampled lengths differ between runs")
	}
	for x := 0.0; x <= 0.1; x += 0.005 {
		if gip1.Cdf(x) != gip2.Cdf(x) {
			t.Fatalf("Cdf(%v) differs between runs", x)
		}
	}
}

func TestIbsLengthProbs(t *testing.T) {
	alleles := randomAlleles(32, 40, 12, 2)
	refGT := testRefGT(t, alleles)
	par := testPar(t, "x", "y", "z")
	par.GlobalLoci = 10
	par.GlobalSegments = 40
	par.LocalMaxCdf = 0.999999
	morgans := testMorganGrid(40)
	gip := NewGlobalIbsProbs(par, refGT, morgans)
	cnts := NewIbsCounts(par, refGT)
	probs := NewIbsLengthProbs(morgans, cnts, gip)
	if probs.NMarkers() != 40 {
		t.Fatalf("NMarkers = %v", probs.NMarkers())
	}
	// the hypothetical terminating discordance has probability 1
	if p := probs.IbsProb(40, 40); p != 1.0 {
		t.Errorf("IbsProb(n, n) = %v, want 1", p)
	}
	// probabilities are strictly positive for all reachable intervals
	for start := 0; start < 40; start++ {
		for end := start; end <= 40; end++ {
			p := probs.IbsProb(start, end)
			if p <= 0 || p > 1 {
				t.Fatalf("IbsProb(%v, %v) = %v", start, end, p)
			}
		}
	}
	// a local value matches the counts it is derived from
	n := cnts.NHaps()
	pairs := n * (n - 1)
	want := float64(pairs-cnts.Counts(0, 0)+1) / (float64(pairs) + 1)
	if got := probs.IbsProb(0, 0); !almostEqual(got, want, 1e-6) {
		t.Errorf("IbsProb(0, 0) = %v, want %v", got, want)
	}
}

func almostEqual(a, b, tol float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tol
}
