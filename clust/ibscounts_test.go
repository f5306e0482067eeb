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
	"math/rand"
	"testing"

	"github.com/exascience/ibdclust/vcf"
)

func testRefGT(t *testing.T, alleles [][]int) *vcf.RefGT {
	t.Helper()
	nHaps := len(alleles[0])
	samples := make(vcf.Samples, nHaps/2)
	for s := range samples {
		samples[s] = "S"
	}
	recs := make([]vcf.RefGTRec, len(alleles))
	for m, row := range alleles {
		maxAllele := 0
		for _, al := range row {
			if al > maxAllele {
				maxAllele = al
			}
		}
		marker := vcf.Marker{ChromIndex: 0, Pos: 1000 * (m + 1), ID: "m", NAlleles: maxAllele + 1}
		recs[m] = vcf.NewRefGTRec(marker, row)
	}
	return vcf.NewRefGT(samples, recs)
}

// bruteForceIbsPairs counts ordered pairs of distinct haplotypes that
// are IBS on the marker interval [start, inclEnd].
func bruteForceIbsPairs(alleles [][]int, start, inclEnd int) int {
	nHaps := len(alleles[0])
	count := 0
	for h1 := 0; h1 < nHaps; h1++ {
		for h2 := 0; h2 < nHaps; h2++ {
			if h1 == h2 {
				continue
			}
			ibs := true
			for m := start; m <= inclEnd; m++ {
				if alleles[m][h1] != alleles[m][h2] {
					ibs = false
					break
				}
			}
			if ibs {
				count++
			}
		}
	}
	return count
}

func randomAlleles(seed int64, nMarkers, nHaps, nAlleles int) [][]int {
	rand := rand.New(rand.NewSource(seed))
	alleles := make([][]int, nMarkers)
	for m := range alleles {
		row := make([]int, nHaps)
		for h := range row {
			row[h] = rand.Intn(nAlleles)
		}
		alleles[m] = row
	}
	return alleles
}

func TestIbsCountsBruteForce(t *testing.T) {
	alleles := randomAlleles(5, 12, 8, 2)
	refGT := testRefGT(t, alleles)
	par := testPar(t, "x", "y", "z")
	par.LocalMaxCdf = 0.999999 // minIbsPairs == 1
	cnts := NewIbsCounts(par, refGT)
	if cnts.NHaps() != 8 {
		t.Fatalf("NHaps = %v", cnts.NHaps())
	}
	if cnts.NMarkers() != 12 {
		t.Fatalf("NMarkers = %v", cnts.NMarkers())
	}
	for start := 0; start < cnts.NMarkers(); start++ {
		for inclEnd := start; inclEnd < cnts.End(start); inclEnd++ {
			want := bruteForceIbsPairs(alleles, start, inclEnd)
			if got := cnts.Counts(start, inclEnd); got != want {
				t.Fatalf("Counts(%v, %v) = %v, want %v", start, inclEnd, got, want)
			}
		}
		// the row is truncated exactly when the count drops below 1
		if end := cnts.End(start); end < cnts.NMarkers() {
			if bruteForceIbsPairs(alleles, start, end) >= 1 {
				t.Errorf("row %v truncated too early", start)
			}
		}
	}
}

func TestIbsCountsSampling(t *testing.T) {
	alleles := randomAlleles(6, 5, 20, 2)
	refGT := testRefGT(t, alleles)
	par := testPar(t, "x", "y", "z")
	par.LocalSegments = 10
	cnts := NewIbsCounts(par, refGT)
	if cnts.NHaps() != 10 {
		t.Errorf("NHaps = %v, want 10", cnts.NHaps())
	}
	// sampling is deterministic for a fixed seed
	cnts2 := NewIbsCounts(par, refGT)
	for start := 0; start < cnts.NMarkers(); start++ {
		if cnts.End(start) != cnts2.End(start) {
			t.Fatalf("row %v differs between runs", start)
		}
		for inclEnd := start; inclEnd < cnts.End(start); inclEnd++ {
			if cnts.Counts(start, inclEnd) != cnts2.Counts(start, inclEnd) {
				t.Fatalf("Counts(%v, %v) differs between runs", start, inclEnd)
			}
		}
	}
}

func reverseAlleles(alleles [][]int) [][]int {
	reversed := make([][]int, len(alleles))
	for m := range reversed {
		reversed[m] = alleles[len(alleles)-1-m]
	}
	return reversed
}

func TestIbsCountsReverse(t *testing.T) {
	alleles := randomAlleles(7, 10, 8, 2)
	par := testPar(t, "x", "y", "z")
	par.LocalMaxCdf = 0.999999
	fwd := NewIbsCounts(par, testRefGT(t, alleles))
	rev := fwd.Reverse()
	// Reverse is equivalent to re-running on the reversed marker order
	recomputed := NewIbsCounts(par, testRefGT(t, reverseAlleles(alleles)))
	if rev.NMarkers() != recomputed.NMarkers() {
		t.Fatal("inconsistent marker counts")
	}
	for start := 0; start < rev.NMarkers(); start++ {
		if rev.End(start) != recomputed.End(start) {
			t.Fatalf("row %v: End = %v, want %v", start, rev.End(start), recomputed.End(start))
		}
		for inclEnd := start; inclEnd < rev.End(start); inclEnd++ {
			if rev.Counts(start, inclEnd) != recomputed.Counts(start, inclEnd) {
				t.Fatalf("reverse Counts(%v, %v) = %v, want %v", start, inclEnd,
					rev.Counts(start, inclEnd), recomputed.Counts(start, inclEnd))
			}
		}
	}
}

func TestIbsCountsReverseRoundTrip(t *testing.T) {
	alleles := randomAlleles(8, 10, 8, 3)
	par := testPar(t, "x", "y", "z")
	par.LocalMaxCdf = 0.999999
	fwd := NewIbsCounts(par, testRefGT(t, alleles))
	back := fwd.Reverse().Reverse()
	if back.NMarkers() != fwd.NMarkers() || back.NHaps() != fwd.NHaps() {
		t.Fatal("round trip changed dimensions")
	}
	for start := 0; start < fwd.NMarkers(); start++ {
		if back.End(start) != fwd.End(start) {
			t.Fatalf("row %v: End = %v, want %v", start, back.End(start), fwd.End(start))
		}
		for inclEnd := start; inclEnd < fwd.End(start); inclEnd++ {
			if back.Counts(start, inclEnd) != fwd.Counts(start, inclEnd) {
				t.Fatalf("round trip Counts(%v, %v) differs", start, inclEnd)
			}
		}
	}
}
