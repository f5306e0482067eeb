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
	"math"
	"testing"
)

func TestFMonotone(t *testing.T) {
	ne := 10000.0
	prev := 0.0
	for y := 1e-4; y <= 10; y *= 1.3 {
		f := F(y, ne)
		if f <= prev {
			t.Fatalf("F not strictly increasing at y=%v", y)
		}
		if f <= 0 || f >= 1 {
			t.Fatalf("F(%v) = %v out of (0, 1)", y, f)
		}
		prev = f
	}
}

func TestInvFRoundTrip(t *testing.T) {
	ne := 10000.0
	for y := 1e-4; y <= 10; y *= 1.1 {
		yy := InvF(F(y, ne), ne)
		if math.Abs(yy-y) > 1e-9*y {
			t.Fatalf("InvF(F(%v)) = %v", y, yy)
		}
	}
}

func TestMorganPosInterpolation(t *testing.T) {
	basePos := []int{1000, 2000, 3000, 4000}
	morganPos := []float64{0.01, 0.02, 0.03, 0.04}
	if got := MorganPos(basePos, morganPos, 2000); got != 0.02 {
		t.Errorf("exact lookup = %v", got)
	}
	if got := MorganPos(basePos, morganPos, 2500); math.Abs(got-0.025) > 1e-12 {
		t.Errorf("interior interpolation = %v", got)
	}
}

func TestBasePosInterpolation(t *testing.T) {
	basePos := []int{1000, 2000, 3000, 4000}
	morganPos := []float64{0.01, 0.02, 0.03, 0.04}
	if got := BasePos(basePos, morganPos, 0.03); got != 3000 {
		t.Errorf("exact lookup = %v", got)
	}
	if got := BasePos(basePos, morganPos, 0.035); got != 3500 {
		t.Errorf("interior interpolation = %v", got)
	}
}

func TestMorganBaseRoundTrip(t *testing.T) {
	basePos := []int{1000, 250000, 1750000, 9000000}
	morganPos := []float64{0.0001, 0.0025, 0.0175, 0.09}
	for _, pos := range []int{1000, 2000, 250000, 1000000, 8999999} {
		morgan := MorganPos(basePos, morganPos, pos)
		back := BasePos(basePos, morganPos, morgan)
		if back < pos-1 || back > pos+1 {
			t.Errorf("round trip of %v gives %v", pos, back)
		}
	}
}

func TestInterpolationBackoff(t *testing.T) {
	// markers 1 and 2 are 1 bp apart; the 5 Mb backoff windows stop at
	// marker 1 (from the start) and marker 2 (from the end), so neither
	// extrapolation takes its slope over that pair
	basePos := []int{1000000, 6000001, 6000002, 11000002}
	morganPos := []float64{0.01, 0.06, 0.060000001, 0.11}
	// beyond the last marker, the slope is taken over the backoff window
	beyond := MorganPos(basePos, morganPos, 12000002)
	if beyond <= morganPos[3] || beyond > 0.2 {
		t.Errorf("extrapolation beyond last marker = %v", beyond)
	}
	// before the first marker
	before := MorganPos(basePos, morganPos, 500000)
	if before >= morganPos[0] || before < -0.1 {
		t.Errorf("extrapolation before first marker = %v", before)
	}
}

func TestParseArgsDefaults(t *testing.T) {
	par, err := ParseArgs([]string{"gt=a.vcf", "map=a.map", "out=o"})
	if err != nil {
		t.Fatal(err)
	}
	if par.MinMaf != 0.1 || par.MinIbsCm != 1.0 || par.MinIbdCm != 1.0 ||
		par.Pbwt != 4 || par.Trim != 0.5 || par.Discord != 0.0005 ||
		par.OutCm != 0.02 || par.Ne != 10000 || par.Seed != -99999 ||
		par.OutWindowSize != 500 {
		t.Errorf("unexpected defaults: %+v", par)
	}
}

func TestParseArgsErrors(t *testing.T) {
	if _, err := ParseArgs([]string{"gt=a", "map=b"}); err == nil {
		t.Error("missing out parameter not detected")
	}
	if _, err := ParseArgs([]string{"gt=a", "map=b", "out=o", "bogus=1"}); err == nil {
		t.Error("unknown parameter not detected")
	}
	if _, err := ParseArgs([]string{"gt=a", "map=b", "out=o", "min-maf=0.6"}); err == nil {
		t.Error("out-of-range min-maf not detected")
	}
	if _, err := ParseArgs([]string{"gt=a", "map=b", "out=o", "gt=c"}); err == nil {
		t.Error("duplicate parameter not detected")
	}
	if _, err := ParseArgs([]string{"gt=a", "map=b", "out=o", "pbwt"}); err == nil {
		t.Error("malformed argument not detected")
	}
}
