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
	"log"
	"math"
	"sort"
)

const (
	basePosBackoff   = 5000000
	morganPosBackoff = 0.05
)

// BasePos returns the estimated base position of the given Morgan
// position by linear interpolation between the marker coordinate
// arrays. When the query falls before the first or after the last
// marker, the interpolation slope is taken over a backoff window to
// avoid a degenerate slope between the two extreme markers.
func BasePos(basePos []int, morganPos []float64, inputMorganPos float64) int {
	if len(basePos) < 2 {
		log.Panic("insufficient data")
	}
	if len(basePos) != len(morganPos) {
		log.Panic("inconsistent data")
	}
	i := sort.SearchFloat64s(morganPos, inputMorganPos)
	if i < len(morganPos) && morganPos[i] == inputMorganPos {
		return basePos[i]
	}
	mapSizeM1 := len(morganPos) - 1
	aIndex := i - 1
	bIndex := i
	if aIndex == mapSizeM1 {
		target := morganPos[mapSizeM1] - morganPosBackoff
		j := sort.SearchFloat64s(morganPos, target)
		if j == len(morganPos) || morganPos[j] != target {
			j--
		}
		aIndex = j
		if aIndex < 0 {
			aIndex = 0
		}
		bIndex = mapSizeM1
	} else if bIndex == 0 {
		target := morganPos[0] + morganPosBackoff
		j := sort.SearchFloat64s(morganPos, target)
		aIndex = 0
		bIndex = j
		if bIndex > mapSizeM1 {
			bIndex = mapSizeM1
		}
	}
	x := inputMorganPos
	a := morganPos[aIndex]
	b := morganPos[bIndex]
	fa := float64(basePos[aIndex])
	fb := float64(basePos[bIndex])
	return int(math.Round(fa + ((x-a)/(b-a))*(fb-fa)))
}

// MorganPos returns the estimated Morgan position of the given base
// position by linear interpolation between the marker coordinate
// arrays, with the same backoff treatment at the extreme ends as
// BasePos.
func MorganPos(basePos []int, morganPos []float64, inputBasePos int) float64 {
	if len(basePos) < 2 {
		log.Panic("insufficient data")
	}
	if len(basePos) != len(morganPos) {
		log.Panic("inconsistent data")
	}
	i := sort.SearchInts(basePos, inputBasePos)
	if i < len(basePos) && basePos[i] == inputBasePos {
		return morganPos[i]
	}
	mapSizeM1 := len(basePos) - 1
	aIndex := i - 1
	bIndex := i
	if aIndex == mapSizeM1 {
		target := basePos[mapSizeM1] - basePosBackoff
		j := sort.SearchInts(basePos, target)
		if j == len(basePos) || basePos[j] != target {
			j--
		}
		aIndex = j
		if aIndex < 0 {
			aIndex = 0
		}
		bIndex = mapSizeM1
	} else if bIndex == 0 {
		target := basePos[0] + basePosBackoff
		j := sort.SearchInts(basePos, target)
		aIndex = 0
		bIndex = j
		if bIndex > mapSizeM1 {
			bIndex = mapSizeM1
		}
	}
	x := inputBasePos
	a := basePos[aIndex]
	b := basePos[bIndex]
	fa := morganPos[aIndex]
	fb := morganPos[bIndex]
	return fa + (float64(x-a)/float64(b-a))*(fb-fa)
}

// F returns the probability that an IBD segment has its right endpoint
// less than y Morgans from the left endpoint, under a constant
// effective population size ne.
func F(y, ne float64) float64 {
	if y <= 0 || math.IsNaN(y) {
		log.Panic("invalid Morgan length: ", y)
	}
	if ne <= 0 || math.IsInf(ne, 0) || math.IsNaN(ne) {
		log.Panic("invalid ne: ", ne)
	}
	den := 2*ne*math.Expm1(2*y) + 1
	return 1.0 - 1.0/den
}

// InvF returns a value y such that F(y, ne) is approximately p.
func InvF(p, ne float64) float64 {
	if p <= 0 || p >= 1 || math.IsNaN(p) {
		log.Panic("invalid probability: ", p)
	}
	if ne <= 0 || math.IsInf(ne, 0) || math.IsNaN(ne) {
		log.Panic("invalid ne: ", ne)
	}
	d := 2 * ne * (1 - p)
	return 0.5 * math.Log((p+d)/d)
}
