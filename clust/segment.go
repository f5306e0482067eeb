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
	"sort"

	psort "github.com/exascience/pargo/sort"
)

// HapPairSegment represents a shared chromosome segment for a pair of
// haplotypes, with Hap1 < Hap2 and StartPos <= InclEndPos.
type HapPairSegment struct {
	Hap1       int32
	Hap2       int32
	StartPos   int32
	InclEndPos int32
}

// ZeroLengthSegment represents a segment that does not have positive
// length after end-point estimation and trimming.
var ZeroLengthSegment = HapPairSegment{
	Hap1:       math.MaxInt32,
	Hap2:       math.MaxInt32,
	StartPos:   math.MaxInt32,
	InclEndPos: math.MaxInt32,
}

// hapPairLess orders segments by (Hap1, Hap2, StartPos, InclEndPos).
func hapPairLess(a, b HapPairSegment) bool {
	if a.Hap1 != b.Hap1 {
		return a.Hap1 < b.Hap1
	}
	if a.Hap2 != b.Hap2 {
		return a.Hap2 < b.Hap2
	}
	if a.StartPos != b.StartPos {
		return a.StartPos < b.StartPos
	}
	return a.InclEndPos < b.InclEndPos
}

// intervalLess orders segments by (StartPos, InclEndPos, Hap1, Hap2).
func intervalLess(a, b HapPairSegment) bool {
	if a.StartPos != b.StartPos {
		return a.StartPos < b.StartPos
	}
	if a.InclEndPos != b.InclEndPos {
		return a.InclEndPos < b.InclEndPos
	}
	if a.Hap1 != b.Hap1 {
		return a.Hap1 < b.Hap1
	}
	return a.Hap2 < b.Hap2
}

type segmentSorter struct {
	segments []HapPairSegment
	less     func(a, b HapPairSegment) bool
}

func (s segmentSorter) SequentialSort(i, j int) {
	segments, less := s.segments[i:j], s.less
	sort.SliceStable(segments, func(x, y int) bool {
		return less(segments[x], segments[y])
	})
}

func (s segmentSorter) NewTemp() psort.StableSorter {
	return segmentSorter{make([]HapPairSegment, len(s.segments)), s.less}
}

func (s segmentSorter) Len() int {
	return len(s.segments)
}

func (s segmentSorter) Less(i, j int) bool {
	return s.less(s.segments[i], s.segments[j])
}

func (s segmentSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s.segments, source.(segmentSorter).segments
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// SortByHapPair sorts segments by (Hap1, Hap2, StartPos, InclEndPos)
// using a parallel stable sort.
func SortByHapPair(segments []HapPairSegment) {
	psort.StableSort(segmentSorter{segments, hapPairLess})
}

// SortByInterval sorts segments by (StartPos, InclEndPos, Hap1, Hap2)
// using a parallel stable sort.
func SortByInterval(segments []HapPairSegment) {
	psort.StableSort(segmentSorter{segments, intervalLess})
}
