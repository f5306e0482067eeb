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

	"github.com/exascience/ibdclust/vcf"
	"github.com/exascience/pargo/parallel"
)

// IbsSegments identifies long IBS haplotype segments in phased
// genotype data using interleaved PBWT analyses.
//
// Instances of IbsSegments are immutable.
type IbsSegments struct {
	par       *Par
	refGT     *vcf.RefGT
	cmPos     []float64
	minIbsCm  float64
	nAnalyses int
}

// NewIbsSegments returns an IbsSegments instance for the given phased
// genotypes and non-decreasing marker cM positions.
func NewIbsSegments(par *Par, refGT *vcf.RefGT, cmPos []float64) *IbsSegments {
	if refGT.NMarkers() != len(cmPos) {
		log.Panic("inconsistent number of markers: ", refGT.NMarkers())
	}
	return &IbsSegments{
		par:       par,
		refGT:     refGT,
		cmPos:     cmPos,
		minIbsCm:  par.MinIbsCm,
		nAnalyses: par.Pbwt,
	}
}

// HapPairSegments performs the interleaved PBWT analyses and returns
// the merged haplotype pair segments sorted by
// (Hap1, Hap2, StartPos, InclEndPos).
func (s *IbsSegments) HapPairSegments() []HapPairSegment {
	perAnalysis := make([][]HapPairSegment, s.nAnalyses)
	parallel.Range(0, s.nAnalyses, s.nAnalyses, func(low, high int) {
		for a := low; a < high; a++ {
			perAnalysis[a] = s.ibsSegments(a, s.refGT.NMarkers(), s.nAnalyses)
		}
	})
	var segs []HapPairSegment
	for _, list := range perAnalysis {
		segs = append(segs, list...)
	}
	SortByHapPair(segs)
	return mergeSortedSegments(segs)
}

// ibsSegments scans markers start, start+step, ... and returns the
// pairwise IBS segments with cM length at least s.minIbsCm.
func (s *IbsSegments) ibsSegments(start, end, step int) []HapPairSegment {
	var segList []HapPairSegment
	pbwt := NewPbwtDivUpdater(s.refGT.NHaps())
	a := make([]int32, pbwt.NHaps())
	d := make([]int32, pbwt.NHaps())
	for j := range a {
		a[j] = int32(j)
		d[j] = int32(start)
	}
	maxIbsStart := start - 1
	endMinusStep := end - step
	for m := start; m < end; m += step {
		rec := s.refGT.Rec(m)
		pbwt.FwdUpdate(rec, rec.Marker().NAlleles, m, a, d)
		maxIbsStart = s.updateMaxIbsStart(m, maxIbsStart)
		if start <= maxIbsStart {
			if m < endMinusStep {
				segList = s.addAdjacentIbsSegs(m, step, a, d, maxIbsStart, segList)
			} else {
				segList = s.lastAddAdjacentIbsSegs(m, a, d, maxIbsStart, segList)
			}
		}
	}
	return segList
}

func (s *IbsSegments) updateMaxIbsStart(marker, previousMaxIbsStart int) int {
	maxCmPos := s.cmPos[marker] - s.minIbsCm
	candidate := previousMaxIbsStart + 1
	for s.cmPos[candidate] <= maxCmPos {
		candidate++
	}
	return candidate - 1
}

func (s *IbsSegments) addAdjacentIbsSegs(m, step int, a, d []int32,
	maxIbsStart int, segList []HapPairSegment) []HapPairSegment {
	inclEndPos := int32(s.refGT.Marker(m).Pos)
	rec := s.refGT.Rec(m + step)
	a1 := rec.Allele(int(a[0]))
	for j := 1; j < len(a); j++ {
		a2 := rec.Allele(int(a[j]))
		if int(d[j]) <= maxIbsStart && a1 != a2 {
			startPos := int32(s.refGT.Marker(int(d[j])).Pos)
			if a[j-1] < a[j] {
				segList = append(segList, HapPairSegment{a[j-1], a[j], startPos, inclEndPos})
			} else {
				segList = append(segList, HapPairSegment{a[j], a[j-1], startPos, inclEndPos})
			}
		}
		a1 = a2
	}
	return segList
}

func (s *IbsSegments) lastAddAdjacentIbsSegs(m int, a, d []int32,
	maxIbsStart int, segList []HapPairSegment) []HapPairSegment {
	inclEndPos := int32(s.refGT.Marker(m).Pos)
	for j := 1; j < len(a); j++ {
		if int(d[j]) <= maxIbsStart {
			startPos := int32(s.refGT.Marker(int(d[j])).Pos)
			if a[j-1] < a[j] {
				segList = append(segList, HapPairSegment{a[j-1], a[j], startPos, inclEndPos})
			} else {
				segList = append(segList, HapPairSegment{a[j], a[j-1], startPos, inclEndPos})
			}
		}
	}
	return segList
}

// mergeSortedSegments coalesces overlapping and adjacent segments of
// the same haplotype pair. The input must be sorted by
// (Hap1, Hap2, StartPos, InclEndPos).
func mergeSortedSegments(segs []HapPairSegment) []HapPairSegment {
	if len(segs) == 0 {
		return segs
	}
	var ends []int
	groupInclEndPos := segs[0].InclEndPos
	for j := 1; j <= len(segs); j++ {
		if j == len(segs) {
			ends = append(ends, j)
			break
		}
		prev := segs[j-1]
		if prev.Hap1 != segs[j].Hap1 || prev.Hap2 != segs[j].Hap2 ||
			groupInclEndPos < segs[j].StartPos {
			ends = append(ends, j)
			groupInclEndPos = segs[j].InclEndPos
		} else if segs[j].InclEndPos > groupInclEndPos {
			groupInclEndPos = segs[j].InclEndPos
		}
	}
	merged := make([]HapPairSegment, len(ends))
	parallel.Range(0, len(ends), 0, func(low, high int) {
		for j := low; j < high; j++ {
			from := 0
			if j > 0 {
				from = ends[j-1]
			}
			to := ends[j]
			base := segs[from]
			maxInclEndPos := base.InclEndPos
			for k := from + 1; k < to; k++ {
				if segs[k].InclEndPos > maxInclEndPos {
					maxInclEndPos = segs[k].InclEndPos
				}
			}
			base.InclEndPos = maxInclEndPos
			merged[j] = base
		}
	})
	return merged
}
