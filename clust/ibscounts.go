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

	"github.com/exascience/ibdclust/internal"
	"github.com/exascience/ibdclust/vcf"
	"github.com/exascience/pargo/parallel"
	"github.com/willf/bitset"
)

// IbsCounts stores the number of ordered haplotype pairs in a sampled
// subset of haplotypes that are identical by state on a subset of
// marker intervals. Row start is truncated once the count drops below
// the minimum informative pair count.
//
// Instances of IbsCounts are immutable.
type IbsCounts struct {
	nHaps  int
	counts [][]int32
}

// NewIbsCounts samples up to par.LocalSegments haplotypes with the
// shuffle seeded by par.Seed and counts, for each start marker, the
// ordered pairs that remain IBS as the interval end advances.
func NewIbsCounts(par *Par, refGT *vcf.RefGT) *IbsCounts {
	if refGT.NHaps() < 2 {
		log.Panic("fewer than 2 haplotypes: ", refGT.NHaps())
	}
	hapList := sampledHapList(par, refGT)
	n := len(hapList)
	sampleAlleles := sampledAlleles(refGT, hapList)
	monomorphic := monomorphicMarkers(sampleAlleles)
	maxNAlleles := maxNAlleles(refGT)

	minIbsPairs := int32(math.Ceil((1.0 - par.LocalMaxCdf) * float64(n) * float64(n-1)))
	counts := make([][]int32, refGT.NMarkers())
	parallel.Range(0, refGT.NMarkers(), 0, func(low, high int) {
		hap2Seq := make([]int32, n)
		seq2Cnt := make([]int32, n)
		seqAlMap := make([]int32, maxNAlleles*n)
		for start := low; start < high; start++ {
			counts[start] = ibsPairCounts(refGT, maxNAlleles, start, sampleAlleles,
				monomorphic, minIbsPairs, hap2Seq, seq2Cnt, seqAlMap)
		}
	})
	return &IbsCounts{nHaps: n, counts: counts}
}

func sampledHapList(par *Par, refGT *vcf.RefGT) []int {
	allHaps := make([]int, refGT.NHaps())
	for j := range allHaps {
		allHaps[j] = j
	}
	maxLocalHaps := par.LocalSegments
	if len(allHaps) <= maxLocalHaps {
		return allHaps
	}
	internal.ShufflePrefix(allHaps, maxLocalHaps, internal.NewRand(par.Seed))
	allHaps = allHaps[:maxLocalHaps]
	sort.Ints(allHaps)
	return allHaps
}

func sampledAlleles(gt *vcf.RefGT, hapList []int) [][]uint16 {
	alleles := make([][]uint16, gt.NMarkers())
	parallel.Range(0, gt.NMarkers(), 0, func(low, high int) {
		for m := low; m < high; m++ {
			row := make([]uint16, len(hapList))
			rec := gt.Rec(m)
			for j, hap := range hapList {
				row[j] = uint16(rec.Allele(hap))
			}
			alleles[m] = row
		}
	})
	return alleles
}

func monomorphicMarkers(alleles [][]uint16) *bitset.BitSet {
	monomorphic := bitset.New(uint(len(alleles)))
	for m, row := range alleles {
		mono := true
		for j := 1; j < len(row); j++ {
			if row[j] != row[j-1] {
				mono = false
				break
			}
		}
		if mono {
			monomorphic.Set(uint(m))
		}
	}
	return monomorphic
}

func maxNAlleles(gt *vcf.RefGT) int {
	max := 0
	for m, n := 0, gt.NMarkers(); m < n; m++ {
		if nAlleles := gt.Marker(m).NAlleles; nAlleles > max {
			max = nAlleles
		}
	}
	return max
}

func ibsPairCounts(gt *vcf.RefGT, maxNAlleles, start int, alleles [][]uint16,
	monomorphic *bitset.BitSet, minIbsPairs int32,
	hap2Seq, seq2Cnt, seqAlMap []int32) []int32 {
	nMarkers := len(alleles)
	nHaps := int32(len(alleles[start]))
	cnts := make([]int32, 0, 1<<8)
	for j := int32(0); j < nHaps; j++ {
		hap2Seq[j] = 0
		seq2Cnt[j] = 0
	}
	seq2Cnt[0] = nHaps
	nSeq := int32(1)
	ibsPairs := nHaps * (nHaps - 1)
	for m := start; m < nMarkers && ibsPairs >= minIbsPairs; m++ {
		if monomorphic.Test(uint(m)) {
			cnts = append(cnts, ibsPairs)
		} else {
			nAlleles := int32(gt.Marker(m).NAlleles)
			for j := int32(0); j < nAlleles*nSeq; j++ {
				seqAlMap[j] = -1
			}
			for j := int32(0); j < nSeq; j++ {
				seq2Cnt[j] = 0
			}
			nSeq = 0
			for j := int32(0); j < nHaps; j++ {
				seqAlIndex := hap2Seq[j]*nAlleles + int32(alleles[m][j])
				seqIndex := seqAlMap[seqAlIndex]
				if seqIndex < 0 {
					seqIndex = nSeq
					nSeq++
					seqAlMap[seqAlIndex] = seqIndex
				}
				hap2Seq[j] = seqIndex
				seq2Cnt[seqIndex]++
			}
			ibsPairs = sumIbsPairs(seq2Cnt, nSeq)
			if ibsPairs >= minIbsPairs {
				cnts = append(cnts, ibsPairs)
			}
		}
	}
	return cnts
}

func sumIbsPairs(seqCnts []int32, nSeq int32) int32 {
	sum := int32(0)
	for j := int32(0); j < nSeq; j++ {
		sum += seqCnts[j] * (seqCnts[j] - 1)
	}
	return sum
}

// NMarkers returns the number of markers.
func (c *IbsCounts) NMarkers() int {
	return len(c.counts)
}

// NHaps returns the number of sampled haplotypes.
func (c *IbsCounts) NHaps() int {
	return c.nHaps
}

// Counts returns the number of ordered sampled haplotype pairs that
// are IBS on the interval from the start marker (inclusive) to the end
// marker (inclusive).
func (c *IbsCounts) Counts(start, inclEnd int) int {
	return int(c.counts[start][inclEnd-start])
}

// End returns the exclusive upper bound for the inclEnd parameter of
// the Counts method.
func (c *IbsCounts) End(start int) int {
	return start + len(c.counts[start])
}

// Reverse returns an IbsCounts instance obtained by reversing the
// marker order. The result is equal to re-running the counts on the
// reversed markers, but is derived from the existing table.
func (c *IbsCounts) Reverse() *IbsCounts {
	nMarkers := c.NMarkers()
	counts := make([][]int32, nMarkers)
	parallel.Range(0, nMarkers, 0, func(low, high int) {
		for revStart := low; revStart < high; revStart++ {
			inclEnd := nMarkers - 1 - revStart
			var revCnts []int32
			for start := inclEnd; start >= 0 && inclEnd < c.End(start); start-- {
				revCnts = append(revCnts, c.counts[start][inclEnd-start])
			}
			counts[revStart] = revCnts
		}
	})
	return &IbsCounts{nHaps: c.nHaps, counts: counts}
}
