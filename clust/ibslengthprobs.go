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

	"github.com/exascience/pargo/parallel"
)

// IbsLengthProbs estimates the proportion of haplotype pairs that are
// IBS on an interval, combining the locally-sampled counts for short
// intervals with the global length distribution for longer ones.
//
// Instances of IbsLengthProbs are immutable.
type IbsLengthProbs struct {
	gip     *GlobalIbsProbs
	probs   [][]float32
	morgans []float64
}

// NewIbsLengthProbs returns the IBS interval probabilities for the
// given marker Morgan positions, local IBS counts, and global IBS
// length distribution.
func NewIbsLengthProbs(morgans []float64, ibsCnts *IbsCounts, gip *GlobalIbsProbs) *IbsLengthProbs {
	if gip == nil {
		log.Panic("nil GlobalIbsProbs")
	}
	if len(morgans) != ibsCnts.NMarkers() {
		log.Panic("inconsistent number of markers: ", len(morgans), " ", ibsCnts.NMarkers())
	}
	n := ibsCnts.NHaps()
	invPairsP1 := 1.0 / (float64(n)*float64(n-1) + 1.0)
	probs := make([][]float32, ibsCnts.NMarkers())
	parallel.Range(0, ibsCnts.NMarkers(), 0, func(low, high int) {
		for m := low; m < high; m++ {
			probs[m] = intervalProbs(ibsCnts, m, invPairsP1)
		}
	})
	return &IbsLengthProbs{gip: gip, probs: probs, morgans: morgans}
}

func intervalProbs(ibsCnts *IbsCounts, start int, invPairsP1 float64) []float32 {
	n := ibsCnts.NHaps()
	end := ibsCnts.End(start)
	probList := make([]float32, 0, end-start+1)
	lastIbsPairs := n * (n - 1)
	for m := start; m < end; m++ {
		ibsPairs := ibsCnts.Counts(start, m)
		probList = append(probList, float32(float64(lastIbsPairs-ibsPairs+1)*invPairsP1))
		lastIbsPairs = ibsPairs
	}
	if end == ibsCnts.NMarkers() {
		// probability of IBS continuing to the end of the chromosome
		probList = append(probList, float32(float64(lastIbsPairs+1)*invPairsP1))
	}
	return probList
}

// NMarkers returns the number of markers.
func (p *IbsLengthProbs) NMarkers() int {
	return len(p.morgans)
}

// IbsProb returns the estimated proportion of haplotype pairs that
// have discordant alleles at the end marker index and are IBS at all
// markers in [start, end). Returns 1.0 for
// (start, end) == (nMarkers, nMarkers), the hypothetical terminating
// discordance beyond the last marker.
func (p *IbsLengthProbs) IbsProb(start, end int) float64 {
	if start == len(p.probs) && end == len(p.probs) {
		return 1.0
	}
	index := end - start
	if index < len(p.probs[start]) {
		return float64(p.probs[start][index])
	}
	if end == len(p.morgans) {
		length := p.morgans[end-1] - p.morgans[start]
		return 1.0 - p.gip.Cdf(length)
	}
	x0 := p.morgans[start]
	x1 := p.morgans[end-1]
	x2 := p.morgans[end]
	p1 := p.gip.Cdf(x1 - x0)
	p2 := p.gip.Cdf(x2 - x0)
	if p1 == p2 {
		return 0.5 / float64(p.gip.NLengths())
	}
	return p2 - p1
}
