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
	"gonum.org/v1/gonum/stat"
)

// GlobalIbsProbs stores sampled one-sided global IBS lengths. A
// one-sided IBS length for a pair of distinct haplotypes is the
// distance in Morgans from a focal position to the first discordance
// between the focal position and the distal end of the chromosome, or
// to the marker nearest the distal end if there is no discordance.
//
// Instances of GlobalIbsProbs are immutable.
type GlobalIbsProbs struct {
	lengths        []float64
	reciprocalSize float64
}

// NewGlobalIbsProbs samples par.GlobalLoci random loci with
// par.GlobalSegments random haplotype pairs per locus, removes loci
// whose order statistic at par.GlobalQuantile exceeds
// par.GlobalMultiple times the median of those statistics, and stores
// the surviving lengths in sorted order. morganPos must be sorted in
// increasing order.
func NewGlobalIbsProbs(par *Par, refGT *vcf.RefGT, morganPos []float64) *GlobalIbsProbs {
	if refGT.NMarkers() != len(morganPos) {
		log.Panic("inconsistent data")
	}
	if refGT.NHaps() < 2 {
		log.Panic("fewer than 2 haplotypes: ", refGT.NHaps())
	}
	samplesPerLocus := par.GlobalSegments
	lengths0 := make([][]float64, par.GlobalLoci)
	parallel.Range(0, par.GlobalLoci, 0, func(low, high int) {
		for i := low; i < high; i++ {
			lengths0[i] = sampleIbsLengths(refGT, morganPos, samplesPerLocus,
				par.Seed+int64(i))
		}
	})
	index := int(math.Floor(par.GlobalQuantile * float64(samplesPerLocus)))
	if index >= samplesPerLocus {
		index = samplesPerLocus - 1
	}
	maxValue := maxIbsLength(lengths0, index, par.GlobalMultiple)
	var lengths []float64
	for _, da := range lengths0 {
		if da[index] <= maxValue {
			lengths = append(lengths, da...)
		}
	}
	sort.Float64s(lengths)
	return &GlobalIbsProbs{
		lengths:        lengths,
		reciprocalSize: 1.0 / float64(len(lengths)),
	}
}

func sampleIbsLengths(refGT *vcf.RefGT, morganPos []float64, samplesPerLocus int, seed int64) []float64 {
	rand := internal.NewRand(seed)
	pos := randomGenPos(rand, morganPos)
	midPos := 0.5 * (morganPos[0] + morganPos[len(morganPos)-1])
	lengths := make([]float64, samplesPerLocus)
	for i := range lengths {
		lengths[i] = sampleIbsLength(refGT, morganPos, midPos, pos, rand)
	}
	sort.Float64s(lengths)
	return lengths
}

func randomGenPos(rand *internal.Rand, genPos []float64) float64 {
	startMorgans := genPos[0]
	endMorgans := genPos[len(genPos)-1]
	pos := startMorgans + rand.Float64()*(endMorgans-startMorgans)
	if pos >= endMorgans {
		pos = math.Nextafter(pos, math.Inf(-1))
	}
	return pos
}

func sampleIbsLength(refGT *vcf.RefGT, morganPos []float64, midPos, pos float64, rand *internal.Rand) float64 {
	nHaps := refGT.NHaps()
	h1 := rand.Intn(nHaps)
	h2 := rand.Intn(nHaps)
	for h1 == h2 {
		h2 = rand.Intn(nHaps)
	}
	if pos <= midPos {
		return fwdIbsLength(refGT, morganPos, pos, h1, h2)
	}
	return bwdIbsLength(refGT, morganPos, pos, h1, h2)
}

func fwdIbsLength(refGT *vcf.RefGT, genPos []float64, pos float64, h1, h2 int) float64 {
	nMarkersM1 := refGT.NMarkers() - 1
	m := sort.SearchFloat64s(genPos, pos)
	for m < nMarkersM1 && refGT.Allele(m, h1) == refGT.Allele(m, h2) {
		m++
	}
	return genPos[m] - pos
}

func bwdIbsLength(refGT *vcf.RefGT, genPos []float64, pos float64, h1, h2 int) float64 {
	m := sort.SearchFloat64s(genPos, pos)
	if m == len(genPos) || genPos[m] != pos {
		m--
	}
	for m > 0 && refGT.Allele(m, h1) == refGT.Allele(m, h2) {
		m--
	}
	return pos - genPos[m]
}

func maxIbsLength(lengths [][]float64, index int, maxMultiple float64) float64 {
	sortedQuantiles := make([]float64, len(lengths))
	for i, da := range lengths {
		sortedQuantiles[i] = da[index]
	}
	sort.Float64s(sortedQuantiles)
	median := stat.Quantile(0.5, stat.LinInterp, sortedQuantiles, nil)
	return maxMultiple * median
}

// NLengths returns the number of filtered, sampled segment lengths.
func (g *GlobalIbsProbs) NLengths() int {
	return len(g.lengths)
}

// Cdf returns the proportion of filtered, sampled one-sided discord
// distances that are less than or equal to the given length. The
// result is clamped so that it is never 0 and never 1.
func (g *GlobalIbsProbs) Cdf(morgans float64) float64 {
	if math.IsNaN(morgans) {
		log.Panic("NaN length")
	}
	index := sort.Search(len(g.lengths), func(i int) bool {
		return g.lengths[i] > morgans
	})
	if index == 0 {
		index++
	}
	if index == len(g.lengths) {
		index--
	}
	return float64(index) * g.reciprocalSize
}
