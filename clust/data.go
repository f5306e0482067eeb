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
	"github.com/exascience/ibdclust/vcf"
	"github.com/exascience/pargo/parallel"
)

// minCmDist is the minimum genetic distance between consecutive
// markers; ties in the genetic map are forced apart by this epsilon.
const minCmDist = 1e-6

// Data is the immutable per-chromosome input of an analysis: the
// forward and reversed genotype views sharing one allele storage, the
// marker coordinate arrays and their reflections, and the forward and
// reverse IBS length probability models.
type Data struct {
	par      *Par
	chromIds *vcf.ChromIds
	chrom    string
	fwdGT    *vcf.RefGT
	revGT    GT

	basePos            []int
	reflectedBasePos   []int
	cmPos              []float64
	morganPos          []float64
	reflectedMorganPos []float64

	fwdIbsProbs *IbsLengthProbs
	revIbsProbs *IbsLengthProbs
}

// NewData builds the per-chromosome data from the given phased
// genotypes and genetic map.
func NewData(par *Par, refGT *vcf.RefGT, genMap *vcf.PlinkGenMap, chromIds *vcf.ChromIds) *Data {
	chromIndex := refGT.Marker(0).ChromIndex
	data := &Data{
		par:      par,
		chromIds: chromIds,
		chrom:    chromIds.ID(chromIndex),
		fwdGT:    refGT,
		revGT:    ReverseGT(refGT),
	}
	nMarkers := refGT.NMarkers()
	data.basePos = make([]int, nMarkers)
	for m := range data.basePos {
		data.basePos[m] = refGT.Marker(m).Pos
	}
	data.cmPos = genMap.GenPos(chromIndex, minCmDist, data.basePos)
	data.morganPos = make([]float64, nMarkers)
	for m, cm := range data.cmPos {
		data.morganPos[m] = 0.01 * cm
	}
	data.reflectedBasePos = reflectInts(data.basePos)
	data.reflectedMorganPos = reflectFloats(data.morganPos)

	var gip *GlobalIbsProbs
	var fwdIbsCnts *IbsCounts
	parallel.Do(
		func() {
			gip = NewGlobalIbsProbs(par, refGT, data.morganPos)
		},
		func() {
			fwdIbsCnts = NewIbsCounts(par, refGT)
		})
	revIbsCnts := fwdIbsCnts.Reverse()
	data.fwdIbsProbs = NewIbsLengthProbs(data.morganPos, fwdIbsCnts, gip)
	data.revIbsProbs = NewIbsLengthProbs(data.reflectedMorganPos, revIbsCnts, gip)
	return data
}

func reflectInts(ia []int) []int {
	sizeM1 := len(ia) - 1
	reflected := make([]int, len(ia))
	for j := range reflected {
		reflected[j] = -ia[sizeM1-j]
	}
	return reflected
}

func reflectFloats(da []float64) []float64 {
	sizeM1 := len(da) - 1
	reflected := make([]float64, len(da))
	for j := range reflected {
		reflected[j] = -da[sizeM1-j]
	}
	return reflected
}

// Par returns the analysis parameters.
func (d *Data) Par() *Par {
	return d.par
}

// Chrom returns the chromosome identifier of the markers in FwdGT.
func (d *Data) Chrom() string {
	return d.chrom
}

// ChromIndex returns the chromosome index of the markers in FwdGT.
func (d *Data) ChromIndex() int {
	return d.fwdGT.Marker(0).ChromIndex
}

// FwdGT returns the input phased genotype data.
func (d *Data) FwdGT() *vcf.RefGT {
	return d.fwdGT
}

// RevGT returns the input phased genotype data with markers in
// reverse order.
func (d *Data) RevGT() GT {
	return d.revGT
}

// BasePos returns the marker base positions.
func (d *Data) BasePos() []int {
	return d.basePos
}

// CmPos returns the marker cM positions.
func (d *Data) CmPos() []float64 {
	return d.cmPos
}

// MorganPos returns the marker Morgan positions.
func (d *Data) MorganPos() []float64 {
	return d.morganPos
}

// MorganToBase returns the base position of the given Morgan position.
func (d *Data) MorganToBase(morgan float64) int {
	return BasePos(d.basePos, d.morganPos, morgan)
}

// BaseToMorgan returns the Morgan position of the given base position.
func (d *Data) BaseToMorgan(base int) float64 {
	return MorganPos(d.basePos, d.morganPos, base)
}

// FwdIbsProbs returns the one-sided forward IBS length probabilities.
func (d *Data) FwdIbsProbs() *IbsLengthProbs {
	return d.fwdIbsProbs
}

// RevIbsProbs returns the one-sided reverse IBS length probabilities.
func (d *Data) RevIbsProbs() *IbsLengthProbs {
	return d.revIbsProbs
}
