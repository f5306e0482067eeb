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

// QuantileEstimator estimates a quantile of an IBD segment end-point
// distribution.
//
// Instances of QuantileEstimator are not thread-safe.
type QuantileEstimator struct {
	data        *Data
	nMarkers    int
	fwdData     *estData
	revData     *estData
	ne          float64
	err         float64
	gcErr       float64
	gcBp        int
	minCdfRatio float64

	// scratch space for storing the CDF
	cdf      []float64
	cdfStart int
	cdfEnd   int
}

// estData is one directional view of the chromosome shared by the
// estimator: the forward view, or the reversed view with negated
// coordinates.
type estData struct {
	gt       GT
	nMarkers int
	basePos  []int
	morgans  []float64
	ibsProbs *IbsLengthProbs

	// coordinates of the hypothetical discordant marker with index nMarkers
	extBasePos   int
	extMorganPos float64
}

func newEstData(data *Data, fwd bool) *estData {
	endMorgans := data.par.EndMorgans
	lastIndex := data.fwdGT.NMarkers() - 1
	if fwd {
		return &estData{
			gt:           data.fwdGT,
			nMarkers:     data.fwdGT.NMarkers(),
			basePos:      data.basePos,
			morgans:      data.morganPos,
			ibsProbs:     data.fwdIbsProbs,
			extBasePos:   data.basePos[lastIndex],
			extMorganPos: data.morganPos[lastIndex] + endMorgans,
		}
	}
	return &estData{
		gt:           data.revGT,
		nMarkers:     data.fwdGT.NMarkers(),
		basePos:      data.reflectedBasePos,
		morgans:      data.reflectedMorganPos,
		ibsProbs:     data.revIbsProbs,
		extBasePos:   data.reflectedBasePos[lastIndex],
		extMorganPos: data.reflectedMorganPos[lastIndex] + endMorgans,
	}
}

func (d *estData) morgansAt(marker int) float64 {
	if marker == d.nMarkers {
		return d.extMorganPos
	}
	return d.morgans[marker]
}

func (d *estData) pos(marker int) int {
	if marker == d.nMarkers {
		return d.extBasePos
	}
	return d.basePos[marker]
}

// nextMarker returns the index of the first marker strictly after the
// given position.
func (d *estData) nextMarker(position int) int {
	i := sort.SearchInts(d.basePos, position)
	if i < len(d.basePos) && d.basePos[i] == position {
		return i + 1
	}
	return i
}

func (d *estData) nextDiscord(hap1, hap2, start int) int {
	end := d.gt.NMarkers()
	m := start
	for m < end && d.gt.Allele(m, hap1) == d.gt.Allele(m, hap2) {
		m++
	}
	return m
}

// NewQuantileEstimator constructs a new estimator for the given data.
// The CDF scratch buffer sizes to nMarkers+1 and is reused across all
// segments handled by the estimator.
func NewQuantileEstimator(data *Data) *QuantileEstimator {
	par := data.par
	return &QuantileEstimator{
		data:        data,
		nMarkers:    data.fwdGT.NMarkers(),
		fwdData:     newEstData(data, true),
		revData:     newEstData(data, false),
		ne:          par.Ne,
		err:         par.Discord,
		gcBp:        par.GcBp,
		gcErr:       par.GcDiscord,
		minCdfRatio: par.MinCdfRatio,
		cdf:         make([]float64, data.fwdGT.NMarkers()+1),
	}
}

// Data returns the input data.
func (q *QuantileEstimator) Data() *Data {
	return q.data
}

func (q *QuantileEstimator) baseToMorgans(basePos int) float64 {
	return MorganPos(q.data.basePos, q.data.morganPos, basePos)
}

// FwdQuantile returns the base position at which the posterior CDF of
// the segment's right end reaches prob, for a segment of the given
// haplotype pair with the given estimated start (in Morgans) and focus
// position.
func (q *QuantileEstimator) FwdQuantile(hap1, hap2 int, startMorgans float64, focusPos int, prob float64) int {
	focusMorgans := q.baseToMorgans(focusPos)
	q.setCDF(q.fwdData, hap1, hap2, startMorgans, focusPos, focusMorgans)
	return q.quantile(q.fwdData, startMorgans, focusPos, focusMorgans, prob)
}

// FwdMorganQuantile is FwdQuantile in Morgan units.
func (q *QuantileEstimator) FwdMorganQuantile(hap1, hap2 int, startMorgans float64, focusPos int, prob float64) float64 {
	focusMorgans := q.baseToMorgans(focusPos)
	q.setCDF(q.fwdData, hap1, hap2, startMorgans, focusPos, focusMorgans)
	return q.morganQuantile(q.fwdData, startMorgans, focusMorgans, prob)
}

// BwdQuantile returns the base position at which the posterior CDF of
// the segment's left end reaches prob, evaluated against the reversed
// marker order with negated coordinates.
func (q *QuantileEstimator) BwdQuantile(hap1, hap2, focusPos int, inclEndMorgans, prob float64) int {
	focusMorgans := q.baseToMorgans(focusPos)
	q.setCDF(q.revData, hap1, hap2, -inclEndMorgans, -focusPos, -focusMorgans)
	return -q.quantile(q.revData, -inclEndMorgans, -focusPos, -focusMorgans, prob)
}

// BwdMorganQuantile is BwdQuantile in Morgan units.
func (q *QuantileEstimator) BwdMorganQuantile(hap1, hap2, focusPos int, inclEndMorgans, prob float64) float64 {
	focusMorgans := q.baseToMorgans(focusPos)
	q.setCDF(q.revData, hap1, hap2, -inclEndMorgans, -focusPos, -focusMorgans)
	return -q.morganQuantile(q.revData, -inclEndMorgans, -focusMorgans, prob)
}

// setCDF stores the prior probability distribution of the position of
// the end of an IBD segment in the scratch buffer. For markers m in
// (q.cdfStart, q.cdfEnd), the probability that the end lies between
// markers m-1 and m accrues in cdf[m]; the probability that it lies
// between the focus and cdfStart accrues in cdf[cdfStart]. The CDF is
// rescaled whenever it exceeds 1e50 and normalized to end at 1.
func (q *QuantileEstimator) setCDF(d *estData, h1, h2 int, startMorgans float64, focusPos int, focusMorgans float64) {
	cdf := q.cdf
	q.cdfStart = d.nextMarker(focusPos)
	cdf[q.cdfStart-1] = 0.0
	factor := 1.0
	f1 := F(focusMorgans-startMorgans, q.ne)
	start := q.cdfStart
	nextDiscord := d.nextDiscord(h1, h2, start)
	minNextDiscordPos := d.pos(nextDiscord) + q.gcBp
	for {
		q.cdfEnd = nextDiscord + 1
		for m := start; m < q.cdfEnd; m++ {
			f2 := F(d.morgansAt(m)-startMorgans, q.ne)
			cdf[m] = cdf[m-1] + (f2-f1)*d.ibsProbs.IbsProb(m, nextDiscord)*factor
			f1 = f2
		}
		if q.finished(start) {
			scale(cdf, q.cdfStart, q.cdfEnd, 1.0/cdf[q.cdfEnd-1])
			return
		}
		if cdf[q.cdfEnd-1] > 1e50 {
			scaleFactor := 1.0 / cdf[q.cdfEnd-1]
			scale(cdf, q.cdfStart, q.cdfEnd, scaleFactor)
			factor *= scaleFactor
		}
		start = q.cdfEnd
		nextDiscord = d.nextDiscord(h1, h2, start)
		discordPos := d.pos(nextDiscord)
		num := q.gcErr
		if discordPos >= minNextDiscordPos {
			num = q.err
			minNextDiscordPos = discordPos + q.gcBp
		}
		factor *= num / d.ibsProbs.IbsProb(start, nextDiscord)
	}
}

func (q *QuantileEstimator) finished(lastEnd int) bool {
	if q.cdfEnd == len(q.cdf) {
		return true
	}
	lastValue := q.cdf[q.cdfEnd-1]
	return (lastValue - q.cdf[lastEnd-1]) < (q.minCdfRatio * lastValue)
}

func scale(da []float64, start, end int, factor float64) {
	for j := start; j < end; j++ {
		da[j] *= factor
	}
}

func (q *QuantileEstimator) searchCDF(p float64) int {
	cdf := q.cdf[q.cdfStart:q.cdfEnd]
	return q.cdfStart + sort.SearchFloat64s(cdf, p)
}

func (q *QuantileEstimator) quantile(d *estData, startMorgans float64, focusPos int, focusMorgans, p float64) int {
	if p <= 0 || p >= 1 || math.IsNaN(p) {
		log.Panic("invalid probability: ", p)
	}
	index := q.searchCDF(p)
	if index == q.nMarkers {
		return d.pos(q.nMarkers)
	}
	p1 := q.cdf[index-1]
	p2 := q.cdf[index]

	x1 := focusMorgans
	if index != q.cdfStart {
		x1 = d.morgansAt(index - 1)
	}
	x2 := d.morgansAt(index)

	f1 := F(x1-startMorgans, q.ne)
	f2 := F(x2-startMorgans, q.ne)
	pp := f1 + ((p-p1)/(p2-p1))*(f2-f1)
	x := startMorgans + InvF(pp, q.ne)
	delta := (x - x1) / (x2 - x1)
	if delta < 0.0 {
		delta = math.Nextafter(0.0, 1.0)
	}
	if delta > 1.0 {
		delta = math.Nextafter(1.0, 0.0)
	}

	// the smallest reportable quantile is focusPos+1
	y1 := focusPos + 1
	if index != q.cdfStart {
		y1 = d.pos(index - 1)
	}
	y2 := d.pos(index)
	return int(math.Round(float64(y1) + delta*float64(y2-y1)))
}

func (q *QuantileEstimator) morganQuantile(d *estData, startMorgans, focusMorgans, p float64) float64 {
	if p <= 0 || p >= 1 || math.IsNaN(p) {
		log.Panic("invalid probability: ", p)
	}
	index := q.searchCDF(p)
	if index == q.nMarkers {
		return q.baseToMorgans(d.pos(q.nMarkers))
	}
	p1 := q.cdf[index-1]
	p2 := q.cdf[index]

	x1 := focusMorgans
	if index != q.cdfStart {
		x1 = d.morgansAt(index - 1)
	}
	x2 := d.morgansAt(index)

	f1 := F(x1-startMorgans, q.ne)
	f2 := F(x2-startMorgans, q.ne)
	pp := f1 + ((p-p1)/(p2-p1))*(f2-f1)
	return startMorgans + InvF(pp, q.ne)
}
