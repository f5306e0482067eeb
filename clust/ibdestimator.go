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
)

// IbdEstimator estimates IBD segment end-points by iterative
// refinement of a seed IBS segment.
//
// Instances of IbdEstimator are not thread-safe. Estimators are pooled
// across workers because the CDF scratch buffer of the contained
// QuantileEstimator is large.
type IbdEstimator struct {
	data             *Data
	chromStartPos    int
	chromInclEndPos  int
	prefocusQuantile float64
	quantile         float64
	quantEst         *QuantileEstimator
	minIbdMorgans    float64
	trimMorgans      float64
	maxIts           int
	maxItsM2         int
	maxRelChange     float64
	fixFocus         bool

	h1             int
	h2             int
	startPos       int
	inclEndPos     int
	focusPos       int
	startMorgans   float64
	inclEndMorgans float64
	focusMorgans   float64
}

// NewIbdEstimator constructs an IbdEstimator for the given data.
func NewIbdEstimator(data *Data) *IbdEstimator {
	par := data.par
	nMarkers := data.fwdGT.NMarkers()
	return &IbdEstimator{
		data:             data,
		chromStartPos:    data.basePos[0],
		chromInclEndPos:  data.basePos[nMarkers-1],
		prefocusQuantile: par.PrefocusQuantile,
		quantile:         par.Quantile,
		trimMorgans:      0.01 * par.Trim,
		quantEst:         NewQuantileEstimator(data),
		maxIts:           par.MaxIts << 1, // each iteration updates one of the two ends
		maxItsM2:         (par.MaxIts << 1) - 2,
		maxRelChange:     par.MaxRelChange,
		fixFocus:         par.FixFocus,
		minIbdMorgans:    0.01 * par.MinIbdCm,
	}
}

// Data returns the input data.
func (e *IbdEstimator) Data() *Data {
	return e.data
}

// IbdSegment returns an estimated IBD segment whose end-points are
// estimated from a focal point within the given IBS segment, or
// ZeroLengthSegment if the trimmed estimate is shorter than the
// minimum IBD length.
func (e *IbdEstimator) IbdSegment(ibsSegment HapPairSegment) HapPairSegment {
	e.checkSegment(ibsSegment)
	e.initializeFields(ibsSegment)
	noUpdateCnt := 0
	for j := 0; noUpdateCnt < 2 && j < e.maxItsM2; j++ {
		if (j & 1) == 1 {
			newStartPos := e.quantEst.BwdQuantile(e.h1, e.h2, e.focusPos,
				e.inclEndMorgans, e.prefocusQuantile)
			if e.updateStartPos(ibsSegment, newStartPos) {
				noUpdateCnt = 0
			} else {
				noUpdateCnt++
			}
		} else {
			newInclEndPos := e.quantEst.FwdQuantile(e.h1, e.h2, e.startMorgans,
				e.focusPos, e.prefocusQuantile)
			if e.updateInclEndPos(ibsSegment, newInclEndPos) {
				noUpdateCnt = 0
			} else {
				noUpdateCnt++
			}
		}
	}
	return e.trimmedIbdSegment(ibsSegment)
}

func (e *IbdEstimator) trimmedIbdSegment(ibsSegment HapPairSegment) HapPairSegment {
	ibdStartMorgans := e.quantEst.BwdMorganQuantile(e.h1, e.h2,
		e.focusPos, e.inclEndMorgans, e.quantile)
	ibdEndMorgans := e.quantEst.FwdMorganQuantile(e.h1, e.h2,
		e.startMorgans, e.focusPos, e.quantile)
	trimmedStartMorgans := ibdStartMorgans + e.trimMorgans
	trimmedEndMorgans := ibdEndMorgans - e.trimMorgans
	trimmedLength := trimmedEndMorgans - trimmedStartMorgans
	if trimmedLength >= e.minIbdMorgans && trimmedStartMorgans <= trimmedEndMorgans {
		ibdStartPos := e.data.MorganToBase(trimmedStartMorgans)
		ibdInclEndPos := e.data.MorganToBase(trimmedEndMorgans)
		return HapPairSegment{
			Hap1:       ibsSegment.Hap1,
			Hap2:       ibsSegment.Hap2,
			StartPos:   int32(ibdStartPos),
			InclEndPos: int32(ibdInclEndPos),
		}
	}
	return ZeroLengthSegment
}

func (e *IbdEstimator) checkSegment(hps HapPairSegment) {
	if int(hps.StartPos) < e.chromStartPos || int(hps.InclEndPos) > e.chromInclEndPos {
		log.Panicf("haplotype segment extends beyond input markers: "+
			"marker interval %v:%v-%v, haplotype segment %v:%v-%v",
			e.data.chrom, e.chromStartPos, e.chromInclEndPos,
			e.data.chrom, hps.StartPos, hps.InclEndPos)
	}
}

func (e *IbdEstimator) initializeFields(hps HapPairSegment) {
	e.h1 = int(hps.Hap1)
	e.h2 = int(hps.Hap2)
	e.startPos = int(hps.StartPos)
	e.inclEndPos = int(hps.InclEndPos)
	e.focusPos = int(uint32(hps.StartPos+hps.InclEndPos) >> 1)
	e.startMorgans = e.data.BaseToMorgan(e.startPos)
	e.inclEndMorgans = e.data.BaseToMorgan(e.inclEndPos)
	e.focusMorgans = e.data.BaseToMorgan(e.focusPos)
}

func (e *IbdEstimator) updateInclEndPos(ibs HapPairSegment, newInclEndPos int) bool {
	newInclEndMorgans := e.data.BaseToMorgan(newInclEndPos)
	if !e.allowEndUpdate(e.focusMorgans, e.inclEndMorgans, newInclEndMorgans) {
		return false
	}
	newFocusPos := e.focusPos
	newFocusMorgans := e.focusMorgans
	if !e.fixFocus {
		newFocusPos = (e.startPos + newInclEndPos) >> 1
		if newFocusPos <= int(ibs.StartPos) {
			newFocusPos = int(ibs.StartPos) + 1
		}
		if newFocusPos >= int(ibs.InclEndPos) {
			newFocusPos = int(ibs.InclEndPos) - 1
		}
		newFocusMorgans = e.data.BaseToMorgan(newFocusPos)
	}
	if (newInclEndMorgans-newFocusMorgans) > 0 && (newFocusMorgans-e.startMorgans) > 0 {
		e.focusPos = newFocusPos
		e.focusMorgans = newFocusMorgans
		e.inclEndPos = newInclEndPos
		e.inclEndMorgans = newInclEndMorgans
		return true
	}
	return false
}

func (e *IbdEstimator) updateStartPos(ibs HapPairSegment, newStartPos int) bool {
	newStartMorgans := e.data.BaseToMorgan(newStartPos)
	if !e.allowEndUpdate(e.focusMorgans, e.startMorgans, newStartMorgans) {
		return false
	}
	newFocusPos := e.focusPos
	newFocusMorgans := e.focusMorgans
	if !e.fixFocus {
		newFocusPos = (newStartPos + e.inclEndPos) >> 1
		if newFocusPos <= int(ibs.StartPos) {
			newFocusPos = int(ibs.StartPos) + 1
		}
		if newFocusPos >= int(ibs.InclEndPos) {
			newFocusPos = int(ibs.InclEndPos) - 1
		}
		newFocusMorgans = e.data.BaseToMorgan(newFocusPos)
	}
	if (newFocusMorgans-newStartMorgans) > 0 && (e.inclEndMorgans-newFocusMorgans) > 0 {
		e.startPos = newStartPos
		e.startMorgans = newStartMorgans
		e.focusPos = newFocusPos
		e.focusMorgans = newFocusMorgans
		return true
	}
	return false
}

func (e *IbdEstimator) allowEndUpdate(focusMorgans, oldEndpointMorgans, newEndpointMorgans float64) bool {
	oldDist := math.Abs(oldEndpointMorgans - focusMorgans)
	newDist := math.Abs(newEndpointMorgans - focusMorgans)
	if oldDist == 0 {
		return false
	}
	return math.Abs((newDist-oldDist)/oldDist) > e.maxRelChange
}
