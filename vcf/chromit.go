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

package vcf

import (
	"log"
	"math"
	"sort"

	"github.com/exascience/pargo/parallel"
)

// ChromIt returns MAF-filtered, phased genotype data for one
// chromosome per Next call, with records clipped to the anchored span
// of the genetic map.
//
// Instances of ChromIt are not thread-safe.
type ChromIt struct {
	reader           *Reader
	genMap           *PlinkGenMap
	minMac           int
	chromsSeen       map[int]bool
	next             RefGTRec
	nMarkers         int64
	nFilteredMarkers int64
}

// NewChromIt opens the given VCF and genetic map files. If chromInt is
// non-nil, both the VCF records and the genetic map are restricted to
// its chromosome.
func NewChromIt(gtFile, mapFile string, chromIds *ChromIds, minMaf float64, excludeSamples, excludeMarkers string, chromInt *ChromInterval) *ChromIt {
	reader := NewReader(gtFile, chromIds, excludeSamples, excludeMarkers, chromInt)
	mapChrom := ""
	if chromInt != nil {
		mapChrom = chromInt.Chrom
	}
	genMap := FromPlinkMapFile(mapFile, chromIds, mapChrom)
	nHaps := 2 * reader.Samples().Size()
	minMac := int(math.Ceil(math.Nextafter(minMaf, math.Inf(-1)) * float64(nHaps)))
	it := &ChromIt{
		reader:     reader,
		genMap:     genMap,
		minMac:     minMac,
		chromsSeen: make(map[int]bool),
	}
	next, ok := reader.Next()
	if !ok {
		log.Panic("no VCF records found after filtering: ", gtFile)
	}
	it.next = next
	return it
}

// GenMap returns the genetic map.
func (it *ChromIt) GenMap() *PlinkGenMap {
	return it.genMap
}

// Samples returns the sample identifiers.
func (it *ChromIt) Samples() Samples {
	return it.reader.Samples()
}

// NMarkers returns the cumulative number of records read inside the
// genetic map span by previous Next calls, including records removed
// by the MAF filter.
func (it *ChromIt) NMarkers() int64 {
	return it.nMarkers
}

// NFilteredMarkers returns the cumulative number of records returned
// by previous Next calls, excluding records removed by the MAF filter.
func (it *ChromIt) NFilteredMarkers() int64 {
	return it.nFilteredMarkers
}

// HasNext reports whether another chromosome is available.
func (it *ChromIt) HasNext() bool {
	return it.next != nil
}

// Next returns the genotype data for the next chromosome.
func (it *ChromIt) Next() *RefGT {
	chromIndex := it.next.Marker().ChromIndex
	if it.chromsSeen[chromIndex] {
		log.Panic("the VCF records for chromosome ",
			it.reader.ChromIds().ID(chromIndex), " are not contiguous")
	}
	it.chromsSeen[chromIndex] = true
	firstMapPos := math.MinInt64
	lastMapPos := math.MinInt64
	if it.genMap.Has(chromIndex) {
		firstMapPos = it.genMap.FirstBasePos(chromIndex)
		lastMapPos = it.genMap.LastBasePos(chromIndex)
	}
	var recs []RefGTRec
	for it.next != nil && it.next.Marker().ChromIndex == chromIndex {
		if pos := it.next.Marker().Pos; firstMapPos <= pos && pos <= lastMapPos {
			recs = append(recs, it.next)
		}
		next, ok := it.reader.Next()
		if !ok {
			next = nil
		}
		it.next = next
	}
	it.nMarkers += int64(len(recs))
	recs = it.applyMacFilter(recs)
	it.nFilteredMarkers += int64(len(recs))
	if len(recs) == 0 {
		log.Panic("there are no VCF records inside the boundaries of the genetic map for chromosome ",
			it.reader.ChromIds().ID(chromIndex), " after minor allele frequency filtering")
	}
	return NewRefGT(it.reader.Samples(), recs)
}

func (it *ChromIt) applyMacFilter(recs []RefGTRec) []RefGTRec {
	if it.minMac <= 0 {
		return recs
	}
	keep := make([]bool, len(recs))
	parallel.Range(0, len(recs), 0, func(low, high int) {
		for i := low; i < high; i++ {
			keep[i] = mac(recs[i]) >= it.minMac
		}
	})
	filtered := recs[:0]
	for i, rec := range recs {
		if keep[i] {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// mac returns the second-largest allele count of the record.
func mac(rec RefGTRec) int {
	counts := rec.AlleleCounts()
	sort.Ints(counts)
	if len(counts) <= 1 {
		return 0
	}
	return counts[len(counts)-2]
}

// Close closes the underlying VCF reader.
func (it *ChromIt) Close() {
	it.next = nil
	it.reader.Close()
}
