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
	"sort"

	"github.com/exascience/ibdclust/utils/bits"
)

// RefGTRec stores the phased, non-missing alleles of one marker.
type RefGTRec interface {
	Marker() Marker
	NHaps() int
	// Allele returns the allele carried by the given haplotype.
	Allele(hap int) int
	// AlleleCounts returns the number of haplotypes carrying each allele.
	AlleleCounts() []int
}

// packedGTRec stores one allele per haplotype at bit width
// ceil(log2(nAlleles)).
type packedGTRec struct {
	marker  Marker
	alleles bits.Packed
}

func (r *packedGTRec) Marker() Marker {
	return r.marker
}

func (r *packedGTRec) NHaps() int {
	return r.alleles.Len()
}

func (r *packedGTRec) Allele(hap int) int {
	return r.alleles.Get(hap)
}

func (r *packedGTRec) AlleleCounts() []int {
	counts := make([]int, r.marker.NAlleles)
	for h, n := 0, r.alleles.Len(); h < n; h++ {
		counts[r.alleles.Get(h)]++
	}
	return counts
}

// lowMafGTRec stores sorted carrier lists for each non-major allele.
type lowMafGTRec struct {
	marker      Marker
	nHaps       int
	majorAllele int
	carriers    [][]int32
}

func (r *lowMafGTRec) Marker() Marker {
	return r.marker
}

func (r *lowMafGTRec) NHaps() int {
	return r.nHaps
}

func (r *lowMafGTRec) Allele(hap int) int {
	h := int32(hap)
	for al, list := range r.carriers {
		if len(list) == 0 {
			continue
		}
		i := sort.Search(len(list), func(i int) bool { return list[i] >= h })
		if i < len(list) && list[i] == h {
			return al
		}
	}
	return r.majorAllele
}

func (r *lowMafGTRec) AlleleCounts() []int {
	counts := make([]int, r.marker.NAlleles)
	nonMajor := 0
	for al, list := range r.carriers {
		counts[al] = len(list)
		nonMajor += len(list)
	}
	counts[r.majorAllele] = r.nHaps - nonMajor
	return counts
}

// NewRefGTRec returns a record storing the given per-haplotype alleles,
// choosing sparse carrier lists when few haplotypes carry a non-major
// allele and a bit-packed array otherwise.
func NewRefGTRec(marker Marker, alleles []int) RefGTRec {
	counts := make([]int, marker.NAlleles)
	for _, al := range alleles {
		counts[al]++
	}
	major := 0
	for al, cnt := range counts {
		if cnt > counts[major] {
			major = al
		}
	}
	nHaps := len(alleles)
	if nonMajor := nHaps - counts[major]; nonMajor <= nHaps>>7 {
		carriers := make([][]int32, marker.NAlleles)
		for h, al := range alleles {
			if al != major {
				carriers[al] = append(carriers[al], int32(h))
			}
		}
		return &lowMafGTRec{
			marker:      marker,
			nHaps:       nHaps,
			majorAllele: major,
			carriers:    carriers,
		}
	}
	packed := bits.Make(nHaps, bits.Width(marker.NAlleles))
	for h, al := range alleles {
		packed.Set(h, al)
	}
	return &packedGTRec{marker: marker, alleles: packed}
}

// RefGT stores the phased genotype data for one chromosome.
// A RefGT is immutable after construction and shared by reference.
type RefGT struct {
	samples Samples
	recs    []RefGTRec
}

// NewRefGT returns a RefGT for the given records.
func NewRefGT(samples Samples, recs []RefGTRec) *RefGT {
	return &RefGT{samples: samples, recs: recs}
}

// Samples returns the sample identifiers.
func (g *RefGT) Samples() Samples {
	return g.samples
}

// NMarkers returns the number of markers.
func (g *RefGT) NMarkers() int {
	return len(g.recs)
}

// NHaps returns the number of haplotypes.
func (g *RefGT) NHaps() int {
	return 2 * len(g.samples)
}

// Marker returns the marker with the given index.
func (g *RefGT) Marker(m int) Marker {
	return g.recs[m].Marker()
}

// Rec returns the record with the given index.
func (g *RefGT) Rec(m int) RefGTRec {
	return g.recs[m]
}

// Allele returns the allele carried by the given haplotype at the
// given marker.
func (g *RefGT) Allele(m, hap int) int {
	return g.recs[m].Allele(hap)
}
