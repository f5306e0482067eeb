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
)

// PbwtDivUpdater performs the forward update of the positional
// Burrows-Wheeler prefix array and its divergence array.
//
// After processing marker m, a[j] holds the haplotypes sorted by
// reversed prefix, and d[j] is the smallest processed marker index
// from which haplotypes a[j-1] and a[j] carry identical alleles
// through marker m.
//
// Reference: Durbin, R (2014) Efficient haplotype matching and storage
// using the positional Burrows-Wheeler transform (PBWT).
// Bioinformatics 30(9):1266-1272.
//
// Instances of PbwtDivUpdater are not thread-safe.
type PbwtDivUpdater struct {
	nHaps int
	maxd  []int32
	as    [][]int32
	ds    [][]int32
}

// NewPbwtDivUpdater returns an updater for the given number of
// haplotypes.
func NewPbwtDivUpdater(nHaps int) *PbwtDivUpdater {
	return &PbwtDivUpdater{nHaps: nHaps}
}

// NHaps returns the number of haplotypes.
func (p *PbwtDivUpdater) NHaps() int {
	return p.nHaps
}

func (p *PbwtDivUpdater) ensureScratch(nAlleles int) {
	for len(p.as) < nAlleles {
		p.as = append(p.as, make([]int32, 0, p.nHaps))
		p.ds = append(p.ds, make([]int32, 0, p.nHaps))
	}
	for len(p.maxd) < nAlleles {
		p.maxd = append(p.maxd, 0)
	}
}

// FwdUpdate advances the prefix array a and divergence array d across
// the record of marker m using a stable counting sort by allele.
func (p *PbwtDivUpdater) FwdUpdate(rec vcf.RefGTRec, nAlleles, m int, a, d []int32) {
	if len(a) != p.nHaps || len(d) != p.nHaps {
		log.Panic("inconsistent pbwt array lengths")
	}
	p.ensureScratch(nAlleles)
	maxd := p.maxd[:nAlleles]
	for al := range maxd {
		maxd[al] = int32(m + 1)
		p.as[al] = p.as[al][:0]
		p.ds[al] = p.ds[al][:0]
	}
	for j := 0; j < p.nHaps; j++ {
		div := d[j]
		for al := range maxd {
			if div > maxd[al] {
				maxd[al] = div
			}
		}
		al := rec.Allele(int(a[j]))
		p.as[al] = append(p.as[al], a[j])
		p.ds[al] = append(p.ds[al], maxd[al])
		maxd[al] = 0
	}
	i := 0
	for al := 0; al < nAlleles; al++ {
		i += copy(a[i:], p.as[al])
	}
	i = 0
	for al := 0; al < nAlleles; al++ {
		i += copy(d[i:], p.ds[al])
	}
}
