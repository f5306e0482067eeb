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
)

// GT is the phased genotype view consumed by the end-point estimators.
type GT interface {
	NMarkers() int
	NHaps() int
	Allele(marker, hap int) int
}

// reversedGT presents the markers of a genotype view in reverse order
// while sharing the underlying storage.
type reversedGT struct {
	gt       *vcf.RefGT
	nMarkers int
}

// ReverseGT returns a view of gt with its marker order reversed.
func ReverseGT(gt *vcf.RefGT) GT {
	return &reversedGT{gt: gt, nMarkers: gt.NMarkers()}
}

func (r *reversedGT) NMarkers() int {
	return r.nMarkers
}

func (r *reversedGT) NHaps() int {
	return r.gt.NHaps()
}

func (r *reversedGT) Allele(marker, hap int) int {
	return r.gt.Allele(r.nMarkers-1-marker, hap)
}
