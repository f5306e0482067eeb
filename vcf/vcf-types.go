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

// Package vcf reads phased genotype records from VCF files and genetic
// positions from PLINK-format map files.
package vcf

import (
	"log"
	"strconv"
	"strings"
)

// Marker describes one VCF record without its genotype data.
type Marker struct {
	ChromIndex int
	Pos        int
	ID         string
	NAlleles   int
}

// Samples holds the identifiers of the samples in a VCF file,
// in header column order.
type Samples []string

// Size returns the number of samples.
func (s Samples) Size() int {
	return len(s)
}

// ChromIds maps chromosome identifiers to small integer indices.
// A ChromIds value is created once per run and threaded through the
// pipeline; it is not safe for concurrent mutation.
type ChromIds struct {
	ids     []string
	indices map[string]int
}

// NewChromIds returns an empty chromosome identifier map.
func NewChromIds() *ChromIds {
	return &ChromIds{indices: make(map[string]int)}
}

// Index returns the index for the given chromosome identifier,
// assigning a new index if the identifier has not been seen before.
func (c *ChromIds) Index(id string) int {
	if index, ok := c.indices[id]; ok {
		return index
	}
	index := len(c.ids)
	c.ids = append(c.ids, id)
	c.indices[id] = index
	return index
}

// Lookup returns the index for the given chromosome identifier without
// assigning a new one.
func (c *ChromIds) Lookup(id string) (int, bool) {
	index, ok := c.indices[id]
	return index, ok
}

// ID returns the chromosome identifier for the given index.
func (c *ChromIds) ID(index int) string {
	return c.ids[index]
}

// ChromInterval restricts an analysis to one chromosome, optionally
// to a base-position interval on that chromosome.
type ChromInterval struct {
	Chrom string
	Start int
	End   int
}

// ParseChromInterval parses "[chrom]" or "[chrom]:[start]-[end]".
func ParseChromInterval(s string) *ChromInterval {
	ci := &ChromInterval{Start: 1, End: int(^uint32(0) >> 1)}
	colon := strings.LastIndexByte(s, ':')
	if colon < 0 {
		ci.Chrom = s
	} else {
		ci.Chrom = s[:colon]
		dash := strings.IndexByte(s[colon+1:], '-')
		if dash < 0 {
			log.Panic("invalid chrom parameter: ", s)
		}
		var err error
		if ci.Start, err = strconv.Atoi(s[colon+1 : colon+1+dash]); err != nil {
			log.Panic("invalid chrom parameter: ", s)
		}
		if ci.End, err = strconv.Atoi(s[colon+1+dash+1:]); err != nil {
			log.Panic("invalid chrom parameter: ", s)
		}
	}
	if ci.Chrom == "" || ci.Start > ci.End {
		log.Panic("invalid chrom parameter: ", s)
	}
	return ci
}

// Contains reports whether the interval contains the given position on
// the given chromosome.
func (ci *ChromInterval) Contains(chrom string, pos int) bool {
	return chrom == ci.Chrom && ci.Start <= pos && pos <= ci.End
}
