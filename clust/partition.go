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
	"strconv"
)

// Partition is a disjoint union data structure that stores the
// partition of IBD clusters at one output position.
//
// Instances of Partition are not thread-safe.
type Partition struct {
	position Position
	parent   []int32
	rank     []int32
	nSets    int
}

// NewPartition returns a partition of nHaps haplotypes into nHaps
// singleton sets at the given position.
func NewPartition(position Position, nHaps int) *Partition {
	parent := make([]int32, nHaps)
	for j := range parent {
		parent[j] = int32(j)
	}
	return &Partition{
		position: position,
		parent:   parent,
		rank:     make([]int32, nHaps),
		nSets:    nHaps,
	}
}

// NHaps returns the number of haplotypes.
func (p *Partition) NHaps() int {
	return len(p.parent)
}

// Position returns the genomic position.
func (p *Partition) Position() Position {
	return p.position
}

// Find returns the representative member of the set containing the
// given haplotype, with path compression.
func (p *Partition) Find(hap int) int {
	root := int32(hap)
	for p.parent[root] != root {
		root = p.parent[root]
	}
	for h := int32(hap); h != root; {
		h, p.parent[h] = p.parent[h], root
	}
	return int(root)
}

// Union merges the sets containing the two given haplotypes if they
// are distinct sets.
func (p *Partition) Union(x, y int) {
	xRoot := int32(p.Find(x))
	yRoot := int32(p.Find(y))
	if xRoot != yRoot {
		p.nSets--
		if p.rank[xRoot] <= p.rank[yRoot] {
			if p.rank[xRoot] == p.rank[yRoot] {
				p.rank[yRoot]++
			}
			p.parent[xRoot] = yRoot
		} else {
			p.parent[yRoot] = xRoot
		}
	}
}

// NSets returns the number of sets in the partition.
func (p *Partition) NSets() int {
	return p.nSets
}

// AppendLine appends the output line for this partition to dst,
// including the trailing newline. Cluster indices are assigned in
// order of first occurrence across the haplotype columns. The rank
// array is consumed in the process, so the partition must not be used
// for further unions afterwards.
func (p *Partition) AppendLine(dst []byte, chromID string) []byte {
	clustIndex := int32(0)
	for j := range p.rank {
		p.rank[j] = -1
	}
	for j := range p.parent {
		root := int32(p.Find(j))
		if p.rank[root] == -1 {
			p.rank[root] = clustIndex
			clustIndex++
		}
		p.rank[j] = p.rank[root]
	}
	dst = append(dst, chromID...)
	dst = append(dst, '\t')
	dst = strconv.AppendInt(dst, int64(p.position.Pos), 10)
	dst = append(dst, '\t')
	dst = strconv.AppendFloat(dst, p.position.GenPos, 'f', 4, 64)
	for h := 0; h < len(p.parent); h += 2 {
		dst = append(dst, '\t')
		dst = strconv.AppendInt(dst, int64(p.rank[h]), 10)
		dst = append(dst, '|')
		dst = strconv.AppendInt(dst, int64(p.rank[h+1]), 10)
	}
	return append(dst, '\n')
}
