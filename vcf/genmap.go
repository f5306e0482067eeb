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
	"bufio"
	"log"
	"sort"
	"strings"

	"github.com/exascience/ibdclust/internal"
)

// PlinkGenMap stores the genetic map anchors of a PLINK-format map
// file (CHROM, ID, cM, basePos), grouped per chromosome.
//
// Instances of PlinkGenMap are immutable after construction.
type PlinkGenMap struct {
	maps map[int]*chromGenMap
}

type chromGenMap struct {
	basePos []int
	genPos  []float64 // cM
}

// FromPlinkMapFile parses the given PLINK map file. If chrom is
// non-empty, anchors for other chromosomes are skipped.
func FromPlinkMapFile(name string, chromIds *ChromIds, chrom string) *PlinkGenMap {
	file := internal.FileOpen(name)
	defer internal.Close(file)
	genMap := &PlinkGenMap{maps: make(map[int]*chromGenMap)}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1<<16), 1<<24)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			log.Panicf("%v:%v: genetic map line does not have 4 fields: %v", name, line, text)
		}
		if chrom != "" && fields[0] != chrom {
			continue
		}
		cm := internal.ParseFloat(fields[2], 64)
		pos := int(internal.ParseInt(fields[3], 10, 64))
		chromIndex := chromIds.Index(fields[0])
		cmap := genMap.maps[chromIndex]
		if cmap == nil {
			cmap = &chromGenMap{}
			genMap.maps[chromIndex] = cmap
		}
		if n := len(cmap.basePos); n > 0 {
			if pos <= cmap.basePos[n-1] {
				log.Panicf("%v:%v: genetic map positions are not sorted: %v", name, line, text)
			}
			if cm < cmap.genPos[n-1] {
				log.Panicf("%v:%v: genetic map cM values decrease: %v", name, line, text)
			}
		}
		cmap.basePos = append(cmap.basePos, pos)
		cmap.genPos = append(cmap.genPos, cm)
	}
	if err := scanner.Err(); err != nil {
		log.Panic(err, " while reading ", name)
	}
	for chromIndex, cmap := range genMap.maps {
		if len(cmap.basePos) < 2 {
			log.Panicf("%v: genetic map for chromosome %v has fewer than 2 positions",
				name, chromIds.ID(chromIndex))
		}
	}
	return genMap
}

// Has reports whether the map has anchors for the given chromosome.
func (g *PlinkGenMap) Has(chromIndex int) bool {
	return g.maps[chromIndex] != nil
}

// NMapPositions returns the number of anchors for the given chromosome.
func (g *PlinkGenMap) NMapPositions(chromIndex int) int {
	return len(g.maps[chromIndex].basePos)
}

// FirstBasePos returns the smallest anchored base position for the
// given chromosome.
func (g *PlinkGenMap) FirstBasePos(chromIndex int) int {
	return g.maps[chromIndex].basePos[0]
}

// LastBasePos returns the largest anchored base position for the given
// chromosome.
func (g *PlinkGenMap) LastBasePos(chromIndex int) int {
	cmap := g.maps[chromIndex]
	return cmap.basePos[len(cmap.basePos)-1]
}

// GenPos returns the interpolated cM position of each marker position.
// All marker positions must lie within the anchored span. Consecutive
// returned values are forced at least minCmDist apart so that genetic
// positions are strictly increasing.
func (g *PlinkGenMap) GenPos(chromIndex int, minCmDist float64, markerPos []int) []float64 {
	cmap := g.maps[chromIndex]
	cmPos := make([]float64, len(markerPos))
	for i, pos := range markerPos {
		cmPos[i] = cmap.interpolate(pos)
	}
	for i := 1; i < len(cmPos); i++ {
		if cmPos[i]-cmPos[i-1] < minCmDist {
			cmPos[i] = cmPos[i-1] + minCmDist
		}
	}
	return cmPos
}

func (m *chromGenMap) interpolate(pos int) float64 {
	i := sort.SearchInts(m.basePos, pos)
	if i < len(m.basePos) && m.basePos[i] == pos {
		return m.genPos[i]
	}
	if i == 0 || i == len(m.basePos) {
		log.Panic("genetic map query outside anchored span: ", pos)
	}
	a, b := m.basePos[i-1], m.basePos[i]
	fa, fb := m.genPos[i-1], m.genPos[i]
	return fa + (float64(pos-a)/float64(b-a))*(fb-fa)
}
