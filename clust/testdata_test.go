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
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/exascience/ibdclust/vcf"
)

// testPar returns a parameter set with default values and the given
// input and output files.
func testPar(t *testing.T, gt, mapFile, out string, extra ...string) *Par {
	t.Helper()
	args := append([]string{"gt=" + gt, "map=" + mapFile, "out=" + out}, extra...)
	par, err := ParseArgs(args)
	if err != nil {
		t.Fatal(err)
	}
	return par
}

// writeTestVcf writes a VCF file with diploid phased genotypes.
// alleles[m][h] is the allele of haplotype h at marker m, and
// positions[m] its base position. The number of haplotypes must be
// even.
func writeTestVcf(t *testing.T, dir string, positions []int, alleles [][]int) string {
	t.Helper()
	nHaps := len(alleles[0])
	var sb strings.Builder
	sb.WriteString("##fileformat=VCFv4.2\n")
	sb.WriteString("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT")
	for s := 0; s < nHaps/2; s++ {
		fmt.Fprintf(&sb, "\tS%d", s)
	}
	sb.WriteString("\n")
	alleleStrings := []string{"A", "C", "G", "T"}
	for m, pos := range positions {
		maxAllele := 0
		for _, al := range alleles[m] {
			if al > maxAllele {
				maxAllele = al
			}
		}
		alt := "."
		if maxAllele > 0 {
			alt = strings.Join(alleleStrings[1:maxAllele+1], ",")
		}
		fmt.Fprintf(&sb, "1\t%d\tm%d\tA\t%s\t.\tPASS\t.\tGT", pos, m, alt)
		for h := 0; h < nHaps; h += 2 {
			fmt.Fprintf(&sb, "\t%d|%d", alleles[m][h], alleles[m][h+1])
		}
		sb.WriteString("\n")
	}
	path := filepath.Join(dir, "test.vcf")
	if err := ioutil.WriteFile(path, []byte(sb.String()), 0666); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeTestMap writes a two-anchor PLINK map for chromosome 1 at
// 1 cM per Mb covering [1, 20000000].
func writeTestMap(t *testing.T, dir string) string {
	t.Helper()
	content := "1\t.\t0.000001\t1\n1\t.\t20.0\t20000000\n"
	path := filepath.Join(dir, "test.map")
	if err := ioutil.WriteFile(path, []byte(content), 0666); err != nil {
		t.Fatal(err)
	}
	return path
}

// newTestData builds a Data instance for the given genotype matrix.
func newTestData(t *testing.T, par *Par, positions []int, alleles [][]int) *Data {
	t.Helper()
	dir := t.TempDir()
	gt := writeTestVcf(t, dir, positions, alleles)
	mapFile := writeTestMap(t, dir)
	par.Gt = gt
	par.Map = mapFile
	chromIds := vcf.NewChromIds()
	it := vcf.NewChromIt(gt, mapFile, chromIds, par.MinMaf, "", "", nil)
	defer it.Close()
	refGT := it.Next()
	return NewData(par, refGT, it.GenMap(), chromIds)
}

// markerGrid returns n base positions spaced 100 kb apart starting at
// 100000, which is 10 cM at the test map's rate of 1 cM per Mb when
// n is 101.
func markerGrid(n int) []int {
	positions := make([]int, n)
	for i := range positions {
		positions[i] = 100000 * (i + 1)
	}
	return positions
}

// twoGroupAlleles returns a genotype matrix where the first
// nGroupA haplotypes carry allele 0 at every marker and the remaining
// haplotypes carry allele 1 at every marker.
func twoGroupAlleles(nMarkers, nGroupA, nHaps int) [][]int {
	alleles := make([][]int, nMarkers)
	for m := range alleles {
		row := make([]int, nHaps)
		for h := nGroupA; h < nHaps; h++ {
			row[h] = 1
		}
		alleles[m] = row
	}
	return alleles
}
