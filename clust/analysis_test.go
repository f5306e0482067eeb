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
	"bytes"
	"compress/gzip"
	"io/ioutil"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// readOutputLines decompresses <out>.ibdclust.gz and returns the
// header fields and the data lines.
func readOutputLines(t *testing.T, out string) ([]string, []string) {
	t.Helper()
	compressed, err := ioutil.ReadFile(out + ".ibdclust.gz")
	if err != nil {
		t.Fatal(err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatal(err)
	}
	data, err := ioutil.ReadAll(gz)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) == 0 {
		t.Fatal("empty output")
	}
	return strings.Split(lines[0], "\t"), lines[1:]
}

// checkLineInvariants verifies that a data line encodes a valid
// partition: one pair of cluster indices per sample, with indices
// assigned gap-free in first-occurrence order.
func checkLineInvariants(t *testing.T, line string, nSamples int) []string {
	t.Helper()
	fields := strings.Split(line, "\t")
	if len(fields) != 3+nSamples {
		t.Fatalf("line has %v fields, want %v: %v", len(fields), 3+nSamples, line)
	}
	if _, err := strconv.Atoi(fields[1]); err != nil {
		t.Fatalf("bad POS field: %v", fields[1])
	}
	if _, err := strconv.ParseFloat(fields[2], 64); err != nil {
		t.Fatalf("bad CM field: %v", fields[2])
	}
	next := 0
	for _, column := range fields[3:] {
		parts := strings.Split(column, "|")
		if len(parts) != 2 {
			t.Fatalf("bad sample column: %v", column)
		}
		for _, part := range parts {
			index, err := strconv.Atoi(part)
			if err != nil || index < 0 {
				t.Fatalf("bad cluster index: %v", part)
			}
			if index > next {
				t.Fatalf("cluster index %v appears before %v: %v", index, next, line)
			}
			if index == next {
				next++
			}
		}
	}
	return fields[3:]
}

func TestRunDistinctHaplotypes(t *testing.T) {
	// two samples whose four haplotypes are pairwise distinct at every
	// marker produce only singleton clusters
	dir := t.TempDir()
	nMarkers := 101
	positions := markerGrid(nMarkers)
	alleles := make([][]int, nMarkers)
	for m := range alleles {
		alleles[m] = []int{0, 1, 2, 3}
	}
	gt := writeTestVcf(t, dir, positions, alleles)
	mapFile := writeTestMap(t, dir)
	par := testPar(t, gt, mapFile, filepath.Join(dir, "distinct"), "out-cm=1", "nthreads=2")
	stats := Run(par)
	if stats.NSamples() != 2 {
		t.Errorf("NSamples = %v", stats.NSamples())
	}
	if stats.NMarkers() != int64(nMarkers) || stats.NFilteredMarkers() != int64(nMarkers) {
		t.Errorf("marker counts = %v, %v", stats.NMarkers(), stats.NFilteredMarkers())
	}
	header, lines := readOutputLines(t, par.Out)
	if header[0] != "CHROM" || header[1] != "POS" || header[2] != "CM" ||
		header[3] != "S0" || header[4] != "S1" {
		t.Errorf("unexpected header: %v", header)
	}
	if len(lines) != 10 {
		t.Fatalf("output lines = %v, want 10", len(lines))
	}
	if stats.NOutputPositions() != 10 {
		t.Errorf("NOutputPositions = %v, want 10", stats.NOutputPositions())
	}
	for _, line := range lines {
		columns := checkLineInvariants(t, line, 2)
		if columns[0] != "0|1" || columns[1] != "2|3" {
			t.Errorf("expected singleton clusters, got %v", columns)
		}
	}
	if stats.NIbdSets() != 40 {
		t.Errorf("NIbdSets = %v, want 40", stats.NIbdSets())
	}
}

// sharedBreakAlleles returns 100 haplotypes: haplotypes 0-3 carry
// allele 0 everywhere, haplotypes 4-7 carry allele 0 before the break
// marker and allele 1 after, haplotypes 8-9 carry allele 1 everywhere,
// and haplotypes 10-99 are a diverse background with 45 copies of each
// allele per marker, so that long IBS runs are rare among random
// pairs.
func sharedBreakAlleles(seed int64, nMarkers, breakMarker int) [][]int {
	rand := rand.New(rand.NewSource(seed))
	alleles := make([][]int, nMarkers)
	for m := range alleles {
		row := make([]int, 100)
		if m >= breakMarker {
			for h := 4; h < 8; h++ {
				row[h] = 1
			}
		}
		row[8], row[9] = 1, 1
		for i, p := range rand.Perm(90) {
			if i >= 45 {
				row[10+p] = 1
			}
		}
		alleles[m] = row
	}
	return alleles
}

func TestRunCleanBreak(t *testing.T) {
	dir := t.TempDir()
	nMarkers := 101
	positions := markerGrid(nMarkers)
	alleles := sharedBreakAlleles(71, nMarkers, 50) // break after 5.0 Mb
	gt := writeTestVcf(t, dir, positions, alleles)
	mapFile := writeTestMap(t, dir)
	par := testPar(t, gt, mapFile, filepath.Join(dir, "break"),
		"out-cm=1", "min-ibs-cm=2.0", "nthreads=2")
	Run(par)
	_, lines := readOutputLines(t, par.Out)
	if len(lines) != 10 {
		t.Fatalf("output lines = %v, want 10", len(lines))
	}
	for _, line := range lines {
		checkLineInvariants(t, line, 50)
	}
	// locus at 3 cM: samples 0-3 share a haplotype cluster, sample 4
	// forms its own
	columns := strings.Split(lines[2], "\t")[3:]
	for s := 0; s < 4; s++ {
		if columns[s] != "0|0" {
			t.Errorf("3 cM: sample %v column = %v, want 0|0", s, columns[s])
		}
	}
	if columns[4] != "1|1" {
		t.Errorf("3 cM: sample 4 column = %v, want 1|1", columns[4])
	}
	// locus at 8 cM: samples 0-1 stay together; samples 2-4 now share
	// a cluster through the second chromosome half
	columns = strings.Split(lines[7], "\t")[3:]
	if columns[0] != "0|0" || columns[1] != "0|0" {
		t.Errorf("8 cM: samples 0-1 columns = %v %v, want 0|0", columns[0], columns[1])
	}
	if columns[2] != "1|1" || columns[3] != "1|1" || columns[4] != "1|1" {
		t.Errorf("8 cM: samples 2-4 columns = %v %v %v, want 1|1",
			columns[2], columns[3], columns[4])
	}
}

func TestRunDeterministic(t *testing.T) {
	dir := t.TempDir()
	nMarkers := 101
	positions := markerGrid(nMarkers)
	alleles := sharedBreakAlleles(72, nMarkers, 50)
	gt := writeTestVcf(t, dir, positions, alleles)
	mapFile := writeTestMap(t, dir)
	par1 := testPar(t, gt, mapFile, filepath.Join(dir, "run1"),
		"out-cm=1", "seed=42", "nthreads=3")
	par2 := testPar(t, gt, mapFile, filepath.Join(dir, "run2"),
		"out-cm=1", "seed=42", "nthreads=3")
	Run(par1)
	Run(par2)
	data1, err := ioutil.ReadFile(par1.Out + ".ibdclust.gz")
	if err != nil {
		t.Fatal(err)
	}
	data2, err := ioutil.ReadFile(par2.Out + ".ibdclust.gz")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data1, data2) {
		t.Error("identical runs produced different output files")
	}
}

func TestRunDiscordanceRate(t *testing.T) {
	dir := t.TempDir()
	nMarkers := 101
	positions := markerGrid(nMarkers)
	alleles := sharedBreakAlleles(73, nMarkers, 50)
	gt := writeTestVcf(t, dir, positions, alleles)
	mapFile := writeTestMap(t, dir)
	par := testPar(t, gt, mapFile, filepath.Join(dir, "discord"), "out-cm=1", "nthreads=2")
	stats := Run(par)
	// surviving IBD segments cover only concordant stretches, so the
	// discordance rate stays far below the background rate
	if rate := stats.DiscordRate(); rate < 0 || rate > 0.2 {
		t.Errorf("discordance rate = %v", rate)
	}
}
