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
	"compress/gzip"
	"io"
	"log"
	"os"
	"strings"

	"github.com/exascience/ibdclust/internal"
	"github.com/exascience/ibdclust/utils/bgzf"
	"github.com/willf/bitset"
)

// Reader streams phased genotype records from a VCF file. Gzip and
// BGZF compression are detected by the .gz and .bgz filename suffixes.
//
// Reader instances are not thread-safe.
type Reader struct {
	name            string
	file            *os.File
	decompressor    io.Closer
	scanner         *bufio.Scanner
	chromIds        *ChromIds
	samples         Samples
	nColumns        int
	keepCols        []int
	excludedMarkers map[string]bool
	chromInt        *ChromInterval
	line            int

	sc      StringScanner
	alleles []int
}

const vcfFixedColumns = 9

// NewReader opens the given VCF file and parses its header.
// The function and the Reader methods panic on I/O errors and on
// malformed input, with the filename and line context in the message.
func NewReader(name string, chromIds *ChromIds, excludeSamples, excludeMarkers string, chromInt *ChromInterval) *Reader {
	if strings.HasSuffix(name, ".bref3") {
		log.Panic("bref3 input is not supported by this build: ", name)
	}
	file := internal.FileOpen(name)
	buffered := bufio.NewReader(file)
	var in io.Reader = buffered
	var decompressor io.Closer
	if strings.HasSuffix(name, ".bgz") || strings.HasSuffix(name, ".gz") {
		if ok, err := bgzf.IsGzip(buffered); err != nil {
			log.Panic(err, " while opening ", name)
		} else if !ok {
			log.Panic("not a gzip file: ", name)
		}
	}
	switch {
	case strings.HasSuffix(name, ".bgz"):
		r, err := bgzf.NewReader(buffered)
		if err != nil {
			log.Panic(err, " while opening ", name)
		}
		in, decompressor = r, r
	case strings.HasSuffix(name, ".gz"):
		r, err := gzip.NewReader(buffered)
		if err != nil {
			log.Panic(err, " while opening ", name)
		}
		in, decompressor = r, r
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 1<<16), 1<<30)
	reader := &Reader{
		name:            name,
		file:            file,
		decompressor:    decompressor,
		scanner:         scanner,
		chromIds:        chromIds,
		excludedMarkers: readIDFile(excludeMarkers),
		chromInt:        chromInt,
	}
	reader.parseHeader(readIDFile(excludeSamples))
	reader.alleles = make([]int, 2*len(reader.keepCols))
	return reader
}

func readIDFile(name string) map[string]bool {
	if name == "" {
		return nil
	}
	file := internal.FileOpen(name)
	defer internal.Close(file)
	ids := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			ids[id] = true
		}
	}
	if err := scanner.Err(); err != nil {
		log.Panic(err, " while reading ", name)
	}
	return ids
}

func (r *Reader) parseHeader(excludedSamples map[string]bool) {
	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Text()
		if strings.HasPrefix(line, "##") {
			continue
		}
		if !strings.HasPrefix(line, "#CHROM") {
			log.Panicf("%v:%v: missing #CHROM header line", r.name, r.line)
		}
		columns := strings.Split(line, "\t")
		if len(columns) < vcfFixedColumns+1 {
			log.Panicf("%v:%v: VCF header line has no sample columns", r.name, r.line)
		}
		ids := columns[vcfFixedColumns:]
		r.nColumns = len(ids)
		excluded := bitset.New(uint(len(ids)))
		for j, id := range ids {
			if excludedSamples[id] {
				excluded.Set(uint(j))
			}
		}
		for j, id := range ids {
			if !excluded.Test(uint(j)) {
				r.keepCols = append(r.keepCols, j)
				r.samples = append(r.samples, id)
			}
		}
		if len(r.samples) == 0 {
			log.Panicf("%v:%v: all samples are excluded", r.name, r.line)
		}
		return
	}
	if err := r.scanner.Err(); err != nil {
		log.Panic(err, " while reading ", r.name)
	}
	log.Panic("missing VCF header line in ", r.name)
}

// Samples returns the sample identifiers remaining after sample
// exclusion, in header column order.
func (r *Reader) Samples() Samples {
	return r.samples
}

// ChromIds returns the chromosome identifier map.
func (r *Reader) ChromIds() *ChromIds {
	return r.chromIds
}

// Next returns the next record that passes the marker and interval
// filters, or false when the input is exhausted.
func (r *Reader) Next() (RefGTRec, bool) {
	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Text()
		if rec, ok := r.parseRecord(line); ok {
			return rec, true
		}
	}
	if err := r.scanner.Err(); err != nil {
		log.Panic(err, " while reading ", r.name)
	}
	return nil, false
}

func (r *Reader) parseRecord(line string) (RefGTRec, bool) {
	sc := &r.sc
	sc.Reset(line)
	chrom := sc.Field()
	pos := int(internal.ParseInt(sc.Field(), 10, 64))
	if r.chromInt != nil && !r.chromInt.Contains(chrom, pos) {
		return nil, false
	}
	id := sc.Field()
	sc.Field() // REF
	alt := sc.Field()
	sc.Field() // QUAL
	sc.Field() // FILTER
	sc.Field() // INFO
	format := sc.Field()
	if format != "GT" && !strings.HasPrefix(format, "GT:") {
		log.Panicf("%v:%v: GT is not the first FORMAT field: %v", r.name, r.line, line)
	}
	if r.excludedMarkers[id] {
		return nil, false
	}
	nAlleles := 1
	if alt != "." && alt != "" {
		nAlleles += strings.Count(alt, ",") + 1
	}
	marker := Marker{
		ChromIndex: r.chromIds.Index(chrom),
		Pos:        pos,
		ID:         id,
		NAlleles:   nAlleles,
	}
	keep := 0
	for col := 0; col < r.nColumns; col++ {
		if sc.Len() == 0 {
			log.Panicf("%v:%v: too few sample columns: %v", r.name, r.line, line)
		}
		field := sc.Field()
		if keep < len(r.keepCols) && r.keepCols[keep] == col {
			a1, a2 := r.parseGT(field, nAlleles, line)
			r.alleles[2*keep] = a1
			r.alleles[2*keep+1] = a2
			keep++
		}
	}
	if sc.Len() != 0 {
		log.Panicf("%v:%v: too many sample columns: %v", r.name, r.line, line)
	}
	return NewRefGTRec(marker, r.alleles), true
}

func (r *Reader) parseGT(field string, nAlleles int, line string) (int, int) {
	gt := field
	if colon := strings.IndexByte(gt, ':'); colon >= 0 {
		gt = gt[:colon]
	}
	sep := strings.IndexByte(gt, '|')
	if sep <= 0 || sep == len(gt)-1 {
		log.Panicf("%v:%v: genotype is not phased and non-missing: %v", r.name, r.line, line)
	}
	a1 := parseAllele(gt[:sep])
	a2 := parseAllele(gt[sep+1:])
	if a1 < 0 || a1 >= nAlleles || a2 < 0 || a2 >= nAlleles {
		log.Panicf("%v:%v: genotype is not phased and non-missing: %v", r.name, r.line, line)
	}
	return a1, a2
}

func parseAllele(s string) int {
	allele := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return -1
		}
		allele = 10*allele + int(c-'0')
	}
	if len(s) == 0 {
		return -1
	}
	return allele
}

// Close closes the underlying file and decompressor.
func (r *Reader) Close() {
	if r.decompressor != nil {
		internal.Close(r.decompressor)
	}
	internal.Close(r.file)
}
