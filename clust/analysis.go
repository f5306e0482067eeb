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
	"bufio"
	"compress/flate"
	"io"
	"math"
	"sort"

	"github.com/exascience/ibdclust/internal"
	"github.com/exascience/ibdclust/utils/bgzf"
	"github.com/exascience/ibdclust/vcf"
	"github.com/exascience/pargo/parallel"
)

// Run executes the IBD clustering analysis described by the given
// parameters, writing <out>.ibdclust.gz, and returns the accumulated
// statistics. Fatal conditions panic with a diagnostic.
func Run(par *Par) *Stats {
	stats := &Stats{}
	chromIds := vcf.NewChromIds()
	outFile := internal.FileCreate(par.Out + ".ibdclust.gz")
	defer internal.Close(outFile)
	out := bufio.NewWriter(outFile)
	it := vcf.NewChromIt(par.Gt, par.Map, chromIds, par.MinMaf,
		par.ExcludeSamples, par.ExcludeMarkers, par.ChromInt)
	defer it.Close()
	writeHeader(it.Samples(), out)
	for it.HasNext() {
		refGT := it.Next()
		analyzeChrom(par, refGT, it.GenMap(), chromIds, stats, out)
	}
	internal.Write(out, bgzf.EOFBlock)
	if err := out.Flush(); err != nil {
		panic(err)
	}
	stats.SetNSamples(it.Samples().Size())
	stats.AddMarkers(it.NMarkers())
	stats.AddFilteredMarkers(it.NFilteredMarkers())
	return stats
}

func writeHeader(samples vcf.Samples, out io.Writer) {
	line := make([]byte, 0, 16+8*len(samples))
	line = append(line, "CHROM\tPOS\tCM"...)
	for _, id := range samples {
		line = append(line, '\t')
		line = append(line, id...)
	}
	line = append(line, '\n')
	internal.Write(out, bgzf.CompressMember(nil, line, flate.DefaultCompression))
}

func analyzeChrom(par *Par, refGT *vcf.RefGT, genMap *vcf.PlinkGenMap,
	chromIds *vcf.ChromIds, stats *Stats, out io.Writer) {
	data := NewData(par, refGT, genMap, chromIds)
	ibdSegs := ibdSegments(data)
	clusterHaps(data, stats, ibdSegs, out)
}

// ibdSegments maps the discovered IBS segments through pooled IBD
// estimators and drops segments that fail the length filter.
func ibdSegments(data *Data) []HapPairSegment {
	ibs := NewIbsSegments(data.par, data.fwdGT, data.cmPos)
	ibsSegs := ibs.HapPairSegments()
	pool := make(chan *IbdEstimator, data.par.NThreads+1)
	for j := 0; j <= data.par.NThreads; j++ {
		pool <- NewIbdEstimator(data)
	}
	ibdSegs := make([]HapPairSegment, len(ibsSegs))
	parallel.Range(0, len(ibsSegs), 0, func(low, high int) {
		est := <-pool
		for i := low; i < high; i++ {
			ibdSegs[i] = est.IbdSegment(ibsSegs[i])
		}
		pool <- est
	})
	kept := ibdSegs[:0]
	for _, seg := range ibdSegs {
		if seg != ZeroLengthSegment {
			kept = append(kept, seg)
		}
	}
	return kept
}

func clusterHaps(data *Data, stats *Stats, ibdSegs []HapPairSegment, out io.Writer) {
	par := data.par
	SortByInterval(ibdSegs)
	recordDiscordRate(data, stats, ibdSegs)
	sitesPerWindow := par.OutWindowSize
	outMorgans := 0.01 * par.OutCm
	startMorgans := data.morganPos[0]
	endMorgans := data.morganPos[len(data.morganPos)-1]
	fromStepIndex := int(math.Ceil(startMorgans / outMorgans))
	toStepIndex := int(math.Ceil(endMorgans / outMorgans)) // exclusive end
	stats.AddOutputPositions(toStepIndex - fromStepIndex)
	for start := fromStepIndex; start < toStepIndex; start += sitesPerWindow {
		end := start + sitesPerWindow
		if end > toStepIndex {
			end = toStepIndex
		}
		partitions := windowPartitions(data, ibdSegs, outMorgans, start, end)
		for _, p := range partitions {
			stats.AddIbdSets(int64(p.NSets()))
		}
		writePartitions(partitions, par.NThreads, data.chrom, out)
		minInclEnd := data.MorganToBase(float64(end) * outMorgans)
		ibdSegs = filterSegments(ibdSegs, minInclEnd)
	}
}

// recordDiscordRate counts allele discordances of each surviving IBD
// segment over the markers fully inside the segment.
func recordDiscordRate(data *Data, stats *Stats, ibdSegs []HapPairSegment) {
	parallel.Range(0, len(ibdSegs), 0, func(low, high int) {
		for i := low; i < high; i++ {
			recordSegmentDiscords(data, stats, ibdSegs[i])
		}
	})
}

func recordSegmentDiscords(data *Data, stats *Stats, hps HapPairSegment) {
	hap1 := int(hps.Hap1)
	hap2 := int(hps.Hap2)
	basePos := data.basePos
	refGT := data.fwdGT
	startMarker := sort.SearchInts(basePos, int(hps.StartPos))
	endMarker := startMarker + sort.SearchInts(basePos[startMarker:], int(hps.InclEndPos))
	if endMarker == len(basePos) || basePos[endMarker] != int(hps.InclEndPos) {
		endMarker-- // last marker inside the segment interval
	}
	if startMarker <= endMarker {
		discordCnt := 0
		for m := startMarker; m <= endMarker; m++ {
			if refGT.Allele(m, hap1) != refGT.Allele(m, hap2) {
				discordCnt++
			}
		}
		stats.UpdateDiscordRate(discordCnt, endMarker-startMarker+1)
	}
}

func windowPartitions(data *Data, ibdSegs []HapPairSegment, outMorgans float64,
	startStep, endStep int) []*Partition {
	partitions := make([]*Partition, endStep-startStep)
	parallel.Range(startStep, endStep, 0, func(low, high int) {
		for j := low; j < high; j++ {
			partitions[j-startStep] = cluster(data, float64(j)*outMorgans, ibdSegs)
		}
	})
	return partitions
}

// cluster unions every haplotype pair whose IBD segment covers the
// output position. The union-find is owned by the calling worker.
func cluster(data *Data, morganPos float64, ibdSegs []HapPairSegment) *Partition {
	basePos := data.MorganToBase(morganPos)
	cmPos := 100 * morganPos
	nHaps := data.fwdGT.NHaps()
	p := NewPartition(Position{data.ChromIndex(), basePos, cmPos}, nHaps)
	for _, hps := range ibdSegs {
		if int(hps.StartPos) > basePos {
			break
		}
		if basePos <= int(hps.InclEndPos) {
			p.Union(int(hps.Hap1), int(hps.Hap2))
		}
	}
	return p
}

// writePartitions compresses the window in batches, one block-gzip
// member sequence per batch, and writes the batches in order.
func writePartitions(partitions []*Partition, nThreads int, chromID string, out io.Writer) {
	batchSize := (len(partitions) + nThreads - 1) / nThreads
	compressed := make([][]byte, nThreads)
	parallel.Range(0, nThreads, nThreads, func(low, high int) {
		for batch := low; batch < high; batch++ {
			start := batch * batchSize
			end := start + batchSize
			if end > len(partitions) {
				end = len(partitions)
			}
			if start >= end {
				continue
			}
			var lines []byte
			for _, p := range partitions[start:end] {
				lines = p.AppendLine(lines, chromID)
			}
			compressed[batch] = bgzf.CompressMember(nil, lines, flate.DefaultCompression)
		}
	})
	for _, ba := range compressed {
		if len(ba) > 0 {
			internal.Write(out, ba)
		}
	}
}

func filterSegments(ibdSegs []HapPairSegment, minInclEnd int) []HapPairSegment {
	kept := ibdSegs[:0]
	for _, hps := range ibdSegs {
		if int(hps.InclEndPos) >= minInclEnd {
			kept = append(kept, hps)
		}
	}
	return kept
}
