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

// Package clust implements the probabilistic IBD segment discovery and
// clustering pipeline.
package clust

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"

	"github.com/exascience/ibdclust/utils"
	"github.com/exascience/ibdclust/vcf"
)

// Par stores the analysis parameters.
//
// Instances of Par are immutable.
type Par struct {
	Args []string

	Gt             string
	Map            string
	Out            string
	Chrom          string
	ChromInt       *vcf.ChromInterval
	ExcludeSamples string
	ExcludeMarkers string
	MinMaf         float64

	MinIbsCm float64
	MinIbdCm float64
	Pbwt     int
	Trim     float64
	Discord  float64
	OutCm    float64
	NThreads int

	Ne               float64
	Quantile         float64
	PrefocusQuantile float64
	GcBp             int
	GcDiscord        float64
	LocalSegments    int
	LocalMaxCdf      float64
	GlobalLoci       int
	GlobalSegments   int
	GlobalQuantile   float64
	GlobalMultiple   float64
	MinCdfRatio      float64
	MaxIts           int
	EndMorgans       float64
	FixFocus         bool
	MaxRelChange     float64
	OutWindowSize    int
	Seed             int64
}

// maxLocalSegments caps the local-segments parameter so that
// n*(n-1) ordered sampled pairs fit in 32 bits.
const maxLocalSegments = 45000

// Usage returns the ibdclust usage instructions.
func Usage() string {
	return "Syntax: " + utils.ProgramName + " [arguments in format: parameter=value]\n" +
		"\n" +
		"  gt=<VCF file with phased genotypes>                (required)\n" +
		"  map=<PLINK map file with cM units>                 (required)\n" +
		"  out=<output file prefix>                           (required)\n" +
		"\n" +
		"  chrom=< [chrom] or [chrom]:[start]-[end] >         (optional)\n" +
		"  excludesamples=<file with 1 sample ID per line>    (optional)\n" +
		"  excludemarkers=<file with 1 marker ID per line>    (optional)\n" +
		"  min-maf=<min frequency of 2nd most common allele>  (default=0.1)\n" +
		"\n" +
		"  min-ibs-cm=<min cM length of an IBS segment>       (default=1.0)\n" +
		"  min-ibd-cm=<min cM length of an IBD segment>       (default=1.0)\n" +
		"  pbwt=<number of interleaved PBWT analyses>         (default=4)\n" +
		"  trim=<cM trimmed from each IBD segment end>        (default=0.5)\n" +
		"  discord=<probability of allele discordance>        (default=0.0005)\n" +
		"  out-cm=<cM between output positions>               (default=0.02)\n" +
		"  nthreads=<number of threads>                       (default: all CPU cores)\n" +
		"\n" +
		"  ne=<effective population size>                     (default=10000)\n" +
		"  quantile=<quantile of the end-point distribution>  (default=0.5)\n" +
		"  prefocus-quantile=<quantile for focus updates>     (default=0.5)\n" +
		"  gc-bp=<max bp between gene-conversion discords>    (default=1000)\n" +
		"  gc-discord=<gene-conversion discord probability>   (default=0.1)\n" +
		"  local-segments=<max sampled haplotypes per locus>  (default=10000)\n" +
		"  local-max-cdf=<max CDF of local IBS lengths>       (default=0.999)\n" +
		"  global-loci=<number of sampled global loci>        (default=200)\n" +
		"  global-segments=<sampled haplotype pairs per locus>(default=1000)\n" +
		"  global-quantile=<quantile for locus filtering>     (default=0.9)\n" +
		"  global-multiple=<max multiple of the median>       (default=10.0)\n" +
		"  min-cdf-ratio=<CDF tail termination ratio>         (default=1e-4)\n" +
		"  max-its=<max end-point update iterations>          (default=10)\n" +
		"  end-morgans=<Morgans past the terminal marker>     (default=0.1)\n" +
		"  fix-focus=<true to fix the focus position>         (default=false)\n" +
		"  max-rel-change=<min relative end-point change>     (default=0.01)\n" +
		"  out-window-size=<output positions per window>      (default=500)\n" +
		"  seed=<seed for random number generation>           (default=-99999)\n"
}

// ParseArgs parses the given whitespace-separated name=value command
// line arguments. An unknown or malformed argument is an error.
func ParseArgs(args []string) (*Par, error) {
	argsMap, err := argsToMap(args)
	if err != nil {
		return nil, err
	}
	p := &argParser{argsMap: argsMap}
	par := &Par{
		Args: args,

		Gt:             p.stringArg("gt", true, ""),
		Map:            p.stringArg("map", true, ""),
		Out:            p.stringArg("out", true, ""),
		Chrom:          p.stringArg("chrom", false, ""),
		ExcludeSamples: p.stringArg("excludesamples", false, ""),
		ExcludeMarkers: p.stringArg("excludemarkers", false, ""),
		MinMaf:         p.floatArg("min-maf", 0.1, -math.MaxFloat64, math.Nextafter(0.5, 0)),

		MinIbsCm: p.floatArg("min-ibs-cm", 1.0, math.SmallestNonzeroFloat64, math.MaxFloat64),
		MinIbdCm: p.floatArg("min-ibd-cm", 1.0, math.SmallestNonzeroFloat64, math.MaxFloat64),
		Pbwt:     p.intArg("pbwt", 4, 1, math.MaxInt32),
		Trim:     p.floatArg("trim", 0.5, 0.0, math.MaxFloat64),
		Discord:  p.floatArg("discord", 0.0005, math.SmallestNonzeroFloat64, 1.0),
		OutCm:    p.floatArg("out-cm", 0.02, math.SmallestNonzeroFloat64, math.MaxFloat64),
		NThreads: p.intArg("nthreads", runtime.NumCPU(), 1, math.MaxInt32),

		Ne:               p.floatArg("ne", 10000, math.SmallestNonzeroFloat64, math.MaxFloat64),
		Quantile:         p.floatArg("quantile", 0.5, math.SmallestNonzeroFloat64, math.Nextafter(1.0, 0)),
		PrefocusQuantile: p.floatArg("prefocus-quantile", 0.5, math.SmallestNonzeroFloat64, math.Nextafter(1.0, 0)),
		GcBp:             p.intArg("gc-bp", 1000, 0, math.MaxInt32),
		GcDiscord:        p.floatArg("gc-discord", 0.1, math.SmallestNonzeroFloat64, 1.0),
		LocalSegments:    p.intArg("local-segments", 10000, 2, maxLocalSegments),
		LocalMaxCdf:      p.floatArg("local-max-cdf", 0.999, math.SmallestNonzeroFloat64, math.Nextafter(1.0, 0)),
		GlobalLoci:       p.intArg("global-loci", 200, 1, math.MaxInt32),
		GlobalSegments:   p.intArg("global-segments", 1000, 1, math.MaxInt32),
		GlobalQuantile:   p.floatArg("global-quantile", 0.9, 0.0, math.Nextafter(1.0, 0)),
		GlobalMultiple:   p.floatArg("global-multiple", 10.0, math.SmallestNonzeroFloat64, math.MaxFloat64),
		MinCdfRatio:      p.floatArg("min-cdf-ratio", 1e-4, 0.0, 1.0),
		MaxIts:           p.intArg("max-its", 10, 1, math.MaxInt32),
		EndMorgans:       p.floatArg("end-morgans", 0.1, math.SmallestNonzeroFloat64, math.MaxFloat64),
		FixFocus:         p.boolArg("fix-focus", false),
		MaxRelChange:     p.floatArg("max-rel-change", 0.01, 0.0, math.MaxFloat64),
		OutWindowSize:    p.intArg("out-window-size", 500, 1, math.MaxInt32),
		Seed:             p.longArg("seed", -99999),
	}
	if p.err != nil {
		return nil, p.err
	}
	if par.Chrom != "" {
		par.ChromInt = vcf.ParseChromInterval(par.Chrom)
	}
	for key := range argsMap {
		return nil, fmt.Errorf("unrecognized parameter: %v", key)
	}
	return par, nil
}

func argsToMap(args []string) (map[string]string, error) {
	argsMap := make(map[string]string, len(args))
	for _, arg := range args {
		eq := strings.IndexByte(arg, '=')
		if eq <= 0 || eq == len(arg)-1 {
			return nil, fmt.Errorf("invalid argument (expected parameter=value): %v", arg)
		}
		key := arg[:eq]
		if _, dup := argsMap[key]; dup {
			return nil, fmt.Errorf("duplicate parameter: %v", key)
		}
		argsMap[key] = arg[eq+1:]
	}
	return argsMap, nil
}

type argParser struct {
	argsMap map[string]string
	err     error
}

func (p *argParser) take(key string, required bool) (string, bool) {
	value, ok := p.argsMap[key]
	if ok {
		delete(p.argsMap, key)
	} else if required && p.err == nil {
		p.err = fmt.Errorf("missing required parameter: %v", key)
	}
	return value, ok
}

func (p *argParser) stringArg(key string, required bool, def string) string {
	if value, ok := p.take(key, required); ok {
		return value
	}
	return def
}

func (p *argParser) floatArg(key string, def, min, max float64) float64 {
	value, ok := p.take(key, false)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || f < min || f > max {
		if p.err == nil {
			p.err = fmt.Errorf("invalid %v parameter: %v", key, value)
		}
		return def
	}
	return f
}

func (p *argParser) intArg(key string, def, min, max int) int {
	value, ok := p.take(key, false)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(value)
	if err != nil || i < min || i > max {
		if p.err == nil {
			p.err = fmt.Errorf("invalid %v parameter: %v", key, value)
		}
		return def
	}
	return i
}

func (p *argParser) longArg(key string, def int64) int64 {
	value, ok := p.take(key, false)
	if !ok {
		return def
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("invalid %v parameter: %v", key, value)
		}
		return def
	}
	return i
}

func (p *argParser) boolArg(key string, def bool) bool {
	value, ok := p.take(key, false)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("invalid %v parameter: %v", key, value)
		}
		return def
	}
	return b
}
