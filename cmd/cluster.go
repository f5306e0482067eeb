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

// Package cmd implements the ibdclust command line interface.
package cmd

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/exascience/ibdclust/clust"
	"github.com/exascience/ibdclust/internal"
	"github.com/exascience/ibdclust/utils"
)

// ProgramMessage is the first line printed when the ibdclust binary is
// called.
var ProgramMessage string

func init() {
	ProgramMessage = fmt.Sprint(
		"\n", utils.ProgramName, " version ", utils.ProgramVersion,
		" compiled with ", runtime.Version(), " ", internal.PedanticMessage,
		"- see ", utils.ProgramURL, " for more information.\n",
	)
}

// Cluster implements the ibdclust analysis command.
func Cluster() error {
	args := os.Args[1:]
	if len(args) == 0 || strings.HasPrefix(strings.ToLower(args[0]), "help") {
		fmt.Fprint(os.Stderr, clust.Usage())
		return nil
	}
	par, err := clust.ParseArgs(args)
	if err != nil {
		fmt.Fprint(os.Stderr, clust.Usage())
		return err
	}

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("gt", par.Gt) {
		sanityChecksFailed = true
	}
	if !checkExist("map", par.Map) {
		sanityChecksFailed = true
	}
	if par.ExcludeSamples != "" && !checkExist("excludesamples", par.ExcludeSamples) {
		sanityChecksFailed = true
	}
	if par.ExcludeMarkers != "" && !checkExist("excludemarkers", par.ExcludeMarkers) {
		sanityChecksFailed = true
	}
	if info, err := os.Stat(par.Out); err == nil && info.IsDir() {
		fmt.Fprintf(os.Stderr, "Error: The out parameter cannot be a directory: %v\n", par.Out)
		sanityChecksFailed = true
	}
	clustFile := par.Out + ".ibdclust.gz"
	logFile := par.Out + ".log"
	if !checkCreate("out", clustFile) || !checkCreate("out", logFile) {
		sanityChecksFailed = true
	}
	if !checkOutputFilename(par, clustFile) || !checkOutputFilename(par, logFile) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, clust.Usage())
		os.Exit(1)
	}

	runtime.GOMAXPROCS(par.NThreads)
	lf := setLogOutput(logFile)
	defer internal.Close(lf)

	t0 := time.Now()
	duoPrintln(lf, startInfo(par, t0))
	stats := clust.Run(par)
	duoPrintln(lf, statistics(stats))
	duoPrintln(lf, endInfo(t0))
	return nil
}

func checkExist(parameter, filename string) bool {
	if _, err := os.Stat(filename); err == nil {
		return true
	} else if os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File %v does not exist for command line parameter %v.\n", filename, parameter)
	} else if os.IsPermission(err) {
		fmt.Fprintf(os.Stderr, "Error: No permission to read file %v for command line parameter %v.\n", filename, parameter)
	} else {
		fmt.Fprintf(os.Stderr, "Error %v when trying to access file %v for command line parameter %v.\n", err, filename, parameter)
	}
	return false
}

func checkCreate(parameter, filename string) bool {
	if _, err := os.Stat(filename); err == nil {
		// Assume that the file has been written by a previous run, and can be overwritten.
		return true
	}
	file, err := os.Create(filename)
	if err != nil {
		if os.IsPermission(err) {
			fmt.Fprintf(os.Stderr, "Error: No permission to create file %v for command line parameter %v.\n", filename, parameter)
		} else {
			fmt.Fprintf(os.Stderr, "Error %v when trying to create file %v for command line parameter %v.\n", err, filename, parameter)
		}
		return false
	}
	_ = file.Close()
	_ = os.Remove(filename)
	return true
}

// checkOutputFilename rejects output files that collide with an input
// file.
func checkOutputFilename(par *clust.Par, filename string) bool {
	outPath, err := internal.FullPathname(filename)
	if err != nil {
		return true
	}
	for _, input := range []string{par.Gt, par.Map, par.ExcludeSamples, par.ExcludeMarkers} {
		if input == "" {
			continue
		}
		inPath, err := internal.FullPathname(input)
		if err != nil {
			continue
		}
		if inPath == outPath {
			fmt.Fprintf(os.Stderr, "Error: An output file has the same name as an input file: %v\n", filename)
			return false
		}
	}
	return true
}

func startInfo(par *clust.Par, t0 time.Time) string {
	var sb strings.Builder
	sb.WriteString(ProgramMessage)
	sb.WriteString("Start Time          :  ")
	sb.WriteString(t0.Format("03:04 PM Jan 2, 2006"))
	sb.WriteString("\n\n")
	sb.WriteString(parameters(par))
	return sb.String()
}

func parameters(par *clust.Par) string {
	var sb strings.Builder
	sb.WriteString("Parameters\n")
	appendPar := func(name, value string) {
		fmt.Fprintf(&sb, "  %-18v:  %v\n", name, value)
	}
	appendPar("gt", par.Gt)
	appendPar("map", par.Map)
	appendPar("out", par.Out)
	if par.ExcludeSamples != "" {
		appendPar("excludesamples", par.ExcludeSamples)
	}
	if par.ExcludeMarkers != "" {
		appendPar("excludemarkers", par.ExcludeMarkers)
	}
	if par.Chrom != "" {
		appendPar("chrom", par.Chrom)
	}
	appendPar("min-maf", formatFloat(par.MinMaf))
	appendPar("min-ibs-cm", formatFloat(par.MinIbsCm))
	appendPar("min-ibd-cm", formatFloat(par.MinIbdCm))
	appendPar("pbwt", strconv.Itoa(par.Pbwt))
	appendPar("trim", formatFloat(par.Trim))
	appendPar("discord", formatFloat(par.Discord))
	appendPar("out-cm", formatFloat(par.OutCm))
	appendPar("nthreads", strconv.Itoa(par.NThreads))
	appendPar("seed", strconv.FormatInt(par.Seed, 10))
	return sb.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func statistics(stats *clust.Stats) string {
	nMarkers := stats.NMarkers()
	nFilteredMarkers := stats.NFilteredMarkers()
	percent := 100.0 * float64(nFilteredMarkers) / float64(nMarkers)
	clustersPerPosition := float64(stats.NIbdSets()) / float64(stats.NOutputPositions())
	var sb strings.Builder
	sb.WriteString("Statistics\n")
	fmt.Fprintf(&sb, "  %-18v:  %v\n", "samples", stats.NSamples())
	fmt.Fprintf(&sb, "  %-18v:  %v\n", "haplotypes", 2*stats.NSamples())
	fmt.Fprintf(&sb, "  %-18v:  %v\n", "input VCF records", nMarkers)
	fmt.Fprintf(&sb, "  %-18v:  %v  (%v%% of records)\n", "filtered records",
		nFilteredMarkers, strconv.FormatFloat(percent, 'f', 1, 64))
	fmt.Fprintf(&sb, "  %-18v:  %v\n", "output positions", stats.NOutputPositions())
	fmt.Fprintf(&sb, "  %-18v:  %v\n", "clusters/position", int(math.Round(clustersPerPosition)))
	fmt.Fprintf(&sb, "  %-18v:  %v\n", "discordance rate",
		strconv.FormatFloat(stats.DiscordRate(), 'g', 4, 64))
	return sb.String()
}

func endInfo(t0 time.Time) string {
	t1 := time.Now()
	var sb strings.Builder
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Wallclock Time      :  %v\n", t1.Sub(t0).Round(time.Millisecond))
	fmt.Fprintf(&sb, "End Time            :  %v", t1.Format("03:04 PM Jan 2, 2006"))
	return sb.String()
}
