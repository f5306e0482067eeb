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
	"log"
	"sync/atomic"
)

// Stats accumulates statistics from an analysis.
//
// Instances of Stats are thread-safe.
type Stats struct {
	nSamples         int64
	nMarkers         int64
	nFilteredMarkers int64
	nIbdSets         int64
	nOutputPositions int64
	discordCnt       int64
	totalCnt         int64
}

// SetNSamples sets the number of samples.
func (s *Stats) SetNSamples(n int) {
	atomic.StoreInt64(&s.nSamples, int64(n))
}

// NSamples returns the number of samples, or 0 if SetNSamples has not
// yet been invoked.
func (s *Stats) NSamples() int {
	return int(atomic.LoadInt64(&s.nSamples))
}

// AddMarkers adds to the cumulative number of markers.
func (s *Stats) AddMarkers(cnt int64) {
	atomic.AddInt64(&s.nMarkers, cnt)
}

// NMarkers returns the cumulative number of markers.
func (s *Stats) NMarkers() int64 {
	return atomic.LoadInt64(&s.nMarkers)
}

// AddFilteredMarkers adds to the cumulative number of markers
// remaining after filtering.
func (s *Stats) AddFilteredMarkers(cnt int64) {
	atomic.AddInt64(&s.nFilteredMarkers, cnt)
}

// NFilteredMarkers returns the cumulative number of markers remaining
// after filtering.
func (s *Stats) NFilteredMarkers() int64 {
	return atomic.LoadInt64(&s.nFilteredMarkers)
}

// AddIbdSets adds to the cumulative number of IBD sets.
func (s *Stats) AddIbdSets(cnt int64) {
	atomic.AddInt64(&s.nIbdSets, cnt)
}

// NIbdSets returns the cumulative number of IBD sets.
func (s *Stats) NIbdSets() int64 {
	return atomic.LoadInt64(&s.nIbdSets)
}

// AddOutputPositions adds to the cumulative number of output positions.
func (s *Stats) AddOutputPositions(cnt int) {
	atomic.AddInt64(&s.nOutputPositions, int64(cnt))
}

// NOutputPositions returns the cumulative number of output positions.
func (s *Stats) NOutputPositions() int64 {
	return atomic.LoadInt64(&s.nOutputPositions)
}

// UpdateDiscordRate adds the given number of discordant alleles and
// examined alleles to the cumulative counts.
func (s *Stats) UpdateDiscordRate(discordant, total int) {
	if discordant > total {
		log.Panic(discordant, ">", total)
	}
	atomic.AddInt64(&s.discordCnt, int64(discordant))
	atomic.AddInt64(&s.totalCnt, int64(total))
}

// DiscordRate returns the IBD segment allele discordance rate.
func (s *Stats) DiscordRate() float64 {
	num := atomic.LoadInt64(&s.discordCnt)
	den := atomic.LoadInt64(&s.totalCnt)
	return float64(num) / float64(den)
}
