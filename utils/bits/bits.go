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

// Package bits implements slice-like data structures for storing
// sequences of fixed-width unsigned values of 1 to 16 bits.
package bits

import (
	"log"
	mathbits "math/bits"
	"strconv"
)

// Packed is a slice-like data structure for storing sequences of
// unsigned values of a fixed bit width between 1 and 16.
type Packed struct {
	width  uint
	length int
	words  []uint64
}

// Width returns the number of bits required to distinguish n
// different values. The minimum returned width is 1.
func Width(n int) uint {
	if n < 2 {
		return 1
	}
	return uint(mathbits.Len(uint(n - 1)))
}

// Make creates a packed sequence of the given length and bit width.
func Make(n int, width uint) Packed {
	if width < 1 || width > 16 {
		log.Panic("invalid bit width ", width)
	}
	nBits := uint(n) * width
	return Packed{
		width:  width,
		length: n,
		words:  make([]uint64, (nBits+63)>>6),
	}
}

// Len returns the number of values stored in the packed sequence.
func (p Packed) Len() int {
	return p.length
}

// Get returns the value at the given index.
func (p Packed) Get(index int) int {
	if index < 0 || index >= p.length {
		log.Panic("index out of range")
	}
	bit := uint(index) * p.width
	i := bit >> 6
	shift := bit & 63
	value := p.words[i] >> shift
	if rest := 64 - shift; rest < p.width {
		value |= p.words[i+1] << rest
	}
	return int(value & ((1 << p.width) - 1))
}

// Set sets the value at the given index.
func (p Packed) Set(index, value int) {
	if index < 0 || index >= p.length {
		log.Panic("index out of range")
	}
	v := uint64(value) & ((1 << p.width) - 1)
	bit := uint(index) * p.width
	i := bit >> 6
	shift := bit & 63
	p.words[i] = (p.words[i] &^ (((1 << p.width) - 1) << shift)) | (v << shift)
	if rest := 64 - shift; rest < p.width {
		p.words[i+1] = (p.words[i+1] &^ (((1 << p.width) - 1) >> rest)) | (v >> rest)
	}
}

// String returns a string representation of the packed sequence.
func (p Packed) String() string {
	if p.length == 0 {
		return "[]"
	}
	b := []byte("[")
	b = strconv.AppendInt(b, int64(p.Get(0)), 10)
	for i := 1; i < p.length; i++ {
		b = append(b, ' ')
		b = strconv.AppendInt(b, int64(p.Get(i)), 10)
	}
	return string(append(b, ']'))
}
