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

package bits

import (
	"math/rand"
	"testing"
)

func TestWidth(t *testing.T) {
	cases := []struct {
		n, width int
	}{
		{0, 1}, {1, 1}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {8, 3}, {9, 4},
		{16, 4}, {17, 5}, {256, 8}, {257, 9}, {65536, 16},
	}
	for _, c := range cases {
		if w := Width(c.n); w != uint(c.width) {
			t.Errorf("Width(%v) = %v, want %v", c.n, w, c.width)
		}
	}
}

func TestPackedRoundTrip(t *testing.T) {
	rand := rand.New(rand.NewSource(12345))
	for width := uint(1); width <= 16; width++ {
		n := 1000
		packed := Make(n, width)
		values := make([]int, n)
		for i := range values {
			values[i] = rand.Intn(1 << width)
			packed.Set(i, values[i])
		}
		if packed.Len() != n {
			t.Fatalf("Len() = %v, want %v", packed.Len(), n)
		}
		for i, v := range values {
			if got := packed.Get(i); got != v {
				t.Fatalf("width %v: Get(%v) = %v, want %v", width, i, got, v)
			}
		}
	}
}

func TestPackedOverwrite(t *testing.T) {
	packed := Make(64, 3)
	for i := 0; i < 64; i++ {
		packed.Set(i, 7)
	}
	for i := 0; i < 64; i += 2 {
		packed.Set(i, 2)
	}
	for i := 0; i < 64; i++ {
		want := 7
		if i%2 == 0 {
			want = 2
		}
		if got := packed.Get(i); got != want {
			t.Fatalf("Get(%v) = %v, want %v", i, got, want)
		}
	}
}

func TestPackedString(t *testing.T) {
	packed := Make(3, 4)
	packed.Set(0, 1)
	packed.Set(1, 15)
	packed.Set(2, 0)
	if s := packed.String(); s != "[1 15 0]" {
		t.Errorf("String() = %v", s)
	}
}
