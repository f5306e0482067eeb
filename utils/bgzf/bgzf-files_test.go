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

package bgzf

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io/ioutil"
	"math/rand"
	"testing"
)

func compressTestData(t *testing.T, members [][]byte) []byte {
	var file []byte
	for _, member := range members {
		file = CompressMember(file, member, flate.DefaultCompression)
	}
	return append(file, EOFBlock...)
}

func TestCompressMemberGzipRoundTrip(t *testing.T) {
	members := [][]byte{
		[]byte("CHROM\tPOS\tCM\tS1\tS2\n"),
		[]byte("1\t1000\t0.0200\t0|0\t0|0\n1\t2000\t0.0400\t0|1\t2|3\n"),
		bytes.Repeat([]byte("a large incompressible-ish payload 0123456789\n"), 10000),
	}
	file := compressTestData(t, members)
	gz, err := gzip.NewReader(bytes.NewReader(file))
	if err != nil {
		t.Fatal(err)
	}
	gz.Multistream(true)
	uncompressed, err := ioutil.ReadAll(gz)
	if err != nil {
		t.Fatal(err)
	}
	var want []byte
	for _, member := range members {
		want = append(want, member...)
	}
	if !bytes.Equal(uncompressed, want) {
		t.Error("round trip through gzip failed")
	}
}

func TestCompressMemberBgzfReader(t *testing.T) {
	rand := rand.New(rand.NewSource(99))
	member := make([]byte, 300000)
	for i := range member {
		member[i] = byte('a' + rand.Intn(20))
	}
	file := compressTestData(t, [][]byte{member})
	reader, err := NewReader(bufio.NewReader(bytes.NewReader(file)))
	if err != nil {
		t.Fatal(err)
	}
	uncompressed, err := ioutil.ReadAll(reader)
	if err != nil {
		t.Fatal(err)
	}
	if err := reader.Close(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(uncompressed, member) {
		t.Error("round trip through bgzf.Reader failed")
	}
}

func TestIsGzip(t *testing.T) {
	file := compressTestData(t, [][]byte{[]byte("hello")})
	scanner := bufio.NewReader(bytes.NewReader(file))
	if ok, err := IsGzip(scanner); err != nil || !ok {
		t.Errorf("IsGzip = %v, %v", ok, err)
	}
	plain := bufio.NewReader(bytes.NewReader([]byte("#CHROM\tPOS\n")))
	if ok, err := IsGzip(plain); err != nil || ok {
		t.Errorf("IsGzip on plain text = %v, %v", ok, err)
	}
}

func TestEOFBlockIsValidGzipMember(t *testing.T) {
	gz, err := gzip.NewReader(bytes.NewReader(EOFBlock))
	if err != nil {
		t.Fatal(err)
	}
	data, err := ioutil.ReadAll(gz)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Error("EOF block is not empty")
	}
}
