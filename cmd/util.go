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

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/exascience/ibdclust/internal"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

var origStderr = os.Stderr

// setLogOutput creates the log file, redirects the standard error
// stream into it so that panic diagnostics are recorded, and sends
// the log package output to both the log file and the original
// standard error stream.
func setLogOutput(path string) *os.File {
	f := internal.FileCreate(path)

	fd, err := unix.Dup(2)
	if err != nil {
		log.Panic(err)
	}
	origStderr = os.NewFile(uintptr(fd), "/dev/stderr")
	if err := unix.Dup2(int(f.Fd()), 2); err != nil {
		log.Panic(err)
	}

	log.SetOutput(io.MultiWriter(f, origStderr))
	log.SetFlags(0)
	log.Println("Run ID              : ", uuid.New())
	return f
}

// duoPrintln writes the given string to the log file and to the
// original standard error stream.
func duoPrintln(f *os.File, s string) {
	fmt.Fprintln(f, s)
	fmt.Fprintln(origStderr, s)
}
