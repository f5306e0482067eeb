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

// Package utils provides general utility definitions for the different
// ibdclust packages.
package utils

const (
	// ProgramName is the name of this tool.
	ProgramName = "ibdclust"

	// ProgramVersion is the version of this tool.
	ProgramVersion = "0.2.0"

	// ProgramURL is the repository for this tool.
	ProgramURL = "https://github.com/exascience/ibdclust"
)
