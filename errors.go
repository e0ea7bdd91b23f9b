// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package hyperfence

import "errors"

// Sentinel errors returned by this package's public operations.
// Wrap/unwrap with errors.Is/errors.As as usual; internal packages
// define their own more specific sentinels, whose messages are
// appended as text to these (only the sentinel below is wrapped).
var (
	// ErrInvalidArgument means a caller-supplied rule set or
	// partition failed a precondition (no subsets, an empty subset,
	// too few rules) before any algorithm ran.
	ErrInvalidArgument = errors.New("hyperfence: invalid argument")

	// ErrOutOfMemory means a size-bounded internal allocator (see
	// Build's maxNodes argument) hit its configured cap.
	ErrOutOfMemory = errors.New("hyperfence: out of memory")

	// ErrUnsupported means the requested operation exceeded a
	// structural limit, such as the subset cap on grouping.
	ErrUnsupported = errors.New("hyperfence: unsupported")

	// ErrDegenerateInput means a rule subset could not be built into
	// a tree because every candidate rule was an exact geometric
	// duplicate and no default rule was available to fall back to.
	ErrDegenerateInput = errors.New("hyperfence: degenerate input")

	// ErrMatchMismatch means Forest.Verify found at least one packet
	// whose tree lookup disagreed with the brute-force oracle, or
	// Forest.VerifyTrace found one that disagreed with its recorded
	// expected match.
	ErrMatchMismatch = errors.New("hyperfence: match mismatch against oracle")
)
