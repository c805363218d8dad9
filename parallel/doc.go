// SPDX-License-Identifier: MIT

// Package parallel partitions row ranges into contiguous blocks and runs a
// per-block function through an injected Executor.
//
// There is no process-wide parallel configuration. Every operation that can
// fan out takes an Executor; nil means Serial.
//
// Ordering:
//
//	Results are stored by Block.Index, never by completion order, so
//	concatenating them reproduces the input row order for any worker count.
//
// Operational note:
//
//	Per-block kernels call gonum routines that are single-threaded for the
//	matrix sizes used here. Keep Pool workers at or below GOMAXPROCS to
//	avoid oversubscription.
package parallel
