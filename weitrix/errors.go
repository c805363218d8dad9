// SPDX-License-Identifier: MIT

package weitrix

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch indicates measurement and weight matrices differ in shape.
	ErrShapeMismatch = errors.New("weitrix: measurement and weight shapes differ")

	// ErrDuplicateID indicates row or column identifiers are not unique.
	ErrDuplicateID = errors.New("weitrix: duplicate identifier")

	// ErrIDCount indicates the identifier count differs from the matrix dimension.
	ErrIDCount = errors.New("weitrix: identifier count does not match dimension")

	// ErrIDMismatch indicates a side-table is keyed by different identifiers.
	ErrIDMismatch = errors.New("weitrix: side-table identifiers do not match")

	// ErrInvalidWeight indicates a negative or non-finite weight.
	ErrInvalidWeight = errors.New("weitrix: weights must be finite and non-negative")

	// ErrNonFiniteObserved indicates a NaN/Inf measurement in a cell with positive weight.
	ErrNonFiniteObserved = errors.New("weitrix: non-finite measurement with positive weight")

	// ErrRowRange indicates an invalid row window.
	ErrRowRange = errors.New("weitrix: row range out of bounds")
)

func pairErrorf(op string, err error) error {
	return fmt.Errorf("weitrix.%s: %w", op, err)
}
