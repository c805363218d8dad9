// SPDX-License-Identifier: MIT

package components

import (
	"errors"
	"fmt"
)

var (
	// ErrDesignRows indicates the design row count differs from the pair column count.
	ErrDesignRows = errors.New("components: design rows must equal matrix columns")

	// ErrUnidentifiable indicates k+p exceeds the number of columns.
	ErrUnidentifiable = errors.New("components: k+p exceeds number of columns")

	// ErrNegativeP indicates a negative number of components.
	ErrNegativeP = errors.New("components: p must be non-negative")

	// ErrDesignRank indicates the design matrix is not of full column rank.
	ErrDesignRank = errors.New("components: design matrix is rank deficient")

	// ErrComponentsShape indicates a Components value does not fit the given pair.
	ErrComponentsShape = errors.New("components: result does not match matrix shape")
)

func componentsErrorf(op string, err error) error {
	return fmt.Errorf("components.%s: %w", op, err)
}
