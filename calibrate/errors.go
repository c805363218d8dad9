// SPDX-License-Identifier: MIT

package calibrate

import (
	"errors"
	"fmt"
)

var (
	// ErrTrendDegenerate indicates the trend cannot be fit: no usable rows or
	// cells, or the GLM failed. The input pair stays valid.
	ErrTrendDegenerate = errors.New("calibrate: trend fit is degenerate")

	// ErrFormula indicates a formula that does not parse or does not resolve.
	ErrFormula = errors.New("calibrate: invalid formula")

	// ErrLength indicates mismatched input lengths.
	ErrLength = errors.New("calibrate: input lengths differ")
)

func calibrateErrorf(op string, err error) error {
	return fmt.Errorf("calibrate.%s: %w", op, err)
}
