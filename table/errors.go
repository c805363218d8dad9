// SPDX-License-Identifier: MIT

package table

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned when identifiers are not unique.
	ErrDuplicateKey = errors.New("table: duplicate key")

	// ErrLength is returned when a column length differs from the table length.
	ErrLength = errors.New("table: column length mismatch")

	// ErrUnknownColumn is returned when a named column does not exist.
	ErrUnknownColumn = errors.New("table: unknown column")

	// ErrKind is returned when a column is read as the wrong kind.
	ErrKind = errors.New("table: column kind mismatch")
)

func tableErrorf(op, name string, err error) error {
	if name == "" {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s(%q): %w", op, name, err)
}
