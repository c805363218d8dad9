// SPDX-License-Identifier: MIT

package design

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax indicates a malformed formula.
	ErrSyntax = errors.New("design: syntax error")

	// ErrUnknownCovariate indicates a name that no table provides.
	ErrUnknownCovariate = errors.New("design: unknown covariate")

	// ErrAmbiguousCovariate indicates a name present in both row and column tables.
	ErrAmbiguousCovariate = errors.New("design: ambiguous covariate")

	// ErrUnavailableAtLevel indicates a special name used at a level that lacks it.
	ErrUnavailableAtLevel = errors.New("design: covariate unavailable at this level")

	// ErrBadArgument indicates an invalid function argument or covariate kind.
	ErrBadArgument = errors.New("design: bad argument")

	// ErrNonFinite indicates a transform produced NaN or ±Inf.
	ErrNonFinite = errors.New("design: non-finite value")
)

func syntaxErrorf(src string, pos int, format string, args ...any) error {
	return fmt.Errorf("%w at %d in %q: %s", ErrSyntax, pos, src, fmt.Sprintf(format, args...))
}
