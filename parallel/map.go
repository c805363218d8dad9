// SPDX-License-Identifier: MIT

package parallel

import (
	"context"
	"fmt"

	"github.com/katalvlaran/weitrix/weitrix"
)

// Map applies fn to every block and returns results indexed by Block.Index.
func Map[T any](ctx context.Context, ex Executor, blocks []Block, fn func(ctx context.Context, b Block) (T, error)) ([]T, error) {
	out := make([]T, len(blocks))
	err := orSerial(ex).Run(ctx, len(blocks), func(ctx context.Context, i int) error {
		b := blocks[i]
		v, err := fn(ctx, b)
		if err != nil {
			return fmt.Errorf("block %d [%d,%d): %w", b.Index, b.Lo, b.Hi, err)
		}
		out[b.Index] = v

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// MapRows partitions the rows of p into blocks of size rows (0 means
// DefaultBlockRows) and calls fn with a zero-copy row window of each block.
func MapRows[T any](ctx context.Context, ex Executor, p *weitrix.Pair, size int,
	fn func(ctx context.Context, b Block, part *weitrix.Pair) (T, error)) ([]T, error) {
	if size == 0 {
		size = DefaultBlockRows
	}
	blocks, err := Partition(p.Rows(), size)
	if err != nil {
		return nil, err
	}

	return Map(ctx, ex, blocks, func(ctx context.Context, b Block) (T, error) {
		part, err := p.SliceRows(b.Lo, b.Hi)
		if err != nil {
			var zero T
			return zero, err
		}

		return fn(ctx, b, part)
	})
}

// Range runs fn for every index in [0, n) grouped into blocks of size.
// It is the column-wise counterpart of MapRows when no Pair view is needed.
func Range(ctx context.Context, ex Executor, n, size int, fn func(i int) error) error {
	if size == 0 {
		size = DefaultBlockRows
	}
	blocks, err := Partition(n, size)
	if err != nil {
		return err
	}
	_, err = Map(ctx, ex, blocks, func(_ context.Context, b Block) (struct{}, error) {
		for i := b.Lo; i < b.Hi; i++ {
			if err := fn(i); err != nil {
				return struct{}{}, err
			}
		}

		return struct{}{}, nil
	})

	return err
}

// Concat flattens per-block slices in block order.
func Concat[T any](parts [][]T) []T {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]T, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}
