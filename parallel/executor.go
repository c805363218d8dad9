// SPDX-License-Identifier: MIT

package parallel

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultBlockRows is the block size used when callers pass 0.
const DefaultBlockRows = 256

// Block is a half-open row range [Lo, Hi) with its position in the partition.
type Block struct {
	Index  int
	Lo, Hi int
}

// Len is Hi - Lo.
func (b Block) Len() int { return b.Hi - b.Lo }

// Partition splits n rows into consecutive blocks of at most size rows.
// n == 0 yields no blocks.
func Partition(n, size int) ([]Block, error) {
	if size <= 0 {
		return nil, fmt.Errorf("Partition(%d, %d): %w", n, size, ErrBadBlockSize)
	}
	out := make([]Block, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		out = append(out, Block{Index: len(out), Lo: lo, Hi: hi})
	}

	return out, nil
}

// Executor runs fn(i) for i in 0..n-1 and returns the first error.
// Implementations may run calls concurrently; fn must only write to
// per-index state.
type Executor interface {
	Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error
}

// Serial runs tasks one after another on the calling goroutine.
type Serial struct{}

// Run implements Executor.
func (Serial) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, i); err != nil {
			return err
		}
	}

	return nil
}

// Pool runs tasks on at most Workers goroutines.
type Pool struct {
	Workers int
}

// NewPool returns a Pool. workers <= 0 means runtime.GOMAXPROCS(0).
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Pool{Workers: workers}
}

// Run implements Executor. After the first failure the shared context is
// cancelled and tasks not yet started are skipped.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if p.Workers > 0 {
		g.SetLimit(p.Workers)
	}
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			return fn(gctx, i)
		})
	}

	return g.Wait()
}

func orSerial(ex Executor) Executor {
	if ex == nil {
		return Serial{}
	}

	return ex
}
