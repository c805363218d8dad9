// SPDX-License-Identifier: MIT

package tsv

import (
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/weitrix"
)

// PairFiles names the inputs of a weitrix. Only X is required.
type PairFiles struct {
	X       string
	W       string
	RowInfo string
	ColInfo string
}

// ReadPair loads a Pair. Without a weight file every finite measurement gets
// weight 1 and every missing one weight 0. Side-tables may list extra
// identifiers and any order; they are aligned to the matrix.
func ReadPair(files PairFiles) (*weitrix.Pair, error) {
	x, err := ReadFile(files.X, ReadMatrix)
	if err != nil {
		return nil, fmt.Errorf("tsv.ReadPair: %w", err)
	}

	var w *matrix.Dense
	if files.W == "" {
		w = unitWeights(x.Data)
	} else {
		lw, err := ReadFile(files.W, ReadMatrix)
		if err != nil {
			return nil, fmt.Errorf("tsv.ReadPair: %w", err)
		}
		if !slices.Equal(x.RowIDs, lw.RowIDs) || !slices.Equal(x.ColIDs, lw.ColIDs) {
			return nil, fmt.Errorf("tsv.ReadPair: %s vs %s: %w", files.X, files.W, ErrIDMismatch)
		}
		w = lw.Data
	}

	p, err := weitrix.New(x.Data, w, x.RowIDs, x.ColIDs)
	if err != nil {
		return nil, fmt.Errorf("tsv.ReadPair: %w", err)
	}
	if err = p.CheckObserved(); err != nil {
		return nil, fmt.Errorf("tsv.ReadPair: %w", err)
	}
	if files.RowInfo != "" {
		t, err := ReadFile(files.RowInfo, ReadTable)
		if err != nil {
			return nil, fmt.Errorf("tsv.ReadPair: %w", err)
		}
		if t, err = Reorder(t, p.RowIDs()); err != nil {
			return nil, fmt.Errorf("tsv.ReadPair: %s: %w", files.RowInfo, err)
		}
		if p, err = p.WithRowInfo(t); err != nil {
			return nil, fmt.Errorf("tsv.ReadPair: %w", err)
		}
	}
	if files.ColInfo != "" {
		t, err := ReadFile(files.ColInfo, ReadTable)
		if err != nil {
			return nil, fmt.Errorf("tsv.ReadPair: %w", err)
		}
		if t, err = Reorder(t, p.ColIDs()); err != nil {
			return nil, fmt.Errorf("tsv.ReadPair: %s: %w", files.ColInfo, err)
		}
		if p, err = p.WithColInfo(t); err != nil {
			return nil, fmt.Errorf("tsv.ReadPair: %w", err)
		}
	}

	return p, nil
}

func unitWeights(x *matrix.Dense) *matrix.Dense {
	w := x.Copy()
	data := w.RawData()
	for k, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			data[k] = 0
		} else {
			data[k] = 1
		}
	}

	return w
}

// WritePair writes prefix+"x.tsv", "w.tsv", "rows.tsv" and "cols.tsv".
func WritePair(prefix string, p *weitrix.Pair) error {
	rowIDs, colIDs := p.RowIDs(), p.ColIDs()
	writes := []struct {
		name  string
		write func(w io.Writer) error
	}{
		{"x.tsv", func(w io.Writer) error { return WriteMatrix(w, "id", p.X(), rowIDs, colIDs) }},
		{"w.tsv", func(w io.Writer) error { return WriteMatrix(w, "id", p.W(), rowIDs, colIDs) }},
		{"rows.tsv", func(w io.Writer) error { return WriteTable(w, "id", p.RowInfo()) }},
		{"cols.tsv", func(w io.Writer) error { return WriteTable(w, "id", p.ColInfo()) }},
	}
	for _, wr := range writes {
		if err := WriteFile(prefix+wr.name, wr.write); err != nil {
			return fmt.Errorf("tsv.WritePair: %w", err)
		}
	}

	return nil
}
