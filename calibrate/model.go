// SPDX-License-Identifier: MIT

package calibrate

import (
	"fmt"

	"github.com/katalvlaran/weitrix/design"
	"github.com/katalvlaran/weitrix/glm"
)

// TrendModel is a fitted trend: the bound formula (knots, levels, scaling
// frozen from the training data) plus the GLM coefficients.
type TrendModel struct {
	Design *design.Bound
	GLM    *glm.Model
	// NTrain is the number of rows (Trend) or cells (All) used in the fit.
	NTrain int
}

// Level is the frame level the model predicts at.
func (m *TrendModel) Level() design.Level { return m.Design.Level }

// Coefficients returns the GLM coefficients keyed by design column name.
func (m *TrendModel) Coefficients() map[string]float64 {
	out := make(map[string]float64, len(m.GLM.Coef))
	for k, name := range m.Design.Names() {
		out[name] = m.GLM.Coef[k]
	}

	return out
}

// Predict returns the fitted dispersion (Trend) or squared residual (All)
// for every entry of fr, which must be at the model's level.
func (m *TrendModel) Predict(fr *design.Frame) ([]float64, error) {
	x, offset, err := m.Design.Matrix(fr)
	if err != nil {
		return nil, calibrateErrorf("Predict", err)
	}
	out, err := m.GLM.Predict(x, offset)
	if err != nil {
		return nil, calibrateErrorf("Predict", err)
	}

	return out, nil
}

// String summarises the model.
func (m *TrendModel) String() string {
	return fmt.Sprintf("%s %s on %d %s entries (converged=%t after %d iterations)",
		m.GLM.Family, m.Design.Formula, m.NTrain, m.Design.Level, m.GLM.Converged, m.GLM.Iterations)
}
