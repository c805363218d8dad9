// SPDX-License-Identifier: MIT

package glm

import "fmt"

// Family selects the variance function V(μ). The link is always log.
type Family int

const (
	// Gamma has V(μ) = μ². Squared residuals and dispersions behave like this.
	Gamma Family = iota
	// QuasiPoisson has V(μ) = μ.
	QuasiPoisson
)

// Variance returns V(mu).
func (f Family) Variance(mu float64) float64 {
	if f == QuasiPoisson {
		return mu
	}

	return mu * mu
}

// String returns the family name used in configuration files.
func (f Family) String() string {
	switch f {
	case Gamma:
		return "gamma"
	case QuasiPoisson:
		return "quasipoisson"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// ParseFamily maps "gamma" or "quasipoisson" to a Family.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "gamma", "Gamma":
		return Gamma, nil
	case "quasipoisson", "quasiPoisson", "QuasiPoisson":
		return QuasiPoisson, nil
	default:
		return 0, fmt.Errorf("glm: unknown family %q", s)
	}
}
