package mathutil

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// LinearModel is an ordinary least squares fit where every term is fitted
// against y on its own and the intercept absorbs all term means.
type LinearModel struct {
	Coeffs    []float64 `json:"coeffs"`
	Intercept float64   `json:"intercept"`
}

// Fit estimates one coefficient per term. x holds one series per term, each
// the same length as y.
func (lm *LinearModel) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return errors.New("no terms to fit")
	}
	if len(y) < 2 {
		return fmt.Errorf("need at least 2 observations, got %d", len(y))
	}

	yMean := stat.Mean(y, nil)
	coeffs := make([]float64, len(x))
	intercept := yMean
	for i, term := range x {
		if len(term) != len(y) {
			return fmt.Errorf("term %d has %d observations, expected %d", i, len(term), len(y))
		}
		variance := stat.Variance(term, nil)
		if variance == 0 {
			return fmt.Errorf("term %d is constant", i)
		}
		coeffs[i] = stat.Covariance(term, y, nil) / variance
		intercept -= coeffs[i] * stat.Mean(term, nil)
	}

	lm.Coeffs = coeffs
	lm.Intercept = intercept
	return nil
}

// Predict evaluates the model for one observation (one value per term).
func (lm *LinearModel) Predict(row []float64) (float64, error) {
	if len(row) != len(lm.Coeffs) {
		return 0, fmt.Errorf("expected %d terms, got %d", len(lm.Coeffs), len(row))
	}
	out := lm.Intercept
	for i, v := range row {
		out += lm.Coeffs[i] * v
	}
	return out, nil
}
