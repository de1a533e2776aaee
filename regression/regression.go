// Package regression holds the price model capabilities the valuation
// estimator consumes and the JSON-backed implementations shipped with the repo.
package regression

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Regressor predicts log prices for rows of features.
type Regressor interface {
	Predict(x [][]float64) ([]float64, error)
}

// Scaler transforms feature rows before prediction.
type Scaler interface {
	Transform(x [][]float64) ([][]float64, error)
}

// ErrFeatureMismatch means an artefact was trained on a different feature order.
var ErrFeatureMismatch = errors.New("feature order mismatch")

// ErrScalerRequired means the model was fit on scaled features and no scaler was found.
var ErrScalerRequired = errors.New("model expects scaled features but no scaler is available")

// LinearModel is y = intercept + x·coefficients, in log-price space.
type LinearModel struct {
	Features     []string  `json:"features"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	// Scaled is set when the coefficients were fit on standardised features.
	Scaled bool `json:"scaled"`
}

// Predict evaluates the model for every row of x.
func (m *LinearModel) Predict(x [][]float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, nil
	}
	if len(m.Coefficients) == 0 {
		return nil, errors.New("linear model: no coefficients")
	}
	dense, err := toDense(x, len(m.Coefficients))
	if err != nil {
		return nil, fmt.Errorf("linear model: %w", err)
	}
	var y mat.VecDense
	y.MulVec(dense, mat.NewVecDense(len(m.Coefficients), m.Coefficients))

	out := make([]float64, len(x))
	for i := range out {
		out[i] = y.AtVec(i) + m.Intercept
	}
	return out, nil
}

// StandardScaler centres and scales each column: (x - mean) / scale.
type StandardScaler struct {
	Features []string  `json:"features"`
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
}

// Transform returns scaled copies of the rows of x.
func (s *StandardScaler) Transform(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("scaler: row %d has %d features, want %d", i, len(row), len(s.Mean))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			sd := s.Scale[j]
			if sd == 0 {
				sd = 1
			}
			scaled[j] = (v - s.Mean[j]) / sd
		}
		out[i] = scaled
	}
	return out, nil
}

// LoadLinearModel reads a LinearModel artefact and checks it against columns.
func LoadLinearModel(path string, columns []string) (*LinearModel, error) {
	var m LinearModel
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	if len(m.Coefficients) != len(columns) {
		return nil, fmt.Errorf("model %s: %d coefficients for %d features: %w",
			path, len(m.Coefficients), len(columns), ErrFeatureMismatch)
	}
	if err := checkFeatures(path, m.Features, columns); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadStandardScaler reads a StandardScaler artefact and checks it against columns.
func LoadStandardScaler(path string, columns []string) (*StandardScaler, error) {
	var s StandardScaler
	if err := readJSON(path, &s); err != nil {
		return nil, err
	}
	if len(s.Mean) != len(columns) || len(s.Scale) != len(columns) {
		return nil, fmt.Errorf("scaler %s: want %d means and scales: %w", path, len(columns), ErrFeatureMismatch)
	}
	if err := checkFeatures(path, s.Features, columns); err != nil {
		return nil, err
	}
	return &s, nil
}

// checkFeatures accepts artefacts without a feature list; otherwise the order must match.
func checkFeatures(path string, got, want []string) error {
	if len(got) == 0 {
		return nil
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		return fmt.Errorf("%s: trained on [%s]: %w", path, strings.Join(got, ", "), ErrFeatureMismatch)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func toDense(x [][]float64, cols int) (*mat.Dense, error) {
	flat := make([]float64, 0, len(x)*cols)
	for i, row := range x {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), cols)
		}
		flat = append(flat, row...)
	}
	return mat.NewDense(len(x), cols, flat), nil
}

// Load reads the model at modelPath and the scaler at scalerPath. A missing
// model file is reported as fs.ErrNotExist. A missing scaler yields a nil
// Scaler unless the model declares Scaled, which is ErrScalerRequired.
func Load(modelPath, scalerPath string, columns []string) (Regressor, Scaler, error) {
	m, err := LoadLinearModel(modelPath, columns)
	if err != nil {
		return nil, nil, err
	}
	s, err := LoadStandardScaler(scalerPath, columns)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if m.Scaled {
			return nil, nil, fmt.Errorf("model %s: scaler %s: %w", modelPath, scalerPath, ErrScalerRequired)
		}
		return m, nil, nil
	case err != nil:
		return nil, nil, err
	}
	return m, s, nil
}
