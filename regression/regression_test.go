package regression

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

var cols = []string{"a", "b"}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLinearModelPredict(t *testing.T) {
	m := &LinearModel{Intercept: 1, Coefficients: []float64{2, -1}}
	got, err := m.Predict([][]float64{{1, 1}, {0, 3}})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := []float64{2, -2}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("Predict row %d = %v; want %v", i, got[i], want[i])
		}
	}

	if _, err := m.Predict([][]float64{{1}}); err == nil {
		t.Error("Predict with a short row = nil error; want error")
	}
}

func TestStandardScalerTransform(t *testing.T) {
	s := &StandardScaler{Mean: []float64{10, 0}, Scale: []float64{2, 0}}
	got, err := s.Transform([][]float64{{14, 3}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got[0][0] != 2 || got[0][1] != 3 {
		t.Errorf("Transform = %v; want [[2 3]] (zero scale treated as 1)", got)
	}
}

func TestLoadLinearModel(t *testing.T) {
	path := writeFile(t, "model.json", `{"features":["a","b"],"intercept":0.5,"coefficients":[1,2]}`)
	m, err := LoadLinearModel(path, cols)
	if err != nil {
		t.Fatalf("LoadLinearModel: %v", err)
	}
	if m.Intercept != 0.5 {
		t.Errorf("Intercept = %v; want 0.5", m.Intercept)
	}
}

func TestLoadLinearModelRejectsOtherFeatureOrder(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"swapped", `{"features":["b","a"],"coefficients":[1,2]}`},
		{"short", `{"coefficients":[1]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLinearModel(writeFile(t, "m.json", tt.body), cols)
			if !errors.Is(err, ErrFeatureMismatch) {
				t.Errorf("LoadLinearModel err = %v; want ErrFeatureMismatch", err)
			}
		})
	}
}

func TestLoadMissingArtefact(t *testing.T) {
	_, err := LoadStandardScaler(filepath.Join(t.TempDir(), "nope.json"), cols)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadStandardScaler err = %v; want os.ErrNotExist", err)
	}
}

func TestLoadPairsModelAndScaler(t *testing.T) {
	scaler := writeFile(t, "scaler.json", `{"features":["a","b"],"mean":[1,2],"scale":[1,1]}`)
	missing := filepath.Join(t.TempDir(), "missing.json")

	tests := []struct {
		name       string
		model      string
		scalerPath string
		wantScaler bool
		wantErr    error
	}{
		{"scaled model with scaler", `{"intercept":1,"coefficients":[1,1],"scaled":true}`, scaler, true, nil},
		{"plain model without scaler", `{"intercept":1,"coefficients":[1,1]}`, missing, false, nil},
		{"scaled model without scaler", `{"intercept":1,"coefficients":[1,1],"scaled":true}`, missing, false, ErrScalerRequired},
	}
	for _, tt := range tests {
		model := writeFile(t, "model.json", tt.model)
		m, s, err := Load(model, tt.scalerPath, cols)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: err = %v; want %v", tt.name, err, tt.wantErr)
			continue
		}
		if tt.wantErr != nil {
			if m != nil || s != nil {
				t.Errorf("%s: got model %v scaler %v alongside an error", tt.name, m, s)
			}
			continue
		}
		if m == nil || (s != nil) != tt.wantScaler {
			t.Errorf("%s: model %v scaler %v; want scaler present = %v", tt.name, m, s, tt.wantScaler)
		}
	}

	if _, _, err := Load(missing, scaler, cols); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing model err = %v; want os.ErrNotExist", err)
	}
}
