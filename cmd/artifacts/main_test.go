package main

import (
	"encoding/json"
	"math"
	"math/rand"
	"strings"
	"testing"

	"cardfraud/inference-api/internal/domain"
	"cardfraud/inference-api/internal/model"
)

func TestFitScaler_PopulationStatistics(t *testing.T) {
	csvData := "\"Time\",\"V1\",\"Amount\",\"Class\"\n" +
		"0,1.1,10,0\n" +
		"10,0.2,20,0\n" +
		"20,-0.3,30,1\n"

	s, err := fitScaler(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("fitScaler: %v", err)
	}
	if len(s.Features) != 2 || s.Features[0] != domain.FeatureAmount || s.Features[1] != domain.FeatureTime {
		t.Fatalf("features = %v", s.Features)
	}
	want := math.Sqrt(200.0 / 3)
	if s.Mean[0] != 20 || s.Mean[1] != 10 {
		t.Errorf("mean = %v, want [20 10]", s.Mean)
	}
	if math.Abs(s.Scale[0]-want) > 1e-6 || math.Abs(s.Scale[1]-want) > 1e-6 {
		t.Errorf("scale = %v, want %v", s.Scale, want)
	}
	if _, err := model.NewStandardScaler(s.Features, s.Mean, s.Scale); err != nil {
		t.Errorf("fitted scaler rejected: %v", err)
	}
}

func TestFitScaler_AmountOnlyWhenNoTimeColumn(t *testing.T) {
	s, err := fitScaler(strings.NewReader("Amount\n5\n5\n"))
	if err != nil {
		t.Fatalf("fitScaler: %v", err)
	}
	if len(s.Features) != 1 || s.Scale[0] != 0 {
		t.Errorf("got %+v", s)
	}
}

func TestFitScaler_Errors(t *testing.T) {
	for name, body := range map[string]string{
		"empty":      "",
		"no amount":  "Time,V1\n1,2\n",
		"no rows":    "Amount,Time\n",
		"bad number": "Amount,Time\nten,1\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := fitScaler(strings.NewReader(body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDemoClassifiers_LoadAndScore(t *testing.T) {
	for _, kind := range []string{model.KindLogisticRegression, model.KindRandomForest, model.KindGradientBoosting} {
		t.Run(kind, func(t *testing.T) {
			a, err := demoClassifier(kind, rand.New(rand.NewSource(42)))
			if err != nil {
				t.Fatalf("demoClassifier: %v", err)
			}
			raw, err := json.Marshal(a)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			c, err := model.ParseClassifier(raw)
			if err != nil {
				t.Fatalf("ParseClassifier: %v", err)
			}
			if c.NumFeatures() != domain.FeatureWidth {
				t.Errorf("n_features = %d", c.NumFeatures())
			}
			_, p, err := c.Predict(make([]float64, domain.FeatureWidth))
			if err != nil || p < 0 || p > 1 {
				t.Errorf("Predict = %v, %v", p, err)
			}
		})
	}
}

func TestDemoClassifier_Deterministic(t *testing.T) {
	a, _ := demoClassifier(model.KindRandomForest, rand.New(rand.NewSource(42)))
	b, _ := demoClassifier(model.KindRandomForest, rand.New(rand.NewSource(42)))
	ra, _ := json.Marshal(a)
	rb, _ := json.Marshal(b)
	if model.Fingerprint(ra) != model.Fingerprint(rb) {
		t.Error("same seed produced different artifacts")
	}
}

func TestDemoClassifier_UnknownKind(t *testing.T) {
	if _, err := demoClassifier("svm", rand.New(rand.NewSource(1))); err == nil {
		t.Error("expected error")
	}
}
