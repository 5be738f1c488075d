// Command artifacts writes a demo classifier and a fitted scaler to disk so
// the server can start without an external training run.
//
// Usage:
//
//	go run ./cmd/artifacts [flags]
//
// Flags:
//
//	-out   Output directory (default: data)
//	-kind  logistic_regression, random_forest or gradient_boosting
//	-csv   Optional transactions CSV with Amount and Time columns; when given
//	       the scaler mean and standard deviation are fitted from it
//
// The demo model weights come from a fixed random seed, so repeated runs
// produce byte-identical files and therefore the same model_version.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cardfraud/inference-api/internal/domain"
	"cardfraud/inference-api/internal/model"
)

// Population statistics of the public credit-card transactions dataset,
// used when no CSV is supplied.
var defaultScaler = model.ScalerArtifact{
	Features: []string{domain.FeatureAmount, domain.FeatureTime},
	Mean:     []float64{88.349619, 94813.859575},
	Scale:    []float64{250.119670, 47488.145955},
}

func main() {
	out := flag.String("out", "data", "output directory")
	kind := flag.String("kind", model.KindLogisticRegression, "classifier kind")
	csvPath := flag.String("csv", "", "transactions CSV to fit the scaler from")
	amountOnly := flag.Bool("amount-only", false, "fit the scaler on amount only")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	rng := rand.New(rand.NewSource(42))

	clf, err := demoClassifier(*kind, rng)
	if err != nil {
		fail("build classifier", err)
	}

	scaler := defaultScaler
	if *csvPath != "" {
		f, err := os.Open(*csvPath)
		if err != nil {
			fail("open csv", err)
		}
		scaler, err = fitScaler(f)
		f.Close()
		if err != nil {
			fail("fit scaler", err)
		}
	}
	if *amountOnly {
		scaler = model.ScalerArtifact{
			Features: scaler.Features[:1],
			Mean:     scaler.Mean[:1],
			Scale:    scaler.Scale[:1],
		}
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		fail("mkdir", err)
	}
	modelPath := filepath.Join(*out, "model.json")
	scalerPath := filepath.Join(*out, "scaler.json")
	if err := model.WriteArtifact(modelPath, clf); err != nil {
		fail("write model", err)
	}
	if err := model.WriteArtifact(scalerPath, scaler); err != nil {
		fail("write scaler", err)
	}

	// Round-trip through the loaders so a broken artifact never leaves here.
	if _, err := model.LoadClassifier(modelPath); err != nil {
		fail("verify model", err)
	}
	if _, err := model.LoadScaler(scalerPath); err != nil {
		fail("verify scaler", err)
	}

	slog.Info("artifacts written",
		"model", modelPath,
		"kind", clf.Kind,
		"scaler", scalerPath,
		"scaler_features", strings.Join(scaler.Features, ","),
	)
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}

// ─── Demo classifiers ─────────────────────────────────────────────────────────

func demoClassifier(kind string, rng *rand.Rand) (model.ClassifierArtifact, error) {
	switch kind {
	case model.KindLogisticRegression:
		return demoLogistic(rng), nil
	case model.KindRandomForest:
		return demoForest(rng, 25), nil
	case model.KindGradientBoosting:
		return demoBoosting(rng, 40), nil
	default:
		return model.ClassifierArtifact{}, fmt.Errorf("unknown kind %q", kind)
	}
}

// demoLogistic weights large scaled amounts and night-time activity towards
// fraud; card digits carry only small noise weights.
func demoLogistic(rng *rand.Rand) model.ClassifierArtifact {
	coef := make([]float64, domain.FeatureWidth)
	for i := 0; i < domain.CardDigitSlots; i++ {
		coef[i] = round(rng.NormFloat64() * 0.02)
	}
	coef[domain.AmountSlot] = 1.35
	coef[domain.TimeSlot] = -0.42
	return model.ClassifierArtifact{
		Kind:      model.KindLogisticRegression,
		NFeatures: domain.FeatureWidth,
		Coef:      coef,
		Intercept: -3.2,
	}
}

// demoForest builds depth-2 trees over the amount and time slots. Leaf values
// are positive-class probabilities.
func demoForest(rng *rand.Rand, n int) model.ClassifierArtifact {
	trees := make([]model.Tree, n)
	for i := range trees {
		amountCut := round(0.5 + rng.Float64()*2)
		timeCut := round(-1.5 + rng.Float64())
		trees[i] = model.Tree{
			Feature:   []int{domain.AmountSlot, domain.TimeSlot, 0, 0, domain.TimeSlot, 0, 0},
			Threshold: []float64{amountCut, timeCut, 0, 0, timeCut, 0, 0},
			Left:      []int{1, 2, -1, -1, 5, -1, -1},
			Right:     []int{4, 3, -1, -1, 6, -1, -1},
			Value: []float64{
				0, 0,
				round(0.08 + rng.Float64()*0.1), round(0.01 + rng.Float64()*0.03),
				0,
				round(0.7 + rng.Float64()*0.25), round(0.35 + rng.Float64()*0.2),
			},
		}
	}
	return model.ClassifierArtifact{Kind: model.KindRandomForest, NFeatures: domain.FeatureWidth, Trees: trees}
}

// demoBoosting builds stumps on the amount slot. Leaf values are log-odds
// contributions.
func demoBoosting(rng *rand.Rand, n int) model.ClassifierArtifact {
	trees := make([]model.Tree, n)
	for i := range trees {
		trees[i] = model.Tree{
			Feature:   []int{domain.AmountSlot, 0, 0},
			Threshold: []float64{round(rng.Float64() * 3), 0, 0},
			Left:      []int{1, -1, -1},
			Right:     []int{2, -1, -1},
			Value:     []float64{0, round(-0.05 - rng.Float64()*0.05), round(0.08 + rng.Float64()*0.1)},
		}
	}
	return model.ClassifierArtifact{
		Kind:      model.KindGradientBoosting,
		NFeatures: domain.FeatureWidth,
		Trees:     trees,
		BaseScore: -2.5,
	}
}

func round(f float64) float64 { return math.Round(f*1e6) / 1e6 }

// ─── Scaler fitting ───────────────────────────────────────────────────────────

// fitScaler computes the population mean and standard deviation of the
// Amount and Time columns. Time is dropped when the header lacks it.
func fitScaler(r io.Reader) (model.ScalerArtifact, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return model.ScalerArtifact{}, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	amountCol, timeCol := -1, -1
	for i, name := range header {
		switch strings.Trim(strings.TrimSpace(name), `"`) {
		case "Amount":
			amountCol = i
		case "Time":
			timeCol = i
		}
	}
	if amountCol < 0 {
		return model.ScalerArtifact{}, errors.New("csv has no Amount column")
	}

	cols := []int{amountCol}
	features := []string{domain.FeatureAmount}
	if timeCol >= 0 {
		cols = append(cols, timeCol)
		features = append(features, domain.FeatureTime)
	}

	// Welford's online update keeps large files numerically stable.
	count := 0
	mean := make([]float64, len(cols))
	m2 := make([]float64, len(cols))
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.ScalerArtifact{}, fmt.Errorf("line %d: %w", line, err)
		}
		count++
		for j, col := range cols {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
			if err != nil {
				return model.ScalerArtifact{}, fmt.Errorf("line %d column %s: %w", line, header[col], err)
			}
			d := v - mean[j]
			mean[j] += d / float64(count)
			m2[j] += d * (v - mean[j])
		}
	}
	if count == 0 {
		return model.ScalerArtifact{}, errors.New("csv has no data rows")
	}

	scale := make([]float64, len(cols))
	for j := range cols {
		scale[j] = round(math.Sqrt(m2[j] / float64(count)))
		mean[j] = round(mean[j])
	}
	slog.Info("scaler fitted", "rows", count, "features", strings.Join(features, ","))
	return model.ScalerArtifact{Features: features, Mean: mean, Scale: scale}, nil
}
