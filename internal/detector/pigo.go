package detector

import (
	"context"
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// Порог качества каскада: кластеры с q ниже отбрасываются как шум
const pigoQualityThreshold = 5.0

// PigoEvaluator - детектор лиц на каскаде pigo (чистый Go, без рантайма модели)
type PigoEvaluator struct {
	cascadePath string
	classifier  *pigo.Pigo
}

func NewPigoEvaluator(cascadePath string) *PigoEvaluator {
	return &PigoEvaluator{cascadePath: cascadePath}
}

func (e *PigoEvaluator) Init(ctx context.Context) error {
	data, err := os.ReadFile(e.cascadePath)
	if err != nil {
		return fmt.Errorf("failed to read cascade file %s: %w", e.cascadePath, err)
	}

	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return fmt.Errorf("failed to unpack cascade: %w", err)
	}

	e.classifier = classifier
	return nil
}

func (e *PigoEvaluator) Detect(img image.Image, timestampMs int64) ([]Detection, error) {
	if e.classifier == nil {
		return nil, fmt.Errorf("detector not initialized")
	}

	bounds := img.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	pixels := pigo.RgbToGrayscale(pigo.ImgToNRGBA(img))

	params := pigo.CascadeParams{
		MinSize:     60,
		MaxSize:     1000,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	raw := e.classifier.RunCascade(params, 0.0)
	clustered := e.classifier.ClusterDetections(raw, 0.2)

	dets := make([]Detection, 0, len(clustered))
	for _, d := range clustered {
		if d.Q < pigoQualityThreshold {
			continue
		}
		half := d.Scale / 2
		box := image.Rect(d.Col-half, d.Row-half, d.Col+half, d.Row+half)

		// Каскад отдает качество q >= порога без верхней границы;
		// нормируем в 0..1 с насыщением на q=10
		conf := float64(d.Q) / 10.0
		if conf > 1.0 {
			conf = 1.0
		}
		dets = append(dets, Detection{Confidence: conf, Box: box})
	}

	return dets, nil
}

func (e *PigoEvaluator) Close() error {
	e.classifier = nil
	return nil
}
