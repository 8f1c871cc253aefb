// Package detector wraps a face-detection capability and classifies its raw
// detections into per-frame face observations.
package detector

import (
	"context"
	"image"
	"math"

	"liveness_survey/internal/domain"
)

// Detection - одно найденное лицо: уверенность 0..1 и ограничивающий прямоугольник
type Detection struct {
	Confidence float64
	Box        image.Rectangle
}

// Evaluator - внешняя способность детекции лиц. Init может быть долгим и
// падать; Detect вызывается раз в кадр и обязан возвращаться быстро.
type Evaluator interface {
	Init(ctx context.Context) error
	Detect(img image.Image, timestampMs int64) ([]Detection, error)
	Close() error
}

// Калибровочные константы оценки видимости. Значения подобраны вручную:
// 0.02 - маленькое лицо в кадре, 0.12 - достаточное.
const (
	confWeight  = 0.85
	areaWeight  = 0.15
	areaRatioLo = 0.02
	areaRatioHi = 0.12
)

func clamp0to100(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	r := int(math.Round(x))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}

// visibilityScore комбинирует уверенность детектора и долю площади кадра,
// занятую лицом (крупнее лицо - выше видимость).
func visibilityScore(conf01 float64, box image.Rectangle, frameW, frameH int) int {
	conf := clamp0to100(conf01 * 100)

	frameArea := frameW * frameH
	if frameArea < 1 {
		frameArea = 1
	}
	areaRatio := float64(box.Dx()*box.Dy()) / float64(frameArea)
	areaScore := clamp0to100((areaRatio - areaRatioLo) / (areaRatioHi - areaRatioLo) * 100)

	return clamp0to100(float64(conf)*confWeight + float64(areaScore)*areaWeight)
}

// Classify превращает сырые детекции одного кадра в FaceObservation
func Classify(dets []Detection, frameW, frameH int) domain.FaceObservation {
	if frameW <= 0 || frameH <= 0 {
		return domain.ObservationLoading()
	}

	switch {
	case len(dets) == 0:
		return domain.ObservationNoFace()
	case len(dets) > 1:
		return domain.ObservationMultipleFaces(len(dets))
	}

	d := dets[0]
	return domain.ObservationOneFace(visibilityScore(d.Confidence, d.Box, frameW, frameH))
}
