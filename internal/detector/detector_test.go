package detector

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"liveness_survey/internal/domain"
	"liveness_survey/pkg/logger"
)

func TestClassifyNoFace(t *testing.T) {
	obs := Classify(nil, 1280, 720)
	if obs.State != domain.FaceNoFace {
		t.Errorf("Expected no_face, got %s", obs.State)
	}
}

func TestClassifyMultipleFaces(t *testing.T) {
	dets := []Detection{
		{Confidence: 0.9, Box: image.Rect(0, 0, 100, 100)},
		{Confidence: 0.8, Box: image.Rect(200, 0, 300, 100)},
		{Confidence: 0.7, Box: image.Rect(400, 0, 500, 100)},
	}

	obs := Classify(dets, 1280, 720)
	if obs.State != domain.FaceMultipleFaces {
		t.Fatalf("Expected multiple_faces, got %s", obs.State)
	}
	if obs.Count != 3 {
		t.Errorf("Expected count 3, got %d", obs.Count)
	}
}

func TestClassifyUnsizedFrameIsLoading(t *testing.T) {
	obs := Classify([]Detection{{Confidence: 0.9}}, 0, 0)
	if obs.State != domain.FaceLoading {
		t.Errorf("Expected loading for unsized frame, got %s", obs.State)
	}
}

func TestVisibilityScore(t *testing.T) {
	tests := []struct {
		name     string
		conf     float64
		box      image.Rectangle
		w, h     int
		expected int
	}{
		{
			// areaRatio = 96000/921600 ≈ 0.104 -> areaScore 84
			// score = 90*0.85 + 84*0.15 = 76.5 + 12.6 = 89.1 -> 89
			name: "large confident face", conf: 0.9,
			box: image.Rect(0, 0, 320, 300), w: 1280, h: 720, expected: 89,
		},
		{
			// areaRatio = 10000/921600 ≈ 0.0109 < 0.02 -> areaScore 0
			// score = 100*0.85 = 85
			name: "tiny face full confidence", conf: 1.0,
			box: image.Rect(0, 0, 100, 100), w: 1280, h: 720, expected: 85,
		},
		{
			// areaRatio well above 0.12 -> areaScore saturates at 100
			// score = 50*0.85 + 100*0.15 = 42.5 + 15 = 57.5 -> 58
			name: "huge face mid confidence", conf: 0.5,
			box: image.Rect(0, 0, 640, 480), w: 1280, h: 720, expected: 58,
		},
		{
			name: "zero confidence zero area", conf: 0,
			box: image.Rect(0, 0, 0, 0), w: 1280, h: 720, expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := visibilityScore(tt.conf, tt.box, tt.w, tt.h)
			if got != tt.expected {
				t.Errorf("Expected score %d, got %d", tt.expected, got)
			}
		})
	}
}

// --- Loop tests with a synthetic evaluator and frame source ---

type fakeEvaluator struct {
	mu       sync.Mutex
	initErr  error
	dets     []Detection
	detCalls int
	closed   bool
}

func (f *fakeEvaluator) Init(ctx context.Context) error { return f.initErr }

func (f *fakeEvaluator) Detect(img image.Image, timestampMs int64) ([]Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detCalls++
	return f.dets, nil
}

func (f *fakeEvaluator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeFrames struct {
	mu  sync.Mutex
	img image.Image
}

func (f *fakeFrames) Latest() (image.Image, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.img == nil {
		return nil, false
	}
	return f.img, true
}

func (f *fakeFrames) set(img image.Image) {
	f.mu.Lock()
	f.img = img
	f.mu.Unlock()
}

func collectObservations() (func(domain.FaceObservation), func() []domain.FaceObservation) {
	var mu sync.Mutex
	var got []domain.FaceObservation
	emit := func(o domain.FaceObservation) {
		mu.Lock()
		got = append(got, o)
		mu.Unlock()
	}
	snapshot := func() []domain.FaceObservation {
		mu.Lock()
		defer mu.Unlock()
		out := make([]domain.FaceObservation, len(got))
		copy(out, got)
		return out
	}
	return emit, snapshot
}

func TestLoopEmitsLoadingBeforeFirstFrame(t *testing.T) {
	eval := &fakeEvaluator{}
	frames := &fakeFrames{}
	emit, snapshot := collectObservations()

	loop := NewLoop(eval, frames, time.Millisecond, emit, logger.New("error"))
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer loop.Cancel()

	deadline := time.After(time.Second)
	for len(snapshot()) == 0 {
		select {
		case <-deadline:
			t.Fatal("No observations emitted")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if obs := snapshot()[0]; obs.State != domain.FaceLoading {
		t.Errorf("Expected loading before first frame, got %s", obs.State)
	}
}

func TestLoopEmitsClassifiedObservations(t *testing.T) {
	eval := &fakeEvaluator{dets: []Detection{{Confidence: 1.0, Box: image.Rect(0, 0, 400, 400)}}}
	frames := &fakeFrames{}
	frames.set(image.NewNRGBA(image.Rect(0, 0, 1280, 720)))
	emit, snapshot := collectObservations()

	loop := NewLoop(eval, frames, time.Millisecond, emit, logger.New("error"))
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		obs := snapshot()
		if len(obs) > 0 && obs[len(obs)-1].State == domain.FaceOneFace {
			break
		}
		select {
		case <-deadline:
			t.Fatal("No one_face observation emitted")
		case <-time.After(5 * time.Millisecond):
		}
	}

	loop.Cancel()

	eval.mu.Lock()
	defer eval.mu.Unlock()
	if !eval.closed {
		t.Error("Expected evaluator closed after Cancel")
	}
}

func TestLoopStartFailsOnInitError(t *testing.T) {
	eval := &fakeEvaluator{initErr: context.DeadlineExceeded}
	loop := NewLoop(eval, &fakeFrames{}, time.Millisecond, func(domain.FaceObservation) {}, logger.New("error"))

	if err := loop.Start(context.Background()); err == nil {
		t.Fatal("Expected Start to fail when evaluator init fails")
	}
}

func TestLoopCancelIdempotent(t *testing.T) {
	eval := &fakeEvaluator{}
	loop := NewLoop(eval, &fakeFrames{}, time.Millisecond, func(domain.FaceObservation) {}, logger.New("error"))
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	loop.Cancel()
	loop.Cancel()
}
