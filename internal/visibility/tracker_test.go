package visibility

import (
	"testing"
	"time"

	"liveness_survey/internal/domain"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	return NewTrackerWithClock(clock.Now), clock
}

func TestTrackerInitialState(t *testing.T) {
	tr, _ := newTestTracker()

	if tr.Permitted() {
		t.Error("Expected not permitted before any observation")
	}
	if got := tr.ScoreToUse(); got != 0 {
		t.Errorf("Expected initial score 0, got %d", got)
	}
	if tr.Latest().State != domain.FaceLoading {
		t.Errorf("Expected loading state, got %s", tr.Latest().State)
	}
}

func TestTrackerOneFacePermits(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Observe(domain.ObservationOneFace(82))

	if !tr.Permitted() {
		t.Error("Expected permitted after one_face observation")
	}
	if got := tr.ScoreToUse(); got != 82 {
		t.Errorf("Expected score 82, got %d", got)
	}
}

func TestTrackerGraceWindowSurvivesFlicker(t *testing.T) {
	tests := []struct {
		name    string
		flicker domain.FaceObservation
	}{
		{"no_face flicker", domain.ObservationNoFace()},
		{"multiple_faces flicker", domain.ObservationMultipleFaces(2)},
		{"loading flicker", domain.ObservationLoading()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, clock := newTestTracker()

			tr.Observe(domain.ObservationOneFace(71))
			clock.Advance(300 * time.Millisecond)
			tr.Observe(tt.flicker)

			if !tr.Permitted() {
				t.Error("Expected permitted within grace window after flicker")
			}
			// Балл берется из последнего успешного кадра, не из мерцающего
			if got := tr.ScoreToUse(); got != 71 {
				t.Errorf("Expected last good score 71, got %d", got)
			}
		})
	}
}

func TestTrackerGraceWindowExpires(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Observe(domain.ObservationOneFace(90))
	tr.Observe(domain.ObservationNoFace())
	clock.Advance(799 * time.Millisecond)

	if !tr.Permitted() {
		t.Error("Expected permitted at 799ms")
	}

	clock.Advance(1 * time.Millisecond)
	if tr.Permitted() {
		t.Error("Expected not permitted at exactly 800ms")
	}

	// Балл при этом сохраняется - "никогда не 0, если one_face хоть раз был"
	if got := tr.ScoreToUse(); got != 90 {
		t.Errorf("Expected score 90 after expiry, got %d", got)
	}
}

func TestTrackerMultipleFacesNeverGrantsNewWindow(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Observe(domain.ObservationMultipleFaces(3))
	if tr.Permitted() {
		t.Error("Expected not permitted on multiple_faces with no prior grant")
	}

	tr.Observe(domain.ObservationOneFace(60))
	tr.Observe(domain.ObservationMultipleFaces(2))
	clock.Advance(time.Second)
	// multiple_faces не продлевает окно
	if tr.Permitted() {
		t.Error("Expected window not extended by multiple_faces")
	}
}

func TestTrackerScoreFollowsLatestOneFace(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Observe(domain.ObservationOneFace(50))
	tr.Observe(domain.ObservationOneFace(77))

	if got := tr.ScoreToUse(); got != 77 {
		t.Errorf("Expected current score 77, got %d", got)
	}
	if got := tr.LastGoodScore(); got != 77 {
		t.Errorf("Expected last good score 77, got %d", got)
	}
}

func TestTrackerGateSnapshotConsistent(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Observe(domain.ObservationOneFace(64))
	tr.Observe(domain.ObservationNoFace())
	clock.Advance(200 * time.Millisecond)

	gate := tr.Gate()
	if !gate.Permitted {
		t.Error("Expected permitted in gate snapshot")
	}
	if gate.ScoreToUse != 64 {
		t.Errorf("Expected snapshot score 64, got %d", gate.ScoreToUse)
	}

	clock.Advance(time.Second)
	gate = tr.Gate()
	if gate.Permitted {
		t.Error("Expected not permitted after window expiry")
	}
}

func TestTrackerNoCameraNeverPermitted(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Observe(domain.ObservationNoCamera())
	if tr.Permitted() {
		t.Error("Expected not permitted on no_camera")
	}
	clock.Advance(time.Hour)
	if tr.Permitted() {
		t.Error("Expected no_camera to stay not permitted")
	}
}
