// Package visibility derives the debounced "answer permitted" gate from the
// per-frame face observations.
package visibility

import (
	"sync"
	"time"

	"liveness_survey/internal/domain"
)

// GraceWindow - сколько держим разрешение после последнего one_face кадра.
// Детектор мерцает на пороге срабатывания; без этого окна валидный ответ
// срывался бы, если лицо потерялось ровно в кадр клика.
const GraceWindow = 800 * time.Millisecond

// GateState - производное состояние гейта на момент опроса
type GateState struct {
	Permitted  bool
	ScoreToUse int
}

// Tracker держит скользящее состояние гистерезиса. Безопасен для
// конкурентного использования (цикл детектора пишет, контроллер читает).
type Tracker struct {
	mu sync.Mutex

	now func() time.Time

	latest        domain.FaceObservation
	lastGoodScore int
	unlockUntil   time.Time
}

func NewTracker() *Tracker {
	return NewTrackerWithClock(time.Now)
}

func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{
		now:    now,
		latest: domain.ObservationLoading(),
	}
}

// Observe применяет очередное наблюдение. Наблюдения применяются в порядке кадров.
func (t *Tracker) Observe(obs domain.FaceObservation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.latest = obs
	if obs.State == domain.FaceOneFace {
		t.lastGoodScore = obs.Score
		t.unlockUntil = t.now().Add(GraceWindow)
	}
}

// Permitted - true, если последнее наблюдение one_face либо не истекло
// grace-окно от предыдущего one_face. multiple_faces само по себе никогда
// не выдает новое разрешение, но действующее окно не отменяет.
func (t *Tracker) Permitted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest.State == domain.FaceOneFace || t.now().Before(t.unlockUntil)
}

// ScoreToUse - балл для сохранения: текущий, если последнее наблюдение
// one_face, иначе последний успешный. Grace-окно влияет только на
// разрешение, не на выбор балла.
func (t *Tracker) ScoreToUse() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest.State == domain.FaceOneFace {
		return t.latest.Score
	}
	return t.lastGoodScore
}

func (t *Tracker) LastGoodScore() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastGoodScore
}

// Latest возвращает последнее наблюдение (для статусного текста)
func (t *Tracker) Latest() domain.FaceObservation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// Gate - атомарный снимок (permitted, scoreToUse) на момент вызова.
// Используется контроллером в начале транзакции ответа.
func (t *Tracker) Gate() GateState {
	t.mu.Lock()
	defer t.mu.Unlock()

	permitted := t.latest.State == domain.FaceOneFace || t.now().Before(t.unlockUntil)
	score := t.lastGoodScore
	if t.latest.State == domain.FaceOneFace {
		score = t.latest.Score
	}
	return GateState{Permitted: permitted, ScoreToUse: score}
}
