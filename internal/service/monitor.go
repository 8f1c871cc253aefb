package service

import (
	"sync"
	"time"

	"liveness_survey/pkg/logger"
)

const (
	MonitorEventStarted     = "submission_started"
	MonitorEventAnswerSaved = "answer_saved"
	MonitorEventCompleted   = "submission_completed"
)

type MonitorEvent struct {
	Type         string    `json:"type"`
	SubmissionID int64     `json:"submission_id"`
	QuestionID   int64     `json:"question_id,omitempty"`
	FaceScore    int       `json:"face_score,omitempty"`
	OverallScore int       `json:"overall_score,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// MonitorHub раздает события прохождения опроса подписчикам (ws-мониторинг).
// Медленный подписчик теряет события, блокировать публикацию нельзя.
type MonitorHub struct {
	mu   sync.RWMutex
	subs map[int64]map[chan MonitorEvent]struct{}
	log  logger.Logger
}

func NewMonitorHub(log logger.Logger) *MonitorHub {
	return &MonitorHub{
		subs: make(map[int64]map[chan MonitorEvent]struct{}),
		log:  log,
	}
}

// Subscribe возвращает канал событий по сабмишену и функцию отписки
func (h *MonitorHub) Subscribe(submissionID int64) (<-chan MonitorEvent, func()) {
	ch := make(chan MonitorEvent, 16)

	h.mu.Lock()
	if h.subs[submissionID] == nil {
		h.subs[submissionID] = make(map[chan MonitorEvent]struct{})
	}
	h.subs[submissionID][ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if set, ok := h.subs[submissionID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, submissionID)
			}
		}
		h.mu.Unlock()
	}
	return ch, unsubscribe
}

func (h *MonitorHub) Publish(event MonitorEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[event.SubmissionID] {
		select {
		case ch <- event:
		default:
			h.log.Warn("monitor subscriber is slow, dropping event",
				"submission_id", event.SubmissionID, "type", event.Type)
		}
	}
}
