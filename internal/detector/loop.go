package detector

import (
	"context"
	"image"
	"sync"
	"time"

	"liveness_survey/internal/domain"
	"liveness_survey/pkg/logger"
)

// FrameSource отдает последний декодированный кадр камеры.
// ok=false, пока камера еще не выдала ни одного кадра с размером.
type FrameSource interface {
	Latest() (image.Image, bool)
}

// Loop - кооперативная задача оценки кадров. Единолично владеет хэндлом
// Evaluator и отдает наблюдения одному потребителю через callback;
// потребитель не должен блокировать callback дольше интервала кадра.
type Loop struct {
	evaluator Evaluator
	frames    FrameSource
	interval  time.Duration
	emit      func(domain.FaceObservation)
	log       logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewLoop(evaluator Evaluator, frames FrameSource, interval time.Duration, emit func(domain.FaceObservation), log logger.Logger) *Loop {
	return &Loop{
		evaluator: evaluator,
		frames:    frames,
		interval:  interval,
		emit:      emit,
		log:       log,
	}
}

// Start инициализирует детектор и запускает цикл оценки.
// Ошибка инициализации фатальна для сессии и возвращается сразу.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return nil
	}
	l.started = true
	l.mu.Unlock()

	if err := l.evaluator.Init(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	l.mu.Lock()
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	go l.run(ctx, done)
	return nil
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := l.evaluator.Close(); err != nil {
			l.log.Warn("detector: failed to close evaluator", "error", err)
		}
	}()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		img, ok := l.frames.Latest()
		if !ok {
			// Камера еще не выдала кадр - детектор для потребителя "грузится"
			l.emit(domain.ObservationLoading())
			continue
		}

		bounds := img.Bounds()
		dets, err := l.evaluator.Detect(img, time.Since(start).Milliseconds())
		if err != nil {
			// Ошибка одного кадра не фатальна - пропускаем кадр
			l.log.Warn("detector: frame evaluation failed", "error", err)
			continue
		}

		l.emit(Classify(dets, bounds.Dx(), bounds.Dy()))
	}
}

// Cancel останавливает цикл и дожидается его завершения.
// Повторные вызовы безопасны.
func (l *Loop) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	done := l.done
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
