// Package recorder owns one live encoding session per question segment.
// A handle is terminal once stopped or discarded; a new step needs a new one.
package recorder

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"liveness_survey/internal/domain"
	"liveness_survey/pkg/logger"
)

var ErrStopped = errors.New("recorder already stopped")

// EncodedSource отдает закодированные чанки одного трека.
// Read блокируется до следующего чанка; io.EOF после Close.
type EncodedSource interface {
	Read() (data []byte, release func(), err error)
	Close() error
}

// chunkSink принимает чанки и по Finalize отдает готовый контейнер
type chunkSink interface {
	WriteVideo(keyframe bool, timestampMs int64, data []byte) error
	WriteAudio(timestampMs int64, data []byte) error
	Finalize() ([]byte, error)
}

type Segment struct {
	mime  string
	video EncodedSource
	audio EncodedSource
	sink  chunkSink
	log   logger.Logger

	wg      sync.WaitGroup
	started time.Time

	mu      sync.Mutex
	stopped bool
}

// newSegment начинает буферизацию немедленно
func newSegment(mime string, video, audio EncodedSource, sink chunkSink, log logger.Logger) *Segment {
	s := &Segment{
		mime:    mime,
		video:   video,
		audio:   audio,
		sink:    sink,
		log:     log,
		started: time.Now(),
	}

	if video != nil {
		s.wg.Add(1)
		go s.pumpVideo()
	}
	if audio != nil {
		s.wg.Add(1)
		go s.pumpAudio()
	}
	return s
}

func (s *Segment) pumpVideo() {
	defer s.wg.Done()
	for {
		data, release, err := s.video.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Warn("recorder: video read stopped", "error", err)
			}
			return
		}

		// VP8/VP9: младший бит первого байта тега кадра = 0 для ключевого кадра
		keyframe := len(data) > 0 && (data[0]&0x1) == 0
		ts := time.Since(s.started).Milliseconds()
		if err := s.sink.WriteVideo(keyframe, ts, data); err != nil {
			s.log.Warn("recorder: failed to write video chunk", "error", err)
		}
		release()
	}
}

func (s *Segment) pumpAudio() {
	defer s.wg.Done()
	for {
		data, release, err := s.audio.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Warn("recorder: audio read stopped", "error", err)
			}
			return
		}

		ts := time.Since(s.started).Milliseconds()
		if err := s.sink.WriteAudio(ts, data); err != nil {
			s.log.Warn("recorder: failed to write audio chunk", "error", err)
		}
		release()
	}
}

// MIMEType - согласованный тип контейнера; он же тип блоба из Stop
func (s *Segment) MIMEType() string {
	return s.mime
}

// Stop сигнализирует энкодеру сброс, собирает все чанки вплоть до сброса и
// отдает один блоб. Разрешается даже при нулевых данных (пустой блоб);
// ctx ограничивает ожидание, чтобы Stop никогда не висел бесконечно.
func (s *Segment) Stop(ctx context.Context) (domain.Blob, error) {
	if err := s.markStopped(); err != nil {
		return domain.Blob{}, err
	}

	s.closeSources()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return domain.Blob{}, ctx.Err()
	}

	data, err := s.sink.Finalize()
	if err != nil {
		return domain.Blob{}, err
	}
	return domain.Blob{Data: data, MIMEType: s.mime}, nil
}

// Discard бросает буферизованные чанки без формирования блоба.
// Используется при смене шага, когда предыдущий рекордер не был остановлен.
func (s *Segment) Discard() {
	if err := s.markStopped(); err != nil {
		return
	}
	s.closeSources()
	s.wg.Wait()
	if _, err := s.sink.Finalize(); err != nil {
		s.log.Debug("recorder: discard finalize", "error", err)
	}
}

func (s *Segment) markStopped() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.stopped = true
	return nil
}

func (s *Segment) closeSources() {
	if s.video != nil {
		if err := s.video.Close(); err != nil {
			s.log.Debug("recorder: video source close", "error", err)
		}
	}
	if s.audio != nil {
		if err := s.audio.Close(); err != nil {
			s.log.Debug("recorder: audio source close", "error", err)
		}
	}
}
