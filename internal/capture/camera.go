// Package capture owns the camera stream lifecycle. The detector loop and the
// segment recorder only borrow the stream; nobody else may stop its tracks.
package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"

	"liveness_survey/internal/config"
	"liveness_survey/internal/domain"
	"liveness_survey/pkg/logger"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	"github.com/pion/mediadevices/pkg/prop"
)

var ErrNotReady = errors.New("video not ready for snapshot")

type Camera struct {
	cfg config.CameraConfig
	log logger.Logger

	mu     sync.Mutex
	stream mediadevices.MediaStream
	latest image.Image
	cancel context.CancelFunc
}

func NewCamera(cfg config.CameraConfig, log logger.Logger) *Camera {
	return &Camera{cfg: cfg, log: log}
}

// Acquire запрашивает камеру и микрофон и запускает прокачку кадров.
// Кодеки согласуются по списку предпочтений: VP9+Opus, затем VP8+Opus.
func (c *Camera) Acquire(ctx context.Context) error {
	vp9Params, err := vpx.NewVP9Params()
	if err != nil {
		c.log.Error("capture: failed to create VP9 params", "error", err)
		return err
	}
	vp9Params.BitRate = 800_000

	vp8Params, err := vpx.NewVP8Params()
	if err != nil {
		c.log.Error("capture: failed to create VP8 params", "error", err)
		return err
	}
	vp8Params.BitRate = 800_000
	vp8Params.KeyFrameInterval = 30

	opusParams, err := opus.NewParams()
	if err != nil {
		c.log.Error("capture: failed to create Opus params", "error", err)
		return err
	}
	opusParams.BitRate = 64_000

	codecSelector := mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vp9Params, &vp8Params),
		mediadevices.WithAudioEncoders(&opusParams),
	)

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(constraint *mediadevices.MediaTrackConstraints) {
			constraint.Width = prop.Int(c.cfg.Width)
			constraint.Height = prop.Int(c.cfg.Height)
			constraint.FrameRate = prop.Float(float32(c.cfg.FrameRate))
		},
		Audio: func(constraint *mediadevices.MediaTrackConstraints) {
			constraint.SampleRate = prop.Int(48000)
		},
		Codec: codecSelector,
	})
	if err != nil {
		c.log.Error("capture: failed to acquire camera", "error", err)
		return err
	}

	videoTracks := stream.GetVideoTracks()
	if len(videoTracks) == 0 {
		for _, track := range stream.GetTracks() {
			track.Close()
		}
		return errors.New("no video tracks in stream")
	}

	videoTrack, ok := videoTracks[0].(*mediadevices.VideoTrack)
	if !ok {
		for _, track := range stream.GetTracks() {
			track.Close()
		}
		return errors.New("unexpected video track type")
	}

	pumpCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.stream = stream
	c.cancel = cancel
	c.mu.Unlock()

	go c.pump(pumpCtx, videoTrack)

	c.log.Info("capture: camera stream acquired",
		"video_tracks", len(videoTracks),
		"audio_tracks", len(stream.GetAudioTracks()))
	return nil
}

// pump читает сырые кадры и держит последний для детектора и снапшотов
func (c *Camera) pump(ctx context.Context, track *mediadevices.VideoTrack) {
	reader := track.NewReader(true)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, release, err := reader.Read()
		if err != nil {
			c.log.Warn("capture: frame pump stopped", "error", err)
			return
		}

		c.mu.Lock()
		c.latest = frame
		c.mu.Unlock()
		release()
	}
}

// Latest возвращает последний кадр камеры (для цикла детектора)
func (c *Camera) Latest() (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return nil, false
	}
	return c.latest, true
}

// SnapshotPNG кодирует последний кадр в PNG для загрузки как стоп-кадр ответа
func (c *Camera) SnapshotPNG() (domain.Blob, error) {
	c.mu.Lock()
	frame := c.latest
	c.mu.Unlock()

	if frame == nil {
		return domain.Blob{}, ErrNotReady
	}
	bounds := frame.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return domain.Blob{}, ErrNotReady
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return domain.Blob{}, err
	}
	return domain.Blob{Data: buf.Bytes(), MIMEType: "image/png"}, nil
}

// Stream отдает поток для рекордера (доступ только на чтение)
func (c *Camera) Stream() mediadevices.MediaStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

// Close останавливает прокачку и закрывает все треки.
// Только владелец камеры имеет право останавливать поток.
func (c *Camera) Close() {
	c.mu.Lock()
	cancel := c.cancel
	stream := c.stream
	c.cancel = nil
	c.stream = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		for _, track := range stream.GetTracks() {
			track.Close()
		}
	}
}
