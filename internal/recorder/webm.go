package recorder

import (
	"bytes"
	"sync"

	"github.com/at-wat/ebml-go/webm"
)

// webmSink пишет чанки в webm-контейнер в памяти
type webmSink struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	video webm.BlockWriteCloser
	audio webm.BlockWriteCloser
	done  bool
}

type nopWriteCloser struct {
	*bytes.Buffer
}

func (nopWriteCloser) Close() error { return nil }

func newWebmSink(videoCodecID string, width, height int, withAudio bool) (*webmSink, error) {
	s := &webmSink{}

	tracks := []webm.TrackEntry{
		{
			Name:        "Video",
			TrackNumber: 1,
			TrackUID:    1,
			CodecID:     videoCodecID,
			TrackType:   1,
			Video: &webm.Video{
				PixelWidth:  uint64(width),
				PixelHeight: uint64(height),
			},
		},
	}
	if withAudio {
		tracks = append(tracks, webm.TrackEntry{
			Name:        "Audio",
			TrackNumber: 2,
			TrackUID:    2,
			CodecID:     "A_OPUS",
			TrackType:   2,
			Audio: &webm.Audio{
				SamplingFrequency: 48000.0,
				Channels:          2,
			},
		})
	}

	writers, err := webm.NewSimpleBlockWriter(nopWriteCloser{&s.buf}, tracks)
	if err != nil {
		return nil, err
	}

	s.video = writers[0]
	if withAudio {
		s.audio = writers[1]
	}
	return s, nil
}

func (s *webmSink) WriteVideo(keyframe bool, timestampMs int64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	_, err := s.video.Write(keyframe, timestampMs, data)
	return err
}

func (s *webmSink) WriteAudio(timestampMs int64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || s.audio == nil {
		return nil
	}
	_, err := s.audio.Write(true, timestampMs, data)
	return err
}

// Finalize закрывает блок-райтеры (дописывает заголовки) и отдает контейнер
func (s *webmSink) Finalize() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return s.buf.Bytes(), nil
	}
	s.done = true

	if err := s.video.Close(); err != nil {
		return nil, err
	}
	if s.audio != nil {
		if err := s.audio.Close(); err != nil {
			return nil, err
		}
	}
	return s.buf.Bytes(), nil
}
