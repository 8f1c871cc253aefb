package recorder

import (
	"errors"
	"fmt"

	"liveness_survey/pkg/logger"

	"github.com/pion/mediadevices"
)

// Порядок предпочтения кодеков; берется первый поддержанный стримом
var videoCodecCandidates = []struct {
	codecName string
	webmID    string
	mimeType  string
}{
	{"video/VP9", "V_VP9", "video/webm;codecs=vp9,opus"},
	{"video/VP8", "V_VP8", "video/webm;codecs=vp8,opus"},
}

const fallbackMIMEType = "video/webm"

// encodedTrackSource адаптирует энкодер-ридер mediadevices к EncodedSource
type encodedTrackSource struct {
	reader mediadevices.EncodedReadCloser
}

func (s *encodedTrackSource) Read() ([]byte, func(), error) {
	buf, release, err := s.reader.Read()
	if err != nil {
		return nil, nil, err
	}
	return buf.Data, release, nil
}

func (s *encodedTrackSource) Close() error {
	return s.reader.Close()
}

// Start начинает запись сегмента на живом потоке. Ошибка старта (кодек не
// поддержан, поток завершен) возвращается вызывающему, не глотается.
func Start(stream mediadevices.MediaStream, width, height int, log logger.Logger) (*Segment, error) {
	if stream == nil {
		return nil, errors.New("recorder: stream is not available")
	}

	videoTracks := stream.GetVideoTracks()
	if len(videoTracks) == 0 {
		return nil, errors.New("recorder: no video tracks in stream")
	}

	var (
		videoSource EncodedSource
		webmCodecID string
		mimeType    = fallbackMIMEType
	)
	for _, cand := range videoCodecCandidates {
		reader, err := videoTracks[0].NewEncodedReader(cand.codecName)
		if err != nil {
			log.Debug("recorder: codec not supported", "codec", cand.codecName, "error", err)
			continue
		}
		videoSource = &encodedTrackSource{reader: reader}
		webmCodecID = cand.webmID
		mimeType = cand.mimeType
		break
	}
	if videoSource == nil {
		return nil, fmt.Errorf("recorder: no supported video codec among preferences")
	}

	var audioSource EncodedSource
	if audioTracks := stream.GetAudioTracks(); len(audioTracks) > 0 {
		reader, err := audioTracks[0].NewEncodedReader("audio/opus")
		if err != nil {
			log.Warn("recorder: opus reader unavailable, recording video only", "error", err)
		} else {
			audioSource = &encodedTrackSource{reader: reader}
		}
	}

	sink, err := newWebmSink(webmCodecID, width, height, audioSource != nil)
	if err != nil {
		if cerr := videoSource.Close(); cerr != nil {
			log.Debug("recorder: video source close", "error", cerr)
		}
		if audioSource != nil {
			if cerr := audioSource.Close(); cerr != nil {
				log.Debug("recorder: audio source close", "error", cerr)
			}
		}
		return nil, err
	}

	log.Info("recorder: segment started", "mime_type", mimeType)
	return newSegment(mimeType, videoSource, audioSource, sink, log), nil
}
