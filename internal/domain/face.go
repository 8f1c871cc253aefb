package domain

import "fmt"

type FaceState string

const (
	FaceLoading       FaceState = "loading"
	FaceNoCamera      FaceState = "no_camera"
	FaceNoFace        FaceState = "no_face"
	FaceMultipleFaces FaceState = "multiple_faces"
	FaceOneFace       FaceState = "one_face"
)

// FaceObservation - результат оценки одного кадра.
// Count заполнен только для multiple_faces, Score (0..100) только для one_face.
type FaceObservation struct {
	State FaceState
	Count int
	Score int
}

func ObservationLoading() FaceObservation  { return FaceObservation{State: FaceLoading} }
func ObservationNoCamera() FaceObservation { return FaceObservation{State: FaceNoCamera} }
func ObservationNoFace() FaceObservation   { return FaceObservation{State: FaceNoFace} }

func ObservationMultipleFaces(count int) FaceObservation {
	return FaceObservation{State: FaceMultipleFaces, Count: count}
}

func ObservationOneFace(score int) FaceObservation {
	return FaceObservation{State: FaceOneFace, Score: score}
}

// Message - статусный текст для пользователя
func (o FaceObservation) Message() string {
	switch o.State {
	case FaceLoading:
		return "Initializing face detection…"
	case FaceNoCamera:
		return "Camera not available."
	case FaceNoFace:
		return "No face detected. Please center your face in the frame."
	case FaceMultipleFaces:
		return fmt.Sprintf("Multiple faces detected (%d). Only one person must be in frame.", o.Count)
	case FaceOneFace:
		return fmt.Sprintf("Face OK • Visibility score: %d/100", o.Score)
	default:
		return ""
	}
}
