package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	AnswerYes = "Yes"
	AnswerNo  = "No"
)

const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
)

type Submission struct {
	ID           int64      `json:"id"`
	SurveyID     int64      `json:"survey_id"`
	IPAddress    *string    `json:"ip_address,omitempty"`
	Device       *string    `json:"device,omitempty"`
	Browser      *string    `json:"browser,omitempty"`
	OS           *string    `json:"os,omitempty"`
	Location     *string    `json:"location,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	OverallScore *int       `json:"overall_score,omitempty"`
}

type Answer struct {
	ID            int64     `json:"id"`
	SubmissionID  int64     `json:"submission_id"`
	QuestionID    int64     `json:"question_id"`
	Answer        string    `json:"answer"` // Yes/No
	FaceDetected  bool      `json:"face_detected"`
	FaceScore     int       `json:"face_score"` // 0..100
	FaceImagePath *string   `json:"face_image_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type MediaFile struct {
	ID           uuid.UUID `json:"id"`
	SubmissionID int64     `json:"submission_id"`
	Type         string    `json:"type"` // image/video
	Path         string    `json:"path"`
	CreatedAt    time.Time `json:"created_at"`
}

// Blob - один закодированный медиафрагмент (кадр или видеосегмент) с MIME-типом
type Blob struct {
	Data     []byte
	MIMEType string
}
