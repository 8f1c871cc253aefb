package errors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrBadRequest           = errors.New("bad request")
	ErrInternalServer       = errors.New("internal server error")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSurveyNotFound       = errors.New("survey not found")
	ErrSurveyNotActive      = errors.New("active survey not found")
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrQuestionLimitReached = errors.New("survey already has 5 questions")
	ErrQuestionCount        = errors.New("survey must have exactly 5 questions")
	ErrInvalidAnswer        = errors.New("answer must be 'Yes' or 'No'")
	ErrInvalidFaceScore     = errors.New("face_score must be 0..100")
	ErrInvalidMediaKind     = errors.New("kind must be image|video")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
)

type APIError struct {
	Message string `json:"error"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

func HTTPStatusFromError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSurveyNotFound),
		errors.Is(err, ErrSurveyNotActive), errors.Is(err, ErrSubmissionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrQuestionLimitReached),
		errors.Is(err, ErrQuestionCount), errors.Is(err, ErrInvalidAnswer),
		errors.Is(err, ErrInvalidFaceScore), errors.Is(err, ErrInvalidMediaKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
