// Package client is the HTTP client of the survey backend API used by the
// session agent.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"liveness_survey/internal/domain"
)

// SubmissionClient представляет клиент backend API опросов
type SubmissionClient struct {
	baseURL      string
	httpClient   *http.Client
	uploadClient *http.Client
}

// NewSubmissionClient создает клиент; у загрузок свой, более длинный таймаут
func NewSubmissionClient(baseURL string, requestTimeout, uploadTimeout time.Duration) *SubmissionClient {
	return &SubmissionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		uploadClient: &http.Client{
			Timeout: uploadTimeout,
		},
	}
}

// StartSubmissionResponse - ответ на старт сабмишена
type StartSubmissionResponse struct {
	SubmissionID int64 `json:"submission_id"`
}

// UploadMediaResponse - путь сохраненного медиафайла
type UploadMediaResponse struct {
	Path string `json:"path"`
}

// SaveAnswerRequest - запись ответа на вопрос
type SaveAnswerRequest struct {
	QuestionID    int64  `json:"question_id"`
	Answer        string `json:"answer"`
	FaceDetected  bool   `json:"face_detected"`
	FaceScore     int    `json:"face_score"`
	FaceImagePath string `json:"face_image_path,omitempty"`
}

// CompleteSubmissionResponse - итог завершенного сабмишена
type CompleteSubmissionResponse struct {
	SubmissionID int64 `json:"submission_id"`
	OverallScore int   `json:"overall_score"`
}

// GetSurvey загружает опрос по ID
func (c *SubmissionClient) GetSurvey(ctx context.Context, surveyID int64) (*domain.Survey, error) {
	url := fmt.Sprintf("%s/api/surveys/%d", c.baseURL, surveyID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch survey: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Failed to fetch survey: %d", resp.StatusCode)
	}

	var survey domain.Survey
	if err := json.NewDecoder(resp.Body).Decode(&survey); err != nil {
		return nil, fmt.Errorf("failed to decode survey: %w", err)
	}
	return &survey, nil
}

// StartSubmission создает новый сабмишен для опроса
func (c *SubmissionClient) StartSubmission(ctx context.Context, surveyID int64) (int64, error) {
	url := fmt.Sprintf("%s/api/surveys/%d/start", c.baseURL, surveyID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("failed to start submission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("Failed to start submission: %d %s", resp.StatusCode, readBody(resp.Body))
	}

	var out StartSubmissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode start response: %w", err)
	}
	return out.SubmissionID, nil
}

// UploadMedia загружает медиафайл (kind: image|video) multipart-формой
func (c *SubmissionClient) UploadMedia(ctx context.Context, submissionID int64, kind, filename string, blob domain.Blob) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("kind", kind); err != nil {
		return "", fmt.Errorf("failed to write kind field: %w", err)
	}
	if err := mw.WriteField("filename", filename); err != nil {
		return "", fmt.Errorf("failed to write filename field: %w", err)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := fw.Write(blob.Data); err != nil {
		return "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/api/submissions/%d/media", c.baseURL, submissionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.uploadClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("Failed to upload %s: %d %s", kind, resp.StatusCode, readBody(resp.Body))
	}

	var out UploadMediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	return out.Path, nil
}

// SaveAnswer сохраняет запись ответа на вопрос
func (c *SubmissionClient) SaveAnswer(ctx context.Context, submissionID int64, answer SaveAnswerRequest) error {
	body, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}

	url := fmt.Sprintf("%s/api/submissions/%d/answers", c.baseURL, submissionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("Failed to save answer: %d %s", resp.StatusCode, readBody(resp.Body))
	}
	return nil
}

// CompleteSubmission завершает сабмишен и возвращает итоговый балл
func (c *SubmissionClient) CompleteSubmission(ctx context.Context, submissionID int64) (*CompleteSubmissionResponse, error) {
	url := fmt.Sprintf("%s/api/submissions/%d/complete", c.baseURL, submissionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to complete submission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Failed to complete submission: %d %s", resp.StatusCode, readBody(resp.Body))
	}

	var out CompleteSubmissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode complete response: %w", err)
	}
	return &out, nil
}

// ExportURL - адрес выгрузки архива завершенного сабмишена
func (c *SubmissionClient) ExportURL(submissionID int64) string {
	return fmt.Sprintf("%s/api/submissions/%d/export", c.baseURL, submissionID)
}

func readBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	return string(data)
}
