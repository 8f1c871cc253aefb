package service

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"liveness_survey/internal/domain"
	"liveness_survey/internal/repository"
	apperrors "liveness_survey/pkg/errors"
	"liveness_survey/pkg/logger"
)

type ExportService interface {
	// BuildZip собирает экспорт сабмишена и возвращает путь к готовому архиву
	BuildZip(ctx context.Context, submissionID int64) (string, error)
}

type exportService struct {
	surveyRepo     repository.SurveyRepository
	submissionRepo repository.SubmissionRepository
	store          *MediaStore
	ffmpegPath     string
	log            logger.Logger
}

func NewExportService(
	surveyRepo repository.SurveyRepository,
	submissionRepo repository.SubmissionRepository,
	store *MediaStore,
	ffmpegPath string,
	log logger.Logger,
) ExportService {
	return &exportService{
		surveyRepo:     surveyRepo,
		submissionRepo: submissionRepo,
		store:          store,
		ffmpegPath:     ffmpegPath,
		log:            log,
	}
}

type exportResponse struct {
	Question     string  `json:"question"`
	Answer       string  `json:"answer"`
	FaceDetected bool    `json:"face_detected"`
	Score        int     `json:"score"`
	FaceImage    *string `json:"face_image"`
}

type exportMetadata struct {
	SubmissionID string           `json:"submission_id"`
	SurveyID     string           `json:"survey_id"`
	StartedAt    *string          `json:"started_at"`
	CompletedAt  *string          `json:"completed_at"`
	IPAddress    *string          `json:"ip_address"`
	Device       *string          `json:"device"`
	Browser      *string          `json:"browser"`
	OS           *string          `json:"os"`
	Location     *string          `json:"location"`
	Responses    []exportResponse `json:"responses"`
	OverallScore *int             `json:"overall_score"`
}

// Структура архива:
//
//	metadata.json
//	videos/full_session.mp4
//	images/q1_face.png ... q5_face.png
func (s *exportService) BuildZip(ctx context.Context, submissionID int64) (string, error) {
	sub, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return "", err
	}

	survey, err := s.surveyRepo.GetByID(ctx, sub.SurveyID)
	if err != nil {
		return "", err
	}

	answers, err := s.submissionRepo.ListAnswers(ctx, submissionID)
	if err != nil {
		return "", err
	}

	meta := s.buildMetadata(sub, survey, answers)

	tmpRoot, err := os.MkdirTemp("", "survey_export_*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpRoot)

	videosDir := filepath.Join(tmpRoot, "videos")
	if err := os.MkdirAll(videosDir, 0o755); err != nil {
		return "", err
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	metaPath := filepath.Join(tmpRoot, "metadata.json")
	if err := os.WriteFile(metaPath, metaJSON, 0o644); err != nil {
		return "", err
	}

	segments, err := s.listSegments(submissionID)
	if err != nil {
		return "", err
	}
	fullSession := filepath.Join(videosDir, "full_session.mp4")
	if err := s.concatToMP4(ctx, segments, fullSession); err != nil {
		s.log.Error("ffmpeg concat failed", "submission_id", submissionID, "error", err)
		return "", err
	}

	zipPath := filepath.Join(tmpRoot, fmt.Sprintf("submission_%d_export.zip", submissionID))
	if err := s.writeZip(zipPath, metaPath, fullSession, submissionID); err != nil {
		return "", err
	}

	finalPath := filepath.Join(s.store.SubmissionDir(submissionID), fmt.Sprintf("submission_%d_export.zip", submissionID))
	if err := copyFile(zipPath, finalPath); err != nil {
		return "", err
	}

	s.log.Info("export built", "submission_id", submissionID, "path", finalPath)
	return finalPath, nil
}

func (s *exportService) buildMetadata(sub *domain.Submission, survey *domain.Survey, answers []domain.Answer) *exportMetadata {
	qmap := make(map[int64]string, len(survey.Questions))
	for _, q := range survey.Questions {
		qmap[q.ID] = q.QuestionText
	}

	responses := make([]exportResponse, 0, len(answers))
	for _, a := range answers {
		question, ok := qmap[a.QuestionID]
		if !ok {
			question = fmt.Sprintf("question_id=%d", a.QuestionID)
		}
		responses = append(responses, exportResponse{
			Question:     question,
			Answer:       a.Answer,
			FaceDetected: a.FaceDetected,
			Score:        a.FaceScore,
			FaceImage:    a.FaceImagePath,
		})
	}

	meta := &exportMetadata{
		SubmissionID: strconv.FormatInt(sub.ID, 10),
		SurveyID:     strconv.FormatInt(sub.SurveyID, 10),
		IPAddress:    sub.IPAddress,
		Device:       sub.Device,
		Browser:      sub.Browser,
		OS:           sub.OS,
		Location:     sub.Location,
		Responses:    responses,
		OverallScore: sub.OverallScore,
	}

	started := sub.StartedAt.Format(time.RFC3339)
	meta.StartedAt = &started
	if sub.CompletedAt != nil {
		completed := sub.CompletedAt.Format(time.RFC3339)
		meta.CompletedAt = &completed
	}
	return meta
}

// listSegments возвращает видеосегменты сабмишена в порядке вопросов
func (s *exportService) listSegments(submissionID int64) ([]string, error) {
	pattern := filepath.Join(s.store.SegmentsDir(submissionID), "q*_segment.*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, apperrors.NewAPIError("no video segments found for this submission", 400)
	}
	return matches, nil
}

func (s *exportService) concatToMP4(ctx context.Context, segments []string, outMP4 string) error {
	listFile := filepath.Join(filepath.Dir(outMP4), "concat_list.txt")

	var b strings.Builder
	for _, seg := range segments {
		abs, err := filepath.Abs(seg)
		if err != nil {
			return err
		}
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(listFile, []byte(b.String()), 0o644); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-movflags", "+faststart",
		outMP4,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, truncate(string(out), 512))
	}
	return nil
}

func (s *exportService) writeZip(zipPath, metaPath, fullSession string, submissionID int64) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	if err := addFileToZip(zw, metaPath, "metadata.json"); err != nil {
		return err
	}
	if err := addFileToZip(zw, fullSession, "videos/full_session.mp4"); err != nil {
		return err
	}

	for i := 1; i <= domain.RequiredQuestionCount; i++ {
		name := fmt.Sprintf("q%d_face.png", i)
		src := filepath.Join(s.store.ImagesDir(submissionID), name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := addFileToZip(zw, src, "images/"+name); err != nil {
			return err
		}
	}

	return zw.Close()
}

func addFileToZip(zw *zip.Writer, src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
