package service

import (
	"context"
	"math"
	"time"

	"github.com/mssola/useragent"

	"liveness_survey/internal/domain"
	"liveness_survey/internal/repository"
	apperrors "liveness_survey/pkg/errors"
	"liveness_survey/pkg/logger"
)

type SubmissionService interface {
	Start(ctx context.Context, surveyID int64, ip, userAgent string) (*domain.Submission, error)
	Get(ctx context.Context, submissionID int64) (*domain.Submission, error)
	UploadMedia(ctx context.Context, submissionID int64, kind, filename string, data []byte) (string, error)
	SaveAnswer(ctx context.Context, submissionID int64, answer *domain.Answer) error
	Complete(ctx context.Context, submissionID int64) (*domain.Submission, error)
}

type submissionService struct {
	surveyRepo     repository.SurveyRepository
	submissionRepo repository.SubmissionRepository
	store          *MediaStore
	geo            GeoLookup
	monitor        *MonitorHub
	log            logger.Logger
}

func NewSubmissionService(
	surveyRepo repository.SurveyRepository,
	submissionRepo repository.SubmissionRepository,
	store *MediaStore,
	geo GeoLookup,
	monitor *MonitorHub,
	log logger.Logger,
) SubmissionService {
	return &submissionService{
		surveyRepo:     surveyRepo,
		submissionRepo: submissionRepo,
		store:          store,
		geo:            geo,
		monitor:        monitor,
		log:            log,
	}
}

// Start создает сабмишен по активному опросу и фиксирует клиентское окружение
func (s *submissionService) Start(ctx context.Context, surveyID int64, ip, userAgent string) (*domain.Submission, error) {
	survey, err := s.surveyRepo.GetByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if !survey.IsActive {
		return nil, apperrors.ErrSurveyNotActive
	}

	sub := &domain.Submission{SurveyID: surveyID}
	if ip != "" {
		sub.IPAddress = &ip
	}

	device, browser, osName := parseUserAgent(userAgent)
	if device != "" {
		sub.Device = &device
	}
	if browser != "" {
		sub.Browser = &browser
	}
	if osName != "" {
		sub.OS = &osName
	}

	// Локация не критична, ошибку провайдера только логируем
	if location, err := s.geo.Lookup(ctx, ip); err != nil {
		s.log.Warn("geolookup failed", "ip", ip, "error", err)
	} else if location != "" {
		sub.Location = &location
	}

	if err := s.submissionRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	if err := s.store.EnsureDirs(sub.ID); err != nil {
		s.log.Error("failed to prepare media dirs", "submission_id", sub.ID, "error", err)
		return nil, err
	}

	s.monitor.Publish(MonitorEvent{Type: MonitorEventStarted, SubmissionID: sub.ID})
	s.log.Info("submission started", "submission_id", sub.ID, "survey_id", surveyID, "ip", ip)
	return sub, nil
}

func (s *submissionService) Get(ctx context.Context, submissionID int64) (*domain.Submission, error) {
	return s.submissionRepo.GetByID(ctx, submissionID)
}

// UploadMedia сохраняет медиафайл сабмишена и регистрирует его в БД
func (s *submissionService) UploadMedia(ctx context.Context, submissionID int64, kind, filename string, data []byte) (string, error) {
	var subdir string
	switch kind {
	case domain.MediaKindImage:
		subdir = "images"
	case domain.MediaKindVideo:
		subdir = "segments"
	default:
		return "", apperrors.ErrInvalidMediaKind
	}

	if _, err := s.submissionRepo.GetByID(ctx, submissionID); err != nil {
		return "", err
	}

	path, err := s.store.SaveBytes(submissionID, subdir, filename, data)
	if err != nil {
		s.log.Error("failed to save media file", "submission_id", submissionID, "filename", filename, "error", err)
		return "", err
	}

	file := &domain.MediaFile{
		SubmissionID: submissionID,
		Type:         kind,
		Path:         path,
	}
	if err := s.submissionRepo.AddMediaFile(ctx, file); err != nil {
		return "", err
	}

	s.log.Info("media uploaded", "submission_id", submissionID, "kind", kind, "path", path)
	return path, nil
}

func (s *submissionService) SaveAnswer(ctx context.Context, submissionID int64, answer *domain.Answer) error {
	if answer.Answer != domain.AnswerYes && answer.Answer != domain.AnswerNo {
		return apperrors.ErrInvalidAnswer
	}
	if answer.FaceScore < 0 || answer.FaceScore > 100 {
		return apperrors.ErrInvalidFaceScore
	}

	if _, err := s.submissionRepo.GetByID(ctx, submissionID); err != nil {
		return err
	}

	answer.SubmissionID = submissionID
	if err := s.submissionRepo.SaveAnswer(ctx, answer); err != nil {
		return err
	}

	s.monitor.Publish(MonitorEvent{
		Type:         MonitorEventAnswerSaved,
		SubmissionID: submissionID,
		QuestionID:   answer.QuestionID,
		FaceScore:    answer.FaceScore,
	})
	s.log.Info("answer saved", "submission_id", submissionID, "question_id", answer.QuestionID,
		"face_score", answer.FaceScore)
	return nil
}

// Complete закрывает сабмишен при ровно пяти ответах,
// итоговый балл - округленное среднее face_score
func (s *submissionService) Complete(ctx context.Context, submissionID int64) (*domain.Submission, error) {
	sub, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	answers, err := s.submissionRepo.ListAnswers(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if len(answers) != domain.RequiredQuestionCount {
		return nil, apperrors.ErrQuestionCount
	}

	sum := 0
	for _, a := range answers {
		sum += a.FaceScore
	}
	overall := int(math.Round(float64(sum) / float64(len(answers))))

	completedAt := time.Now()
	if err := s.submissionRepo.Complete(ctx, submissionID, completedAt, overall); err != nil {
		return nil, err
	}
	sub.CompletedAt = &completedAt
	sub.OverallScore = &overall

	s.monitor.Publish(MonitorEvent{
		Type:         MonitorEventCompleted,
		SubmissionID: submissionID,
		OverallScore: overall,
	})
	s.log.Info("submission completed", "submission_id", submissionID, "overall_score", overall)
	return sub, nil
}

// parseUserAgent выделяет тип устройства, браузер и ОС из строки User-Agent
func parseUserAgent(raw string) (device, browser, osName string) {
	if raw == "" {
		return "", "", ""
	}

	ua := useragent.New(raw)

	switch {
	case ua.Mobile():
		device = "Mobile"
	default:
		device = "PC"
	}

	browser, _ = ua.Browser()
	osName = ua.OS()
	return device, browser, osName
}
