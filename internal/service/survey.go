package service

import (
	"context"
	"strings"

	"liveness_survey/internal/domain"
	"liveness_survey/internal/repository"
	apperrors "liveness_survey/pkg/errors"
	"liveness_survey/pkg/logger"
)

type SurveyService interface {
	Create(ctx context.Context, title string) (*domain.Survey, error)
	Get(ctx context.Context, id int64) (*domain.Survey, error)
	AddQuestion(ctx context.Context, surveyID int64, text string) (*domain.Question, error)
	Publish(ctx context.Context, surveyID int64) (*domain.Survey, error)
}

type surveyService struct {
	surveyRepo repository.SurveyRepository
	log        logger.Logger
}

func NewSurveyService(surveyRepo repository.SurveyRepository, log logger.Logger) SurveyService {
	return &surveyService{surveyRepo: surveyRepo, log: log}
}

// Create создает опрос в неактивном состоянии, активация только через Publish
func (s *surveyService) Create(ctx context.Context, title string) (*domain.Survey, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.NewAPIError("title is required", 400)
	}

	survey, err := s.surveyRepo.Create(ctx, title)
	if err != nil {
		return nil, err
	}

	s.log.Info("survey created", "survey_id", survey.ID, "title", title)
	return survey, nil
}

func (s *surveyService) Get(ctx context.Context, id int64) (*domain.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	survey.Questions = survey.SortedQuestions()
	return survey, nil
}

func (s *surveyService) AddQuestion(ctx context.Context, surveyID int64, text string) (*domain.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewAPIError("question_text is required", 400)
	}

	if _, err := s.surveyRepo.GetByID(ctx, surveyID); err != nil {
		return nil, err
	}

	count, err := s.surveyRepo.CountQuestions(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if count >= domain.RequiredQuestionCount {
		return nil, apperrors.ErrQuestionLimitReached
	}

	question, err := s.surveyRepo.AddQuestion(ctx, surveyID, text, count+1)
	if err != nil {
		return nil, err
	}

	s.log.Info("question added", "survey_id", surveyID, "order", question.Order)
	return question, nil
}

// Publish активирует опрос, если в нем ровно пять вопросов
func (s *surveyService) Publish(ctx context.Context, surveyID int64) (*domain.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	if len(survey.Questions) != domain.RequiredQuestionCount {
		return nil, apperrors.ErrQuestionCount
	}

	if err := s.surveyRepo.SetActive(ctx, surveyID, true); err != nil {
		return nil, err
	}
	survey.IsActive = true

	s.log.Info("survey published", "survey_id", surveyID)
	return survey, nil
}
