package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liveness_survey/internal/domain"
	apperrors "liveness_survey/pkg/errors"
	"liveness_survey/pkg/logger"
)

type SurveyRepository interface {
	Create(ctx context.Context, title string) (*domain.Survey, error)
	GetByID(ctx context.Context, id int64) (*domain.Survey, error)
	AddQuestion(ctx context.Context, surveyID int64, text string, order int) (*domain.Question, error)
	CountQuestions(ctx context.Context, surveyID int64) (int, error)
	SetActive(ctx context.Context, surveyID int64, active bool) error
}

type surveyRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewSurveyRepository(db *pgxpool.Pool, log logger.Logger) SurveyRepository {
	return &surveyRepository{db: db, log: log}
}

func (r *surveyRepository) Create(ctx context.Context, title string) (*domain.Survey, error) {
	survey := &domain.Survey{Title: title, IsActive: false}

	query := `INSERT INTO surveys (title, is_active) VALUES ($1, FALSE) RETURNING id`
	if err := r.db.QueryRow(ctx, query, title).Scan(&survey.ID); err != nil {
		r.log.Error("failed to create survey", "error", err)
		return nil, err
	}
	return survey, nil
}

func (r *surveyRepository) GetByID(ctx context.Context, id int64) (*domain.Survey, error) {
	survey := &domain.Survey{}

	query := `SELECT id, title, is_active FROM surveys WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&survey.ID, &survey.Title, &survey.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSurveyNotFound
		}
		r.log.Error("failed to get survey", "survey_id", id, "error", err)
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, question_text, "order" FROM survey_questions WHERE survey_id = $1 ORDER BY "order"`, id)
	if err != nil {
		r.log.Error("failed to get survey questions", "survey_id", id, "error", err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.QuestionText, &q.Order); err != nil {
			return nil, err
		}
		survey.Questions = append(survey.Questions, q)
	}
	return survey, rows.Err()
}

func (r *surveyRepository) AddQuestion(ctx context.Context, surveyID int64, text string, order int) (*domain.Question, error) {
	question := &domain.Question{QuestionText: text, Order: order}

	query := `INSERT INTO survey_questions (survey_id, question_text, "order") VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.QueryRow(ctx, query, surveyID, text, order).Scan(&question.ID); err != nil {
		r.log.Error("failed to add question", "survey_id", surveyID, "error", err)
		return nil, err
	}
	return question, nil
}

func (r *surveyRepository) CountQuestions(ctx context.Context, surveyID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM survey_questions WHERE survey_id = $1`
	if err := r.db.QueryRow(ctx, query, surveyID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *surveyRepository) SetActive(ctx context.Context, surveyID int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE surveys SET is_active = $1 WHERE id = $2`, active, surveyID)
	if err != nil {
		r.log.Error("failed to update survey", "survey_id", surveyID, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSurveyNotFound
	}
	return nil
}
