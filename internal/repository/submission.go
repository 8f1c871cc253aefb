package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liveness_survey/internal/domain"
	apperrors "liveness_survey/pkg/errors"
	"liveness_survey/pkg/logger"
)

type SubmissionRepository interface {
	Create(ctx context.Context, sub *domain.Submission) error
	GetByID(ctx context.Context, id int64) (*domain.Submission, error)
	SaveAnswer(ctx context.Context, answer *domain.Answer) error
	ListAnswers(ctx context.Context, submissionID int64) ([]domain.Answer, error)
	AddMediaFile(ctx context.Context, file *domain.MediaFile) error
	ListMediaFiles(ctx context.Context, submissionID int64) ([]domain.MediaFile, error)
	Complete(ctx context.Context, submissionID int64, completedAt time.Time, overallScore int) error
}

type submissionRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewSubmissionRepository(db *pgxpool.Pool, log logger.Logger) SubmissionRepository {
	return &submissionRepository{db: db, log: log}
}

func (r *submissionRepository) Create(ctx context.Context, sub *domain.Submission) error {
	query := `INSERT INTO survey_submissions (survey_id, ip_address, device, browser, os, location)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, started_at`
	err := r.db.QueryRow(ctx, query,
		sub.SurveyID, sub.IPAddress, sub.Device, sub.Browser, sub.OS, sub.Location,
	).Scan(&sub.ID, &sub.StartedAt)
	if err != nil {
		r.log.Error("failed to create submission", "survey_id", sub.SurveyID, "error", err)
		return err
	}
	return nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id int64) (*domain.Submission, error) {
	sub := &domain.Submission{}

	query := `SELECT id, survey_id, ip_address, device, browser, os, location,
		started_at, completed_at, overall_score
		FROM survey_submissions WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&sub.ID, &sub.SurveyID, &sub.IPAddress, &sub.Device, &sub.Browser, &sub.OS,
		&sub.Location, &sub.StartedAt, &sub.CompletedAt, &sub.OverallScore,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSubmissionNotFound
		}
		r.log.Error("failed to get submission", "submission_id", id, "error", err)
		return nil, err
	}
	return sub, nil
}

func (r *submissionRepository) SaveAnswer(ctx context.Context, answer *domain.Answer) error {
	query := `INSERT INTO survey_answers (submission_id, question_id, answer, face_detected, face_score, face_image_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		answer.SubmissionID, answer.QuestionID, answer.Answer,
		answer.FaceDetected, answer.FaceScore, answer.FaceImagePath,
	).Scan(&answer.ID, &answer.CreatedAt)
	if err != nil {
		r.log.Error("failed to save answer", "submission_id", answer.SubmissionID, "error", err)
		return err
	}
	return nil
}

func (r *submissionRepository) ListAnswers(ctx context.Context, submissionID int64) ([]domain.Answer, error) {
	query := `SELECT a.id, a.submission_id, a.question_id, a.answer, a.face_detected,
		a.face_score, a.face_image_path, a.created_at
		FROM survey_answers a
		JOIN survey_questions q ON q.id = a.question_id
		WHERE a.submission_id = $1
		ORDER BY q."order"`
	rows, err := r.db.Query(ctx, query, submissionID)
	if err != nil {
		r.log.Error("failed to list answers", "submission_id", submissionID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var answers []domain.Answer
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.QuestionID, &a.Answer,
			&a.FaceDetected, &a.FaceScore, &a.FaceImagePath, &a.CreatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (r *submissionRepository) AddMediaFile(ctx context.Context, file *domain.MediaFile) error {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	query := `INSERT INTO media_files (id, submission_id, type, path) VALUES ($1, $2, $3, $4) RETURNING created_at`
	err := r.db.QueryRow(ctx, query, file.ID, file.SubmissionID, file.Type, file.Path).Scan(&file.CreatedAt)
	if err != nil {
		r.log.Error("failed to add media file", "submission_id", file.SubmissionID, "error", err)
		return err
	}
	return nil
}

func (r *submissionRepository) ListMediaFiles(ctx context.Context, submissionID int64) ([]domain.MediaFile, error) {
	query := `SELECT id, submission_id, type, path, created_at
		FROM media_files WHERE submission_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, submissionID)
	if err != nil {
		r.log.Error("failed to list media files", "submission_id", submissionID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var files []domain.MediaFile
	for rows.Next() {
		var f domain.MediaFile
		if err := rows.Scan(&f.ID, &f.SubmissionID, &f.Type, &f.Path, &f.CreatedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *submissionRepository) Complete(ctx context.Context, submissionID int64, completedAt time.Time, overallScore int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE survey_submissions SET completed_at = $1, overall_score = $2 WHERE id = $3`,
		completedAt, overallScore, submissionID)
	if err != nil {
		r.log.Error("failed to complete submission", "submission_id", submissionID, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSubmissionNotFound
	}
	return nil
}
