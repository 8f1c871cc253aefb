package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate создает схему, если ее еще нет
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS surveys (
			id         BIGSERIAL PRIMARY KEY,
			title      TEXT NOT NULL,
			is_active  BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS survey_questions (
			id            BIGSERIAL PRIMARY KEY,
			survey_id     BIGINT NOT NULL REFERENCES surveys(id) ON DELETE CASCADE,
			question_text TEXT NOT NULL,
			"order"       INT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_survey_questions_survey_id ON survey_questions(survey_id)`,
		`CREATE TABLE IF NOT EXISTS survey_submissions (
			id            BIGSERIAL PRIMARY KEY,
			survey_id     BIGINT NOT NULL REFERENCES surveys(id) ON DELETE CASCADE,
			ip_address    VARCHAR(64),
			device        VARCHAR(64),
			browser       VARCHAR(64),
			os            VARCHAR(64),
			location      VARCHAR(128),
			started_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at  TIMESTAMPTZ,
			overall_score INT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_survey_submissions_survey_id ON survey_submissions(survey_id)`,
		`CREATE TABLE IF NOT EXISTS survey_answers (
			id              BIGSERIAL PRIMARY KEY,
			submission_id   BIGINT NOT NULL REFERENCES survey_submissions(id) ON DELETE CASCADE,
			question_id     BIGINT NOT NULL REFERENCES survey_questions(id) ON DELETE CASCADE,
			answer          VARCHAR(8) NOT NULL,
			face_detected   BOOLEAN NOT NULL DEFAULT FALSE,
			face_score      INT NOT NULL,
			face_image_path VARCHAR(500),
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_survey_answers_submission_id ON survey_answers(submission_id)`,
		`CREATE TABLE IF NOT EXISTS media_files (
			id            UUID PRIMARY KEY,
			submission_id BIGINT NOT NULL REFERENCES survey_submissions(id) ON DELETE CASCADE,
			type          VARCHAR(16) NOT NULL,
			path          VARCHAR(500) NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_media_files_submission_id ON media_files(submission_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
