package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"liveness_survey/pkg/logger"
)

type Repositories struct {
	Survey     SurveyRepository
	Submission SubmissionRepository
	RateLimit  RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		Survey:     NewSurveyRepository(db, log),
		Submission: NewSubmissionRepository(db, log),
		RateLimit:  NewRateLimitRepository(redis, log),
	}
}
