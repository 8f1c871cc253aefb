package service

import (
	"liveness_survey/internal/config"
	"liveness_survey/internal/repository"
	"liveness_survey/pkg/logger"
)

type Services struct {
	Auth       AuthService
	Survey     SurveyService
	Submission SubmissionService
	Export     ExportService
	RateLimit  RateLimitService
	Monitor    *MonitorHub
}

func NewServices(repos *repository.Repositories, cfg *config.Config, log logger.Logger) *Services {
	store := NewMediaStore(cfg.Media.Dir)
	geo := NewGeoLookup(cfg.Media.GeoProvider, log)
	monitor := NewMonitorHub(log)

	return &Services{
		Auth:       NewAuthService(cfg.Admin, cfg.JWT, log),
		Survey:     NewSurveyService(repos.Survey, log),
		Submission: NewSubmissionService(repos.Survey, repos.Submission, store, geo, monitor, log),
		Export:     NewExportService(repos.Survey, repos.Submission, store, cfg.Media.FFmpegPath, log),
		RateLimit:  NewRateLimitService(repos.RateLimit, log),
		Monitor:    monitor,
	}
}
