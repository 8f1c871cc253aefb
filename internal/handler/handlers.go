package handler

import (
	"liveness_survey/internal/config"
	"liveness_survey/internal/service"
	"liveness_survey/pkg/logger"
)

type Handlers struct {
	Health     *HealthHandler
	Auth       *AuthHandler
	Survey     *SurveyHandler
	Submission *SubmissionHandler
	Monitor    *MonitorHandler
}

func NewHandlers(services *service.Services, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(cfg),
		Auth:       NewAuthHandler(services.Auth, log),
		Survey:     NewSurveyHandler(services.Survey, log),
		Submission: NewSubmissionHandler(services.Submission, services.Export, log),
		Monitor:    NewMonitorHandler(services.Monitor, log),
	}
}
