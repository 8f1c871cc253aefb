package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"liveness_survey/internal/service"
	apperrors "liveness_survey/pkg/errors"
	"liveness_survey/pkg/logger"
)

type SurveyHandler struct {
	surveyService service.SurveyService
	log           logger.Logger
}

func NewSurveyHandler(surveyService service.SurveyService, log logger.Logger) *SurveyHandler {
	return &SurveyHandler{
		surveyService: surveyService,
		log:           log,
	}
}

type CreateSurveyRequest struct {
	Title string `json:"title" binding:"required"`
}

type AddQuestionRequest struct {
	QuestionText string `json:"question_text" binding:"required"`
}

func (h *SurveyHandler) Create(c *gin.Context) {
	var req CreateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	survey, err := h.surveyService.Create(c.Request.Context(), req.Title)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, survey)
}

func (h *SurveyHandler) Get(c *gin.Context) {
	surveyID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid survey ID"})
		return
	}

	survey, err := h.surveyService.Get(c.Request.Context(), surveyID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, survey)
}

func (h *SurveyHandler) AddQuestion(c *gin.Context) {
	surveyID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid survey ID"})
		return
	}

	var req AddQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	question, err := h.surveyService.AddQuestion(c.Request.Context(), surveyID, req.QuestionText)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, question)
}

func (h *SurveyHandler) Publish(c *gin.Context) {
	surveyID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid survey ID"})
		return
	}

	survey, err := h.surveyService.Publish(c.Request.Context(), surveyID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, survey)
}

func parseIDParam(c *gin.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}
