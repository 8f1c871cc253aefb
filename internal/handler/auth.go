package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"liveness_survey/internal/service"
	apperrors "liveness_survey/pkg/errors"
	"liveness_survey/pkg/logger"
)

type AuthHandler struct {
	authService service.AuthService
	log         logger.Logger
}

func NewAuthHandler(authService service.AuthService, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid login request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	response, err := h.authService.Login(c.Request.Context(), req.Password)
	if err != nil {
		h.log.Warn("admin login failed", "ip", c.ClientIP())
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	h.log.Info("admin logged in", "ip", c.ClientIP())
	c.JSON(http.StatusOK, response)
}
