package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"liveness_survey/internal/domain"
	"liveness_survey/internal/service"
	apperrors "liveness_survey/pkg/errors"
	"liveness_survey/pkg/logger"
)

// Лимит на размер одного загружаемого медиафайла
const maxUploadSize = 64 << 20 // 64 MiB

type SubmissionHandler struct {
	submissionService service.SubmissionService
	exportService     service.ExportService
	log               logger.Logger
}

func NewSubmissionHandler(submissionService service.SubmissionService, exportService service.ExportService, log logger.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		exportService:     exportService,
		log:               log,
	}
}

type SaveAnswerRequest struct {
	QuestionID    int64  `json:"question_id" binding:"required"`
	Answer        string `json:"answer" binding:"required"`
	FaceDetected  bool   `json:"face_detected"`
	FaceScore     *int   `json:"face_score" binding:"required"`
	FaceImagePath string `json:"face_image_path"`
}

// Start создает сабмишен по активному опросу: POST /api/surveys/:id/start
func (h *SubmissionHandler) Start(c *gin.Context) {
	surveyID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid survey ID"})
		return
	}

	sub, err := h.submissionService.Start(c.Request.Context(), surveyID, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"submission_id": sub.ID})
}

// UploadMedia принимает multipart-форму с полями kind, filename, file
func (h *SubmissionHandler) UploadMedia(c *gin.Context) {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	kind := c.PostForm("kind")
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file is too large"})
		return
	}

	filename := c.PostForm("filename")
	if filename == "" {
		filename = fileHeader.Filename
	}
	// Защита от path traversal в имени файла
	filename = filepath.Base(filename)

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize))
	if err != nil {
		h.log.Error("failed to read upload body", "submission_id", submissionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}

	path, err := h.submissionService.UploadMedia(c.Request.Context(), submissionID, kind, filename, data)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"path": path})
}

func (h *SubmissionHandler) SaveAnswer(c *gin.Context) {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	var req SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	answer := &domain.Answer{
		QuestionID:   req.QuestionID,
		Answer:       req.Answer,
		FaceDetected: req.FaceDetected,
		FaceScore:    *req.FaceScore,
	}
	if req.FaceImagePath != "" {
		answer.FaceImagePath = &req.FaceImagePath
	}

	if err := h.submissionService.SaveAnswer(c.Request.Context(), submissionID, answer); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"answer_id": answer.ID})
}

func (h *SubmissionHandler) Complete(c *gin.Context) {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	sub, err := h.submissionService.Complete(c.Request.Context(), submissionID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submission_id": sub.ID,
		"overall_score": sub.OverallScore,
	})
}

// Export собирает архив сабмишена и отдает его файлом
func (h *SubmissionHandler) Export(c *gin.Context) {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	zipPath, err := h.exportService.BuildZip(c.Request.Context(), submissionID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.FileAttachment(zipPath, fmt.Sprintf("submission_%d_export.zip", submissionID))
}
