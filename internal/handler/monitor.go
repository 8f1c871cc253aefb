package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"liveness_survey/internal/service"
	"liveness_survey/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // В продакшене нужно проверять origin
	},
}

type MonitorHandler struct {
	hub *service.MonitorHub
	log logger.Logger
}

func NewMonitorHandler(hub *service.MonitorHub, log logger.Logger) *MonitorHandler {
	return &MonitorHandler{hub: hub, log: log}
}

// Stream транслирует события прохождения сабмишена по websocket
func (h *MonitorHandler) Stream(c *gin.Context) {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.hub.Subscribe(submissionID)
	defer unsubscribe()

	// Читатель нужен только для обнаружения закрытия соединения
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case event := <-events:
			if err := conn.WriteJSON(event); err != nil {
				h.log.Warn("failed to write monitor event", "submission_id", submissionID, "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
