package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SebastianBO/quant-platform-sub005/internal/model"
	"github.com/SebastianBO/quant-platform-sub005/internal/service"
)

type SessionHandler struct {
	researchService *service.ResearchService
}

func NewSessionHandler(researchService *service.ResearchService) *SessionHandler {
	return &SessionHandler{
		researchService: researchService,
	}
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.researchService.CreateSession(req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessionResponse(session))
}

func (h *SessionHandler) GetSessions(c *gin.Context) {
	sessions, err := h.researchService.GetAllSessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]model.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, sessionResponse(session))
	}

	c.JSON(http.StatusOK, gin.H{"sessions": resp})
}

func (h *SessionHandler) GetSessionMessages(c *gin.Context) {
	sessionID := c.Param("id")

	messages, err := h.researchService.GetSessionMessages(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *SessionHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.researchService.DeleteSession(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *SessionHandler) ClearSessions(c *gin.Context) {
	if err := h.researchService.ClearAllSessions(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func sessionResponse(session *model.Session) model.SessionResponse {
	return model.SessionResponse{
		SessionID:    session.ID,
		Title:        session.Title,
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
		MessageCount: len(session.Messages),
	}
}
