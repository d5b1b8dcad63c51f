package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SebastianBO/quant-platform-sub005/internal/model"
	"github.com/SebastianBO/quant-platform-sub005/internal/research"
	"github.com/SebastianBO/quant-platform-sub005/internal/service"
	"github.com/SebastianBO/quant-platform-sub005/internal/utils"
	"github.com/SebastianBO/quant-platform-sub005/pkg/logger"
)

type ChatHandler struct {
	researchService *service.ResearchService
}

func NewChatHandler(researchService *service.ResearchService) *ChatHandler {
	return &ChatHandler{
		researchService: researchService,
	}
}

// StreamAutonomous handles POST /api/chat/autonomous. It runs one research
// pass and streams its events as data-only SSE frames, ending with the
// [DONE] sentinel.
func (h *ChatHandler) StreamAutonomous(c *gin.Context) {
	var req model.AutonomousChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sseWriter, err := utils.NewSSEWriter(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	events, errChan := h.researchService.StreamResearch(ctx, req.SessionID, req.Query, req.ConversationHistory)

	for ev := range events {
		payload, err := ev.Encode()
		if err != nil {
			logger.Errorf("failed to encode stream event: %v", err)
			continue
		}
		if err := sseWriter.WriteData(payload); err != nil {
			// Client went away; drain the runner and stop writing.
			logger.Warnf("sse write failed: %v", err)
			for range events {
			}
			return
		}
	}

	if err := <-errChan; err != nil {
		logger.Errorf("research stream failed: %v", err)
		if payload, encErr := (research.Event{Type: research.EventError}).Encode(); encErr == nil {
			sseWriter.WriteData(payload)
		}
	}

	sseWriter.Close()
}
