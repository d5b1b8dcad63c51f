package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SebastianBO/quant-platform-sub005/internal/market"
)

type StockHandler struct {
	marketService *market.Service
}

func NewStockHandler(marketService *market.Service) *StockHandler {
	return &StockHandler{
		marketService: marketService,
	}
}

// GetStock handles GET /api/stock?ticker=AAPL.
func (h *StockHandler) GetStock(c *gin.Context) {
	ticker := c.Query("ticker")
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}

	data, err := h.marketService.GetStock(c.Request.Context(), ticker)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, data)
}

// GetSectors handles GET /api/sectors.
func (h *StockHandler) GetSectors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sectors": market.Sectors()})
}

// GetSectorFAQ handles GET /api/sectors/:slug/faq?ticker=AAPL. The ticker is
// optional; without it the FAQ falls back to sector-level figures only.
func (h *StockHandler) GetSectorFAQ(c *gin.Context) {
	slug := c.Param("slug")
	profile, ok := market.SectorBySlug(slug)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown sector: " + slug})
		return
	}

	var data *market.StockData
	if ticker := c.Query("ticker"); ticker != "" {
		var err error
		data, err = h.marketService.GetStock(c.Request.Context(), ticker)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"sector": profile,
		"faq":    market.SectorFAQ(profile, data),
	})
}
