package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/SebastianBO/quant-platform-sub005/internal/agent"
	"github.com/SebastianBO/quant-platform-sub005/internal/config"
	"github.com/SebastianBO/quant-platform-sub005/internal/handler"
	"github.com/SebastianBO/quant-platform-sub005/internal/market"
	"github.com/SebastianBO/quant-platform-sub005/internal/service"
	"github.com/SebastianBO/quant-platform-sub005/pkg/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	marketClient := market.NewClient(cfg.Market.BaseURL, cfg.Market.APIKey, cfg.Market.Timeout)
	marketService := market.NewService(marketClient, cfg.Market.CacheTTL)

	var llm agent.LLM
	if cfg.OpenAI.APIKey != "" {
		llm = agent.NewOpenAILLM(cfg.OpenAI)
	} else {
		logger.Warn("no OpenAI API key configured, using the deterministic mock model")
		llm = &agent.MockLLM{}
	}

	runner := agent.NewRunner(llm, agent.DefaultTools(marketService), cfg.Research.MaxTasks)
	researchService := service.NewResearchService(cfg, runner)

	chatHandler := handler.NewChatHandler(researchService)
	sessionHandler := handler.NewSessionHandler(researchService)
	stockHandler := handler.NewStockHandler(marketService)

	router := setupRouter(cfg, chatHandler, sessionHandler, stockHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("server listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	if err := server.Close(); err != nil {
		logger.Errorf("server shutdown failed: %v", err)
	}
	logger.Info("server stopped")
}

func setupRouter(cfg *config.Config, chatHandler *handler.ChatHandler, sessionHandler *handler.SessionHandler, stockHandler *handler.StockHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	api := router.Group("/api")
	{
		chat := api.Group("/chat")
		{
			chat.POST("/autonomous", chatHandler.StreamAutonomous)
		}

		sessions := api.Group("/sessions")
		{
			sessions.POST("", sessionHandler.CreateSession)
			sessions.GET("", sessionHandler.GetSessions)
			sessions.GET("/:id/messages", sessionHandler.GetSessionMessages)
			sessions.DELETE("/:id", sessionHandler.DeleteSession)
			sessions.DELETE("", sessionHandler.ClearSessions)
		}

		api.GET("/stock", stockHandler.GetStock)
		api.GET("/sectors", stockHandler.GetSectors)
		api.GET("/sectors/:slug/faq", stockHandler.GetSectorFAQ)
	}

	return router
}
