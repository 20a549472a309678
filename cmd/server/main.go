// Package main runs the livestream control-plane HTTP server.
package main

import (
	"context"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumina-live/backend/config"
	"github.com/lumina-live/backend/internal/livestream"
	"github.com/lumina-live/backend/internal/metrics"
	"github.com/lumina-live/backend/internal/middleware"
	"github.com/lumina-live/backend/internal/tokens"
	"github.com/lumina-live/backend/internal/twilio"
	"github.com/lumina-live/backend/web"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	staticFS, err := web.Static()
	if err != nil {
		logger.Fatal("static assets", zap.Error(err))
	}

	client := twilio.NewClient(cfg.Twilio, logger)
	signer := twilio.NewTokenSigner(cfg.Twilio)

	met := metrics.New()
	orchestrator := livestream.NewService(client, logger)
	livestreamHandler := livestream.NewHandler(orchestrator, logger, met)
	issuer := tokens.NewIssuer(client, signer, logger)
	tokensHandler := tokens.NewHandler(issuer, logger, met)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(met.RequestMiddleware())

	router.GET("/", servePage(staticFS, "index.html"))
	router.GET("/stream", servePage(staticFS, "stream.html"))
	router.GET("/watch", servePage(staticFS, "watch.html"))

	router.POST("/start", livestreamHandler.Start)
	router.POST("/end", livestreamHandler.End)
	router.POST("/streamerToken", tokensHandler.StreamerToken)
	router.POST("/audienceToken", tokensHandler.AudienceToken)

	router.GET("/metrics", gin.WrapH(met.Handler()))
	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func servePage(staticFS fs.FS, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := fs.ReadFile(staticFS, name)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
