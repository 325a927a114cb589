// Command fbastatusd exposes a read-only HTTP status surface over a
// run's output directory: health, per-supplier progress, and the C10
// output-verifier result, grounded on cmd/server/main.go's gin
// setup/graceful-shutdown idiom (retargeted from the teacher's
// Postgres-backed price API to this module's file-backed run state).
//
// @title FBA Arbitrage Status API
// @version 1.0
// @description Read-only status surface over one fbacli run's output directory.
// @BasePath /
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/rs/zerolog"

	_ "github.com/chri75252/simpler-fba-sub003/docs"
	"github.com/chri75252/simpler-fba-sub003/internal/middleware"
	"github.com/chri75252/simpler-fba-sub003/internal/statusapi"
)

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	outputRoot := flag.String("output-root", "./fba_output", "run output directory root, shared with fbacli")
	flag.Parse()

	logger := initLogger()
	logger.Info().Str("output_root", *outputRoot).Msg("starting fbastatusd")

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogMiddleware(&logger))
	router.Use(middleware.ServiceRateLimitMiddleware(20, 40))

	service := statusapi.New(*outputRoot, logger)
	router.GET("/health", service.Health)
	router.GET("/status/:supplier", service.Status)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", *addr).Msg("status server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("status server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down status server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("status server forced shutdown")
	}
}

func initLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stdout}
	return zerolog.New(output).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

func requestLogMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg(fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path))
	}
}
