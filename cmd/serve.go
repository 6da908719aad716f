package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bptracker/internal/handlers"
	"bptracker/internal/ocr"
	"bptracker/internal/service"
	"bptracker/pkg/database"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("bptracker starting", zap.String("version", version))

	if err := a.connect(ctx, true); err != nil {
		return err
	}
	if err := database.Migrate(a.db, a.logger); err != nil {
		return err
	}

	engine, err := ocr.New(ctx, a.cfg.OCR.Config, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OCR engine: %w", err)
	}
	defer engine.Close()

	loc := a.cfg.Location()
	readingService := service.NewReadingService(a.readings, a.scans, engine, nil, a.reportCache,
		service.ReadingConfig{Location: loc, OCRTimeout: a.cfg.OCR.Timeout}, a.logger)
	reportService := service.NewReportService(a.readings, a.reportCache, loc, a.logger)

	if a.cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.Handlers{
		Readings: handlers.NewReadingHandler(readingService, loc, a.cfg.MaxUploadSizeBytes(), a.logger),
		Reports:  handlers.NewReportHandler(reportService, loc, a.logger),
		System:   handlers.NewSystemHandler(a.db, a.redisClient, a.readings, a.scans, engine.Name(), version, a.logger),
	}, handlers.RouterConfig{
		Debug:        a.cfg.App.Debug,
		AllowOrigins: []string{"http://localhost:3000", a.cfg.App.FrontendURL},
		RateLimit:    rate.Limit(a.cfg.RateLimit.RequestsPerSecond),
		Burst:        a.cfg.RateLimit.Burst,
	}, a.logger)

	server := &http.Server{
		Addr:         ":" + a.cfg.App.Port,
		Handler:      router,
		ReadTimeout:  a.cfg.App.ReadTimeout,
		WriteTimeout: a.cfg.App.WriteTimeout,
		IdleTimeout:  2 * a.cfg.App.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening",
			zap.String("addr", server.Addr),
			zap.String("ocr_engine", engine.Name()),
			zap.String("timezone", loc.String()),
			zap.Bool("report_cache", a.reportCache != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.logger.Info("server exited properly")
	return nil
}
