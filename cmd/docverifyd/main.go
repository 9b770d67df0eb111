package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/docverify/internal/async"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/export"
	"github.com/joseph-ayodele/docverify/internal/extract"
	"github.com/joseph-ayodele/docverify/internal/llm/providers"
	"github.com/joseph-ayodele/docverify/internal/ocr"
	"github.com/joseph-ayodele/docverify/internal/pipeline"
	"github.com/joseph-ayodele/docverify/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := common.InitTracing(ctx, cfg.Tracing, logger)

	gw, err := providers.New(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to create llm gateway", "provider", cfg.LLM.Provider, "error", err)
		os.Exit(1)
	}

	cache, err := server.ConnectCache(ctx, cfg.Cache, logger)
	if err != nil {
		os.Exit(1)
	}
	defer server.CloseCache(cache, logger)

	if cfg.OCR.DocumentRoot == "" {
		cfg.OCR.DocumentRoot = "."
		logger.Warn("DOCUMENT_ROOT not set, restricting documents to the working directory")
	}
	extractor := extract.NewOCRAdapter(ocr.NewExtractor(ocr.ConfigFromCommon(cfg.OCR), logger), logger)
	processor := pipeline.NewDefaultProcessor(pipeline.ConfigFromCommon(cfg), gw, extractor, cache, logger)

	queue := async.NewRunQueue(processor, logger,
		async.WithQueueWorkers(4),
		async.WithQueueSize(128),
		async.WithRunTimeout(cfg.Server.RequestTimeout),
	)

	// gRPC health
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer, healthServer := server.NewGRPCServer(logger)
	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server stopped", "error", err)
		}
	}()

	// HTTP API
	api := server.NewQueryServer(queue, export.NewService(logger), cfg.Server.RequestTimeout, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("docverify listening", "addr", cfg.Server.HTTPAddr, "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown failed", "error", err)
	}
	logger.Info("stopped")
}
