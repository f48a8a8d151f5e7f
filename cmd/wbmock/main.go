package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/wb-tariffs/internal/infra/logger"
	"github.com/Spok95/wb-tariffs/internal/wb/mock"
)

func main() {
	log := logger.New(os.Getenv("APP_ENV"), os.Getenv("LOG_FORMAT"))

	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "3000"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mock.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("mock server error", "err", err)
			os.Exit(1)
		}
	}()
	log.Info("mock WB API started", "addr", srv.Addr, "path", "/api/v1/tariffs/box")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
