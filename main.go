package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"nutrivision/pkg/config"
)

// serverShutdownTimeout bounds how long open HTTP requests may take to finish.
const serverShutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newEngine(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("NutriVision listening on %s (model %s at %s)", srv.Addr, cfg.LLM.Model, cfg.LLM.Endpoint)
		if cfg.DeviceTokenSecret == "" {
			log.Printf("WARN DEVICE_TOKEN_SECRET not set; uploads are not authenticated")
		}
		errCh <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	case <-ctx.Done():
		log.Printf("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Printf("WARN http shutdown: %v", err)
	}
	gctx, gcancel := context.WithTimeout(context.Background(), cfg.Dispatch.ShutdownGrace())
	defer gcancel()
	if err := a.close(gctx); err != nil {
		log.Printf("WARN abandoned in-flight analyses after %s: %v", cfg.Dispatch.ShutdownGrace(), err)
	}
	log.Printf("stopped")
}
