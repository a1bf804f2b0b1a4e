package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/SentimentHub/internal/api"
	"github.com/LJTian/SentimentHub/internal/app"
	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/scheduler"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, p, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	s, err := scheduler.New(cfg.CronSpec, p, cfg.StartupDelay)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start(ctx)

	// API
	r := gin.Default()
	api.NewServer(store, cfg).RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}
	go func() {
		log.Printf("starting api server at %s ...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server exit: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// 等待进行中的采集结束，超时则放弃；已提交的数据不受影响
	select {
	case <-s.Stop().Done():
	case <-shutdownCtx.Done():
		log.Println("collect job still running, exit without waiting")
	}
}
