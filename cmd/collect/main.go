package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LJTian/SentimentHub/internal/app"
	"github.com/LJTian/SentimentHub/internal/config"
)

// 一个仅执行一次采集任务的命令行入口：适合手动触发采集
func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, p, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	// 只执行一轮采集任务后退出
	rep := p.Run(ctx)
	if rep.Aborted {
		stop()
		os.Exit(1)
	}
	log.Printf("run=%s inserted=%d failed_feeds=%d", rep.RunID, rep.Inserted, rep.FailedFeeds)
}
