package app

import (
	"context"
	"log"

	"github.com/LJTian/SentimentHub/internal/collector"
	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/pipeline"
	"github.com/LJTian/SentimentHub/internal/processor"
	"github.com/LJTian/SentimentHub/internal/sentiment"
	"github.com/LJTian/SentimentHub/internal/storage"
)

// Build 打开存储、登记订阅源并组装采集流水线，cmd/api 与 cmd/collect 共用
func Build(ctx context.Context, cfg *config.Config) (*storage.Store, *pipeline.Pipeline, error) {
	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}

	// 确保各个订阅源存在
	for _, f := range cfg.Feeds {
		if _, err := store.EnsureFeedSource(ctx, f.Name, f.URL); err != nil {
			log.Printf("warn: ensure feed source %s failed: %v", f.URL, err)
		}
	}

	opener := &sentiment.ArtifactOpener{
		Region:       cfg.S3Region,
		UsePathStyle: cfg.S3UsePathStyle,
		Endpoint:     cfg.S3Endpoint,
	}
	p := pipeline.New(
		collector.NewFeedReader(cfg.FeedTimeout, cfg.UserAgent),
		collector.NewArticleExtractor(cfg.FetchTimeout, cfg.UserAgent),
		sentiment.NewLoader(opener, cfg.VectorizerURI, cfg.ClassifierURI),
		processor.NewProcessor(),
		store,
		cfg.URLs(),
		cfg.FetchWorkers,
	)
	return store, p, nil
}
