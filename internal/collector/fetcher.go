package collector

import (
	"context"
	"errors"
	"time"
)

// RawEntry 订阅源中的一条链接，抽取完成后即丢弃
type RawEntry struct {
	FeedURL string
	Link    string
	Title   string
}

// Article 流水线内部的文章结构，入库前会经过 processor 规范化
type Article struct {
	FeedURL string
	// Link 为订阅源给出的原始链接，URL 为抽取后的规范链接（去重键）
	Link        string
	Title       string
	Authors     []string
	PublishDate *time.Time
	Content     string
	URL         string
	ImageURL    string
	// Sentiment 打分完成前为空
	Sentiment string
}

// ErrEmptyPage 页面返回 2xx 但没有内容
var ErrEmptyPage = errors.New("empty page body")

// Extractor 抽象单篇文章抽取，便于测试替换
type Extractor interface {
	Extract(ctx context.Context, link string) (Article, error)
}
