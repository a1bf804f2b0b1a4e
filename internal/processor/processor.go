package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/LJTian/SentimentHub/internal/collector"
	"github.com/LJTian/SentimentHub/internal/config"
)

// ProcessedNews 是写入存储层前的统一结构，作者已合并为一个字段，发布时间一定非零
type ProcessedNews struct {
	Title       string
	Author      string
	PublishDate time.Time
	Content     string
	URL         string
	ImageURL    string
	Sentiment   string
}

// Processor 负责批内去重与字段规范化
type Processor struct {
	now func() time.Time
}

func NewProcessor() *Processor {
	return &Processor{now: config.Now}
}

// WithClock 替换时间来源，测试用
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// Normalize 缺失的发布时间补为当前时间，作者列表按原顺序以 ", " 连接
func (p *Processor) Normalize(a collector.Article) ProcessedNews {
	var published time.Time
	if a.PublishDate != nil && !a.PublishDate.IsZero() {
		published = *a.PublishDate
	} else {
		published = p.now()
	}

	return ProcessedNews{
		Title:       strings.TrimSpace(a.Title),
		Author:      strings.Join(a.Authors, ", "),
		PublishDate: published,
		Content:     a.Content,
		URL:         a.URL,
		ImageURL:    a.ImageURL,
		Sentiment:   a.Sentiment,
	}
}

func (p *Processor) NormalizeAll(articles []collector.Article) []ProcessedNews {
	out := make([]ProcessedNews, 0, len(articles))
	for _, a := range articles {
		out = append(out, p.Normalize(a))
	}
	return out
}

// Dedupe 同一批次中 URL 重复的文章只保留第一次出现的那篇
func (p *Processor) Dedupe(articles []collector.Article) []collector.Article {
	out := make([]collector.Article, 0, len(articles))
	seen := make(map[string]struct{}, len(articles))

	for _, a := range articles {
		id := hashURL(a.URL)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, a)
	}
	return out
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
