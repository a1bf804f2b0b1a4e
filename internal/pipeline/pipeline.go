package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/SentimentHub/internal/collector"
	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/processor"
	"github.com/LJTian/SentimentHub/internal/sentiment"
	"github.com/LJTian/SentimentHub/internal/storage"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// 失败阶段，写入日志与运行记录
const (
	StageLoadModels = "load_models"
	StagePersist    = "persist"
	StagePanic      = "panic"
)

type FeedReader interface {
	Read(ctx context.Context, feedURL string) []collector.RawEntry
}

type ModelLoader interface {
	Load(ctx context.Context) (*sentiment.Models, error)
}

// Store 流水线唯一的写入方
type Store interface {
	Persist(ctx context.Context, items []processor.ProcessedNews) (int, error)
	MarkFetched(ctx context.Context, url string, at time.Time) error
	RecordRun(ctx context.Context, run *storage.IngestRun) error
}

type Pipeline struct {
	reader    FeedReader
	extractor collector.Extractor
	models    ModelLoader
	processor *processor.Processor
	store     Store
	feeds     []string
	workers   int
}

func New(reader FeedReader, ex collector.Extractor, models ModelLoader, p *processor.Processor, store Store, feeds []string, workers int) *Pipeline {
	return &Pipeline{
		reader:    reader,
		extractor: ex,
		models:    models,
		processor: p,
		store:     store,
		feeds:     feeds,
		workers:   workers,
	}
}

// FeedReport 单个订阅源的处理结果
type FeedReport struct {
	FeedURL   string `json:"feedUrl"`
	Entries   int    `json:"entries"`
	Extracted int    `json:"extracted"`
	Inserted  int    `json:"inserted"`
	Stage     string `json:"stage,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Report 一轮完整采集的结果
type Report struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Inserted    int
	FailedFeeds int
	Aborted     bool
	Feeds       []FeedReport
}

// Run 依次处理所有订阅源；某个源失败不影响后续源，模型加载失败则整轮中止且不写入任何数据
func (p *Pipeline) Run(ctx context.Context) Report {
	rep := Report{
		RunID:     uuid.NewString(),
		StartedAt: config.Now(),
	}
	log.Printf("run=%s start collect job, feeds=%d", rep.RunID, len(p.feeds))

	models, err := p.models.Load(ctx)
	if err != nil {
		log.Printf("run=%s stage=%s aborted: %v", rep.RunID, StageLoadModels, err)
		rep.Aborted = true
		rep.FinishedAt = config.Now()
		p.record(ctx, rep, StageLoadModels, err)
		return rep
	}

	for _, feedURL := range p.feeds {
		if ctx.Err() != nil {
			log.Printf("run=%s cancelled before feed=%s", rep.RunID, feedURL)
			break
		}
		fr := p.safeRunFeed(ctx, feedURL, models)
		if fr.Error != "" {
			rep.FailedFeeds++
			log.Printf("run=%s feed=%s stage=%s failed: %s", rep.RunID, feedURL, fr.Stage, fr.Error)
		} else {
			log.Printf("run=%s feed=%s done, entries=%d extracted=%d inserted=%d", rep.RunID, feedURL, fr.Entries, fr.Extracted, fr.Inserted)
		}
		rep.Inserted += fr.Inserted
		rep.Feeds = append(rep.Feeds, fr)
	}

	rep.FinishedAt = config.Now()
	log.Printf("run=%s collect job done, inserted=%d failed_feeds=%d took=%s", rep.RunID, rep.Inserted, rep.FailedFeeds, rep.FinishedAt.Sub(rep.StartedAt))
	p.record(ctx, rep, "", nil)
	return rep
}

// safeRunFeed 将单个源的 panic 转为失败记录
func (p *Pipeline) safeRunFeed(ctx context.Context, feedURL string, models *sentiment.Models) (fr FeedReport) {
	defer func() {
		if r := recover(); r != nil {
			fr = FeedReport{FeedURL: feedURL, Stage: StagePanic, Error: fmt.Sprint(r)}
		}
	}()
	return p.RunFeed(ctx, feedURL, models)
}

// RunFeed 单个源：读取 → 抽取 → 批内去重 → 打分 → 规范化 → 入库
func (p *Pipeline) RunFeed(ctx context.Context, feedURL string, models *sentiment.Models) FeedReport {
	fr := FeedReport{FeedURL: feedURL}

	entries := p.reader.Read(ctx, feedURL)
	fr.Entries = len(entries)
	if len(entries) == 0 {
		return fr
	}

	articles := collector.ExtractAll(ctx, p.extractor, entries, p.workers)
	articles = p.processor.Dedupe(articles)
	fr.Extracted = len(articles)
	if len(articles) == 0 {
		return fr
	}

	scored := sentiment.Classify(articles, models)
	batch := p.processor.NormalizeAll(scored)

	n, err := p.store.Persist(ctx, batch)
	fr.Inserted = n
	if err != nil {
		fr.Stage = StagePersist
		fr.Error = err.Error()
		return fr
	}

	if err := p.store.MarkFetched(ctx, feedURL, config.Now()); err != nil {
		log.Printf("feed=%s mark fetched failed: %v", feedURL, err)
	}
	return fr
}

func (p *Pipeline) record(ctx context.Context, rep Report, stage string, cause error) {
	stats := datatypes.JSONMap{}
	for _, fr := range rep.Feeds {
		stats[fr.FeedURL] = fr
	}
	if cause != nil {
		stats["error"] = map[string]any{"stage": stage, "message": cause.Error()}
	}

	run := &storage.IngestRun{
		RunID:       rep.RunID,
		StartedAt:   rep.StartedAt,
		FinishedAt:  rep.FinishedAt,
		Inserted:    rep.Inserted,
		FailedFeeds: rep.FailedFeeds,
		Aborted:     rep.Aborted,
		Stats:       stats,
	}
	if err := p.store.RecordRun(ctx, run); err != nil {
		log.Printf("run=%s record run failed: %v", rep.RunID, err)
	}
}
