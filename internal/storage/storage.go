package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LJTian/SentimentHub/internal/processor"
	"github.com/LJTian/SentimentHub/internal/sentiment"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrInvalidSentiment 情感标签不在固定集合内，禁止入库
var ErrInvalidSentiment = errors.New("invalid sentiment label")

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed: %v", err)
		}
	}

	return NewStoreWithDB(db, rdb)
}

// NewStoreWithDB 使用已打开的连接并完成表结构迁移；rdb 可为 nil，此时不使用缓存
func NewStoreWithDB(db *gorm.DB, rdb *redis.Client) (*Store, error) {
	if err := db.AutoMigrate(&FeedSource{}, &News{}, &IngestRun{}); err != nil {
		return nil, err
	}
	return &Store{DB: db, Redis: rdb}, nil
}

// EnsureFeedSource 确保某个订阅源存在
func (s *Store) EnsureFeedSource(ctx context.Context, name, url string) (*FeedSource, error) {
	fs := &FeedSource{}
	if err := s.DB.WithContext(ctx).Where("url = ?", url).First(fs).Error; err == nil {
		return fs, nil
	}

	fs = &FeedSource{
		Name:   name,
		URL:    url,
		Status: "active",
	}
	if err := s.DB.WithContext(ctx).Create(fs).Error; err != nil {
		return nil, err
	}
	return fs, nil
}

// MarkFetched 记录订阅源最近一次成功入库的时间
func (s *Store) MarkFetched(ctx context.Context, url string, at time.Time) error {
	return s.DB.WithContext(ctx).Model(&FeedSource{}).
		Where("url = ?", url).
		Update("last_fetched_at", at).Error
}

func (s *Store) ListFeedSources(ctx context.Context) ([]FeedSource, error) {
	var list []FeedSource
	err := s.DB.WithContext(ctx).Order("id ASC").Find(&list).Error
	return list, err
}

func (s *Store) RecordRun(ctx context.Context, run *IngestRun) error {
	return s.DB.WithContext(ctx).Create(run).Error
}

// ListRuns 最近的采集记录，按开始时间倒序
func (s *Store) ListRuns(ctx context.Context, limit int) ([]IngestRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var list []IngestRun
	err := s.DB.WithContext(ctx).Order("started_at DESC").Order("id DESC").Limit(limit).Find(&list).Error
	return list, err
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// authorMaxRunes 与 News.Author 的列宽一致
const authorMaxRunes = 512

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度（例如 varchar(512)）
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

// Persist 逐条“先查后插”，每条一个事务，返回新插入条数。
// 已存在的 URL 直接跳过且不覆盖；写入失败立即返回，之前已提交的记录保留。
func (s *Store) Persist(ctx context.Context, items []processor.ProcessedNews) (int, error) {
	inserted := 0
	defer func() {
		if inserted > 0 {
			s.bumpGeneration(ctx)
		}
	}()

	for _, it := range items {
		if it.URL == "" {
			log.Printf("persist: skip article without url: title=%q", it.Title)
			continue
		}
		if !sentiment.IsLabel(it.Sentiment) {
			return inserted, fmt.Errorf("persist %s: %w %q", it.URL, ErrInvalidSentiment, it.Sentiment)
		}
		if it.PublishDate.IsZero() {
			return inserted, fmt.Errorf("persist %s: publish date is missing", it.URL)
		}

		row := &News{
			Title:       toValidUTF8(it.Title),
			Author:      truncateRunesDB(toValidUTF8(it.Author), authorMaxRunes),
			PublishDate: it.PublishDate,
			Content:     toValidUTF8(it.Content),
			URL:         it.URL,
			ImageURL:    it.ImageURL,
			Sentiment:   it.Sentiment,
		}

		created := false
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var n int64
			if err := tx.Model(&News{}).Where("url = ?", it.URL).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return nil
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			created = true
			return nil
		})
		if err != nil {
			return inserted, fmt.Errorf("persist %s: %w", it.URL, err)
		}
		if created {
			inserted++
		}
	}
	return inserted, nil
}
