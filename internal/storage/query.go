package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/SentimentHub/internal/sentiment"
	"gorm.io/gorm"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
	defaultLatest  = 3
	listCacheTTL   = 5 * time.Minute
	// 每次有新数据写入时递增，作为缓存 key 的一部分，旧缓存自然过期
	generationKey = "news:gen"
)

// Page 分页结果；页码超出范围时 Items 为空
type Page struct {
	Items   []News `json:"items"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
	Total   int64  `json:"total"`
	HasNext bool   `json:"hasNext"`
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// ListNews 全部新闻，按 id 倒序分页
func (s *Store) ListNews(ctx context.Context, page, perPage int) (*Page, error) {
	page, perPage = normalizePage(page, perPage)
	key := fmt.Sprintf("news:%d:all:%d:%d", s.generation(ctx), page, perPage)

	return s.cachedPage(ctx, key, func() (*Page, error) {
		return s.queryPage(s.DB.WithContext(ctx).Model(&News{}), page, perPage, "id DESC")
	})
}

// ListBySentiment 指定情感的新闻，按发布时间倒序分页
func (s *Store) ListBySentiment(ctx context.Context, label string, page, perPage int) (*Page, error) {
	if !sentiment.IsLabel(label) {
		return nil, fmt.Errorf("%w %q", ErrInvalidSentiment, label)
	}
	page, perPage = normalizePage(page, perPage)
	key := fmt.Sprintf("news:%d:%s:%d:%d", s.generation(ctx), label, page, perPage)

	return s.cachedPage(ctx, key, func() (*Page, error) {
		q := s.DB.WithContext(ctx).Model(&News{}).Where("sentiment = ?", label)
		return s.queryPage(q, page, perPage, "publish_date DESC", "id DESC")
	})
}

// ListLatest 最近写入的 n 条
func (s *Store) ListLatest(ctx context.Context, n int) ([]News, error) {
	if n <= 0 {
		n = defaultLatest
	}
	if n > maxPerPage {
		n = maxPerPage
	}
	key := fmt.Sprintf("news:%d:latest:%d", s.generation(ctx), n)

	p, err := s.cachedPage(ctx, key, func() (*Page, error) {
		list := make([]News, 0, n)
		if err := s.DB.WithContext(ctx).Order("id DESC").Limit(n).Find(&list).Error; err != nil {
			return nil, err
		}
		return &Page{Items: list, Page: 1, PerPage: n, Total: int64(len(list))}, nil
	})
	if err != nil {
		return nil, err
	}
	return p.Items, nil
}

// queryPage 先计数再取当前页，排序只作用于取数
func (s *Store) queryPage(q *gorm.DB, page, perPage int, orders ...string) (*Page, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	items := make([]News, 0, perPage)
	offset := (page - 1) * perPage
	if int64(offset) < total {
		fq := q.Session(&gorm.Session{})
		for _, o := range orders {
			fq = fq.Order(o)
		}
		if err := fq.Offset(offset).Limit(perPage).Find(&items).Error; err != nil {
			return nil, err
		}
	}

	return &Page{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: int64(page*perPage) < total,
	}, nil
}

// cachedPage L2: Redis 缓存，未命中时回源数据库并回写
func (s *Store) cachedPage(ctx context.Context, key string, load func() (*Page, error)) (*Page, error) {
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, key).Bytes(); err == nil {
			var cached Page
			if err := json.Unmarshal(bs, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	p, err := load()
	if err != nil {
		return nil, err
	}

	if s.Redis != nil && len(p.Items) > 0 {
		if bs, err := json.Marshal(p); err == nil {
			_ = s.Redis.Set(ctx, key, bs, listCacheTTL).Err()
		}
	}
	return p, nil
}

func (s *Store) generation(ctx context.Context) int64 {
	if s.Redis == nil {
		return 0
	}
	// key 不存在（redis.Nil）时为 0
	gen, _ := s.Redis.Get(ctx, generationKey).Int64()
	return gen
}

func (s *Store) bumpGeneration(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	// 失败时旧缓存最多保留一个 TTL
	if err := s.Redis.Incr(ctx, generationKey).Err(); err != nil {
		log.Printf("warn: redis cache generation bump failed: %v", err)
	}
}
