package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LJTian/SentimentHub/internal/processor"
	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "news.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s, err := NewStoreWithDB(db, nil)
	if err != nil {
		t.Fatalf("NewStoreWithDB: %v", err)
	}
	return s
}

func item(url, label string, published time.Time) processor.ProcessedNews {
	return processor.ProcessedNews{
		Title:       "title " + url,
		Author:      "A. Smith, B. Lee",
		PublishDate: published,
		Content:     "content " + url,
		URL:         url,
		ImageURL:    url + "/lead.jpg",
		Sentiment:   label,
	}
}

func TestPersistIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	batch := []processor.ProcessedNews{
		item("https://example.com/1", "positive", now),
		item("https://example.com/2", "neutral", now),
		item("https://example.com/3", "negative", now),
	}

	n, err := s.Persist(ctx, batch)
	if err != nil || n != 3 {
		t.Fatalf("first Persist = %d, %v; want 3, nil", n, err)
	}
	n, err = s.Persist(ctx, batch)
	if err != nil || n != 0 {
		t.Fatalf("second Persist = %d, %v; want 0, nil", n, err)
	}

	var count int64
	s.DB.Model(&News{}).Count(&count)
	if count != 3 {
		t.Fatalf("expected 3 stored rows, got %d", count)
	}
}

func TestPersistInsertsOnlyNewURL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	published := time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC)

	existing := item("https://example.com/url2", "negative", published)
	if _, err := s.Persist(ctx, []processor.ProcessedNews{existing}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	fresh := item("https://example.com/url1", "positive", published)
	changed := existing
	changed.Title = "should not overwrite"
	n, err := s.Persist(ctx, []processor.ProcessedNews{fresh, changed})
	if err != nil || n != 1 {
		t.Fatalf("Persist = %d, %v; want 1, nil", n, err)
	}

	var got News
	if err := s.DB.Where("url = ?", fresh.URL).First(&got).Error; err != nil {
		t.Fatalf("load url1: %v", err)
	}
	if got.Title != fresh.Title || got.Author != "A. Smith, B. Lee" || got.Content != fresh.Content ||
		got.ImageURL != fresh.ImageURL || got.Sentiment != "positive" || !got.PublishDate.Equal(published) {
		t.Fatalf("stored url1 row mismatch: %+v", got)
	}

	var old News
	if err := s.DB.Where("url = ?", existing.URL).First(&old).Error; err != nil {
		t.Fatalf("load url2: %v", err)
	}
	if old.Title != existing.Title {
		t.Fatalf("existing record must never be overwritten, got title %q", old.Title)
	}
}

func TestPersistRejectsInvalidSentimentKeepingPriorWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	batch := []processor.ProcessedNews{
		item("https://example.com/ok", "positive", now),
		item("https://example.com/bad", "", now),
		item("https://example.com/later", "neutral", now),
	}
	n, err := s.Persist(ctx, batch)
	if !errors.Is(err, ErrInvalidSentiment) {
		t.Fatalf("expected ErrInvalidSentiment, got %v", err)
	}
	if !strings.Contains(err.Error(), "https://example.com/bad") {
		t.Fatalf("error should name the url: %v", err)
	}
	if n != 1 {
		t.Fatalf("inserted = %d, want 1", n)
	}

	var count int64
	s.DB.Model(&News{}).Count(&count)
	if count != 1 {
		t.Fatalf("prior commit should stay and later items not be written, got %d rows", count)
	}
}

func TestPersistRejectsZeroPublishDate(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Persist(context.Background(), []processor.ProcessedNews{item("https://example.com/z", "neutral", time.Time{})})
	if err == nil {
		t.Fatalf("expected error for missing publish date")
	}
}

func seedNews(t *testing.T, s *Store) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	labels := []string{"positive", "negative", "positive", "neutral", "positive"}
	// 发布时间与插入顺序相反，用于区分两种排序
	for i, l := range labels {
		it := item(fmt.Sprintf("https://example.com/%d", i), l, base.Add(time.Duration(len(labels)-i)*time.Hour))
		if _, err := s.Persist(context.Background(), []processor.ProcessedNews{it}); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
}

func TestListNewsOrdersByIDDescAndPaginates(t *testing.T) {
	s := newTestStore(t)
	seedNews(t, s)
	ctx := context.Background()

	p, err := s.ListNews(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListNews: %v", err)
	}
	if p.Total != 5 || !p.HasNext || len(p.Items) != 2 {
		t.Fatalf("unexpected first page: total=%d hasNext=%v items=%d", p.Total, p.HasNext, len(p.Items))
	}
	if p.Items[0].URL != "https://example.com/4" || p.Items[1].URL != "https://example.com/3" {
		t.Fatalf("expected id desc order, got %q, %q", p.Items[0].URL, p.Items[1].URL)
	}

	last, err := s.ListNews(ctx, 3, 2)
	if err != nil {
		t.Fatalf("ListNews page 3: %v", err)
	}
	if len(last.Items) != 1 || last.HasNext {
		t.Fatalf("last page should hold 1 item and no next: %+v", last)
	}

	out, err := s.ListNews(ctx, 9, 2)
	if err != nil {
		t.Fatalf("ListNews out of range: %v", err)
	}
	if out.Items == nil || len(out.Items) != 0 {
		t.Fatalf("out-of-range page should be an empty list, got %+v", out.Items)
	}
}

func TestListBySentimentOrdersByPublishDate(t *testing.T) {
	s := newTestStore(t)
	seedNews(t, s)
	ctx := context.Background()

	p, err := s.ListBySentiment(ctx, "positive", 1, 10)
	if err != nil {
		t.Fatalf("ListBySentiment: %v", err)
	}
	if p.Total != 3 || len(p.Items) != 3 {
		t.Fatalf("expected 3 positive items, got total=%d len=%d", p.Total, len(p.Items))
	}
	for i := 1; i < len(p.Items); i++ {
		if p.Items[i].PublishDate.After(p.Items[i-1].PublishDate) {
			t.Fatalf("items not ordered by publish date desc")
		}
		if p.Items[i].Sentiment != "positive" {
			t.Fatalf("label filter leaked %q", p.Items[i].Sentiment)
		}
	}
	if p.Items[0].URL != "https://example.com/0" {
		t.Fatalf("newest publish date should come first, got %q", p.Items[0].URL)
	}

	if _, err := s.ListBySentiment(ctx, "bullish", 1, 10); !errors.Is(err, ErrInvalidSentiment) {
		t.Fatalf("expected ErrInvalidSentiment for unknown label, got %v", err)
	}
}

func TestListLatestDefaultsToThree(t *testing.T) {
	s := newTestStore(t)
	seedNews(t, s)

	list, err := s.ListLatest(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListLatest: %v", err)
	}
	if len(list) != 3 || list[0].URL != "https://example.com/4" {
		t.Fatalf("unexpected latest list: %+v", list)
	}
}

func TestFeedSourcesAndRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.EnsureFeedSource(ctx, "markets", "https://feeds.example/markets")
	if err != nil {
		t.Fatalf("EnsureFeedSource: %v", err)
	}
	b, err := s.EnsureFeedSource(ctx, "markets again", "https://feeds.example/markets")
	if err != nil || b.ID != a.ID {
		t.Fatalf("EnsureFeedSource should be idempotent: %v %d %d", err, a.ID, b.ID)
	}

	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if err := s.MarkFetched(ctx, a.URL, at); err != nil {
		t.Fatalf("MarkFetched: %v", err)
	}
	list, err := s.ListFeedSources(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListFeedSources = %v, %v", list, err)
	}
	if list[0].LastFetchedAt == nil || !list[0].LastFetchedAt.Equal(at) {
		t.Fatalf("LastFetchedAt = %v, want %v", list[0].LastFetchedAt, at)
	}

	run := &IngestRun{
		RunID:      "0b6f6a52-7f0e-4d7b-9d0a-3a1c2b7f9e10",
		StartedAt:  at,
		FinishedAt: at.Add(time.Minute),
		Inserted:   4,
		Stats:      datatypes.JSONMap{"https://feeds.example/markets": map[string]any{"inserted": 4}},
	}
	if err := s.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	runs, err := s.ListRuns(ctx, 5)
	if err != nil || len(runs) != 1 || runs[0].Inserted != 4 || runs[0].RunID != run.RunID {
		t.Fatalf("ListRuns = %+v, %v", runs, err)
	}
}

func TestBuildRSS(t *testing.T) {
	items := []News{
		{Title: "Stocks rally", URL: "https://example.com/1", Author: "A. Smith", Content: strings.Repeat("x", 600), PublishDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{Title: "Oil slips", URL: "https://example.com/2", PublishDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	out, err := BuildRSS(FeedMeta{Title: "SentimentHub positive", Link: "http://localhost:9000/rss/positive"}, items, time.Now())
	if err != nil {
		t.Fatalf("BuildRSS: %v", err)
	}
	for _, want := range []string{"<rss", "Stocks rally", "https://example.com/2", "SentimentHub positive"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rss output missing %q", want)
		}
	}
	if strings.Contains(out, strings.Repeat("x", 501)) {
		t.Fatalf("description should be truncated")
	}
}

func TestPersistTruncatesLongAuthor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	long := item("https://example.com/long-byline", "neutral", now)
	long.Author = strings.Repeat("记者", 300) // 600 个字符
	next := item("https://example.com/after", "positive", now)

	n, err := s.Persist(ctx, []processor.ProcessedNews{long, next})
	if err != nil || n != 2 {
		t.Fatalf("Persist = %d, %v; want 2, nil", n, err)
	}

	var got News
	if err := s.DB.Where("url = ?", long.URL).First(&got).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if runes := len([]rune(got.Author)); runes != authorMaxRunes {
		t.Fatalf("stored author has %d runes, want %d", runes, authorMaxRunes)
	}
	if !strings.HasPrefix(long.Author, got.Author) {
		t.Fatalf("truncated author should be a prefix of the original")
	}
}

func TestTruncateRunesDB(t *testing.T) {
	if got := truncateRunesDB("  A. Smith  ", 512); got != "A. Smith" {
		t.Fatalf("short value should only be trimmed: %q", got)
	}
	if got := truncateRunesDB("你好世界", 2); got != "你好" {
		t.Fatalf("truncateRunesDB = %q, want 你好", got)
	}
	if got := truncateRunesDB("abc", 0); got != "" {
		t.Fatalf("zero limit should give empty string, got %q", got)
	}
}
