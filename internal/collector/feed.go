package collector

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const defaultFeedTimeout = 15 * time.Second

// FeedReader 拉取并解析 RSS/Atom 文档
type FeedReader struct {
	timeout   time.Duration
	userAgent string
}

func NewFeedReader(timeout time.Duration, userAgent string) *FeedReader {
	if timeout <= 0 {
		timeout = defaultFeedTimeout
	}
	return &FeedReader{timeout: timeout, userAgent: userAgent}
}

// Read 按文档顺序返回每个条目的链接。源不可达或格式错误时记录日志并返回空列表，不中断本轮采集。
func (r *FeedReader) Read(ctx context.Context, feedURL string) []RawEntry {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fp := gofeed.NewParser()
	if r.userAgent != "" {
		fp.UserAgent = r.userAgent
	}

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		log.Printf("feed read failed: feed=%s stage=read err=%v", feedURL, err)
		return nil
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := entryLink(item)
		if link == "" {
			continue
		}
		entries = append(entries, RawEntry{
			FeedURL: feedURL,
			Link:    link,
			Title:   strings.TrimSpace(item.Title),
		})
	}

	if len(entries) == 0 {
		log.Printf("feed %s got 0 entries", feedURL)
	}
	return entries
}

func entryLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	for _, l := range item.Links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}
