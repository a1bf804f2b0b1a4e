package storage

import (
	"fmt"
	"time"

	"github.com/gorilla/feeds"
)

const rssDescriptionRunes = 500

// FeedMeta RSS 频道信息
type FeedMeta struct {
	Title       string
	Link        string
	Description string
}

// BuildRSS 将新闻列表渲染为 RSS 2.0
func BuildRSS(meta FeedMeta, items []News, now time.Time) (string, error) {
	feed := &feeds.Feed{
		Title:       meta.Title,
		Link:        &feeds.Link{Href: meta.Link},
		Description: meta.Description,
		Created:     now,
	}

	feed.Items = make([]*feeds.Item, 0, len(items))
	for _, n := range items {
		item := &feeds.Item{
			Title:       n.Title,
			Link:        &feeds.Link{Href: n.URL},
			Id:          n.URL,
			Description: truncateRunes(n.Content, rssDescriptionRunes),
			Created:     n.PublishDate,
		}
		if n.Author != "" {
			item.Author = &feeds.Author{Name: n.Author}
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("generate rss: %w", err)
	}
	return rss, nil
}

func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit]) + "…"
}
