package api

import (
	"net/http"

	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/sentiment"
	"github.com/LJTian/SentimentHub/internal/storage"
	"github.com/gin-gonic/gin"
)

const labelLatest = "latest"

// rss 按情感分类输出 RSS 2.0，latest 为最近写入的新闻
func (s *Server) rss(c *gin.Context) {
	label := c.Param("label")
	ctx := c.Request.Context()

	var (
		items []storage.News
		err   error
	)
	switch {
	case label == labelLatest:
		items, err = s.store.ListLatest(ctx, s.pageSize)
	case sentiment.IsLabel(label):
		var page *storage.Page
		page, err = s.store.ListBySentiment(ctx, label, 1, s.pageSize)
		if page != nil {
			items = page.Items
		}
	default:
		fail(c, http.StatusBadRequest, "invalid_label", "label must be one of positive, neutral, negative, latest")
		return
	}
	if err != nil {
		internalError(c)
		return
	}

	meta := storage.FeedMeta{
		Title:       "SentimentHub " + label + " news",
		Link:        s.baseURL + "/rss/" + label,
		Description: "Economy and market headlines classified as " + label,
	}
	out, err := storage.BuildRSS(meta, items, config.Now())
	if err != nil {
		internalError(c)
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(out))
}
