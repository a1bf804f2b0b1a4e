package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/sentiment"
	"github.com/LJTian/SentimentHub/internal/storage"
	"github.com/gin-gonic/gin"
)

// Reader 只读查询接口，由 storage.Store 实现
type Reader interface {
	ListNews(ctx context.Context, page, perPage int) (*storage.Page, error)
	ListBySentiment(ctx context.Context, label string, page, perPage int) (*storage.Page, error)
	ListLatest(ctx context.Context, n int) ([]storage.News, error)
	ListFeedSources(ctx context.Context) ([]storage.FeedSource, error)
	ListRuns(ctx context.Context, limit int) ([]storage.IngestRun, error)
}

type Server struct {
	store    Reader
	baseURL  string
	pageSize int
}

func NewServer(store Reader, cfg *config.Config) *Server {
	return &Server{store: store, baseURL: cfg.PublicBaseURL, pageSize: cfg.PageSize}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/news", s.listNews)
		v1.GET("/news/latest", s.listLatest)
		v1.GET("/news/sentiment/:label", s.listBySentiment)
		v1.GET("/feeds", s.listFeeds)
		v1.GET("/runs", s.listRuns)
	}

	r.GET("/rss/:label", s.rss)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

func internalError(c *gin.Context) {
	fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (s *Server) listNews(c *gin.Context) {
	page, err := s.store.ListNews(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "per_page", s.pageSize))
	if err != nil {
		internalError(c)
		return
	}
	ok(c, page)
}

func (s *Server) listBySentiment(c *gin.Context) {
	label := c.Param("label")
	if !sentiment.IsLabel(label) {
		fail(c, http.StatusBadRequest, "invalid_label", "label must be one of positive, neutral, negative")
		return
	}
	page, err := s.store.ListBySentiment(c.Request.Context(), label, queryInt(c, "page", 1), queryInt(c, "per_page", s.pageSize))
	if err != nil {
		if errors.Is(err, storage.ErrInvalidSentiment) {
			fail(c, http.StatusBadRequest, "invalid_label", err.Error())
			return
		}
		internalError(c)
		return
	}
	ok(c, page)
}

func (s *Server) listLatest(c *gin.Context) {
	items, err := s.store.ListLatest(c.Request.Context(), queryInt(c, "limit", 3))
	if err != nil {
		internalError(c)
		return
	}
	ok(c, items)
}

func (s *Server) listFeeds(c *gin.Context) {
	items, err := s.store.ListFeedSources(c.Request.Context())
	if err != nil {
		internalError(c)
		return
	}
	ok(c, items)
}

func (s *Server) listRuns(c *gin.Context) {
	items, err := s.store.ListRuns(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		internalError(c)
		return
	}
	ok(c, items)
}
