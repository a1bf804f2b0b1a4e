package collector

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
)

const defaultFetchTimeout = 20 * time.Second

// ArticleExtractor 下载文章页面并抽取标题、作者、发布时间、正文、主图和规范链接
type ArticleExtractor struct {
	timeout   time.Duration
	userAgent string
}

func NewArticleExtractor(timeout time.Duration, userAgent string) *ArticleExtractor {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &ArticleExtractor{timeout: timeout, userAgent: userAgent}
}

func (a *ArticleExtractor) Extract(ctx context.Context, link string) (Article, error) {
	if err := ctx.Err(); err != nil {
		return Article{}, err
	}

	pageURL, err := url.Parse(link)
	if err != nil || pageURL.Host == "" {
		return Article{}, fmt.Errorf("invalid link %q", link)
	}

	// colly 不允许重复访问同一 URL，每次抽取使用独立的 collector
	c := colly.NewCollector()
	if a.userAgent != "" {
		c.UserAgent = a.userAgent
	}
	c.WithTransport(contextTransport{ctx: ctx, base: http.DefaultTransport})
	c.SetRequestTimeout(a.timeout)

	var (
		body     []byte
		finalURL = pageURL
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		if r.Request != nil && r.Request.URL != nil {
			finalURL = r.Request.URL
		}
	})

	// 非 2xx 时 Visit 返回错误
	if err := c.Visit(link); err != nil {
		return Article{}, fmt.Errorf("fetch %s: %w", link, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return Article{}, ErrEmptyPage
	}

	return parseArticle(body, finalURL, link)
}

// contextTransport 把本轮采集的 ctx 绑定到 colly 发出的每个请求上，取消时在途下载立即中断
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// parseArticle 先读 meta 标签，缺失的字段再由 readability 补齐
func parseArticle(body []byte, pageURL *url.URL, link string) (Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Article{}, fmt.Errorf("parse html %s: %w", link, err)
	}

	art := Article{
		Link:     link,
		Title:    firstMeta(doc, "meta[property='og:title']", "meta[name='twitter:title']"),
		Authors:  metaAuthors(doc),
		ImageURL: firstMeta(doc, "meta[property='og:image']", "meta[name='twitter:image']", "meta[property='twitter:image']"),
		URL:      canonicalURL(doc, link),
	}
	if d, ok := metaPublishDate(doc); ok {
		art.PublishDate = &d
	}

	parsed, rerr := readability.FromReader(bytes.NewReader(body), pageURL)
	if rerr == nil {
		if art.Title == "" {
			art.Title = strings.TrimSpace(parsed.Title)
		}
		if len(art.Authors) == 0 {
			art.Authors = splitByline(parsed.Byline)
		}
		if art.ImageURL == "" {
			art.ImageURL = strings.TrimSpace(parsed.Image)
		}
		art.Content = collapseSpace(parsed.TextContent)
	}

	if art.Title == "" {
		art.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if art.Content == "" {
		art.Content = collapseSpace(firstMeta(doc, "meta[name='description']", "meta[property='og:description']"))
	}
	if art.ImageURL != "" {
		art.ImageURL = resolve(pageURL, art.ImageURL)
	}
	return art, nil
}

func firstMeta(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func metaAuthors(doc *goquery.Document) []string {
	var authors []string
	seen := map[string]bool{}
	doc.Find("meta[name='author'], meta[property='article:author'], meta[name='article:author']").Each(func(_ int, s *goquery.Selection) {
		v := strings.TrimSpace(s.AttrOr("content", ""))
		// article:author 有时是作者主页链接
		if v == "" || strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return
		}
		for _, name := range splitByline(v) {
			if !seen[name] {
				seen[name] = true
				authors = append(authors, name)
			}
		}
	})
	return authors
}

var bylineSep = regexp.MustCompile(`(?i)\s*,\s*|\s+and\s+|\s*&\s*`)

func splitByline(byline string) []string {
	byline = strings.TrimSpace(byline)
	if len(byline) > 3 && strings.EqualFold(byline[:3], "by ") {
		byline = byline[3:]
	}
	var out []string
	for _, part := range bylineSep.Split(byline, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func metaPublishDate(doc *goquery.Document) (time.Time, bool) {
	raw := firstMeta(doc,
		"meta[property='article:published_time']",
		"meta[name='article:published_time']",
		"meta[property='og:published_time']",
		"meta[itemprop='datePublished']",
		"meta[name='pubdate']",
		"meta[name='publishdate']",
		"meta[name='dc.date']",
		"meta[name='date']",
	)
	if raw == "" {
		raw = strings.TrimSpace(doc.Find("time[datetime]").First().AttrOr("datetime", ""))
	}
	if raw == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// canonicalURL 只接受绝对的 http(s) 规范链接，否则回退到订阅源给出的链接
func canonicalURL(doc *goquery.Document, link string) string {
	href, ok := doc.Find("link[rel='canonical']").First().Attr("href")
	if !ok {
		return link
	}
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return link
	}
	return u.String()
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
