package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FeedSource 一个静态配置的 RSS/Atom 源
type FeedSource struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	CronSpec     string
	StartupDelay time.Duration

	Feeds []FeedSource

	// 模型文件：本地路径或 s3://bucket/key
	VectorizerURI  string
	ClassifierURI  string
	S3Region       string
	S3UsePathStyle bool
	// S3Endpoint 为空时使用 AWS 官方端点，可指向 MinIO 等兼容存储
	S3Endpoint string

	FetchWorkers int
	FetchTimeout time.Duration
	FeedTimeout  time.Duration
	UserAgent    string

	PublicBaseURL string
	PageSize      int
}

// 默认订阅源：经济与市场新闻
var defaultFeeds = []FeedSource{
	{Name: "cnbc-economy", URL: "https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=10000664"},
	{Name: "et-cfo-economy", URL: "https://cfo.economictimes.indiatimes.com/rss/economy"},
	{Name: "moneycontrol-market-reports", URL: "https://www.moneycontrol.com/rss/marketreports.xml"},
}

func Load() *Config {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "9000"),
		PostgresDSN:    getEnv("POSTGRES_DSN", "host=localhost user=sentimenthub password=sentimenthub dbname=sentimenthub port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6380"),
		CronSpec:       getEnv("CRON_SPEC", "@every 10m"),
		StartupDelay:   getEnvDuration("STARTUP_DELAY", 5*time.Second),
		VectorizerURI:  getEnv("VECTORIZER_URI", "models/tfidf_vectorizer.v1.json"),
		ClassifierURI:  getEnv("CLASSIFIER_URI", "models/news_sentiment.v1.json"),
		S3Region:       getEnv("S3_REGION", ""),
		S3UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		FetchWorkers:   getEnvInt("FETCH_WORKERS", 5),
		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 20*time.Second),
		FeedTimeout:    getEnvDuration("FEED_TIMEOUT", 15*time.Second),
		UserAgent:      getEnv("USER_AGENT", "SentimentHubBot/1.0"),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:9000"), "/"),
		PageSize:       getEnvInt("PAGE_SIZE", 10),
	}
	cfg.Feeds = loadFeeds()

	log.Printf("config loaded: port=%s cron=%s feeds=%d workers=%d", cfg.AppPort, cfg.CronSpec, len(cfg.Feeds), cfg.FetchWorkers)
	return cfg
}

// loadFeeds 优先级：FEEDS_FILE > FEED_URLS > 默认源
func loadFeeds() []FeedSource {
	if path := os.Getenv("FEEDS_FILE"); path != "" {
		feeds, err := readFeedsFile(path)
		if err != nil {
			log.Printf("config: cannot load feeds file %s: %v (falling back)", path, err)
		} else if len(feeds) > 0 {
			return feeds
		}
	}

	if raw := os.Getenv("FEED_URLS"); raw != "" {
		if feeds := parseFeedURLs(raw); len(feeds) > 0 {
			return feeds
		}
	}

	out := make([]FeedSource, len(defaultFeeds))
	copy(out, defaultFeeds)
	return out
}

func readFeedsFile(path string) ([]FeedSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Feeds []FeedSource `yaml:"feeds"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	feeds := make([]FeedSource, 0, len(doc.Feeds))
	for _, f := range doc.Feeds {
		f.URL = strings.TrimSpace(f.URL)
		if f.URL == "" {
			continue
		}
		if f.Name == "" {
			f.Name = f.URL
		}
		feeds = append(feeds, f)
	}
	return feeds, nil
}

func parseFeedURLs(raw string) []FeedSource {
	var feeds []FeedSource
	for _, part := range strings.Split(raw, ",") {
		u := strings.TrimSpace(part)
		if u == "" {
			continue
		}
		feeds = append(feeds, FeedSource{Name: u, URL: u})
	}
	return feeds
}

// URLs 按配置顺序返回源地址
func (c *Config) URLs() []string {
	urls := make([]string, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		urls = append(urls, f.URL)
	}
	return urls
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// Now returns current time, 方便后续做可测试封装
func Now() time.Time {
	return time.Now()
}
