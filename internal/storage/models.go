package storage

import (
	"time"

	"gorm.io/datatypes"
)

// FeedSource 一个 RSS/Atom 订阅源，启动时由配置登记
type FeedSource struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"size:128" json:"name"`
	URL           string     `gorm:"size:1024;uniqueIndex" json:"url"`
	Status        string     `gorm:"size:32;index" json:"status"` // active / disabled
	LastFetchedAt *time.Time `json:"lastFetchedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// News 入库后不再修改；URL 唯一
type News struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"type:text" json:"title"`
	Author      string    `gorm:"size:512" json:"author"`
	PublishDate time.Time `gorm:"not null;index" json:"publishDate"`
	Content     string    `gorm:"type:text" json:"content"`
	URL         string    `gorm:"type:text;uniqueIndex" json:"url"`
	ImageURL    string    `gorm:"type:text" json:"imageUrl"`
	Sentiment   string    `gorm:"size:16;not null;index" json:"sentiment"`

	CreatedAt time.Time `json:"createdAt"`
}

// IngestRun 每轮采集的统计，Stats 中按源记录插入数与失败阶段
type IngestRun struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	RunID       string            `gorm:"size:36;uniqueIndex" json:"runId"`
	StartedAt   time.Time         `gorm:"index" json:"startedAt"`
	FinishedAt  time.Time         `json:"finishedAt"`
	Inserted    int               `json:"inserted"`
	FailedFeeds int               `json:"failedFeeds"`
	Aborted     bool              `json:"aborted"`
	Stats       datatypes.JSONMap `json:"stats"`
}
