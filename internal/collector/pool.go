package collector

import (
	"context"
	"log"
	"sync"
)

const defaultWorkers = 5

// ExtractAll 以固定并发数抽取所有条目，结果保持输入顺序；单条失败只记录日志并跳过
func ExtractAll(ctx context.Context, ex Extractor, entries []RawEntry, workers int) []Article {
	if len(entries) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = defaultWorkers
	}

	type slot struct {
		art Article
		ok  bool
	}

	var (
		wg    sync.WaitGroup
		sem   = make(chan struct{}, workers)
		slots = make([]slot, len(entries))
	)

	for i, e := range entries {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, e RawEntry) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("extract panic: feed=%s link=%s stage=extract err=%v", e.FeedURL, e.Link, r)
				}
			}()

			art, err := ex.Extract(ctx, e.Link)
			if err != nil {
				log.Printf("extract failed: feed=%s link=%s stage=extract err=%v", e.FeedURL, e.Link, err)
				return
			}
			art.FeedURL = e.FeedURL
			if art.Link == "" {
				art.Link = e.Link
			}
			if art.URL == "" {
				art.URL = e.Link
			}
			if art.Title == "" {
				art.Title = e.Title
			}
			// 各 goroutine 只写自己的下标，无需加锁
			slots[idx] = slot{art: art, ok: true}
		}(i, e)
	}
	wg.Wait()

	out := make([]Article, 0, len(entries))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.art)
		}
	}
	return out
}
