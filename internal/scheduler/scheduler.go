package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/LJTian/SentimentHub/internal/pipeline"
	"github.com/robfig/cron/v3"
)

// Runner 一轮完整采集
type Runner interface {
	Run(ctx context.Context) pipeline.Report
}

type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	delay  time.Duration

	// running 为运行锁：同一时刻只允许一轮采集，触发时若上一轮未结束则跳过
	running sync.Mutex
	wg      sync.WaitGroup

	// mu 保护 ctx、timer 与 stopped；wg.Add 也在 mu 下进行，避免与 Stop 中的 Wait 并发
	mu      sync.Mutex
	ctx     context.Context
	timer   *time.Timer
	stopped bool
}

func New(spec string, runner Runner, startupDelay time.Duration) (*Scheduler, error) {
	logger := cron.PrintfLogger(log.Default())
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)

	s := &Scheduler{
		cron:   c,
		runner: runner,
		delay:  startupDelay,
		ctx:    context.Background(),
	}

	_, err := c.AddFunc(spec, func() {
		s.RunOnce(s.baseContext())
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Start 启动定时器，并在 startupDelay 之后执行首轮采集
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.timer = time.AfterFunc(s.delay, func() {
		s.RunOnce(ctx)
	})
	s.mu.Unlock()

	s.cron.Start()
}

// RunOnce 对外暴露的单次执行入口；已有一轮在运行或调度已停止时直接返回 false
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		log.Println("scheduler stopped, skip this trigger")
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if !s.running.TryLock() {
		log.Println("collect job still running, skip this trigger")
		return false
	}
	defer s.running.Unlock()

	s.runner.Run(ctx)
	return true
}

// Stop 停止调度，返回的 context 在进行中的采集结束后关闭
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}
