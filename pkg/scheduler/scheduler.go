// Package scheduler 基于 gocron/v2 运行后台维护任务，并记录每个任务最近一次执行的结果.
//
// 任务按名称唯一，同一任务不会并发执行. 管理接口通过 GetJobInfos 查询状态.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/metrics"
)

var (
	ErrJobExists   = errors.New("job already exists")
	ErrJobNotFound = errors.New("job not found")
)

// JobStatus 任务最近的状态.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled"
	StatusRunning   JobStatus = "running"
	StatusError     JobStatus = "error" // 上次执行失败，下次成功后恢复
)

// JobFunc 任务函数，返回的错误记录到任务状态与指标中.
type JobFunc func(ctx context.Context) error

// JobInfo 管理接口展示的任务快照.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CronExpr    string    `json:"cron_expr"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	Runs        int64     `json:"runs"`
	Failures    int64     `json:"failures"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type entry struct {
	job  gocron.Job
	info JobInfo
}

// Scheduler 按名称管理任务.
type Scheduler struct {
	cron   gocron.Scheduler
	logger zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	byID    map[uuid.UUID]string
}

// Option 调整调度器.
type Option func(*options)

type options struct {
	loc    *time.Location
	logger *zerolog.Logger
}

// WithLocation cron 表达式使用的时区，默认 UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

func NewScheduler(opts ...Option) (*Scheduler, error) {
	o := options{loc: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}

	logger := log.Logger().With().Str("component", "scheduler").Logger()
	if o.logger != nil {
		logger = *o.logger
	}

	cron, err := gocron.NewScheduler(gocron.WithLocation(o.loc))
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		cron:    cron,
		logger:  logger,
		entries: make(map[string]*entry),
		byID:    make(map[uuid.UUID]string),
	}, nil
}

// AddCron 注册 cron 任务（五段式，不含秒）. 上一次未结束时本次顺延.
func (s *Scheduler) AddCron(ctx context.Context, name, cronExpr string, fn JobFunc) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("job name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, name)
	}

	j, err := s.cron.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func(ctx context.Context) { s.run(ctx, name, fn) }, ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	now := time.Now()
	next, _ := j.NextRun()

	s.entries[name] = &entry{job: j, info: JobInfo{
		ID:        j.ID().String(),
		Name:      name,
		CronExpr:  cronExpr,
		NextRun:   next,
		Status:    StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	s.byID[j.ID()] = name

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("job added")

	return nil
}

// run 执行任务，panic 按失败处理.
func (s *Scheduler) run(ctx context.Context, name string, fn JobFunc) {
	start := time.Now()
	s.update(name, func(info *JobInfo) { info.Status = StatusRunning })

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()

		return fn(ctx)
	}()

	took := time.Since(start)

	s.update(name, func(info *JobInfo) {
		info.LastRun = start
		info.Runs++

		if err != nil {
			info.Failures++
			info.Status = StatusError
			info.Error = err.Error()

			return
		}

		info.Status = StatusScheduled
		info.Error = ""
		info.LastSuccess = time.Now()
	})

	result := "ok"
	if err != nil {
		result = "error"

		s.logger.Error().Err(err).Str("job", name).Dur("took", took).Msg("job failed")
	} else {
		s.logger.Debug().Str("job", name).Dur("took", took).Msg("job finished")
	}

	metrics.JobRuns.WithLabelValues(name, result).Inc()
}

func (s *Scheduler) update(name string, fn func(*JobInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[name]; ok {
		fn(&e.info)
		e.info.UpdatedAt = time.Now()
	}
}

// RunNow 立即触发一次，不影响原有调度.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return e.job.RunNow()
}

// GetJobInfo 按名称查询任务快照.
func (s *Scheduler) GetJobInfo(name string) (JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	if !ok {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return e.snapshot(), nil
}

// GetJobInfos 全部任务快照，按名称排序.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.entries))
	for _, e := range s.entries {
		infos = append(infos, e.snapshot())
	}

	slices.SortFunc(infos, func(a, b JobInfo) int { return strings.Compare(a.Name, b.Name) })

	return infos
}

// snapshot 下次执行时间从 gocron 实时读取.
func (e *entry) snapshot() JobInfo {
	info := e.info
	if next, err := e.job.NextRun(); err == nil {
		info.NextRun = next
	}

	return info
}

// RemoveJob 按任务 ID 移除.
func (s *Scheduler) RemoveJob(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	if err := s.cron.RemoveJob(id); err != nil {
		return err
	}

	delete(s.entries, name)
	delete(s.byID, id)

	s.logger.Info().Str("job", name).Msg("job removed")

	return nil
}

// StopJobs 暂停调度，可再次 Start.
func (s *Scheduler) StopJobs() error {
	return s.cron.StopJobs()
}

// JobsWaitingInQueue 等待执行的任务数.
func (s *Scheduler) JobsWaitingInQueue() int {
	return s.cron.JobsWaitingInQueue()
}

func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.cron.Jobs())).Msg("scheduler started")
	s.cron.Start()
}

// Stop 停止调度并等待运行中的任务结束.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}
