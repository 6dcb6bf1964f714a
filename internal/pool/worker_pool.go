// Package pool 提供有界的 goroutine 工作池，websocket 连接用它并发处理消息帧。
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrPoolClosed = errors.New("pool is closed")
	ErrPoolFull   = errors.New("pool is full")
)

// Task 一个工作单元
type Task func(ctx context.Context) error

// Config 工作池配置
type Config struct {
	// 最大 worker 数
	MaxWorkers int `json:"max_workers"`
	// 排队上限，超出时 Submit 返回 ErrPoolFull
	QueueSize int `json:"queue_size"`
	// worker 空闲多久后退出（至少保留一个）
	IdleTimeout time.Duration `json:"idle_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxWorkers:  4,
		QueueSize:   16,
		IdleTimeout: 30 * time.Second,
	}
}

type job struct {
	task Task
	ctx  context.Context
}

// WorkerPool 按需拉起 worker，队列满时拒绝而不是阻塞调用方
type WorkerPool struct {
	cfg    Config
	queue  chan job
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	workers   atomic.Int32
	active    atomic.Int32
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
}

// New 创建工作池，非法配置回落到默认值
func New(cfg Config, logger *zap.Logger) *WorkerPool {
	def := DefaultConfig()
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = def.MaxWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		cfg:    cfg,
		queue:  make(chan job, cfg.QueueSize),
		logger: logger.With(zap.String("component", "worker_pool")),
	}
}

// Submit 提交任务，不等待执行结果
func (p *WorkerPool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	p.submitted.Add(1)

	j := job{task: task, ctx: ctx}
	select {
	case p.queue <- j:
		p.ensureWorker()
		return nil
	default:
	}

	// 队列已满，尝试扩容一个 worker 再投递一次
	if p.trySpawn() {
		select {
		case p.queue <- j:
			return nil
		default:
		}
	}
	p.rejected.Add(1)
	return ErrPoolFull
}

func (p *WorkerPool) ensureWorker() {
	if p.active.Load() >= p.workers.Load() {
		p.trySpawn()
	}
}

func (p *WorkerPool) trySpawn() bool {
	for {
		current := p.workers.Load()
		if current >= int32(p.cfg.MaxWorkers) {
			return false
		}
		if p.workers.CompareAndSwap(current, current+1) {
			p.wg.Add(1)
			go p.work()
			return true
		}
	}
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	defer p.workers.Add(-1)

	timer := time.NewTimer(p.cfg.IdleTimeout)
	defer timer.Stop()

	for {
		select {
		case j, ok := <-p.queue:
			if !ok {
				return
			}
			p.active.Add(1)
			err := p.run(j)
			p.active.Add(-1)
			if err != nil {
				p.failed.Add(1)
			} else {
				p.completed.Add(1)
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.cfg.IdleTimeout)

		case <-timer.C:
			if p.workers.Load() > 1 {
				return
			}
			timer.Reset(p.cfg.IdleTimeout)
		}
	}
}

func (p *WorkerPool) run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", zap.Any("panic", r))
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return j.task(j.ctx)
}

// Close 停止接收新任务，等待已排队的任务执行完
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// Stats 工作池统计
type Stats struct {
	Workers   int   `json:"workers"`
	Active    int   `json:"active"`
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
}

// Stats 返回当前统计
func (p *WorkerPool) Stats() Stats {
	return Stats{
		Workers:   int(p.workers.Load()),
		Active:    int(p.active.Load()),
		Queued:    len(p.queue),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
	}
}
