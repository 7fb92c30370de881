package workerpool

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Task 定义任务函数类型
type Task func()

// Pool 固定数量 worker 的任务池
// 关闭时先停止接收新任务，再等待队列中已有的任务执行完毕
type Pool struct {
	workers   int
	taskQueue chan Task
	wg        sync.WaitGroup

	mu     sync.RWMutex // 保护 closed 与 taskQueue 的关闭
	closed bool

	completed atomic.Int64
	panicked  atomic.Int64
	logger    *slog.Logger
}

// New 创建一个新的 Worker Pool
// workers: worker 数量
// queueSize: 任务队列大小
func New(workers int, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool := &Pool{
		workers:   workers,
		taskQueue: make(chan Task, queueSize),
		logger:    logger,
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	pool.logger.Info("Worker pool started",
		"workers", workers,
		"queue_size", queueSize)

	return pool
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		p.run(id, task)
	}
}

// run 执行任务，捕获 panic
func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.logger.Error("Task panic recovered",
				"worker_id", id,
				"panic", r)
			return
		}
		p.completed.Add(1)
	}()
	task()
}

// Submit 提交任务，队列满时阻塞；池已关闭返回 false
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.taskQueue <- task
	return true
}

// TrySubmit 尝试提交任务，如果队列满了立即返回 false
func (p *Pool) TrySubmit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.taskQueue <- task:
		return true
	default:
		return false
	}
}

// Stats 已完成与发生 panic 的任务数
func (p *Pool) Stats() (completed, panicked int64) {
	return p.completed.Load(), p.panicked.Load()
}

// Shutdown 优雅关闭，等待已提交的任务完成
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.taskQueue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Worker pool shutdown completed")
}
