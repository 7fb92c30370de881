package workerpool

import (
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsAllTasksBeforeShutdown(t *testing.T) {
	p := New(4, 16, slog.Default())

	var done atomic.Int32
	for i := 0; i < 100; i++ {
		if !p.Submit(func() {
			time.Sleep(time.Millisecond)
			done.Add(1)
		}) {
			t.Fatalf("第 %d 个任务提交失败", i)
		}
	}
	p.Shutdown()

	if done.Load() != 100 {
		t.Errorf("期望执行 100 个任务, 实际 = %d", done.Load())
	}
	if p.Submit(func() {}) {
		t.Error("关闭后不应再接收任务")
	}
	// 重复关闭是安全的
	p.Shutdown()
}

func TestPoolRecoversPanic(t *testing.T) {
	p := New(1, 4, nil)

	p.Submit(func() { panic("boom") })
	var ran atomic.Bool
	p.Submit(func() { ran.Store(true) })
	p.Shutdown()

	if !ran.Load() {
		t.Error("panic 之后 worker 应继续执行后续任务")
	}
	completed, panicked := p.Stats()
	if completed != 1 || panicked != 1 {
		t.Errorf("期望 completed=1 panicked=1, 实际 = %d/%d", completed, panicked)
	}
}

func TestTrySubmitWhenFull(t *testing.T) {
	p := New(1, 1, nil)

	block := make(chan struct{})
	started := make(chan struct{})
	p.Submit(func() {
		close(started)
		<-block
	})
	<-started

	if !p.TrySubmit(func() {}) {
		t.Fatal("队列有空位时应提交成功")
	}
	if p.TrySubmit(func() {}) {
		t.Error("队列已满时应立即返回 false")
	}

	close(block)
	p.Shutdown()
}
