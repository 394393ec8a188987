package dining

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lwmacct/251215-go-pkg-dining/pkg/state"
	"github.com/lwmacct/251215-go-pkg-dining/pkg/table"
)

// Report 一次运行的结果
type Report struct {
	// Elapsed 从启动到所有工作协程退出的耗时
	Elapsed time.Duration
	// Events 观察者消费的事件数；使用外部端点时为 0
	Events int64
	// Stats 每位哲学家的统计
	Stats []*Stats
}

// Meals 返回所有哲学家的进餐总数
func (r *Report) Meals() int64 {
	var total int64
	for _, s := range r.Stats {
		total += s.Meals
	}
	return total
}

// runOptions Run 的可选项
type runOptions struct {
	renderer   state.Renderer
	sender     *state.Sender
	onDeadlock func(table.Cycle, table.Snapshot)
	onStart    func(*Pool)
}

// Option Run 选项
type Option func(*runOptions)

// WithRenderer 指定事件渲染器，默认输出到标准输出的纯文本
func WithRenderer(r state.Renderer) Option {
	return func(o *runOptions) {
		o.renderer = r
	}
}

// WithSender 使用外部提供的事件端点
//
// 此时 Run 不创建也不消费通道，每位哲学家持有 tx 的克隆；
// tx 本身仍归调用方，由调用方负责关闭和消费。
func WithSender(tx *state.Sender) Option {
	return func(o *runOptions) {
		o.sender = tx
	}
}

// WithDeadlockHandler 检测到循环等待时回调（需要 Config.DeadlockCheck > 0）
func WithDeadlockHandler(fn func(table.Cycle, table.Snapshot)) Option {
	return func(o *runOptions) {
		o.onDeadlock = fn
	}
}

// WithPoolHook 工作池启动后回调，可用于观察运行中的池
func WithPoolHook(fn func(*Pool)) Option {
	return func(o *runOptions) {
		o.onStart = fn
	}
}

// Run 运行一次模拟
//
// 构建桌子与哲学家、启动工作池、消费状态事件，
// 在 cfg.Duration 到期或 ctx 取消时关闭工作池，并持续消费直到通道真正关闭，
// 避免同步模式下阻塞在发送上的工作协程无法退出。
// cfg 为 nil 时使用 DefaultConfig。
func Run(ctx context.Context, cfg *Config, opts ...Option) (*Report, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &runOptions{}
	for _, opt := range opts {
		opt(o)
	}
	logger := cfg.logger()

	tx := o.sender
	var rx *state.Receiver
	if tx == nil {
		tx, rx = state.New(cfg.Capacity)
		defer rx.Close()
		if o.renderer == nil {
			o.renderer = state.NewTextRenderer(os.Stdout)
		}
	}

	philosophers, t, err := Setup(cfg, tx)
	if rx != nil {
		// 只保留哲学家手中的克隆，全部退出后通道关闭
		tx.Close()
	}
	if err != nil {
		return nil, err
	}

	pool, err := NewPoolWithConfig(philosophers, t, &PoolConfig{
		Order:         cfg.Order,
		ReportWaiting: cfg.ReportWaiting,
		DeadlockCheck: cfg.DeadlockCheck,
		OnDeadlock:    o.onDeadlock,
		Logger:        logger,
	})
	if err != nil {
		closeOutputs(philosophers)
		return nil, err
	}
	start := time.Now()
	if o.onStart != nil {
		o.onStart(pool)
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if cfg.Duration > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.Duration)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	// 关闭超时时工作协程可能永远不会退出，通道也就不会关闭，此时停止消费
	drainCtx, stopDrain := context.WithCancel(context.Background())
	defer stopDrain()

	var g errgroup.Group
	g.Go(func() error {
		<-runCtx.Done()
		var err error
		if cfg.ShutdownTimeout > 0 {
			err = pool.CloseWithTimeout(cfg.ShutdownTimeout)
		} else {
			err = pool.Close()
		}
		if IsShutdownTimeout(err) {
			stopDrain()
		}
		return err
	})

	var events int64
	if rx != nil {
		events = drain(drainCtx, rx, o.renderer, logger)
	} else {
		select {
		case <-runCtx.Done():
		case <-pool.Done():
		}
	}
	// 所有工作协程自行退出时（例如全部 panic），也要结束关闭协程
	cancel()

	err = g.Wait()
	report := &Report{
		Elapsed: time.Since(start),
		Events:  events,
		Stats:   pool.Stats(),
	}
	logger.Info("dining finished",
		"elapsed", report.Elapsed, "events", report.Events, "meals", report.Meals())
	return report, err
}

// drain 消费事件直到通道关闭或 ctx 取消，返回消费数量
//
// 渲染失败只记录一次并改用 Discard，消费本身不能停，否则同步模式的生产者会卡住。
func drain(ctx context.Context, rx *state.Receiver, r state.Renderer, logger *slog.Logger) int64 {
	var count int64
	for {
		ev, err := rx.Recv(ctx)
		if err != nil {
			if !state.IsClosed(err) && !errors.Is(err, context.Canceled) {
				logger.Warn("state receive failed", "error", err)
			}
			return count
		}
		count++
		if rerr := r.Render(ev); rerr != nil {
			logger.Warn("render failed, discarding further events", "error", rerr)
			r = state.Discard
		}
	}
}
