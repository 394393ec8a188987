package dining

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/lwmacct/251215-go-pkg-dining/pkg/state"
	"github.com/lwmacct/251215-go-pkg-dining/pkg/table"
)

// Pool 哲学家工作池
//
// 每位哲学家一个工作协程，共享同一张桌子。
// 停止是协作式的：Close 关闭控制通道，工作协程在每完成一轮进餐后非阻塞地检查一次，
// 因此停止延迟最多为一个完整的 思考+等待+进餐 周期。
type Pool struct {
	table        *table.Table
	philosophers []*Philosopher
	stats        []*StatsCollector

	// 控制通道：关闭即请求停止
	stop     chan struct{}
	stopOnce sync.Once

	// 生命周期
	wg        sync.WaitGroup
	done      chan struct{}
	live      atomic.Int32
	isRunning atomic.Bool

	// 工作协程失败（panic）
	failuresMu sync.Mutex
	failures   error

	config *PoolConfig
	logger *slog.Logger
}

// PoolConfig 工作池配置
type PoolConfig struct {
	// Order 取叉顺序
	Order Order
	// ReportWaiting 是否发出 Waiting 事件
	ReportWaiting bool
	// DeadlockCheck 循环等待检测间隔，0 关闭
	DeadlockCheck time.Duration
	// OnDeadlock 检测到（经两次确认的）新循环等待时回调
	OnDeadlock func(cycle table.Cycle, snap table.Snapshot)
	// PanicHandler 工作协程 panic 时回调，错误仍会由 Close 返回
	PanicHandler func(philosopher int, err any)
	// Logger 自定义日志器
	Logger *slog.Logger
}

// DefaultPoolConfig 默认工作池配置
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Order:         OrderNaive,
		ReportWaiting: true,
		DeadlockCheck: 0,
		OnDeadlock:    nil,
		PanicHandler:  nil,
		Logger:        nil, // 使用默认 logger
	}
}

// NewPool 使用默认配置创建并启动工作池
func NewPool(philosophers []*Philosopher, t *table.Table) (*Pool, error) {
	return NewPoolWithConfig(philosophers, t, DefaultPoolConfig())
}

// NewPoolWithConfig 使用配置创建并启动工作池
//
// 校验失败时不启动任何协程，哲学家的事件端点仍归调用方；
// 成功后由各工作协程在退出时关闭自己的端点。
func NewPoolWithConfig(philosophers []*Philosopher, t *table.Table, config *PoolConfig) (*Pool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if config.Order == "" {
		config.Order = OrderNaive
	}
	if err := validatePool(philosophers, t, config); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		table:        t,
		philosophers: philosophers,
		stats:        make([]*StatsCollector, len(philosophers)),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		config:       config,
		logger:       logger,
	}
	p.isRunning.Store(true)

	for i, ph := range philosophers {
		p.stats[i] = NewStatsCollector(ph.ID)
		p.spawn(ph, p.stats[i])
	}

	go func() {
		p.wg.Wait()
		close(p.done)
	}()

	if config.DeadlockCheck > 0 {
		go p.watchdog(config.DeadlockCheck)
	}

	p.logger.Info("philosopher pool started",
		"philosophers", len(philosophers), "order", string(config.Order))
	return p, nil
}

func validatePool(philosophers []*Philosopher, t *table.Table, config *PoolConfig) error {
	if t == nil {
		return configErrorf("table", "must not be nil")
	}
	if len(philosophers) == 0 {
		return configErrorf("philosophers", "need at least one philosopher")
	}
	if !config.Order.Valid() {
		return configErrorf("order", "unknown acquisition order %q", config.Order)
	}

	n := t.Size()
	seen := make(map[int]bool, len(philosophers))
	for _, ph := range philosophers {
		if ph == nil {
			return configErrorf("philosophers", "nil philosopher")
		}
		if ph.ID < 0 || ph.ID >= n {
			return configErrorf("philosophers", "id %d outside table of %d forks", ph.ID, n)
		}
		if seen[ph.ID] {
			return configErrorf("philosophers", "duplicate id %d", ph.ID)
		}
		seen[ph.ID] = true
		if ph.Left < 0 || ph.Right < 0 || ph.Left >= n || ph.Right >= n {
			return configErrorf("forks", "philosopher %d uses fork outside table of %d forks", ph.ID, n)
		}
		if ph.Left == ph.Right {
			return configErrorf("forks", "philosopher %d has the same fork %d on both sides", ph.ID, ph.Left)
		}
		if ph.out == nil {
			return configErrorf("philosophers", "philosopher %d has no state sender", ph.ID)
		}
	}
	return nil
}

// spawn 启动一个工作协程
func (p *Pool) spawn(ph *Philosopher, stats *StatsCollector) {
	p.wg.Add(1)
	p.live.Add(1)
	go p.workerLoop(ph, stats)
	p.logger.Debug("spawned philosopher", "philosopher", ph.ID, "left", ph.Left, "right", ph.Right)
}

// workerLoop 思考 -> 等待 -> 取叉 -> 进餐 -> 放叉，循环直到收到停止信号
func (p *Pool) workerLoop(ph *Philosopher, stats *StatsCollector) {
	defer p.wg.Done()
	defer p.live.Add(-1)

	// panic 恢复：记录为失败，由 Close 返回；先注册，端点关闭也在其覆盖范围内
	defer func() {
		if r := recover(); r != nil {
			p.recordPanic(ph.ID, r, debug.Stack())
		}
	}()
	defer ph.out.Close()

	first, second := p.config.Order.forks(ph, p.table.Size())

	for {
		thought, err := ph.think()
		if err != nil {
			p.workerStopped(ph.ID, err)
			return
		}
		stats.RecordThink(thought)

		m, err := ph.eat(p.table, first, second, p.config.ReportWaiting)
		if err != nil {
			p.workerStopped(ph.ID, err)
			return
		}
		stats.RecordMeal(m.wait, m.eat)

		select {
		case <-p.stop:
			p.logger.Debug("philosopher exited", "philosopher", ph.ID)
			return
		default:
		}
	}
}

// workerStopped 处理发送失败：接收端已丢弃，工作协程立即退出，不重试
func (p *Pool) workerStopped(id int, err error) {
	if state.IsClosed(err) {
		p.logger.Warn("philosopher stopped: state receiver dropped", "philosopher", id)
		return
	}
	p.addFailure(fmt.Errorf("philosopher %d: %w", id, err))
}

func (p *Pool) recordPanic(id int, r any, stack []byte) {
	if p.config.PanicHandler != nil {
		p.config.PanicHandler(id, r)
	}
	p.logger.Error("panic in philosopher",
		"philosopher", id,
		"error", r,
		"stack", string(stack))
	p.addFailure(&PanicError{Philosopher: id, Value: r, Stack: stack})
}

func (p *Pool) addFailure(err error) {
	p.failuresMu.Lock()
	p.failures = multierr.Append(p.failures, err)
	p.failuresMu.Unlock()
}

// requestStop 关闭控制通道
func (p *Pool) requestStop() {
	p.stopOnce.Do(func() {
		p.isRunning.Store(false)
		close(p.stop)
		p.logger.Info("philosopher pool shutting down", "live", p.Live())
	})
}

// Close 请求停止并阻塞到所有工作协程退出
//
// 返回所有工作协程的失败（panic 等），多次调用返回相同结果。
func (p *Pool) Close() error {
	p.requestStop()
	<-p.done
	p.logger.Info("philosopher pool shutdown complete")
	return p.Err()
}

// CloseWithTimeout 带超时的关闭
//
// 超时返回 *ShutdownTimeout，此时仍在运行的工作协程不会被强制中止。
func (p *Pool) CloseWithTimeout(timeout time.Duration) error {
	p.requestStop()

	select {
	case <-p.done:
		p.logger.Info("philosopher pool shutdown complete")
		return p.Err()
	case <-time.After(timeout):
		live := p.Live()
		p.logger.Warn("philosopher pool shutdown timeout", "live", live, "timeout", timeout)
		return multierr.Append(p.Err(), &ShutdownTimeout{Live: live, Timeout: timeout})
	}
}

// Done 在所有工作协程退出后关闭
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// Err 返回目前为止记录的工作协程失败
func (p *Pool) Err() error {
	p.failuresMu.Lock()
	defer p.failuresMu.Unlock()
	return p.failures
}

// Size 返回哲学家数量
func (p *Pool) Size() int {
	return len(p.philosophers)
}

// Live 返回仍在运行的工作协程数
func (p *Pool) Live() int {
	return int(p.live.Load())
}

// IsRunning 是否尚未请求停止
func (p *Pool) IsRunning() bool {
	return p.isRunning.Load()
}

// Table 返回共享的桌子
func (p *Pool) Table() *table.Table {
	return p.table
}

// Stats 返回每位哲学家的统计快照，顺序与构造时一致
func (p *Pool) Stats() []*Stats {
	out := make([]*Stats, len(p.stats))
	for i, c := range p.stats {
		out[i] = c.Stats()
	}
	return out
}

// ResetStats 清零所有哲学家的统计，运行中调用也安全
func (p *Pool) ResetStats() {
	for _, c := range p.stats {
		c.Reset()
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 循环等待检测
// ═══════════════════════════════════════════════════════════════════════════

// watchdog 周期性检查循环等待
//
// 快照不是原子的，同一个环需在连续两次检查中出现才上报；每个环只上报一次。
func (p *Pool) watchdog(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var candidate, reported table.Cycle
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
		}

		snap := p.table.Snapshot()
		cycle, found := table.DetectCycle(snap)
		if !found {
			candidate = table.Cycle{}
			continue
		}
		if !cycle.Equal(candidate) {
			candidate = cycle
			continue
		}
		if cycle.Equal(reported) {
			continue
		}
		reported = cycle

		attrs := []any{"cycle", cycle.String(), "length", cycle.Len()}
		if dot, err := table.Graph(snap); err == nil {
			attrs = append(attrs, "dot", dot)
		}
		p.logger.Warn("circular wait detected", attrs...)

		if p.config.OnDeadlock != nil {
			p.config.OnDeadlock(cycle, snap)
		}
	}
}

// IsShutdownTimeout 判断错误是否包含关闭超时
func IsShutdownTimeout(err error) bool {
	var st *ShutdownTimeout
	return errors.As(err, &st)
}
