package dining

import (
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/lwmacct/251215-go-pkg-dining/pkg/state"
)

// Order 取叉顺序
type Order string

const (
	// OrderNaive 所有人先左后右（原样保留的对称取叉，存在循环等待风险）
	OrderNaive Order = "naive"
	// OrderAscending 先取编号较小的叉子
	OrderAscending Order = "ascending"
	// OrderAsymmetric 编号最大的哲学家先右后左，其余先左后右
	OrderAsymmetric Order = "asymmetric"
)

// Valid 是否为已知顺序
func (o Order) Valid() bool {
	switch o {
	case OrderNaive, OrderAscending, OrderAsymmetric:
		return true
	default:
		return false
	}
}

// forks 按顺序返回哲学家要获取的两把叉子
func (o Order) forks(ph *Philosopher, n int) (first, second int) {
	switch o {
	case OrderAscending:
		if ph.Right < ph.Left {
			return ph.Right, ph.Left
		}
	case OrderAsymmetric:
		if ph.ID == n-1 {
			return ph.Right, ph.Left
		}
	}
	return ph.Left, ph.Right
}

// Config 模拟配置
type Config struct {
	// Philosophers 哲学家（同时也是叉子）数量
	Philosophers int `mapstructure:"philosophers"`
	// MinMS / MaxMS 思考与进餐时长范围 [MinMS, MaxMS)，单位毫秒；相等时为固定时长
	MinMS int `mapstructure:"min_ms"`
	MaxMS int `mapstructure:"max_ms"`
	// Duration 总运行时长，0 表示不限（直到 ctx 取消）
	Duration time.Duration `mapstructure:"duration"`
	// Capacity 状态通道容量：state.Unbounded 无界，0 同步交接，n 有界
	Capacity int `mapstructure:"capacity"`
	// ReportWaiting 是否发出 Waiting 事件
	ReportWaiting bool `mapstructure:"report_waiting"`
	// Order 取叉顺序
	Order Order `mapstructure:"order"`
	// DeadlockCheck 循环等待检测间隔，0 关闭
	DeadlockCheck time.Duration `mapstructure:"deadlock_check"`
	// ShutdownTimeout 关闭等待上限，0 表示一直等待
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// Logger 自定义日志器
	Logger *slog.Logger `mapstructure:"-"`
}

// DefaultConfig 默认配置：5 位哲学家，0..1000ms，不限时长，无界通道
func DefaultConfig() *Config {
	return &Config{
		Philosophers:  5,
		MinMS:         0,
		MaxMS:         1000,
		Capacity:      state.Unbounded,
		ReportWaiting: true,
		Order:         OrderNaive,
	}
}

// Validate 校验配置，返回全部问题
//
// 哲学家少于 2 位时左右叉子会是同一把，因此同样视为配置错误。
func (c *Config) Validate() error {
	var err error

	if c.Philosophers < 2 {
		err = multierr.Append(err, configErrorf("philosophers", "need at least 2, got %d", c.Philosophers))
	}
	if _, spanErr := NewSpan(c.MinMS, c.MaxMS); spanErr != nil {
		err = multierr.Append(err, spanErr)
	}
	if c.Duration < 0 {
		err = multierr.Append(err, configErrorf("duration", "must not be negative, got %v", c.Duration))
	}
	if c.Capacity < state.Unbounded {
		err = multierr.Append(err, configErrorf("capacity", "must be %d (unbounded) or >= 0, got %d", state.Unbounded, c.Capacity))
	}
	if !c.Order.Valid() {
		err = multierr.Append(err, configErrorf("order", "unknown acquisition order %q", c.Order))
	}
	if c.DeadlockCheck < 0 {
		err = multierr.Append(err, configErrorf("deadlock_check", "must not be negative, got %v", c.DeadlockCheck))
	}
	if c.ShutdownTimeout < 0 {
		err = multierr.Append(err, configErrorf("shutdown_timeout", "must not be negative, got %v", c.ShutdownTimeout))
	}

	return err
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
