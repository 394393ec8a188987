package dining

import (
	"math/rand/v2"
	"time"

	"github.com/lwmacct/251215-go-pkg-dining/pkg/state"
	"github.com/lwmacct/251215-go-pkg-dining/pkg/table"
)

// sleep 阻塞当前工作协程，测试中可替换
var sleep = time.Sleep

// Span 随机时长范围 [Min, Max)
type Span struct {
	Min time.Duration
	Max time.Duration
}

// NewSpan 由毫秒范围创建 Span，min > max 或负值返回 ConfigError
func NewSpan(minMS, maxMS int) (Span, error) {
	if minMS < 0 || maxMS < 0 {
		return Span{}, configErrorf("range", "must not be negative, got [%d, %d)", minMS, maxMS)
	}
	if minMS > maxMS {
		return Span{}, configErrorf("range", "min %d ms exceeds max %d ms", minMS, maxMS)
	}
	return Span{
		Min: time.Duration(minMS) * time.Millisecond,
		Max: time.Duration(maxMS) * time.Millisecond,
	}, nil
}

// Sample 均匀采样一个时长；Min == Max 时返回固定值
func (s Span) Sample() time.Duration {
	if s.Max <= s.Min {
		return s.Min
	}
	// 按毫秒粒度采样，与事件中的毫秒时长一致
	width := int64((s.Max - s.Min) / time.Millisecond)
	if width <= 0 {
		return s.Min
	}
	return s.Min + time.Duration(rand.Int64N(width))*time.Millisecond
}

// Philosopher 一位哲学家
//
// 构造后交给唯一的工作协程独占使用，不会被并发修改。
type Philosopher struct {
	ID    int
	Left  int
	Right int
	Span  Span

	out *state.Sender
}

// NewPhilosopher 创建哲学家，out 为其状态事件的发送端点（所有权转移给哲学家）
func NewPhilosopher(id, left, right int, span Span, out *state.Sender) (*Philosopher, error) {
	if left == right {
		return nil, configErrorf("forks", "philosopher %d has the same fork %d on both sides", id, left)
	}
	if left < 0 || right < 0 {
		return nil, configErrorf("forks", "philosopher %d has negative fork index (%d, %d)", id, left, right)
	}
	if span.Min < 0 || span.Max < span.Min {
		return nil, configErrorf("range", "philosopher %d has invalid range [%v, %v)", id, span.Min, span.Max)
	}
	return &Philosopher{
		ID:    id,
		Left:  left,
		Right: right,
		Span:  span,
		out:   out,
	}, nil
}

// think 思考阶段：采样时长、发出 Thinking、阻塞
func (ph *Philosopher) think() (time.Duration, error) {
	d := ph.Span.Sample()
	if err := ph.out.Send(state.Thinking{ID: ph.ID, For: d}); err != nil {
		return 0, err
	}
	sleep(d)
	return d, nil
}

// meal 一次进餐的耗时
type meal struct {
	wait time.Duration
	eat  time.Duration
}

// eat 等待、取叉、进餐；两把叉子在返回前释放
func (ph *Philosopher) eat(t *table.Table, first, second int, reportWaiting bool) (meal, error) {
	if reportWaiting {
		if err := ph.out.Send(state.Waiting{ID: ph.ID}); err != nil {
			return meal{}, err
		}
	}

	start := time.Now()
	g1 := t.Lock(first, ph.ID)
	defer g1.Release()
	g2 := t.Lock(second, ph.ID)
	defer g2.Release()
	wait := time.Since(start)

	d := ph.Span.Sample()
	if err := ph.out.Send(state.Eating{ID: ph.ID, For: d}); err != nil {
		return meal{}, err
	}
	sleep(d)
	return meal{wait: wait, eat: d}, nil
}

// Setup 按环形布局创建桌子与哲学家
//
// 哲学家 i 的左叉为 i，右叉为 (i+1) mod N，叉子 i 位于哲学家 i-1 与 i 之间。
// 每位哲学家持有 out 的一个克隆；out 本身仍归调用方，需由调用方关闭。
func Setup(cfg *Config, out *state.Sender) ([]*Philosopher, *table.Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	span, err := NewSpan(cfg.MinMS, cfg.MaxMS)
	if err != nil {
		return nil, nil, err
	}

	n := cfg.Philosophers
	t, err := table.New(n)
	if err != nil {
		return nil, nil, err
	}

	philosophers := make([]*Philosopher, 0, n)
	for i := 0; i < n; i++ {
		o := out.Clone()
		ph, err := NewPhilosopher(i, i, (i+1)%n, span, o)
		if err != nil {
			o.Close()
			closeOutputs(philosophers)
			return nil, nil, err
		}
		philosophers = append(philosophers, ph)
	}
	return philosophers, t, nil
}

func closeOutputs(philosophers []*Philosopher) {
	for _, ph := range philosophers {
		ph.out.Close()
	}
}
