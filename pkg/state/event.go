package state

import (
	"fmt"
	"time"
)

// Activity 哲学家所处阶段
type Activity int

const (
	// ActivityThinking 思考中（不持有叉子）
	ActivityThinking Activity = iota
	// ActivityWaiting 开始阻塞获取叉子
	ActivityWaiting
	// ActivityEating 持有两把叉子进餐
	ActivityEating
)

// String 返回阶段名称
func (a Activity) String() string {
	switch a {
	case ActivityThinking:
		return "thinking"
	case ActivityWaiting:
		return "waiting"
	case ActivityEating:
		return "eating"
	default:
		return "unknown"
	}
}

// Event 状态事件
//
// 集合封闭：只有本包的 Thinking、Waiting、Eating 实现此接口。
type Event interface {
	// Kind 返回事件类型标识，用于路由和统计
	Kind() string
	// Philosopher 返回发出事件的哲学家编号
	Philosopher() int
	// Activity 返回事件对应的阶段
	Activity() Activity
	// String 返回默认文本格式
	String() string

	sealed()
}

// Thinking 开始思考，持续 For
type Thinking struct {
	ID  int
	For time.Duration
}

// Kind 实现 Event 接口
func (e Thinking) Kind() string { return "state.thinking" }

// Philosopher 实现 Event 接口
func (e Thinking) Philosopher() int { return e.ID }

// Activity 实现 Event 接口
func (e Thinking) Activity() Activity { return ActivityThinking }

func (e Thinking) String() string { return Format(e) }

func (Thinking) sealed() {}

// Waiting 开始等待叉子，不带时长
type Waiting struct {
	ID int
}

// Kind 实现 Event 接口
func (e Waiting) Kind() string { return "state.waiting" }

// Philosopher 实现 Event 接口
func (e Waiting) Philosopher() int { return e.ID }

// Activity 实现 Event 接口
func (e Waiting) Activity() Activity { return ActivityWaiting }

func (e Waiting) String() string { return Format(e) }

func (Waiting) sealed() {}

// Eating 拿到两把叉子开始进餐，持续 For
type Eating struct {
	ID  int
	For time.Duration
}

// Kind 实现 Event 接口
func (e Eating) Kind() string { return "state.eating" }

// Philosopher 实现 Event 接口
func (e Eating) Philosopher() int { return e.ID }

// Activity 实现 Event 接口
func (e Eating) Activity() Activity { return ActivityEating }

func (e Eating) String() string { return Format(e) }

func (Eating) sealed() {}

// DurationOf 返回事件时长，Waiting 返回 false
func DurationOf(ev Event) (time.Duration, bool) {
	switch e := ev.(type) {
	case Thinking:
		return e.For, true
	case Eating:
		return e.For, true
	default:
		return 0, false
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 格式化
// ═══════════════════════════════════════════════════════════════════════════

// Format 返回事件的默认文本
//
//	Philosopher 3 is thinking for 120 ms
//	Philosopher 3 is waiting to eat
func Format(ev Event) string {
	switch e := ev.(type) {
	case Thinking:
		return fmt.Sprintf("Philosopher %d is thinking for %d ms", e.ID, e.For.Milliseconds())
	case Eating:
		return fmt.Sprintf("Philosopher %d is eating for %d ms", e.ID, e.For.Milliseconds())
	case Waiting:
		return fmt.Sprintf("Philosopher %d is waiting to eat", e.ID)
	default:
		return fmt.Sprintf("Philosopher %d is %s", ev.Philosopher(), ev.Activity())
	}
}

// FormatAligned 返回按列对齐的文本，适合终端连续输出
//
//	Philosopher   3 is thinking   for   120 ms
//	Philosopher   3 is waiting    to eat
func FormatAligned(ev Event) string {
	if d, ok := DurationOf(ev); ok {
		return fmt.Sprintf("Philosopher %3d is %-10s for %5d ms", ev.Philosopher(), ev.Activity(), d.Milliseconds())
	}
	return fmt.Sprintf("Philosopher %3d is %-10s to eat", ev.Philosopher(), ev.Activity())
}
