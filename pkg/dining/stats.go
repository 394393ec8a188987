package dining

import (
	"sync"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// 哲学家统计信息
// ═══════════════════════════════════════════════════════════════════════════

// Stats 单个哲学家的运行统计
type Stats struct {
	Philosopher int

	// 计数
	Meals    int64 // 完成的进餐次数（即完整周期数）
	Thoughts int64 // 开始的思考次数

	// 时长
	TotalThink time.Duration
	TotalEat   time.Duration

	// 等叉耗时（从开始获取到两把叉子到手）
	TotalWait   time.Duration
	AverageWait time.Duration
	MaxWait     time.Duration
	MinWait     time.Duration

	// 时间戳
	StartedAt  time.Time
	LastMealAt time.Time
}

// Clone 克隆统计信息
func (s *Stats) Clone() *Stats {
	c := *s
	return &c
}

// StatsCollector 线程安全的统计收集器
type StatsCollector struct {
	mu    sync.RWMutex
	stats Stats
}

// NewStatsCollector 创建统计收集器
func NewStatsCollector(philosopher int) *StatsCollector {
	return &StatsCollector{
		stats: Stats{
			Philosopher: philosopher,
			StartedAt:   time.Now(),
			MinWait:     time.Duration(1<<63 - 1), // 最大值，确保第一次会被更新
		},
	}
}

// RecordThink 记录一次思考
func (c *StatsCollector) RecordThink(d time.Duration) {
	c.mu.Lock()
	c.stats.Thoughts++
	c.stats.TotalThink += d
	c.mu.Unlock()
}

// RecordMeal 记录一次进餐
func (c *StatsCollector) RecordMeal(wait, eat time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Meals++
	c.stats.TotalEat += eat
	c.stats.TotalWait += wait
	c.stats.LastMealAt = time.Now()
	c.stats.AverageWait = c.stats.TotalWait / time.Duration(c.stats.Meals)

	if wait > c.stats.MaxWait {
		c.stats.MaxWait = wait
	}
	if wait < c.stats.MinWait {
		c.stats.MinWait = wait
	}
}

// Stats 获取统计快照；尚未进餐时 MinWait 为 0
func (c *StatsCollector) Stats() *Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.stats.Clone()
	if s.Meals == 0 {
		s.MinWait = 0
	}
	return s
}

// Reset 重置统计
func (c *StatsCollector) Reset() {
	c.mu.Lock()
	c.stats = Stats{
		Philosopher: c.stats.Philosopher,
		StartedAt:   time.Now(),
		MinWait:     time.Duration(1<<63 - 1),
	}
	c.mu.Unlock()
}
