package table

import (
	"fmt"
	"strings"

	"github.com/awalterschulze/gographviz"
)

// Snapshot 某一时刻的持有/等待关系
//
// 各槽位分别读取，不是原子快照；稳定的死锁在快照中总是可见的，
// 瞬时关系则可能拼出实际并不存在的循环，调用方应多次确认。
type Snapshot struct {
	// Holders[f] 为叉子 f 的持有者
	Holders []int
	// Waiting[p] 为哲学家 p 正在等待的叉子
	Waiting []int
}

// Snapshot 捕获当前的持有与等待关系
func (t *Table) Snapshot() Snapshot {
	n := t.forks.Len()
	snap := Snapshot{
		Holders: make([]int, n),
		Waiting: make([]int, len(t.waiting)),
	}
	itr := t.forks.Iterator()
	for !itr.Done() {
		i, f := itr.Next()
		snap.Holders[i] = int(f.holder.Load())
	}
	for p := range t.waiting {
		snap.Waiting[p] = int(t.waiting[p].Load())
	}
	return snap
}

// Cycle 一个循环等待环
//
// Philosophers[k] 等待 Forks[k]，而 Forks[k] 被 Philosophers[k+1]（环绕）持有。
type Cycle struct {
	Philosophers []int
	Forks        []int
}

// Len 返回环中哲学家数量
func (c Cycle) Len() int {
	return len(c.Philosophers)
}

// Equal 判断两个环是否完全相同
func (c Cycle) Equal(o Cycle) bool {
	if len(c.Philosophers) != len(o.Philosophers) {
		return false
	}
	for i := range c.Philosophers {
		if c.Philosophers[i] != o.Philosophers[i] || c.Forks[i] != o.Forks[i] {
			return false
		}
	}
	return true
}

// String 返回形如 "P0 -> F1 -> P1 -> F0 -> P0" 的表示
func (c Cycle) String() string {
	if len(c.Philosophers) == 0 {
		return "<none>"
	}
	var sb strings.Builder
	for i, p := range c.Philosophers {
		fmt.Fprintf(&sb, "P%d -> F%d -> ", p, c.Forks[i])
	}
	fmt.Fprintf(&sb, "P%d", c.Philosophers[0])
	return sb.String()
}

// DetectCycle 在快照上查找循环等待
//
// 从每位哲学家出发沿「等待的叉子 -> 叉子持有者」前进，回到起点即为环。
// 按哲学家编号升序尝试，因此返回的环以其最小成员开头。
// 未发现环时 ok 为 false。
func DetectCycle(snap Snapshot) (cycle Cycle, ok bool) {
	for start := range snap.Waiting {
		if c, found := walkFrom(snap, start); found {
			return c, true
		}
	}
	return Cycle{}, false
}

// walkFrom 从 start 出发沿等待链前进
func walkFrom(snap Snapshot, start int) (Cycle, bool) {
	visited := make(map[int]bool)
	var c Cycle
	current := start

	for {
		f := snap.Waiting[current]
		if f == NoOne || f < 0 || f >= len(snap.Holders) {
			return Cycle{}, false
		}
		holder := snap.Holders[f]
		if holder == NoOne || holder < 0 || holder >= len(snap.Waiting) {
			return Cycle{}, false
		}

		c.Philosophers = append(c.Philosophers, current)
		c.Forks = append(c.Forks, f)
		visited[current] = true

		if holder == start {
			return c, true
		}
		// 进入了一个不含 start 的环，留给该环的成员去发现
		if visited[holder] {
			return Cycle{}, false
		}
		current = holder
	}
}

// Graph 将快照渲染为 DOT 有向图
//
// 节点 P<i> 为哲学家，F<i> 为叉子；
// 边 F -> P 表示持有（label=holds），P -> F 表示等待（label=waits）。
func Graph(snap Snapshot) (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName("waitfor"); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}

	for p := range snap.Waiting {
		if err := g.AddNode("waitfor", philosopherNode(p), map[string]string{"shape": "circle"}); err != nil {
			return "", err
		}
	}
	for f := range snap.Holders {
		if err := g.AddNode("waitfor", forkNode(f), map[string]string{"shape": "box"}); err != nil {
			return "", err
		}
	}

	for f, holder := range snap.Holders {
		if holder < 0 || holder >= len(snap.Waiting) {
			continue
		}
		if err := g.AddEdge(forkNode(f), philosopherNode(holder), true, map[string]string{"label": "holds"}); err != nil {
			return "", err
		}
	}
	for p, f := range snap.Waiting {
		if f < 0 || f >= len(snap.Holders) {
			continue
		}
		attrs := map[string]string{"label": "waits", "style": "dashed"}
		if err := g.AddEdge(philosopherNode(p), forkNode(f), true, attrs); err != nil {
			return "", err
		}
	}

	return g.String(), nil
}

func philosopherNode(p int) string { return fmt.Sprintf("P%d", p) }

func forkNode(f int) string { return fmt.Sprintf("F%d", f) }
