package table

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/immutable"
)

// NoOne 表示叉子空闲，或哲学家没有在等待任何叉子
const NoOne = -1

// ErrInvalidSize 叉子数量非法
var ErrInvalidSize = errors.New("table: fork count must be positive")

// fork 一把叉子，它的「值」只有可用与否
type fork struct {
	mu     sync.Mutex
	holder atomic.Int32
}

// Table 叉子桌
//
// Thread Safety: 所有方法并发安全。叉子列表构造后只读。
type Table struct {
	forks *immutable.List[*fork]

	// waiting[p] 为哲学家 p 正在阻塞获取的叉子下标
	waiting []atomic.Int32

	violations atomic.Int64
}

// New 创建拥有 n 把叉子的桌子
func New(n int) (*Table, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidSize, n)
	}

	b := immutable.NewListBuilder[*fork]()
	for i := 0; i < n; i++ {
		f := &fork{}
		f.holder.Store(NoOne)
		b.Append(f)
	}

	t := &Table{
		forks:   b.List(),
		waiting: make([]atomic.Int32, n),
	}
	for i := range t.waiting {
		t.waiting[i].Store(NoOne)
	}
	return t, nil
}

// Size 返回叉子数量
func (t *Table) Size() int {
	return t.forks.Len()
}

// Lock 以哲学家 who 的身份获取叉子 i，阻塞直到可用
//
// 下标越界会 panic：哲学家的叉子下标在构造时已校验。
// who 不在 [0, Size) 内时仍可获取，只是不记录等待信息。
func (t *Table) Lock(i, who int) *Guard {
	f := t.fork(i)

	tracked := who >= 0 && who < len(t.waiting)
	if tracked {
		t.waiting[who].Store(int32(i))
	}

	f.mu.Lock()

	if tracked {
		t.waiting[who].Store(NoOne)
	}
	if !f.holder.CompareAndSwap(NoOne, int32(who)) {
		t.violations.Add(1)
		f.holder.Store(int32(who))
	}

	return &Guard{f: f, index: i, who: who}
}

// Holder 返回叉子 i 的当前持有者，空闲时返回 NoOne
func (t *Table) Holder(i int) int {
	return int(t.fork(i).holder.Load())
}

// Violations 返回观察到的互斥破坏次数
func (t *Table) Violations() int64 {
	return t.violations.Load()
}

func (t *Table) fork(i int) *fork {
	if i < 0 || i >= t.forks.Len() {
		panic(fmt.Sprintf("table: fork index %d out of range [0,%d)", i, t.forks.Len()))
	}
	return t.forks.Get(i)
}

// ═══════════════════════════════════════════════════════════════════════════
// Guard
// ═══════════════════════════════════════════════════════════════════════════

// Guard 一次叉子持有，Release 后失效
type Guard struct {
	f        *fork
	index    int
	who      int
	released atomic.Bool
}

// Fork 返回所持叉子的下标
func (g *Guard) Fork() int {
	return g.index
}

// Release 归还叉子，重复调用无副作用
func (g *Guard) Release() {
	if g == nil || !g.released.CompareAndSwap(false, true) {
		return
	}
	g.f.holder.CompareAndSwap(int32(g.who), NoOne)
	g.f.mu.Unlock()
}
