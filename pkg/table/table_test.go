package table

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tbl, err := New(5)
	require.NoError(t, err)
	assert.Equal(t, 5, tbl.Size())

	for i := 0; i < 5; i++ {
		assert.Equal(t, NoOne, tbl.Holder(i))
	}
}

func TestNewInvalidSize(t *testing.T) {
	for _, n := range []int{0, -1, -10} {
		tbl, err := New(n)
		assert.Nil(t, tbl)
		assert.ErrorIs(t, err, ErrInvalidSize)
	}
}

func TestLockRelease(t *testing.T) {
	tbl, err := New(3)
	require.NoError(t, err)

	g := tbl.Lock(1, 2)
	assert.Equal(t, 1, g.Fork())
	assert.Equal(t, 2, tbl.Holder(1))

	g.Release()
	assert.Equal(t, NoOne, tbl.Holder(1))

	// 重复释放无副作用
	g.Release()
	assert.Equal(t, NoOne, tbl.Holder(1))

	g2 := tbl.Lock(1, 0)
	assert.Equal(t, 0, tbl.Holder(1))
	g2.Release()
}

func TestLockOutOfRange(t *testing.T) {
	tbl, err := New(2)
	require.NoError(t, err)

	assert.Panics(t, func() { tbl.Lock(2, 0) })
	assert.Panics(t, func() { tbl.Lock(-1, 0) })
}

func TestLockBlocksUntilReleased(t *testing.T) {
	tbl, err := New(1)
	require.NoError(t, err)

	g := tbl.Lock(0, 0)

	var acquired atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		g2 := tbl.Lock(0, 1)
		acquired.Store(true)
		g2.Release()
	}()

	time.Sleep(30 * time.Millisecond)
	assert.False(t, acquired.Load(), "second holder must wait")

	g.Release()
	<-done
	assert.True(t, acquired.Load())
}

func TestRecoverAfterPanickingHolder(t *testing.T) {
	tbl, err := New(2)
	require.NoError(t, err)

	func() {
		defer func() { _ = recover() }()
		g := tbl.Lock(0, 0)
		defer g.Release()
		panic("holder failed")
	}()

	assert.Equal(t, NoOne, tbl.Holder(0))

	done := make(chan struct{})
	go func() {
		defer close(done)
		tbl.Lock(0, 1).Release()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fork was not recovered after panicking holder")
	}
}

func TestMutualExclusion(t *testing.T) {
	const n = 5
	tbl, err := New(n)
	require.NoError(t, err)

	// 每把叉子的独立占用计数，用于交叉校验 holder 槽位
	inUse := make([]atomic.Int32, n)
	var overlaps atomic.Int32

	var wg sync.WaitGroup
	for p := 0; p < n; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			first, second := p, (p+1)%n
			if first > second {
				first, second = second, first
			}
			for i := 0; i < 200; i++ {
				g1 := tbl.Lock(first, p)
				g2 := tbl.Lock(second, p)
				for _, f := range []int{first, second} {
					if inUse[f].Add(1) != 1 {
						overlaps.Add(1)
					}
					if tbl.Holder(f) != p {
						overlaps.Add(1)
					}
				}
				inUse[first].Add(-1)
				inUse[second].Add(-1)
				g2.Release()
				g1.Release()
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, int32(0), overlaps.Load())
	assert.Equal(t, int64(0), tbl.Violations())
	for i := 0; i < n; i++ {
		assert.Equal(t, NoOne, tbl.Holder(i))
	}
}
