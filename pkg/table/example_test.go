package table_test

import (
	"fmt"

	"github.com/lwmacct/251215-go-pkg-dining/pkg/table"
)

// Example_detectCycle 演示在等待图快照上查找循环等待
func Example_detectCycle() {
	// 两位哲学家各持一把叉子，并等待对方手里的那把
	snap := table.Snapshot{
		Holders: []int{0, 1},
		Waiting: []int{1, 0},
	}

	cycle, ok := table.DetectCycle(snap)
	fmt.Println(ok)
	fmt.Println(cycle)

	// Output:
	// true
	// P0 -> F1 -> P1 -> F0 -> P0
}

// Example_lock 演示叉子的获取与释放
func Example_lock() {
	t, err := table.New(3)
	if err != nil {
		fmt.Println(err)
		return
	}

	g := t.Lock(1, 2)
	fmt.Println(t.Holder(1))
	g.Release()
	g.Release()
	fmt.Println(t.Holder(1) == table.NoOne)

	// Output:
	// 2
	// true
}
