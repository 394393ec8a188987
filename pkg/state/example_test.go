package state_test

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lwmacct/251215-go-pkg-dining/pkg/state"
)

// Example_format 演示事件文本
func Example_format() {
	fmt.Println(state.Thinking{ID: 3, For: 120 * time.Millisecond})
	fmt.Println(state.Waiting{ID: 3})
	fmt.Println(state.Eating{ID: 3, For: 45 * time.Millisecond})

	// Output:
	// Philosopher 3 is thinking for 120 ms
	// Philosopher 3 is waiting to eat
	// Philosopher 3 is eating for 45 ms
}

// Example_channel 演示多生产者单消费者通道：最后一个生产者关闭后接收端得到 ErrClosed
func Example_channel() {
	tx, rx := state.NewUnbounded()
	defer rx.Close()

	a, b := tx.Clone(), tx.Clone()
	tx.Close()

	_ = a.Send(state.Waiting{ID: 0})
	a.Close()
	_ = b.Send(state.Eating{ID: 1, For: 10 * time.Millisecond})
	b.Close()

	r := state.NewTextRenderer(os.Stdout, state.WithAligned(true))
	for {
		ev, err := rx.Recv(context.Background())
		if state.IsClosed(err) {
			fmt.Println("closed")
			return
		}
		_ = r.Render(ev)
	}

	// Output:
	// Philosopher   0 is waiting    to eat
	// Philosopher   1 is eating     for    10 ms
	// closed
}
