package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Unbounded 无界容量标记
const Unbounded = -1

// ErrClosed 对端已关闭
//
// Send 返回它表示接收端已被丢弃；Recv 返回它表示所有发送端已关闭且队列已空。
var ErrClosed = errors.New("state: channel closed")

// IsClosed 判断错误是否由通道关闭引起
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// channel 通道共享部分
type channel struct {
	capacity int

	// 有界 / 同步模式
	c chan Event

	// 无界模式
	queue  []Event
	notify chan struct{}

	mu      sync.Mutex
	senders int

	// 接收端关闭信号
	done     chan struct{}
	doneOnce sync.Once
}

// New 创建状态通道
//
// capacity < 0 为无界，0 为同步交接，> 0 为有界缓冲。
func New(capacity int) (*Sender, *Receiver) {
	ch := &channel{
		capacity: capacity,
		senders:  1,
		done:     make(chan struct{}),
	}
	if capacity < 0 {
		ch.capacity = Unbounded
		ch.notify = make(chan struct{}, 1)
	} else {
		ch.c = make(chan Event, capacity)
	}
	return &Sender{ch: ch}, &Receiver{ch: ch}
}

// NewUnbounded 创建无界通道
func NewUnbounded() (*Sender, *Receiver) {
	return New(Unbounded)
}

// NewSync 创建同步交接通道
func NewSync() (*Sender, *Receiver) {
	return New(0)
}

func (ch *channel) unbounded() bool {
	return ch.capacity == Unbounded
}

func (ch *channel) receiverGone() bool {
	select {
	case <-ch.done:
		return true
	default:
		return false
	}
}

func (ch *channel) send(ev Event) error {
	if ch.receiverGone() {
		return ErrClosed
	}

	if ch.unbounded() {
		ch.mu.Lock()
		if ch.receiverGone() {
			ch.mu.Unlock()
			return ErrClosed
		}
		ch.queue = append(ch.queue, ev)
		ch.mu.Unlock()
		ch.wake()
		return nil
	}

	select {
	case ch.c <- ev:
		return nil
	case <-ch.done:
		return ErrClosed
	}
}

func (ch *channel) recv(ctx context.Context) (Event, error) {
	if !ch.unbounded() {
		select {
		case ev, ok := <-ch.c:
			if !ok {
				return nil, ErrClosed
			}
			return ev, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	for {
		ch.mu.Lock()
		if len(ch.queue) > 0 {
			ev := ch.queue[0]
			ch.queue[0] = nil
			ch.queue = ch.queue[1:]
			ch.mu.Unlock()
			return ev, nil
		}
		if ch.senders == 0 {
			ch.mu.Unlock()
			return nil, ErrClosed
		}
		ch.mu.Unlock()

		select {
		case <-ch.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (ch *channel) wake() {
	select {
	case ch.notify <- struct{}{}:
	default:
	}
}

func (ch *channel) addSender() {
	ch.mu.Lock()
	ch.senders++
	ch.mu.Unlock()
}

func (ch *channel) releaseSender() {
	ch.mu.Lock()
	ch.senders--
	last := ch.senders == 0
	ch.mu.Unlock()

	if !last {
		return
	}
	if ch.unbounded() {
		ch.wake()
		return
	}
	// 每个 Sender 的发送都先于它自己的 Close，最后一个 Close 之后不会再有发送
	close(ch.c)
}

func (ch *channel) closeReceiver() {
	ch.doneOnce.Do(func() {
		close(ch.done)
		if ch.unbounded() {
			ch.mu.Lock()
			ch.queue = nil
			ch.mu.Unlock()
		}
	})
}

// ═══════════════════════════════════════════════════════════════════════════
// Sender / Receiver
// ═══════════════════════════════════════════════════════════════════════════

// Sender 生产者端点
//
// 每个生产者持有自己的克隆，单个 Sender 不应被多个 goroutine 同时使用。
type Sender struct {
	ch     *channel
	closed atomic.Bool
}

// Clone 创建新的生产者端点
//
// 对已关闭的 Sender 克隆得到的端点同样是关闭的。
func (s *Sender) Clone() *Sender {
	if s.closed.Load() {
		c := &Sender{ch: s.ch}
		c.closed.Store(true)
		return c
	}
	s.ch.addSender()
	return &Sender{ch: s.ch}
}

// Send 发送事件
//
// 无界模式从不阻塞；同步与有界模式在缓冲满时阻塞，直到被取走或接收端关闭。
// nil Sender 视为已关闭。
func (s *Sender) Send(ev Event) error {
	if s == nil || s.closed.Load() {
		return ErrClosed
	}
	return s.ch.send(ev)
}

// Close 释放此端点，重复调用无副作用
func (s *Sender) Close() {
	if s != nil && s.closed.CompareAndSwap(false, true) {
		s.ch.releaseSender()
	}
}

// Receiver 唯一的消费者端点
type Receiver struct {
	ch *channel
}

// Recv 接收下一个事件，阻塞直到有事件、通道关闭或 ctx 取消
func (r *Receiver) Recv(ctx context.Context) (Event, error) {
	return r.ch.recv(ctx)
}

// Capacity 返回通道容量，Unbounded 表示无界
func (r *Receiver) Capacity() int {
	return r.ch.capacity
}

// Close 丢弃接收端，之后的 Send 返回 ErrClosed
func (r *Receiver) Close() {
	r.ch.closeReceiver()
}
