// Package state 提供哲学家状态事件及其投递通道
//
// # 事件
//
// [Event] 是一个封闭的和类型，只有三种取值：
// [Thinking]、[Waiting]、[Eating]。每个事件携带发出者编号，
// Thinking 与 Eating 另带时长，Waiting 只标记开始阻塞获取叉子。
// 事件构造后不可变。
//
// # 通道
//
// [New] 创建多生产者单消费者通道，返回 [Sender] 与 [Receiver]：
//
//	tx, rx := state.New(state.Unbounded)
//	worker := tx.Clone()  // 每个生产者一个克隆
//	tx.Close()            // 释放创建者自己的端点
//
// 容量决定投递方式：
//   - Unbounded（-1）：发送从不阻塞，队列无背压地增长
//   - 0：同步交接，每次发送阻塞到消费者取走为止
//   - n > 0：有界缓冲
//
// 所有 Sender 关闭且队列取空后，[Receiver.Recv] 返回 [ErrClosed]；
// 接收端关闭后，[Sender.Send] 返回 [ErrClosed]。
// 同一生产者发出的事件按顺序到达，不同生产者之间不保证顺序。
//
// # 渲染
//
// [Renderer] 消费事件。[TextRenderer] 输出
// "Philosopher <id> is <activity> for <duration> ms" 形式的文本行，
// 可选 fatih/color 着色；[Discard] 丢弃全部事件。
package state
