// Package dining 提供哲学家就餐问题的并发核心
//
// N 位哲学家围坐一张圆桌，相邻两人之间放一把叉子。每位哲学家由独立的工作协程驱动，
// 反复执行 思考 -> 等待 -> 取叉 -> 进餐 -> 放叉 的周期，并把每次状态变化
// 作为事件发送到共享的状态通道，由唯一的观察者按到达顺序渲染。
//
// # 核心组件
//
// [Config] 描述一次模拟：哲学家数量、随机时长范围、运行时长、通道容量、取叉顺序等。
// [Config.Validate] 在启动任何协程之前返回全部配置问题（均包装 [ErrInvalidConfig]）。
//
// [Setup] 按环形布局创建桌子与哲学家：哲学家 i 的左叉为 i，右叉为 (i+1) mod N。
//
// [Pool] 为每位哲学家启动一个工作协程。停止是协作式的，[Pool.Close] 阻塞到
// 所有工作协程退出并返回它们的失败，[Pool.CloseWithTimeout] 在超时后返回 [ShutdownTimeout]。
//
// [Run] 把以上组件串起来：创建通道、启动工作池、消费事件，
// 到期或 ctx 取消后关闭工作池并一直消费到通道关闭。
//
//	report, err := dining.Run(ctx, &dining.Config{
//		Philosophers: 5,
//		MinMS:        0,
//		MaxMS:        1000,
//		Duration:     10 * time.Second,
//		Capacity:     state.Unbounded,
//		Order:        dining.OrderAscending,
//	})
//
// # 取叉顺序
//
// [OrderNaive] 所有人先左后右，保留了经典的循环等待风险：所有人同时拿到左叉时程序会卡死。
// [OrderAscending] 先取编号较小的叉子，[OrderAsymmetric] 让最后一位哲学家反向取叉，
// 二者都打破了环路。
//
// 设置 Config.DeadlockCheck 后，工作池会周期性地对桌子做等待图快照，
// 连续两次看到同一个环才上报，日志中附带 Graphviz DOT 描述。
//
// # 错误处理
//
// 工作协程 panic 时叉子经 defer 释放，panic 被恢复为 [PanicError]，
// 与其他失败一起由 multierr 汇总后从 Close 返回。
// 观察者提前退出时发送返回 state.ErrClosed，工作协程记录警告后退出，不重试。
//
// 完整使用示例请参考 example_test.go 或运行 go doc -all。
package dining
