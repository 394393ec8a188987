// Package table 提供哲学家共享的叉子桌（资源表）
//
// 桌上有 N 把相互独立的互斥叉子，按环形排列，下标为 0..N-1。
// 叉子集合在构造后不可变（基于 immutable.List 共享），
// 单把叉子可被某位哲学家独占持有。
//
// # 获取与释放
//
// [Table.Lock] 阻塞直到叉子可用，返回一个 [Guard]。
// Guard 的 [Guard.Release] 幂等，推荐用 defer 调用，
// 这样即使持有者 panic，叉子也会在栈展开时归还：
//
//	g := t.Lock(left, id)
//	defer g.Release()
//
// 叉子本身不携带数据，因此不存在「锁中毒」：持有者 panic 后，
// 下一位获取者得到的是一把完全可用的叉子。
//
// # 诊断
//
// 表会记录每把叉子的当前持有者以及每位哲学家正在等待的叉子。
// [Table.Snapshot] 捕获这些信息，[DetectCycle] 在快照上查找循环等待，
// [Graph] 将快照渲染为 Graphviz DOT 格式的等待图。
//
// [Table.Violations] 统计互斥被破坏的次数（持有者槽位被非空覆盖），
// 正常情况下始终为 0。
package table
