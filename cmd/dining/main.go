// Package main 哲学家就餐模拟的命令行入口
//
//	dining --philosophers 5 --min-ms 0 --max-ms 1000 --duration 10s
//
// 状态事件输出到标准输出，日志输出到标准错误。
// 配置来源按优先级：命令行参数 > DINING_* 环境变量 > 配置文件（--config 或 $HOME/.dining.yaml）> 默认值。
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
