package dining

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig 配置错误，所有 ConfigError 都包装它
var ErrInvalidConfig = errors.New("dining: invalid configuration")

// ConfigError 配置校验失败，在任何 goroutine 启动之前返回
type ConfigError struct {
	Field  string
	Reason string
}

// Error 实现 error 接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("dining: invalid %s: %s", e.Field, e.Reason)
}

// Unwrap 返回 ErrInvalidConfig
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// PanicError 哲学家工作协程 panic
//
// 它表示逻辑缺陷，由 Pool.Close 返回，不会被吞掉。
type PanicError struct {
	Philosopher int
	Value       any
	Stack       []byte
}

// Error 实现 error 接口
func (e *PanicError) Error() string {
	return fmt.Sprintf("philosopher %d panicked: %v", e.Philosopher, e.Value)
}

// Unwrap 当 panic 值本身是 error 时返回它
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ShutdownTimeout 关闭超时：仍有工作协程未退出（典型原因是循环等待）
type ShutdownTimeout struct {
	Live    int
	Timeout time.Duration
}

// Error 实现 error 接口
func (e *ShutdownTimeout) Error() string {
	return fmt.Sprintf("pool shutdown timed out after %v with %d philosophers still running", e.Timeout, e.Live)
}
