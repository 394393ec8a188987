package state

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Renderer 事件消费者
type Renderer interface {
	Render(ev Event) error
}

// RendererFunc 函数式 Renderer
type RendererFunc func(ev Event) error

// Render 实现 Renderer 接口
func (f RendererFunc) Render(ev Event) error {
	return f(ev)
}

// Discard 丢弃所有事件
var Discard Renderer = RendererFunc(func(Event) error { return nil })

// TextRenderer 把事件逐行写入 io.Writer
//
// Thread Safety: 并发安全，每行原子写入。
type TextRenderer struct {
	mu      sync.Mutex
	w       io.Writer
	aligned bool
	palette map[Activity]func(a ...interface{}) string
}

// TextOption TextRenderer 选项
type TextOption func(*TextRenderer)

// WithColour 按阶段着色：思考蓝色，等待黄色，进餐绿色
func WithColour(enabled bool) TextOption {
	return func(r *TextRenderer) {
		if !enabled {
			r.palette = nil
			return
		}
		r.palette = map[Activity]func(a ...interface{}) string{
			ActivityThinking: sprinter(color.FgBlue),
			ActivityWaiting:  sprinter(color.FgYellow),
			ActivityEating:   sprinter(color.FgGreen, color.Bold),
		}
	}
}

// WithAligned 使用 FormatAligned 的列对齐格式
func WithAligned(enabled bool) TextOption {
	return func(r *TextRenderer) {
		r.aligned = enabled
	}
}

// NewTextRenderer 创建文本渲染器，默认不着色、不对齐
func NewTextRenderer(w io.Writer, opts ...TextOption) *TextRenderer {
	r := &TextRenderer{w: w}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render 实现 Renderer 接口
func (r *TextRenderer) Render(ev Event) error {
	line := Format(ev)
	if r.aligned {
		line = FormatAligned(ev)
	}
	if paint, ok := r.palette[ev.Activity()]; ok {
		line = paint(line)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintln(r.w, line)
	return err
}

// sprinter 构造强制着色的 SprintFunc
//
// 是否着色由 WithColour 决定，不受终端检测影响。
func sprinter(attrs ...color.Attribute) func(a ...interface{}) string {
	c := color.New(attrs...)
	c.EnableColor()
	return c.SprintFunc()
}
