package dining

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/lwmacct/251215-go-pkg-dining/pkg/state"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5, cfg.Philosophers)
	assert.Equal(t, 0, cfg.MinMS)
	assert.Equal(t, 1000, cfg.MaxMS)
	assert.Equal(t, state.Unbounded, cfg.Capacity)
	assert.True(t, cfg.ReportWaiting)
	assert.Equal(t, OrderNaive, cfg.Order)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"zero philosophers", func(c *Config) { c.Philosophers = 0 }, "philosophers"},
		{"negative philosophers", func(c *Config) { c.Philosophers = -1 }, "philosophers"},
		{"single philosopher", func(c *Config) { c.Philosophers = 1 }, "philosophers"},
		{"min above max", func(c *Config) { c.MinMS, c.MaxMS = 10, 5 }, "range"},
		{"negative min", func(c *Config) { c.MinMS = -1 }, "range"},
		{"negative duration", func(c *Config) { c.Duration = -time.Second }, "duration"},
		{"capacity below unbounded", func(c *Config) { c.Capacity = -2 }, "capacity"},
		{"empty order", func(c *Config) { c.Order = "" }, "order"},
		{"unknown order", func(c *Config) { c.Order = "random" }, "order"},
		{"negative deadlock check", func(c *Config) { c.DeadlockCheck = -time.Millisecond }, "deadlock_check"},
		{"negative shutdown timeout", func(c *Config) { c.ShutdownTimeout = -time.Millisecond }, "shutdown_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestConfigValidateAccepts(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"two philosophers", func(c *Config) { c.Philosophers = 2 }},
		{"fixed duration", func(c *Config) { c.MinMS, c.MaxMS = 10, 10 }},
		{"zero range", func(c *Config) { c.MinMS, c.MaxMS = 0, 0 }},
		{"sync channel", func(c *Config) { c.Capacity = 0 }},
		{"bounded channel", func(c *Config) { c.Capacity = 16 }},
		{"ascending", func(c *Config) { c.Order = OrderAscending }},
		{"asymmetric", func(c *Config) { c.Order = OrderAsymmetric }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestConfigValidateCollectsAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Philosophers = 1
	cfg.MinMS, cfg.MaxMS = 20, 10
	cfg.Order = "sideways"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
}

func TestOrderForks(t *testing.T) {
	const n = 5
	last := &Philosopher{ID: 4, Left: 4, Right: 0}
	first := &Philosopher{ID: 0, Left: 0, Right: 1}

	tests := []struct {
		order         Order
		ph            *Philosopher
		first, second int
	}{
		{OrderNaive, last, 4, 0},
		{OrderNaive, first, 0, 1},
		{OrderAscending, last, 0, 4},
		{OrderAscending, first, 0, 1},
		{OrderAsymmetric, last, 0, 4},
		{OrderAsymmetric, first, 0, 1},
	}

	for _, tt := range tests {
		a, b := tt.order.forks(tt.ph, n)
		assert.Equal(t, tt.first, a, "%s P%d first", tt.order, tt.ph.ID)
		assert.Equal(t, tt.second, b, "%s P%d second", tt.order, tt.ph.ID)
	}
}

func TestNewSpan(t *testing.T) {
	span, err := NewSpan(5, 20)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, span.Min)
	assert.Equal(t, 20*time.Millisecond, span.Max)

	_, err = NewSpan(-1, 5)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSpan(7, 3)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSpanSample(t *testing.T) {
	span, err := NewSpan(3, 8)
	require.NoError(t, err)

	for range 1000 {
		d := span.Sample()
		assert.GreaterOrEqual(t, d, 3*time.Millisecond)
		assert.Less(t, d, 8*time.Millisecond)
		assert.Zero(t, d%time.Millisecond)
	}

	fixed, err := NewSpan(10, 10)
	require.NoError(t, err)
	for range 10 {
		assert.Equal(t, 10*time.Millisecond, fixed.Sample())
	}

	zero, err := NewSpan(0, 0)
	require.NoError(t, err)
	assert.Zero(t, zero.Sample())
}

func TestNewPhilosopher(t *testing.T) {
	span, _ := NewSpan(0, 1)

	ph, err := NewPhilosopher(2, 2, 3, span, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, ph.ID)
	assert.Equal(t, 2, ph.Left)
	assert.Equal(t, 3, ph.Right)

	_, err = NewPhilosopher(1, 1, 1, span, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPhilosopher(0, -1, 1, span, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPhilosopher(0, 0, 1, Span{Min: time.Second, Max: time.Millisecond}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSetup(t *testing.T) {
	tx, rx := state.NewUnbounded()
	defer rx.Close()

	cfg := DefaultConfig()
	philosophers, tbl, err := Setup(cfg, tx)
	require.NoError(t, err)
	require.Len(t, philosophers, 5)
	assert.Equal(t, 5, tbl.Size())

	for i, ph := range philosophers {
		assert.Equal(t, i, ph.ID)
		assert.Equal(t, i, ph.Left)
		assert.Equal(t, (i+1)%5, ph.Right)
	}

	// 调用方的端点与哲学家的克隆全部关闭后通道才关闭
	tx.Close()
	closeOutputs(philosophers)
	_, err = rx.Recv(t.Context())
	assert.True(t, state.IsClosed(err))
}

func TestSetupTwoPhilosophers(t *testing.T) {
	tx, rx := state.NewUnbounded()
	defer rx.Close()
	defer tx.Close()

	cfg := DefaultConfig()
	cfg.Philosophers = 2
	philosophers, _, err := Setup(cfg, tx)
	require.NoError(t, err)
	defer closeOutputs(philosophers)

	assert.Equal(t, 0, philosophers[0].Left)
	assert.Equal(t, 1, philosophers[0].Right)
	assert.Equal(t, 1, philosophers[1].Left)
	assert.Equal(t, 0, philosophers[1].Right)
}

func TestSetupInvalidConfig(t *testing.T) {
	tx, rx := state.NewUnbounded()
	defer rx.Close()
	defer tx.Close()

	cfg := DefaultConfig()
	cfg.Philosophers = 1
	philosophers, tbl, err := Setup(cfg, tx)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Nil(t, philosophers)
	assert.Nil(t, tbl)
}

func TestPanicErrorUnwrap(t *testing.T) {
	cause := errors.New("fork exploded")
	err := error(&PanicError{Philosopher: 3, Value: cause})

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "philosopher 3 panicked")

	plain := &PanicError{Philosopher: 1, Value: "boom"}
	assert.Nil(t, plain.Unwrap())
}
