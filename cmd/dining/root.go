package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lwmacct/251215-go-pkg-dining/pkg/dining"
	"github.com/lwmacct/251215-go-pkg-dining/pkg/state"
	"github.com/lwmacct/251215-go-pkg-dining/pkg/table"
)

var (
	cfgFile   string // 配置文件路径
	logLevel  string // 日志级别
	quiet     bool   // 不输出状态事件
	noColour  bool   // 关闭着色
	aligned   bool   // 按列对齐输出
	noWaiting bool   // 不发出 Waiting 事件
)

// flagKeys 命令行参数到配置键（Config 的 mapstructure 标签）的映射
var flagKeys = map[string]string{
	"philosophers":     "philosophers",
	"min-ms":           "min_ms",
	"max-ms":           "max_ms",
	"duration":         "duration",
	"capacity":         "capacity",
	"order":            "order",
	"deadlock-check":   "deadlock_check",
	"shutdown-timeout": "shutdown_timeout",
}

var rootCmd = &cobra.Command{
	Use:   "dining",
	Short: "Dining philosophers simulation",
	Long: `dining runs N philosophers around a table of N forks

Every philosopher thinks, waits for both neighbouring forks, eats and puts
the forks back, reporting each state change as a line on stdout.
With the default naive order the ring can deadlock; use --order ascending
or --order asymmetric to break the cycle, and --deadlock-check to watch for it.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDining,
}

func init() {
	cobra.OnInitialize(initConfig)

	def := dining.DefaultConfig()
	flags := rootCmd.Flags()
	flags.Int("philosophers", def.Philosophers, "number of philosophers (and forks), at least 2")
	flags.Int("min-ms", def.MinMS, "lower bound of think/eat duration in milliseconds")
	flags.Int("max-ms", def.MaxMS, "upper bound (exclusive) of think/eat duration in milliseconds")
	flags.Duration("duration", def.Duration, "total run time, 0 runs until interrupted")
	flags.Int("capacity", def.Capacity, "state channel capacity: -1 unbounded, 0 synchronous, n bounded")
	flags.String("order", string(def.Order), "fork acquisition order: naive, ascending or asymmetric")
	flags.Duration("deadlock-check", def.DeadlockCheck, "circular wait detection interval, 0 disables")
	flags.Duration("shutdown-timeout", def.ShutdownTimeout, "give up waiting for philosophers after this long, 0 waits forever")
	flags.BoolVar(&noWaiting, "no-waiting", false, "do not report the waiting state")
	flags.BoolVar(&quiet, "quiet", false, "do not print state events")
	flags.BoolVar(&aligned, "aligned", false, "print state events in aligned columns")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dining.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&noColour, "no-colour", false, "disable colour output")

	for name, key := range flagKeys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	viper.SetDefault("report_waiting", def.ReportWaiting)
}

// initConfig 读取配置文件与环境变量
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".dining")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME")
	}
	viper.SetEnvPrefix("DINING")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		// 显式指定的配置文件读不到时不静默忽略
		fmt.Fprintln(os.Stderr, "dining: read config:", err)
		os.Exit(1)
	}
}

// loadConfig 合并 viper 中的各来源得到模拟配置
func loadConfig(cmd *cobra.Command) (*dining.Config, error) {
	cfg := dining.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cmd.Flags().Changed("no-waiting") {
		cfg.ReportWaiting = !noWaiting
	}
	return cfg, nil
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", logLevel, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func newRenderer() state.Renderer {
	if quiet {
		return state.Discard
	}
	return state.NewTextRenderer(os.Stdout,
		state.WithColour(!noColour && !color.NoColor),
		state.WithAligned(aligned),
	)
}

func runDining(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	alert := color.New(color.FgRed, color.Bold)
	if noColour {
		alert.DisableColor()
	}

	report, err := dining.Run(ctx, cfg,
		dining.WithRenderer(newRenderer()),
		dining.WithDeadlockHandler(func(c table.Cycle, _ table.Snapshot) {
			alert.Fprintf(os.Stderr, "circular wait: %s\n", c)
		}),
	)
	if report != nil {
		for _, s := range report.Stats {
			logger.Info("philosopher summary",
				"philosopher", s.Philosopher,
				"meals", s.Meals,
				"avg_wait", s.AverageWait,
				"max_wait", s.MaxWait)
		}
	}
	if err != nil {
		logger.Error("dining failed", "error", err)
		return err
	}
	return nil
}
