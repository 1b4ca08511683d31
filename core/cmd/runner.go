// Package cmd wires configuration, bootstrap and the selected platform runtime.
package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m3rciful/choicebot/core/bootstrap"
	coreconfig "github.com/m3rciful/choicebot/core/config"
	"github.com/m3rciful/choicebot/core/line"
	"github.com/m3rciful/choicebot/core/logger"
	coretelegram "github.com/m3rciful/choicebot/core/telegram"
)

// Options describe how to load configuration, bootstrap the app, and run the bot.
// Nil hooks use the real implementations.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (*coreconfig.Config, error)
	Bootstrap  func(ctx context.Context, opts bootstrap.Options) (*bootstrap.Result, error)

	ShutdownLogger func() error
	RunLine        func(ctx context.Context, opts line.RunOptions) error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error

	// Context replaces the signal-bound root context, mainly for tests.
	Context context.Context
}

// Run loads configuration, bootstraps shared infrastructure and runs the
// configured platform until SIGINT or SIGTERM.
func Run(opts Options) error {
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}

	loadConfig := opts.LoadConfig
	if loadConfig == nil {
		loadConfig = coreconfig.Load
	}
	log.Printf("loading config: %s", cfgPath)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	ctx := opts.Context
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
	}

	boot := opts.Bootstrap
	if boot == nil {
		boot = bootstrap.Run
	}
	startedAt := time.Now()
	res, err := boot(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn(ctx, "app", "db.close", slog.String("status", "fail"), slog.String("err", err.Error()))
		}
	}()

	logger.Info(ctx, "app", "ready",
		slog.String("status", "ok"),
		slog.String("platform", cfg.Platform),
		slog.Duration("duration", logger.RoundMS(time.Since(startedAt))),
	)
	defer logger.Info(context.Background(), "app", "shutdown", slog.String("status", "ok"))

	switch cfg.Platform {
	case coreconfig.PlatformTelegram:
		run := opts.RunTelegram
		if run == nil {
			run = coretelegram.RunTelegram
		}
		return run(ctx, coretelegram.RunOptions{Config: cfg, Machine: res.Machine, Recorder: res.Recorder})
	default:
		run := opts.RunLine
		if run == nil {
			run = line.Run
		}
		return run(ctx, line.RunOptions{Config: cfg, Machine: res.Machine, Recorder: res.Recorder})
	}
}
