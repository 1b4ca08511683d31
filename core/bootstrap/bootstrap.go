// Package bootstrap initializes logging, the optional database and the answer
// machine shared by every platform.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/choicebot/core/answer"
	coreconfig "github.com/m3rciful/choicebot/core/config"
	coredatabase "github.com/m3rciful/choicebot/core/database"
	"github.com/m3rciful/choicebot/core/logger"
	"github.com/m3rciful/choicebot/core/session"
)

// Options control the bootstrap pipeline. Nil hooks use the real implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(context.Context, coreconfig.DatabaseConfig) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil when no database is configured.
	DB       *sqlx.DB
	Store    *session.Store
	Machine  *answer.Machine
	Recorder answer.Recorder
}

// Close releases the database connection, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger, optionally connects to the database and applies
// migrations, then builds the answer machine.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	store := session.NewStore()
	res := &Result{
		Store:    store,
		Machine:  answer.NewMachine(cfg.Question, store),
		Recorder: answer.LogRecorder{},
	}

	if !cfg.Database.Enabled() {
		logger.Info(ctx, "db", "db.disabled", slog.String("status", "skip"))
		return res, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}

	if err := migrate(ctx, cfg.Database); err != nil {
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	db, err := connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	res.DB = db
	res.Recorder = answer.MultiRecorder{answer.LogRecorder{}, coredatabase.NewPostgresRecorder(db)}
	return res, nil
}
