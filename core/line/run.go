package line

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/choicebot/core/answer"
	"github.com/m3rciful/choicebot/core/buildinfo"
	coreconfig "github.com/m3rciful/choicebot/core/config"
	"github.com/m3rciful/choicebot/core/logger"
	"github.com/m3rciful/choicebot/core/netutil"
)

// RunOptions controls Run.
type RunOptions struct {
	Config   *coreconfig.Config
	Machine  *answer.Machine
	Recorder answer.Recorder
	// API replaces the Messaging API client, mainly for tests.
	API API
}

// Run serves the LINE webhook until ctx is done.
func Run(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return fmt.Errorf("line: nil config provided")
	}
	if opts.Machine == nil {
		return fmt.Errorf("line: nil machine provided")
	}
	cfg := opts.Config

	api := opts.API
	if api == nil {
		var err error
		api, err = NewAPI(cfg.Line.ChannelAccessToken, netutil.BuildHTTPClient(netutil.ClientOptions{}))
		if err != nil {
			return err
		}
	}

	svc := answer.NewService(opts.Machine, NewMessenger(api), opts.Recorder)
	srv := NewServer(cfg.Line.ChannelSecret, svc)

	q := opts.Machine.Question()
	logger.Info(ctx, "line", "line.start",
		slog.String("status", "ok"),
		slog.String("listen", cfg.Server.Addr()),
		slog.String("build", buildinfo.String()),
		slog.Int("question_id", q.ID),
		slog.Int("max", q.MaxRequired()),
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr())
}
