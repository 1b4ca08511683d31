// Package telegram runs the answer service on top of the telebot runtime.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/choicebot/core/answer"
	coreconfig "github.com/m3rciful/choicebot/core/config"
	"github.com/m3rciful/choicebot/core/logger"
	"github.com/m3rciful/choicebot/core/netutil"
	tghelpers "github.com/m3rciful/choicebot/core/telegram/helpers"
	"github.com/m3rciful/choicebot/core/telegram/router"
	"github.com/m3rciful/choicebot/core/telegram/sender"
)

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Machine  *answer.Machine
	Recorder answer.Recorder

	// Middlewares replaces DefaultMiddlewares when set.
	Middlewares []Middleware

	DisableWebhookCleanup bool
}

// RunTelegram composes and runs a Telegram bot until the provided context is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	if opts.Machine == nil {
		return fmt.Errorf("telegram: nil machine provided")
	}
	cfg := opts.Config
	httpClient := netutil.BuildHTTPClient(ClientOptions(cfg))
	poller := BuildPoller(cfg)

	buildStart := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  httpClient,
		OnError: onError,
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	buildTook := time.Since(buildStart)

	switch p := poller.(type) {
	case *tele.Webhook:
		logger.TG.Info("webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
	default:
		logger.TG.Info("polling mode",
			slog.String("event", "mode"),
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Int("timeout_seconds", int(longPollTimeout(cfg))),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
		if !opts.DisableWebhookCleanup {
			cleanupWebhook(ctx, httpClient, cfg.Telegram.Token)
		}
	}

	mws := opts.Middlewares
	if mws == nil {
		mws = DefaultMiddlewares(cfg)
	}
	for _, mw := range mws {
		if mw.Use != nil {
			bot.Use(mw.Use)
			logger.TWire.Debug("middleware registered", slog.String("event", "wire.middleware"), slog.String("handler", mw.Name))
		}
	}

	svc := answer.NewService(opts.Machine, sender.NewMessenger(bot), opts.Recorder)
	for _, route := range router.AnswerRoutes(svc, opts.Machine) {
		bot.Handle(route.Endpoint, route.Handler)
	}
	if err := bot.SetCommands([]tele.Command{{Text: "start", Description: "Answer the question"}}); err != nil {
		logger.TWire.Warn("set commands failed", slog.String("event", "wire.commands"), slog.String("err", sender.SanitizeError(err)))
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-runDone:
		return nil
	}
}

func onError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "tg.error",
		slog.String("status", "fail"),
		slog.String("err", sender.SanitizeError(err)),
		slog.String("err_code", sender.ClassifyError(err)),
	)
}

func cleanupWebhook(ctx context.Context, client *http.Client, token string) {
	if err := deleteWebhook(ctx, client, token); err != nil {
		logger.TG.Warn("failed to delete webhook",
			slog.String("event", "delete_webhook"),
			slog.String("err", sender.SanitizeError(err)),
		)
		return
	}
	logger.TG.Info("webhook deleted", slog.String("event", "delete_webhook"))
}

func deleteWebhook(ctx context.Context, client *http.Client, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("drop_pending_updates=false"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
