package telegram

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/choicebot/core/config"
	"github.com/m3rciful/choicebot/core/telegram/middleware"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// DefaultMiddlewares builds the shared chain: recover, optional rate limit, logger.
func DefaultMiddlewares(cfg *coreconfig.Config) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	if cfg != nil {
		if interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond; interval > 0 {
			ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
			for _, t := range cfg.RateLimit.ExcludeUpdates {
				ex[strings.ToLower(t)] = struct{}{}
			}
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use:  middleware.RateLimitMiddleware(middleware.RateLimitOptions{Interval: interval, Exclude: ex}),
			})
		}
	}

	return append(mws, Middleware{Name: "logger", Use: middleware.LoggerMiddleware})
}
