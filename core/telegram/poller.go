package telegram

import (
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/choicebot/core/config"
	"github.com/m3rciful/choicebot/core/netutil"
)

const (
	defaultLongPollTimeout = 10
	// pollHeadroom keeps client deadlines clear of a getUpdates call that
	// legitimately holds the response for the whole poll timeout.
	pollHeadroom = 15 * time.Second
)

// BuildPoller returns the webhook or long-polling poller selected by cfg.
// cfg is expected to be normalized.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: longPollTimeout(cfg) * time.Second}
}

func longPollTimeout(cfg *coreconfig.Config) time.Duration {
	if cfg.Telegram.LongPollTimeoutSeconds > 0 {
		return time.Duration(cfg.Telegram.LongPollTimeoutSeconds)
	}
	return defaultLongPollTimeout
}

// ClientOptions returns HTTP client settings whose deadlines outlast the
// long-poll timeout, so an idle getUpdates never trips them.
func ClientOptions(cfg *coreconfig.Config) netutil.ClientOptions {
	poll := longPollTimeout(cfg) * time.Second
	return netutil.ClientOptions{
		ResponseHeaderTimeout: poll + pollHeadroom,
		Timeout:               max(30*time.Second, poll+2*pollHeadroom),
	}
}
