// Package delivery sends fired reminders to the chat transport.
//
// Retries here are a small fixed-count courtesy for transient transport
// errors; after the last attempt the failure is terminal and only visible
// in logs. The timer engine above never retries.
package delivery

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	kit "remindbot/internal/transport"
	"remindbot/pkg/logx"
)

const messagePrefix = "⏰ Reminder: "

type Config struct {
	RatePerSec  int           // outbound sends per second (Telegram flood limits)
	RetryMax    int           // additional attempts after the first
	RetryBase   time.Duration // linear backoff step between attempts
	SendTimeout time.Duration // per-attempt timeout
}

func (c Config) withDefaults() Config {
	if c.RatePerSec <= 0 {
		c.RatePerSec = 25
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	return c
}

type Service struct {
	cfg     Config
	adapter kit.Adapter
	log     logx.Logger
	limiter *rate.Limiter
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		adapter: adapter,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Send delivers one reminder text. It matches scheduler.Delivery.
func (s *Service) Send(ctx context.Context, chatID int64, text string) error {
	msg := messagePrefix + text

	var err error
	attempts := 1 + s.cfg.RetryMax
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = s.limiter.Wait(ctx); err != nil {
			return err
		}

		sctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
		_, err = s.adapter.SendText(sctx, chatID, msg, &kit.SendOptions{DisablePreview: true})
		cancel()
		if err == nil {
			s.log.Debug("reminder delivered", logx.Int64("chat_id", chatID), logx.Int("attempt", attempt))
			return nil
		}
		if attempt == attempts {
			break
		}

		s.log.Warn("reminder send failed; retrying",
			logx.Int64("chat_id", chatID),
			logx.Int("attempt", attempt),
			logx.Err(err),
		)
		t := time.NewTimer(s.cfg.RetryBase * time.Duration(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	s.log.Error("reminder delivery failed",
		logx.Int64("chat_id", chatID),
		logx.Int("attempts", attempts),
		logx.Err(err),
	)
	return err
}
