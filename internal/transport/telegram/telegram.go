// Package telegram delivers cycle digests to a Telegram chat.
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"appwatch/internal/monitor"
	logx "appwatch/pkg/logx"
)

// maxMessageLen is Telegram's hard per-message length limit.
const maxMessageLen = 4096

type Config struct {
	Token  string
	ChatID int64
	// PollTimeout configures the underlying bot client. <= 0 means 10s.
	PollTimeout time.Duration
	// RatePerSec bounds outgoing sends. <= 0 means 1.
	RatePerSec int
	// RetryMax is the number of retries inside one logical delivery.
	// < 0 disables retries; 0 means the default of 2.
	RetryMax int
}

// Notifier sends one digest per cycle. A digest that renders longer
// than Telegram's message limit is split at block boundaries; the
// delivery succeeds only when every part was sent.
type Notifier struct {
	cfg     Config
	bot     *tele.Bot
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, log logx.Logger) (*Notifier, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{
		cfg:     cfg,
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}, nil
}

// SendDigest performs the cycle's single logical delivery.
func (n *Notifier) SendDigest(ctx context.Context, d *monitor.Digest) error {
	if d == nil {
		return nil
	}
	chat := &tele.Chat{ID: n.cfg.ChatID}
	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	}

	for _, part := range splitMessage(d.Render()) {
		if err := n.sendWithRetry(ctx, chat, part, opts); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) sendWithRetry(ctx context.Context, chat *tele.Chat, text string, opts *tele.SendOptions) error {
	maxAttempts := 1
	switch {
	case n.cfg.RetryMax > 0:
		maxAttempts = 1 + n.cfg.RetryMax
	case n.cfg.RetryMax == 0:
		maxAttempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := n.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := n.bot.Send(chat, text, opts)
		if err == nil {
			return nil
		}
		lastErr = err
		n.log.Debug("digest send failed",
			logx.Err(err), logx.Int("attempt", attempt), logx.Int("max", maxAttempts))

		if attempt >= maxAttempts {
			break
		}
		// Exponential backoff: 500ms, 1s, 2s, ... capped at 5s.
		delay := 500 * time.Millisecond << (attempt - 1)
		if delay > 5*time.Second {
			delay = 5 * time.Second
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			if !t.Stop() {
				<-t.C
			}
			return ctx.Err()
		}
	}
	return lastErr
}

// splitMessage cuts text into Telegram-sized parts, preferring the
// digest's block separators, then line breaks, as cut points.
func splitMessage(text string) []string {
	if len(text) <= maxMessageLen {
		return []string{text}
	}

	var parts []string
	for len(text) > maxMessageLen {
		window := text[:maxMessageLen]
		cut := strings.LastIndex(window, "\n———\n")
		if cut <= 0 {
			cut = strings.LastIndex(window, "\n")
		}
		if cut <= 0 {
			cut = maxMessageLen
		}
		parts = append(parts, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
