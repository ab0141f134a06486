// Package audit records every non-safe verdict, either to a durable local
// store or as a notification to an operator channel. Exactly one delivery
// mode is active per process.
package audit

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/xaenox/filter-bot/internal/metrics"
	"github.com/xaenox/filter-bot/internal/models"
	"github.com/xaenox/filter-bot/internal/storage"
	"go.uber.org/zap"
)

type Mode string

const (
	ModeFile     Mode = "file"
	ModeChannel  Mode = "channel"
	ModePostgres Mode = "postgres"
)

// ParseMode accepts the configured mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeFile, ModeChannel, ModePostgres:
		return m, nil
	}
	return "", fmt.Errorf("unknown audit mode %q", s)
}

// Notifier delivers an HTML-formatted message to an operator channel.
type Notifier interface {
	SendToChannel(ctx context.Context, channel string, text string) error
}

// AuditError wraps a failed write. It never reaches the requester.
type AuditError struct {
	Mode Mode
	Err  error
}

func (e *AuditError) Error() string {
	return fmt.Sprintf("audit %s write failed: %v", e.Mode, e.Err)
}

func (e *AuditError) Unwrap() error {
	return e.Err
}

var errNoStore = errors.New("no audit store configured")

type Config struct {
	Mode     Mode
	Store    storage.AuditStorage
	Notifier Notifier
	Channel  string
	// Timeout bounds how long Record waits for delivery. Zero means 10s.
	Timeout time.Duration
}

type Sink struct {
	mode     Mode
	store    storage.AuditStorage
	notifier Notifier
	channel  string
	timeout  time.Duration
	logger   *zap.Logger

	retries   uint64
	retryBase time.Duration
}

func NewSink(cfg Config, logger *zap.Logger) (*Sink, error) {
	switch cfg.Mode {
	case ModeFile, ModePostgres:
		if cfg.Store == nil {
			return nil, fmt.Errorf("audit mode %s: %w", cfg.Mode, errNoStore)
		}
	case ModeChannel:
		if cfg.Notifier == nil {
			return nil, fmt.Errorf("audit mode %s: no notifier", cfg.Mode)
		}
		if cfg.Channel == "" {
			logger.Warn("Audit log channel not configured, ban notifications will be skipped")
		}
	default:
		return nil, fmt.Errorf("unknown audit mode %q", cfg.Mode)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Sink{
		mode:      cfg.Mode,
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		channel:   cfg.Channel,
		timeout:   timeout,
		logger:    logger,
		retries:   2,
		retryBase: 500 * time.Millisecond,
	}, nil
}

func (s *Sink) Mode() Mode {
	return s.mode
}

// Record writes one audit record. Failures are logged and swallowed; the
// return value only reports whether the record was delivered within the
// sink timeout. A delivery still in flight at the deadline keeps running in
// the background and Record returns false without waiting for it.
func (s *Sink) Record(ctx context.Context, record *models.AuditRecord) bool {
	record.Channel = string(s.mode)
	logger := s.logger.With(
		zap.String("request_id", record.RequestID),
		zap.Int64("member_id", record.Member.ID),
		zap.String("verdict", record.Verdict),
		zap.String("mode", string(s.mode)))

	if s.mode == ModeChannel && s.channel == "" {
		logger.Warn("Log channel ID not provided, skipping audit notification")
		metrics.ObserveAudit(string(s.mode), false)
		return false
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	done := make(chan bool, 1)
	go func() {
		defer cancel()
		done <- s.deliver(writeCtx, record, logger)
	}()

	select {
	case ok := <-done:
		return ok
	case <-writeCtx.Done():
		select {
		case ok := <-done:
			return ok
		default:
		}
		logger.Warn("Audit write did not finish in time, not waiting for it",
			zap.Duration("timeout", s.timeout))
		return false
	}
}

func (s *Sink) deliver(ctx context.Context, record *models.AuditRecord, logger *zap.Logger) bool {
	err := s.write(ctx, record)
	metrics.ObserveAudit(string(s.mode), err == nil)
	if err != nil {
		logger.Error("Failed to write audit record", zap.Error(err))
		return false
	}
	logger.Info("Audit record written", zap.String("action", string(record.Action)))
	return true
}

func (s *Sink) write(ctx context.Context, record *models.AuditRecord) error {
	if s.mode != ModeChannel {
		if err := s.store.Append(ctx, record); err != nil {
			return &AuditError{Mode: s.mode, Err: err}
		}
		return nil
	}

	text := FormatNotification(record)
	backoff := retry.WithMaxRetries(s.retries, retry.NewExponential(s.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.notifier.SendToChannel(ctx, s.channel, text); err != nil {
			s.logger.Warn("Audit notification failed", zap.Error(err), zap.String("channel", s.channel))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return &AuditError{Mode: s.mode, Err: err}
	}
	return nil
}

// FormatNotification renders the operator-channel message with a clickable
// reference to the member.
func FormatNotification(record *models.AuditRecord) string {
	title := "Abusive Message Alert"
	if record.Action == models.ActionMemberBanned || record.Action == models.ActionBoth {
		title = "User Banned Alert"
	}

	name := record.Member.FullName()
	if name == "" {
		name = fmt.Sprintf("user %d", record.Member.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", title)
	fmt.Fprintf(&b, "User: <a href=\"tg://user?id=%d\">%s</a>\n", record.Member.ID, html.EscapeString(name))
	fmt.Fprintf(&b, "Reason: %s\n", html.EscapeString(record.Verdict))
	fmt.Fprintf(&b, "Action: %s\n", record.Action)
	fmt.Fprintf(&b, "Message: %s", html.EscapeString(record.MessageText))
	return b.String()
}
