// Package enforcement performs the destructive chat actions taken against an
// abusive message: deleting it and banning its author.
package enforcement

import (
	"context"
	"fmt"

	"github.com/xaenox/filter-bot/internal/metrics"
	"github.com/xaenox/filter-bot/internal/models"
	"go.uber.org/zap"
)

// Gateway is the subset of the chat platform the executor mutates through.
type Gateway interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	BanMember(ctx context.Context, chatID int64, memberID int64) error
}

// EnforcementError describes sub-actions that failed. Partial success is
// expected and is reported, not treated as fatal.
type EnforcementError struct {
	DeleteErr error
	BanErr    error
}

func (e *EnforcementError) Error() string {
	switch {
	case e.DeleteErr != nil && e.BanErr != nil:
		return fmt.Sprintf("delete failed: %v; ban failed: %v", e.DeleteErr, e.BanErr)
	case e.DeleteErr != nil:
		return fmt.Sprintf("delete failed: %v", e.DeleteErr)
	default:
		return fmt.Sprintf("ban failed: %v", e.BanErr)
	}
}

func (e *EnforcementError) Unwrap() []error {
	var errs []error
	for _, err := range []error{e.DeleteErr, e.BanErr} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Err returns an *EnforcementError when any attempted sub-action failed.
func Err(o models.EnforcementOutcome) error {
	if o.DeleteErr == nil && o.BanErr == nil {
		return nil
	}
	return &EnforcementError{DeleteErr: o.DeleteErr, BanErr: o.BanErr}
}

type Executor struct {
	gateway       Gateway
	deleteMessage bool
	banMember     bool
	logger        *zap.Logger
}

func NewExecutor(gateway Gateway, deleteMessage, banMember bool, logger *zap.Logger) *Executor {
	return &Executor{
		gateway:       gateway,
		deleteMessage: deleteMessage,
		banMember:     banMember,
		logger:        logger,
	}
}

// Enabled is false when configuration turns off both actions.
func (e *Executor) Enabled() bool {
	return e.deleteMessage || e.banMember
}

// Enforce deletes the message, then bans the member. Each call is made once;
// a failed delete does not prevent the ban and a failed ban does not undo the
// delete.
func (e *Executor) Enforce(ctx context.Context, chatID int64, messageID int, memberID int64) models.EnforcementOutcome {
	var outcome models.EnforcementOutcome
	if !e.Enabled() {
		outcome.Skipped = true
		return outcome
	}

	if e.deleteMessage {
		outcome.DeleteAttempted = true
		if err := e.gateway.DeleteMessage(ctx, chatID, messageID); err != nil {
			outcome.DeleteErr = err
			e.logger.Error("Failed to delete message",
				zap.Error(err),
				zap.Int64("chat_id", chatID),
				zap.Int("message_id", messageID))
		} else {
			outcome.Deleted = true
		}
		metrics.ObserveEnforcement("delete", outcome.Deleted)
	}

	if e.banMember {
		outcome.BanAttempted = true
		if err := e.gateway.BanMember(ctx, chatID, memberID); err != nil {
			outcome.BanErr = err
			e.logger.Error("Failed to ban member",
				zap.Error(err),
				zap.Int64("chat_id", chatID),
				zap.Int64("member_id", memberID))
		} else {
			outcome.Banned = true
		}
		metrics.ObserveEnforcement("ban", outcome.Banned)
	}

	return outcome
}
