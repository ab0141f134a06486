package moderation

import (
	"errors"
	"fmt"

	"github.com/xaenox/filter-bot/internal/classifier"
)

var (
	ErrMissingTarget       = errors.New("command is not a reply to a message")
	ErrNoAnalyzableContent = errors.New("target message has no text or caption")
	ErrUnknownAuthor       = errors.New("target message has no identifiable author")
	ErrOracleUnavailable   = errors.New("classification oracle is not configured")
)

// ValidationError rejects a request before any downstream call is made.
type ValidationError struct {
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid moderation request: %v", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

func invalid(reason error) error {
	return &ValidationError{Reason: reason}
}

// asOracleError makes sure every classification failure carries a kind.
func asOracleError(err error) error {
	if _, ok := classifier.IsOracleError(err); ok {
		return err
	}
	return &classifier.OracleError{Kind: classifier.KindTransport, Err: err}
}
