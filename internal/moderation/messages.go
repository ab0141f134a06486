package moderation

import (
	"fmt"

	"github.com/xaenox/filter-bot/internal/models"
)

const (
	ReplyMissingTarget     = "Please reply to a message with /report to report it."
	ReplyNoContent         = "I can only analyze texts or captions messages for now."
	ReplyNoText            = "I can only analyze text messages for now."
	ReplyUnknownAuthor     = "I can't tell who sent that message, so I can't act on it."
	ReplyOracleUnavailable = "The classification service is not configured."
	ReplyAnalysisFailed    = "An error occurred while analyzing the message."
	ReplySafe              = "Message seems safe."
)

func outcomeReply(verdict models.Verdict, author models.Member, o models.EnforcementOutcome) string {
	label := verdict.Label
	name := author.ShortName()

	if o.Skipped {
		return fmt.Sprintf("Message analyzed as %s.", label)
	}

	deleteFailed := o.DeleteAttempted && !o.Deleted
	banFailed := o.BanAttempted && !o.Banned

	switch {
	case deleteFailed && banFailed:
		return fmt.Sprintf("Message analyzed as %s, but I couldn't delete the message or ban the user. Make sure I am an admin.", label)
	case banFailed:
		return fmt.Sprintf("Message analyzed as %s, but I couldn't ban the user. Make sure I am an admin.", label)
	case o.Banned && deleteFailed:
		return fmt.Sprintf("Message analyzed as %s. User %s has been banned, but I couldn't delete the message.", label, name)
	case o.Banned:
		return fmt.Sprintf("Message analyzed as %s. User %s has been banned.", label, name)
	case deleteFailed:
		return fmt.Sprintf("Message analyzed as %s, but I couldn't delete the message. Make sure I am an admin.", label)
	default:
		return fmt.Sprintf("Message analyzed as %s. The message has been deleted.", label)
	}
}
