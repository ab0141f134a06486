package models

import "time"

// Member is a chat participant as seen by the gateway.
type Member struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// FullName joins first and last name, falling back to the handle.
func (m Member) FullName() string {
	name := m.FirstName
	if m.LastName != "" {
		if name != "" {
			name += " "
		}
		name += m.LastName
	}
	if name == "" {
		name = m.Username
	}
	return name
}

// ShortName is the name used when addressing a member in a reply.
func (m Member) ShortName() string {
	if m.FirstName != "" {
		return m.FirstName
	}
	if m.Username != "" {
		return m.Username
	}
	return "the user"
}

// TargetMessage is the message a moderator replied to.
type TargetMessage struct {
	MessageID int    `json:"message_id"`
	Text      string `json:"text,omitempty"`
	Caption   string `json:"caption,omitempty"`
	Author    Member `json:"author"`
}

// ModerationRequest is built once per /report command and never mutated.
type ModerationRequest struct {
	ID         string         `json:"id"`
	ChatID     int64          `json:"chat_id"`
	CommandID  int            `json:"command_id"`
	Requester  Member         `json:"requester"`
	Target     *TargetMessage `json:"target,omitempty"`
	ReceivedAt time.Time      `json:"received_at"`
}

// Verdict is the parsed oracle judgment for one request.
type Verdict struct {
	Label   string `json:"label"`
	Abusive bool   `json:"abusive"`
	Raw     string `json:"raw,omitempty"`
}

// Action summarizes which destructive actions actually succeeded.
type Action string

const (
	ActionNone           Action = "none"
	ActionMessageDeleted Action = "message-deleted"
	ActionMemberBanned   Action = "member-banned"
	ActionBoth           Action = "both"
)

// EnforcementOutcome records each sub-action independently.
type EnforcementOutcome struct {
	Skipped         bool  `json:"skipped"`
	DeleteAttempted bool  `json:"delete_attempted"`
	Deleted         bool  `json:"deleted"`
	DeleteErr       error `json:"-"`
	BanAttempted    bool  `json:"ban_attempted"`
	Banned          bool  `json:"banned"`
	BanErr          error `json:"-"`
}

// Action reports what was actually done.
func (o EnforcementOutcome) Action() Action {
	switch {
	case o.Deleted && o.Banned:
		return ActionBoth
	case o.Deleted:
		return ActionMessageDeleted
	case o.Banned:
		return ActionMemberBanned
	default:
		return ActionNone
	}
}

// Complete is true when every attempted sub-action succeeded.
func (o EnforcementOutcome) Complete() bool {
	return (!o.DeleteAttempted || o.Deleted) && (!o.BanAttempted || o.Banned)
}

// AuditRecord is one append-only entry per non-safe verdict.
type AuditRecord struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id"`
	Timestamp   time.Time `json:"timestamp"`
	ChatID      int64     `json:"chat_id"`
	Member      Member    `json:"member"`
	Verdict     string    `json:"verdict"`
	Action      Action    `json:"action"`
	MessageText string    `json:"message_text"`
	Channel     string    `json:"channel"`
}

// UsernamePlaceholder stands in for members without a public handle.
const UsernamePlaceholder = "N/A"

// UsernameOrPlaceholder returns the handle or the literal placeholder.
func (r AuditRecord) UsernameOrPlaceholder() string {
	if r.Member.Username == "" {
		return UsernamePlaceholder
	}
	return r.Member.Username
}
