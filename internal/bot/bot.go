package bot

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/xaenox/filter-bot/internal/audit"
	"github.com/xaenox/filter-bot/internal/enforcement"
	"github.com/xaenox/filter-bot/internal/models"
	"go.uber.org/zap"
)

var (
	_ enforcement.Gateway = (*Bot)(nil)
	_ audit.Notifier      = (*Bot)(nil)
)

// Handler turns a moderation request into reply text.
type Handler interface {
	Handle(ctx context.Context, req *models.ModerationRequest) string
}

type Config struct {
	Token string
	// Timeout bounds every Bot API call, including long polls.
	Timeout     time.Duration
	PollTimeout int
}

// Bot is the Telegram side of the moderation pipeline: it receives commands
// and performs replies, deletions, bans and channel notifications.
type Bot struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
	logger      *zap.Logger
	wg          sync.WaitGroup
}

func New(cfg Config, logger *zap.Logger) (*Bot, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))
	return &Bot{
		api:         api,
		pollTimeout: cfg.PollTimeout,
		logger:      logger,
	}, nil
}

// Start polls for updates until ctx is canceled, handling each message in its
// own goroutine. In-flight requests are allowed to finish before it returns.
func (b *Bot) Start(ctx context.Context, handler Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout

	updates := b.api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	// Requests run to completion even during shutdown.
	reqCtx := context.WithoutCancel(ctx)
	for update := range updates {
		if update.Message == nil {
			continue
		}

		b.wg.Add(1)
		go func(message *tgbotapi.Message) {
			defer b.wg.Done()
			b.handleMessage(reqCtx, handler, message)
		}(update.Message)
	}

	b.wg.Wait()
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, handler Handler, message *tgbotapi.Message) {
	if !message.IsCommand() {
		return
	}

	switch message.Command() {
	case "start", "help":
		b.sendHTML(message.Chat.ID, helpText)
	case "report":
		req := newModerationRequest(message)
		b.logger.Info("Report received",
			zap.String("request_id", req.ID),
			zap.Int64("chat_id", req.ChatID),
			zap.Int64("requester_id", req.Requester.ID))
		reply := handler.Handle(ctx, req)
		if err := b.Reply(ctx, message.Chat.ID, message.MessageID, reply); err != nil {
			b.logger.Error("Failed to send reply",
				zap.Error(err),
				zap.String("request_id", req.ID),
				zap.Int64("chat_id", message.Chat.ID))
		}
	default:
		if message.Chat.IsPrivate() {
			b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
		}
	}
}

const helpText = `<b>Filter.AI - Spam Detection Bot</b>

AI-powered spam detection for Telegram groups.

<b>How to use:</b>
Reply to any message with /report to analyze it. If it is abusive, the message is removed and its author banned.

<b>Requirements:</b>
- The bot must be an admin with delete and ban permissions
- Only text messages and captions can be analyzed

<b>Commands:</b>
/start - Show this help
/help - Show this help
/report - Report a message (reply to it)`

func newModerationRequest(message *tgbotapi.Message) *models.ModerationRequest {
	req := &models.ModerationRequest{
		ID:         uuid.NewString(),
		ChatID:     message.Chat.ID,
		CommandID:  message.MessageID,
		Requester:  memberFrom(message.From),
		ReceivedAt: message.Time(),
	}

	if replied := message.ReplyToMessage; replied != nil {
		req.Target = &models.TargetMessage{
			MessageID: replied.MessageID,
			Text:      replied.Text,
			Caption:   replied.Caption,
			Author:    memberFrom(replied.From),
		}
	}
	return req
}

func memberFrom(user *tgbotapi.User) models.Member {
	if user == nil {
		return models.Member{}
	}
	return models.Member{
		ID:        user.ID,
		Username:  user.UserName,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

// Reply answers the command message it was triggered by.
func (b *Bot) Reply(ctx context.Context, chatID int64, replyToID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyToID
	msg.AllowSendingWithoutReply = true
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	return nil
}

func (b *Bot) BanMember(ctx context.Context, chatID int64, memberID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ban := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: memberID,
		},
	}
	if _, err := b.api.Request(ban); err != nil {
		return fmt.Errorf("ban member %d: %w", memberID, err)
	}
	return nil
}

// SendToChannel posts HTML to a channel given as a numeric ID or @username.
func (b *Bot) SendToChannel(ctx context.Context, channel string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := channelMessage(channel, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	return err
}

func channelMessage(channel string, text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(channel, text)
}

func (b *Bot) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
