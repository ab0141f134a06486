// Package moderation drives one moderation request through validation,
// classification, enforcement and audit, and turns the result into the
// reply sent back to the requester.
package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/filter-bot/internal/cache"
	"github.com/xaenox/filter-bot/internal/classifier"
	"github.com/xaenox/filter-bot/internal/enforcement"
	"github.com/xaenox/filter-bot/internal/metrics"
	"github.com/xaenox/filter-bot/internal/models"
	"go.uber.org/zap"
)

// Enforcer performs the destructive actions for an abusive verdict.
type Enforcer interface {
	Enabled() bool
	Enforce(ctx context.Context, chatID int64, messageID int, memberID int64) models.EnforcementOutcome
}

// Recorder writes audit records; it absorbs its own failures.
type Recorder interface {
	Record(ctx context.Context, record *models.AuditRecord) bool
}

type Config struct {
	Oracle   classifier.Classifier
	Taxonomy *classifier.Taxonomy
	Enforcer Enforcer
	Audit    Recorder
	// Cache is optional.
	Cache cache.VerdictCache

	AnalyzeCaptions bool
	OracleTimeout   time.Duration
}

type Pipeline struct {
	oracle          classifier.Classifier
	taxonomy        *classifier.Taxonomy
	enforcer        Enforcer
	audit           Recorder
	cache           cache.VerdictCache
	analyzeCaptions bool
	oracleTimeout   time.Duration
	logger          *zap.Logger
}

func NewPipeline(cfg Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		oracle:          cfg.Oracle,
		taxonomy:        cfg.Taxonomy,
		enforcer:        cfg.Enforcer,
		audit:           cfg.Audit,
		cache:           cfg.Cache,
		analyzeCaptions: cfg.AnalyzeCaptions,
		oracleTimeout:   cfg.OracleTimeout,
		logger:          logger,
	}
}

// Handle processes one request and always returns reply text. Errors never
// escape: each one is mapped to a user-facing message.
func (p *Pipeline) Handle(ctx context.Context, req *models.ModerationRequest) (reply string) {
	requestID := req.ID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := p.logger.With(
		zap.String("request_id", requestID),
		zap.Int64("chat_id", req.ChatID),
		zap.Int64("requester_id", req.Requester.ID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Moderation request panicked", zap.Any("panic", r))
			metrics.ObserveRequest("panic")
			reply = ReplyAnalysisFailed
		}
	}()

	reply, err := p.process(ctx, req, requestID, logger)
	if err != nil {
		reply = p.replyForError(err)
		logger.Info("Moderation request rejected", zap.Error(err))
	}
	return reply
}

func (p *Pipeline) process(ctx context.Context, req *models.ModerationRequest, requestID string, logger *zap.Logger) (string, error) {
	content, err := p.validate(req)
	if err != nil {
		return "", err
	}
	target := req.Target

	verdict, err := p.classify(ctx, content, logger)
	if err != nil {
		return "", err
	}
	logger.Info("Message analyzed",
		zap.String("verdict", verdict.Label),
		zap.String("raw", verdict.Raw),
		zap.Int("message_id", target.MessageID))
	metrics.ObserveVerdict(verdict.Label)

	if !verdict.Abusive {
		metrics.ObserveRequest("safe")
		return ReplySafe, nil
	}

	outcome := models.EnforcementOutcome{Skipped: true}
	if p.enforcer.Enabled() {
		outcome = p.enforcer.Enforce(ctx, req.ChatID, target.MessageID, target.Author.ID)
	}

	// Audit after enforcement so the record carries the attempted action.
	p.audit.Record(ctx, &models.AuditRecord{
		ID:          uuid.NewString(),
		RequestID:   requestID,
		Timestamp:   time.Now(),
		ChatID:      req.ChatID,
		Member:      target.Author,
		Verdict:     verdict.Label,
		Action:      outcome.Action(),
		MessageText: content,
	})

	switch {
	case outcome.Skipped:
		metrics.ObserveRequest("flagged")
	case outcome.Complete():
		metrics.ObserveRequest("enforced")
	default:
		metrics.ObserveRequest("partial")
		logger.Warn("Enforcement incomplete",
			zap.String("action", string(outcome.Action())),
			zap.Error(enforcement.Err(outcome)))
	}

	return outcomeReply(verdict, target.Author, outcome), nil
}

// validate returns the text to classify.
func (p *Pipeline) validate(req *models.ModerationRequest) (string, error) {
	if req.Target == nil {
		return "", invalid(ErrMissingTarget)
	}

	content := req.Target.Text
	if p.analyzeCaptions && req.Target.Caption != "" {
		content = req.Target.Caption
	}
	if content == "" {
		return "", invalid(ErrNoAnalyzableContent)
	}

	if req.Target.Author.ID == 0 {
		return "", invalid(ErrUnknownAuthor)
	}

	if !p.oracle.Available() {
		return "", ErrOracleUnavailable
	}
	return content, nil
}

func (p *Pipeline) classify(ctx context.Context, text string, logger *zap.Logger) (models.Verdict, error) {
	if p.cache != nil {
		label, ok, err := p.cache.Get(ctx, text)
		if err != nil {
			logger.Warn("Verdict cache lookup failed", zap.Error(err))
		}
		metrics.ObserveCache(ok)
		if ok {
			if verdict, err := p.taxonomy.Parse(label); err == nil {
				return verdict, nil
			}
		}
	}

	callCtx := ctx
	if p.oracleTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.oracleTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := p.oracle.Classify(callCtx, text)
	metrics.ObserveOracle(time.Since(start).Seconds())
	if err != nil {
		return models.Verdict{}, asOracleError(err)
	}

	verdict, err := p.taxonomy.Parse(raw)
	if err != nil {
		return models.Verdict{}, asOracleError(err)
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, text, verdict.Label); err != nil {
			logger.Warn("Verdict cache store failed", zap.Error(err))
		}
	}
	return verdict, nil
}

func (p *Pipeline) replyForError(err error) string {
	switch {
	case errors.Is(err, ErrMissingTarget):
		metrics.ObserveRequest("invalid")
		return ReplyMissingTarget
	case errors.Is(err, ErrNoAnalyzableContent):
		metrics.ObserveRequest("invalid")
		if p.analyzeCaptions {
			return ReplyNoContent
		}
		return ReplyNoText
	case errors.Is(err, ErrUnknownAuthor):
		metrics.ObserveRequest("invalid")
		return ReplyUnknownAuthor
	case errors.Is(err, ErrOracleUnavailable):
		metrics.ObserveRequest("unavailable")
		return ReplyOracleUnavailable
	default:
		metrics.ObserveRequest("oracle_error")
		return ReplyAnalysisFailed
	}
}
