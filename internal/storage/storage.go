package storage

import (
	"context"

	"github.com/xaenox/filter-bot/internal/models"
)

// AuditStorage is an append-only destination for audit records. Records are
// never updated or deleted through it.
type AuditStorage interface {
	Append(ctx context.Context, record *models.AuditRecord) error
	Close() error
}
