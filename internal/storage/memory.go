package storage

import (
	"context"
	"sync"

	"github.com/xaenox/filter-bot/internal/models"
)

type MemoryStorage struct {
	mu      sync.RWMutex
	records []models.AuditRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Append(ctx context.Context, record *models.AuditRecord) error {
	if record == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, *record)
	return nil
}

// Records returns a copy of everything appended so far, oldest first.
func (s *MemoryStorage) Records() []models.AuditRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AuditRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
