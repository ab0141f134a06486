package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/xaenox/filter-bot/internal/models"
)

// CSVHeader is written exactly once, as the first row of a fresh file.
var CSVHeader = []string{"Timestamp", "User ID", "Username", "Reason", "Message Content"}

// CSVStorage appends audit rows to a local comma-delimited file. The file is
// reopened on every append so it survives external rotation; the header check
// and the write happen under one lock.
type CSVStorage struct {
	path string
	mu   sync.Mutex
}

func NewCSVStorage(path string) (*CSVStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("audit file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating audit directory: %w", err)
		}
	}
	return &CSVStorage{path: path}, nil
}

// Path returns the absolute location of the log file.
func (s *CSVStorage) Path() string {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return s.path
	}
	return abs
}

func (s *CSVStorage) Append(ctx context.Context, record *models.AuditRecord) error {
	if record == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("error opening audit file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("error reading audit file size: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(CSVHeader); err != nil {
			return fmt.Errorf("error writing audit header: %w", err)
		}
	}
	if err := w.Write(csvRow(record)); err != nil {
		return fmt.Errorf("error writing audit row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("error flushing audit file: %w", err)
	}
	return f.Sync()
}

func (s *CSVStorage) Close() error {
	return nil
}

func csvRow(record *models.AuditRecord) []string {
	return []string{
		record.Timestamp.UTC().Format(time.RFC3339),
		strconv.FormatInt(record.Member.ID, 10),
		record.UsernameOrPlaceholder(),
		record.Verdict,
		record.MessageText,
	}
}
