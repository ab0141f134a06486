package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/filter-bot/internal/models"
)

func testRecord(id int64, username, text string) *models.AuditRecord {
	return &models.AuditRecord{
		Timestamp:   time.Date(2026, 10, 17, 12, 30, 0, 0, time.UTC),
		ChatID:      -1001,
		Member:      models.Member{ID: id, Username: username, FirstName: "Eve"},
		Verdict:     "spam",
		Action:      models.ActionBoth,
		MessageText: text,
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVStorage_HeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "banned_logs.csv")
	ctx := context.Background()

	// Separate instances stand in for separate process runs.
	for i := 0; i < 3; i++ {
		s, err := NewCSVStorage(path)
		require.NoError(t, err)
		require.NoError(t, s.Append(ctx, testRecord(int64(i+1), "eve", fmt.Sprintf("msg %d", i))))
		require.NoError(t, s.Close())
	}

	rows := readRows(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, CSVHeader, rows[0])
	for _, row := range rows[1:] {
		assert.NotEqual(t, CSVHeader, row)
	}
}

func TestCSVStorage_RowFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")
	s, err := NewCSVStorage(path)
	require.NoError(t, err)

	text := "Buy followers now, click here!!!\n\"limited\" offer"
	require.NoError(t, s.Append(context.Background(), testRecord(42, "", text)))

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2026-10-17T12:30:00Z", "42", models.UsernamePlaceholder, "spam", text}, rows[1])
}

func TestCSVStorage_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")
	s, err := NewCSVStorage(path)
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(context.Background(), testRecord(int64(i), "u", "spam, with comma")))
		}(i)
	}
	wg.Wait()

	rows := readRows(t, path)
	require.Len(t, rows, writers+1)
	assert.Equal(t, CSVHeader, rows[0])
	for _, row := range rows[1:] {
		assert.Len(t, row, len(CSVHeader))
		assert.Equal(t, "spam, with comma", row[4])
	}
}

func TestCSVStorage_AppendNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")
	s, err := NewCSVStorage(path)
	require.NoError(t, err)

	assert.NoError(t, s.Append(context.Background(), nil))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestNewCSVStorage_EmptyPath(t *testing.T) {
	_, err := NewCSVStorage("")
	assert.Error(t, err)
}

func TestCSVStorage_PathIsAbsolute(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVStorage(filepath.Join(dir, "logs", "banned_logs.csv"))
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(s.Path()))
	assert.Equal(t, filepath.Join(dir, "logs", "banned_logs.csv"), s.Path())
}
