package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newTestPostgres connects to a local PostgreSQL. Tests that call this helper
// are skipped when no database is reachable.
func newTestPostgres(t *testing.T) *PostgresStorage {
	t.Helper()
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: os.Getenv("PGPASSWORD"),
		DBName:   "postgres",
		SSLMode:  "disable",
	}
	if host := os.Getenv("PGHOST"); host != "" {
		cfg.Host = host
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := NewPostgresStorage(ctx, cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStorage_Append(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()

	memberID := int64(uuid.New().ID())
	rec := testRecord(memberID, "", "Buy followers now")
	rec.RequestID = uuid.NewString()

	require.NoError(t, s.Append(ctx, rec))
	require.NoError(t, s.Append(ctx, testRecord(memberID, "eve", "again")))

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM moderation_audit WHERE member_id = $1`, memberID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "mod", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=mod sslmode=disable", cfg.DSN())
}
