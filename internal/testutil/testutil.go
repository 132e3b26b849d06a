// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/phoebe/phoebe/internal/model"
)

// Migrations lists schema migrations in apply order.
var Migrations = []string{
	"000001_identity",
	"000002_content",
	"000003_site",
}

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 730113

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	return func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}, nil
}

// ReadMigration returns the SQL of name's up or down file.
func ReadMigration(name string, up bool) (string, error) {
	root, err := ProjectRoot()
	if err != nil {
		return "", err
	}
	suffix := ".down.sql"
	if up {
		suffix = ".up.sql"
	}
	b, err := os.ReadFile(filepath.Join(root, "migrations", name+suffix))
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", name, err)
	}
	return string(b), nil
}

// ResetSchema rolls every migration back and reapplies it, leaving only
// seed rows.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i := len(Migrations) - 1; i >= 0; i-- {
		sql, err := ReadMigration(Migrations[i], false)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("apply %s down: %w", Migrations[i], err)
		}
	}
	for _, name := range Migrations {
		sql, err := ReadMigration(name, true)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("apply %s up: %w", name, err)
		}
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", "..")), nil
}

// Seeded role identifiers from 000001_identity.
const (
	AdminRoleID  = "01J0SEEDM9S346Q3D25VT4F5V3"
	EditorRoleID = "01J0SEED7E3S3E28JT97KB6CQ6"
)

// NewTestUser creates an active user with a unique username and no roles.
func NewTestUser(t testing.TB, prefix string) *model.User {
	t.Helper()
	now := time.Now().UTC()
	name := UniqueID(prefix)
	u := model.NewUser(name, name+"@example.com")
	u.ID = uuid.NewString()
	u.PasswordHash = "not-a-real-hash"
	u.Active = true
	u.CreatedAt = now
	u.UpdatedAt = now
	return u
}

// NewTestNews creates an unpublished news item owned by authorID.
func NewTestNews(t testing.TB, authorID string) *model.News {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.News{
		ID:              uuid.NewString(),
		Title:           "Test news",
		Body:            "Body text",
		Teaser:          "Teaser",
		PublicationDate: now,
		AuthorID:        authorID,
		Terms:           []*model.Term{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
