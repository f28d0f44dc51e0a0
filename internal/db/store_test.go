package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soaringjerry/epds/internal/models"
	"github.com/soaringjerry/epds/internal/services"
)

// sessionStore is what every backend must satisfy.
type sessionStore interface {
	services.SessionStore
	Close() error
}

func openTestSQLite(t *testing.T, ttl time.Duration) *SQLiteStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(filepath.Join(t.TempDir(), "sessions.db")))
	s, err := OpenSQLite(dsn, "", ttl)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSession(id string) models.Session {
	s := models.NewSession(id, time.Date(2025, 9, 17, 12, 0, 0, 0, time.UTC))
	s.Index = 4
	s.Answers = []int{2, 0, 3}
	s.Profile = models.Profile{Name: "Asha", Age: 28, Place: "Pune", Support: models.SupportLow}
	return s
}

func exerciseStore(t *testing.T, s sessionStore) {
	t.Helper()
	ctx := context.Background()
	fresh := models.NewSession("fresh", time.Date(2025, 9, 17, 12, 0, 0, 0, time.UTC))
	if err := s.Create(ctx, fresh); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Get(ctx, "fresh")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Answers == nil || len(got.Answers) != 0 || got.Profile != models.DefaultProfile() {
		t.Fatalf("fresh session round trip: %+v", got)
	}

	want := sampleSession("fresh")
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = s.Get(ctx, "fresh")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Index != want.Index || !reflect.DeepEqual(got.Answers, want.Answers) || got.Profile != want.Profile {
		t.Fatalf("round trip: got %+v want %+v", got, want)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created_at=%v want %v", got.CreatedAt, want.CreatedAt)
	}

	if err := s.Create(ctx, fresh); err == nil {
		t.Fatalf("duplicate create accepted")
	}
	if err := s.Save(ctx, sampleSession("ghost")); !errors.Is(err, services.ErrSessionNotFound) {
		t.Fatalf("save of unknown session: %v", err)
	}
	if err := s.Delete(ctx, "fresh"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "fresh"); !errors.Is(err, services.ErrSessionNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, openTestSQLite(t, time.Hour))
}

func TestSQLiteStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t, time.Minute)
	now := time.Date(2025, 9, 17, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	if err := s.Create(ctx, sampleSession("old")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "old"); !errors.Is(err, services.ErrSessionNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	if err := s.Save(ctx, sampleSession("old")); !errors.Is(err, services.ErrSessionNotFound) {
		t.Fatalf("expired session must not be revived by Save: %v", err)
	}
	if err := s.Create(ctx, sampleSession("old")); err != nil {
		t.Fatalf("id of an expired session should be reusable: %v", err)
	}
	now = now.Add(2 * time.Minute)
	n, err := s.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Sweep=%d,%v", n, err)
	}
}

func TestSQLiteInMemoryDefault(t *testing.T) {
	s, err := OpenSQLite("file:epds_test_sessions?mode=memory&cache=shared", "", time.Hour)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	s := openTestSQLite(t, time.Hour)
	if err := RunMigrations(s.db, ""); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("schema_migrations rows=%d, want 1", n)
	}
}

func TestLoadMigrationsFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "002_b.sql"), []byte("SELECT 2;"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "001_a.sql"), []byte("SELECT 1;"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o600); err != nil {
		t.Fatal(err)
	}
	files, err := loadMigrations(dir)
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(files) != 2 || files[0].name != "001_a.sql" {
		t.Fatalf("files=%v", files)
	}
	embedded, err := loadMigrations(filepath.Join(dir, "missing"))
	if err != nil || len(embedded) == 0 {
		t.Fatalf("embedded fallback: %v %d", err, len(embedded))
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("EPDS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("EPDS_TEST_REDIS_ADDR not set")
	}
	prefix := fmt.Sprintf("epds:test:%d:", time.Now().UnixNano())
	s, err := OpenRedis(context.Background(), RedisOptions{Addr: addr, Prefix: prefix, TTL: time.Minute})
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)

	ctx := context.Background()
	if err := s.Create(ctx, sampleSession("ttl")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	ttl, err := s.rdb.TTL(ctx, s.key("ttl")).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl=%v err=%v", ttl, err)
	}
	_ = s.Delete(ctx, "ttl")
}

func TestOpenRedisFailsFast(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisOptions{}); err == nil {
		t.Fatalf("expected error for empty address")
	}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	s := NewRedisStore(rdb, "x:", time.Minute)
	defer s.Close()
	if _, err := s.Get(context.Background(), "a"); err == nil || errors.Is(err, services.ErrSessionNotFound) {
		t.Fatalf("connection failure must not look like a missing session: %v", err)
	}
}
