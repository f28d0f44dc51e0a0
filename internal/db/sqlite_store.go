package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/epds/internal/models"
	"github.com/soaringjerry/epds/internal/services"
)

// SQLiteStore keeps sessions in a sqlite table. Rows expire ttl after their
// last write and are invisible from then on.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB, ttl time.Duration) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

// OpenSQLite opens dsn, applies migrations and returns a ready store.
func OpenSQLite(dsn, migrationsDir string, ttl time.Duration) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A shared in-memory database lives only as long as one connection holds it.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	if err := RunMigrations(sqlDB, migrationsDir); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	store, err := NewSQLiteStore(sqlDB, ttl)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Create(ctx context.Context, sess models.Session) error {
	answers, err := encodeAnswers(sess.Answers)
	if err != nil {
		return err
	}
	now := s.now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	// An expired row with the same id may still be on disk until the next sweep.
	if _, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ? AND expires_at <= ?`, sess.ID, now.UnixNano()); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO sessions (id, idx, answers, name, age, place, support, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Index, answers, sess.Profile.Name, sess.Profile.Age, sess.Profile.Place, string(sess.Profile.Support),
		sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano(), now.Add(s.ttl).UnixNano())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	err = tx.Commit()
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, idx, answers, name, age, place, support, created_at, updated_at
		FROM sessions WHERE id = ? AND expires_at > ?`, id, s.now().UnixNano())
	var (
		sess             models.Session
		answers, support string
		created, updated int64
	)
	err := row.Scan(&sess.ID, &sess.Index, &answers, &sess.Profile.Name, &sess.Profile.Age, &sess.Profile.Place, &support, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, services.ErrSessionNotFound
		}
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}
	if err := json.Unmarshal([]byte(answers), &sess.Answers); err != nil {
		return models.Session{}, fmt.Errorf("decode answers: %w", err)
	}
	if sess.Answers == nil {
		sess.Answers = []int{}
	}
	sess.Profile.Support = models.FamilySupport(support)
	sess.CreatedAt = time.Unix(0, created).UTC()
	sess.UpdatedAt = time.Unix(0, updated).UTC()
	return sess, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess models.Session) error {
	answers, err := encodeAnswers(sess.Answers)
	if err != nil {
		return err
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx, `UPDATE sessions
		SET idx = ?, answers = ?, name = ?, age = ?, place = ?, support = ?, updated_at = ?, expires_at = ?
		WHERE id = ? AND expires_at > ?`,
		sess.Index, answers, sess.Profile.Name, sess.Profile.Age, sess.Profile.Place, string(sess.Profile.Support),
		sess.UpdatedAt.UnixNano(), now.Add(s.ttl).UnixNano(), sess.ID, now.UnixNano())
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return services.ErrSessionNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// Sweep deletes expired rows.
func (s *SQLiteStore) Sweep(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeAnswers(answers []int) (string, error) {
	if answers == nil {
		answers = []int{}
	}
	b, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	return string(b), nil
}
