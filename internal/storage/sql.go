package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// DBInterface is the subset of *sqlx.DB used by SQLStore.
type DBInterface interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Rebind(query string) string
}

// SQLStore keeps history in the research_history table of Postgres or SQLite.
// Queries are written with ? placeholders and rebound for the driver.
type SQLStore struct {
	db DBInterface
}

const historyColumns = "id, question, answer, sources, created_at"

// NewSQLStore opens driver ("postgres" or "sqlite3") at dsn and verifies the connection.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", driver)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping %s", driver)
	}
	if driver == "sqlite3" {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}
	return &SQLStore{db: db}, nil
}

// NewSQLStoreWithDB wraps an existing connection.
func NewSQLStoreWithDB(db DBInterface) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Save(ctx context.Context, rec models.HistoryRecord) error {
	query := s.db.Rebind(`INSERT INTO research_history (` + historyColumns + `) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET question = excluded.question, answer = excluded.answer,
		sources = excluded.sources, created_at = excluded.created_at`)
	if rec.Sources == nil {
		rec.Sources = models.Sources{}
	}
	if _, err := s.db.ExecContext(ctx, query, rec.ID, rec.Question, rec.Answer, rec.Sources, rec.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("save history record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (models.HistoryRecord, error) {
	var rec models.HistoryRecord
	err := s.db.GetContext(ctx, &rec, s.db.Rebind("SELECT "+historyColumns+" FROM research_history WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.HistoryRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("get history record %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	query := "SELECT " + historyColumns + " FROM research_history ORDER BY created_at DESC, id DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	recs := []models.HistoryRecord{}
	if err := s.db.SelectContext(ctx, &recs, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return recs, nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM research_history"); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil
}
