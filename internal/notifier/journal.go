package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"

	_ "modernc.org/sqlite"
)

// JournalStore хранилище журнала инцидентов
type JournalStore interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, entry JournalEntry) error
	Ping(ctx context.Context) error
	Close() error
}

// JournalEntry строка журнала
type JournalEntry struct {
	ExecutionID string    `db:"execution_id"`
	ServiceName string    `db:"service_name"`
	Status      string    `db:"status"`
	Message     string    `db:"message"`
	ReportedAt  time.Time `db:"reported_at"`
}

// JournalNotifier записывает каждый неуспешный результат в журнал
type JournalNotifier struct {
	base
	store JournalStore
	now   func() time.Time
}

// NewJournalNotifier создает notifier и схему журнала
func NewJournalNotifier(ctx context.Context, store JournalStore, log logger.Logger) (*JournalNotifier, error) {
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare journal schema: %w", err)
	}
	return &JournalNotifier{
		base:  newBase("journal", log),
		store: store,
		now:   time.Now,
	}, nil
}

// Notify вставляет строку в журнал
func (j *JournalNotifier) Notify(ctx context.Context, result domain.CheckerResult) error {
	event := NewEvent(result, j.now())
	entry := JournalEntry{
		ExecutionID: event.ExecutionID,
		ServiceName: event.Service,
		Status:      event.Status.String(),
		Message:     event.Message,
		ReportedAt:  event.ReportedAt,
	}

	if err := j.store.Insert(ctx, entry); err != nil {
		return j.fail(result, err)
	}

	j.delivered(result)
	return nil
}

// Ping проверяет хранилище для readiness
func (j *JournalNotifier) Ping(ctx context.Context) error {
	return j.store.Ping(ctx)
}

// Close закрывает хранилище
func (j *JournalNotifier) Close() error {
	return j.store.Close()
}

// PostgresJournal журнал в PostgreSQL
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournal создает журнал поверх пула
func NewPostgresJournal(pool *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{pool: pool}
}

// EnsureSchema создает таблицу, если ее нет
func (p *PostgresJournal) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS toktok_incidents (
			id           BIGSERIAL PRIMARY KEY,
			execution_id TEXT NOT NULL DEFAULT '',
			service_name TEXT NOT NULL,
			status       TEXT NOT NULL,
			message      TEXT NOT NULL,
			reported_at  TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS toktok_incidents_service_idx ON toktok_incidents (service_name, reported_at DESC);
	`)
	return err
}

// Insert добавляет строку
func (p *PostgresJournal) Insert(ctx context.Context, e JournalEntry) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO toktok_incidents (execution_id, service_name, status, message, reported_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ExecutionID, e.ServiceName, e.Status, e.Message, e.ReportedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}
	return nil
}

// Ping проверяет соединение
func (p *PostgresJournal) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close закрывает пул
func (p *PostgresJournal) Close() error {
	p.pool.Close()
	return nil
}

// SQLiteJournal журнал в SQLite
type SQLiteJournal struct {
	db *sqlx.DB
}

// OpenSQLiteJournal открывает базу. SQLite не поддерживает параллельную запись,
// поэтому пул ограничен одним соединением.
func OpenSQLiteJournal(dsn string) (*SQLiteJournal, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteJournal{db: db}, nil
}

// EnsureSchema создает таблицу, если ее нет
func (s *SQLiteJournal) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS toktok_incidents (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			execution_id TEXT NOT NULL DEFAULT '',
			service_name TEXT NOT NULL,
			status       TEXT NOT NULL,
			message      TEXT NOT NULL,
			reported_at  TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS toktok_incidents_service_idx ON toktok_incidents (service_name, reported_at);
	`)
	return err
}

// Insert добавляет строку
func (s *SQLiteJournal) Insert(ctx context.Context, e JournalEntry) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO toktok_incidents (execution_id, service_name, status, message, reported_at)
		 VALUES (:execution_id, :service_name, :status, :message, :reported_at)`,
		e,
	)
	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}
	return nil
}

// Ping проверяет соединение
func (s *SQLiteJournal) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close закрывает базу
func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}
