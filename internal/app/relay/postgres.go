package relay

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/transport"
	"chatsync/internal/pkg/logx"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// PostgresStore persists users and messages in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and applies pending migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := runMigrations(sqlDB); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// runMigrations applies all pending migrations from the embedded file system.
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logx.Info("Database migrations applied successfully.")
	return nil
}

func (p *PostgresStore) RegisterUser(ctx context.Context, username string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (username) VALUES ($1) ON CONFLICT (username) DO NOTHING`,
		username)
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListUsers(ctx context.Context) ([]transport.UserRecord, error) {
	rows, err := p.pool.Query(ctx, `SELECT username FROM users ORDER BY created_at, username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	out := []transport.UserRecord{}
	for rows.Next() {
		var rec transport.UserRecord
		if err := rows.Scan(&rec.Username); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *PostgresStore) AppendMessage(ctx context.Context, msg chat.Message) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO messages (sender_name, receiver_name, body, status, sent_at) VALUES ($1, $2, $3, $4, $5)`,
		msg.Sender, msg.Recipient, msg.Body, string(msg.Status), msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListMessages(ctx context.Context) ([]chat.Message, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT sender_name, receiver_name, body, status, sent_at FROM messages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	out := []chat.Message{}
	for rows.Next() {
		var (
			msg    chat.Message
			status string
		)
		if err := rows.Scan(&msg.Sender, &msg.Recipient, &msg.Body, &status, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Status = chat.Status(status)
		out = append(out, msg)
	}
	return out, rows.Err()
}

// Close closes the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}
