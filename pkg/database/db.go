// Package database connects to Postgres, applies the embedded migrations and
// provides query builders in the Postgres flavor.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DB is the subset of sqlx.DB the repositories use.
type DB interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	PingContext(ctx context.Context) error
	Close() error
}

// Config holds Postgres connection settings.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders cfg as a lib/pq key/value connection string.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslMode)
}

// Postgres owns the connection pool. It is started and stopped as a run
// dependency.
type Postgres struct {
	cfg    Config
	db     *sqlx.DB
	logger ectologger.Logger
}

func NewPostgres(cfg Config, logger ectologger.Logger) *Postgres {
	return &Postgres{
		cfg:    cfg,
		logger: logger,
	}
}

func (p *Postgres) GetName() string     { return "postgres" }
func (p *Postgres) DependsOn() []string { return nil }

// Start opens the pool and pings the server.
func (p *Postgres) Start(ctx context.Context) error {
	if p.db != nil {
		return p.db.PingContext(ctx)
	}

	db, err := sqlx.Open("postgres", p.cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open postgres: %w", err)
	}
	if p.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.cfg.MaxOpenConns)
	}
	if p.cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to postgres at %s:%d: %w", p.cfg.Host, p.cfg.Port, err)
	}

	p.logger.WithContext(ctx).Infof("Connected to postgres at %s:%d/%s", p.cfg.Host, p.cfg.Port, p.cfg.Name)
	p.db = db
	return nil
}

func (p *Postgres) Stop(_ context.Context) error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// DB returns the pool. It is nil until Start succeeds.
func (p *Postgres) DB() DB {
	if p.db == nil {
		return nil
	}
	return p.db
}

// SQL returns the underlying *sql.DB for the migration driver.
func (p *Postgres) SQL() *sql.DB {
	if p.db == nil {
		return nil
	}
	return p.db.DB
}
