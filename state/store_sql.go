package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// Database drivers
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ============================================================================
// SQL STATE STORE
// ============================================================================

// SQLConfig configures the SQL-backed store.
type SQLConfig struct {
	// Driver is one of postgres, mysql, sqlite.
	Driver string `yaml:"driver"`

	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn"`

	MaxConns int `yaml:"max_conns"`
	MaxIdle  int `yaml:"max_idle"`
}

// SetDefaults fills unset pool limits.
func (c *SQLConfig) SetDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = 2
	}
}

// Validate checks the configuration.
func (c *SQLConfig) Validate() error {
	switch c.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported driver: %s (supported: postgres, mysql, sqlite)", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	return nil
}

// SQLStore persists agent state as a JSON document per agent id.
// PostgreSQL, MySQL, and SQLite are supported via database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

const createStateTableSQL = `
CREATE TABLE IF NOT EXISTS agent_states (
    agent_id VARCHAR(255) PRIMARY KEY,
    state TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// NewSQLStore creates a store over an existing connection.
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// NewSQLStoreFromConfig opens a connection and creates the store.
func NewSQLStoreFromConfig(cfg *SQLConfig) (*SQLStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("SQL configuration is required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// go-sqlite3 registers as "sqlite3"
	driverName := cfg.Driver
	if driverName == "sqlite" {
		driverName = "sqlite3"
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewSQLStore(db, cfg.Driver)
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, createStateTableSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Load fetches and decodes the state document.
func (s *SQLStore) Load(ctx context.Context, agentID string) (*AgentState, error) {
	query := `SELECT state FROM agent_states WHERE agent_id = ?`
	if s.dialect == "postgres" {
		query = `SELECT state FROM agent_states WHERE agent_id = $1`
	}

	var raw string
	err := s.db.QueryRowContext(ctx, query, agentID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state for agent %q: %w", agentID, err)
	}

	var st AgentState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("failed to decode state for agent %q: %w", agentID, err)
	}
	return &st, nil
}

// Save upserts the state document.
func (s *SQLStore) Save(ctx context.Context, agentID string, st *AgentState) error {
	if agentID == "" {
		return fmt.Errorf("agent id is required")
	}
	if st == nil {
		return fmt.Errorf("state is required")
	}

	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode state for agent %q: %w", agentID, err)
	}
	now := time.Now().UTC()

	var query string
	switch s.dialect {
	case "postgres":
		query = `
INSERT INTO agent_states (agent_id, state, created_at, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (agent_id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`
	case "mysql":
		query = `
INSERT INTO agent_states (agent_id, state, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE state = VALUES(state), updated_at = VALUES(updated_at)`
	default: // sqlite
		query = `
INSERT INTO agent_states (agent_id, state, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (agent_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`
	}

	if _, err := s.db.ExecContext(ctx, query, agentID, string(raw), now, now); err != nil {
		return fmt.Errorf("failed to save state for agent %q: %w", agentID, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
