package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Manager owns a PostgreSQL connection with an explicit open/use/close lifecycle
type Manager struct {
	config ConnConfig
	logger *zap.Logger

	mu sync.Mutex
	db *sql.DB
}

// NewManager creates a manager for the given connection configuration.
// No connection is made until Open.
func NewManager(config ConnConfig, logger *zap.Logger) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		config: config.withDefaults(),
		logger: logger,
	}, nil
}

// NewManagerFromURL creates a manager from a postgres:// URL
func NewManagerFromURL(databaseURL, driver string, logger *zap.Logger) (*Manager, error) {
	cfg, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	if driver != "" {
		cfg.Driver = driver
	}
	return NewManager(cfg, logger)
}

// Open connects to the database and verifies the connection
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return nil
	}

	db, err := sql.Open(m.config.Driver, m.config.URL())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", stripCredentials(err))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect: %w", stripCredentials(err))
	}

	m.logger.Debug("connected to database",
		zap.String("url", m.config.Redacted()),
		zap.String("driver", m.config.Driver),
	)

	m.db = db
	return nil
}

// Close closes the connection. Closing a closed manager is a no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}

	err := m.db.Close()
	m.db = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	m.logger.Debug("disconnected from database")
	return nil
}

// DB returns the underlying handle, or nil when not connected
func (m *Manager) DB() *sql.DB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db
}

// Catalog returns a discovery catalog over the current connection.
// Before Open it returns a catalog whose calls fail with ErrNotConnected.
func (m *Manager) Catalog() *Catalog {
	return NewCatalog(m.DB(), WithLogger(m.logger))
}

// String implements fmt.Stringer without exposing the password
func (m *Manager) String() string {
	return fmt.Sprintf("Manager(url=%s, driver=%s)", m.config.Redacted(), m.config.Driver)
}
