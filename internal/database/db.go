package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dbFileName = "vendors.db"

// DB wraps the sqlite handle together with its pool settings and the
// prepared statements used on hot paths.
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// NewDB opens (creating if needed) the vendor database under dataDir and
// brings the schema up to date.
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)
	connStr := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// sqlite serialises writers; a small pool keeps busy waits short.
	pool := NewConnectionPool(db, 8, 4, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized",
		"path", dbPath,
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns)

	return database, nil
}

func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS vendors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			website TEXT,
			description TEXT,
			email TEXT,
			phone TEXT,
			address TEXT,
			company_size TEXT,
			industry TEXT,
			founded TEXT,
			status TEXT NOT NULL DEFAULT 'PENDING', -- ACTIVE, INACTIVE, PENDING, BLACKLISTED
			is_verified BOOLEAN DEFAULT FALSE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS performance_records (
			id TEXT PRIMARY KEY,
			vendor_id TEXT NOT NULL,
			project_name TEXT NOT NULL,
			project_category TEXT,
			contract_value REAL NOT NULL DEFAULT 0,
			delivery_success_rate REAL NOT NULL,
			quality_score REAL NOT NULL,
			cost_efficiency REAL NOT NULL,
			compliance_score REAL NOT NULL,
			incident_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS external_reviews (
			id TEXT PRIMARY KEY,
			vendor_id TEXT NOT NULL,
			source TEXT NOT NULL,
			rating REAL NOT NULL,
			review_count INTEGER NOT NULL DEFAULT 0,
			sentiment TEXT, -- NULL when never tagged
			created_at DATETIME NOT NULL,
			FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS capability_features (
			id TEXT PRIMARY KEY,
			vendor_id TEXT NOT NULL,
			services TEXT NOT NULL DEFAULT '[]', -- JSON arrays
			technologies TEXT NOT NULL DEFAULT '[]',
			certifications TEXT NOT NULL DEFAULT '[]',
			expertise_areas TEXT NOT NULL DEFAULT '[]',
			years_in_business INTEGER,
			team_size INTEGER,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS vendor_risks (
			id TEXT PRIMARY KEY,
			vendor_id TEXT NOT NULL,
			risk_level TEXT NOT NULL,
			risk_category TEXT,
			description TEXT,
			severity INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE', -- ACTIVE, MITIGATED, RESOLVED
			created_at DATETIME NOT NULL,
			FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS vendor_scores (
			id TEXT PRIMARY KEY,
			vendor_id TEXT NOT NULL,
			total_score REAL NOT NULL,
			reliability_score REAL NOT NULL,
			cost_score REAL NOT NULL,
			capability_score REAL NOT NULL,
			performance_score REAL NOT NULL,
			reputation_score REAL NOT NULL,
			risk_score REAL NOT NULL,
			ml_prediction_score REAL,
			confidence REAL,
			breakdown TEXT, -- JSON
			ranking_factors TEXT, -- JSON
			model_version TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			vendor_id TEXT,
			action TEXT NOT NULL,
			entity TEXT NOT NULL,
			entity_id TEXT,
			details TEXT, -- JSON
			created_at DATETIME NOT NULL,
			FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE SET NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_vendors_status ON vendors(status)`,
		`CREATE INDEX IF NOT EXISTS idx_vendors_industry ON vendors(industry)`,
		`CREATE INDEX IF NOT EXISTS idx_vendors_created ON vendors(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_records_vendor ON performance_records(vendor_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_vendor ON external_reviews(vendor_id, rating DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_features_vendor ON capability_features(vendor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_risks_vendor ON vendor_risks(vendor_id, status, severity DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_vendor ON vendor_scores(vendor_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_vendor ON audit_logs(vendor_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

const (
	stmtInsertScore    = "insert_score"
	stmtLatestScore    = "latest_score"
	stmtInsertAuditLog = "insert_audit_log"
)

func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		stmtInsertScore: `INSERT INTO vendor_scores (
			id, vendor_id, total_score, reliability_score, cost_score, capability_score,
			performance_score, reputation_score, risk_score, ml_prediction_score, confidence,
			breakdown, ranking_factors, model_version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		stmtLatestScore: `SELECT ` + scoreColumns + `
			FROM vendor_scores WHERE vendor_id = ? ORDER BY created_at DESC LIMIT 1`,

		stmtInsertAuditLog: `INSERT INTO audit_logs (id, user_id, vendor_id, action, entity, entity_id, details, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}
	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
