package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"ctr/internal/config"
	"ctr/internal/domain"
)

const createRunsTable = `CREATE TABLE IF NOT EXISTS ctr_runs (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	run_id CHAR(36) NOT NULL UNIQUE,
	root VARCHAR(255) NOT NULL,
	successful INT NOT NULL,
	failed INT NOT NULL,
	skipped INT NOT NULL,
	aborted BOOLEAN NOT NULL,
	duration_seconds DOUBLE NOT NULL,
	record LONGTEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLStorage stores run records in a MySQL database. The database and
// table are created on first use.
type SQLStorage struct {
	config *config.Config
	db     *sql.DB
}

// NewSQLStorage creates a new SQLStorage
func NewSQLStorage(cfg *config.Config) *SQLStorage {
	return &SQLStorage{config: cfg}
}

// Save inserts a new run record
func (s *SQLStorage) Save(summary *domain.RunSummary, failures []domain.TestFailure) error {
	db, err := s.open()
	if err != nil {
		return err
	}

	record := NewRecord(summary, failures)
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	_, err = db.Exec(
		"INSERT INTO ctr_runs (run_id, root, successful, failed, skipped, aborted, duration_seconds, record) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		record.Meta.RunID, record.Meta.Root, record.Meta.Successful, record.Meta.Failed,
		record.Meta.Skipped, record.Meta.Aborted, record.Meta.DurationSeconds, string(data),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", record.Meta.RunID, err)
	}
	return nil
}

// Load returns the most recent run record
func (s *SQLStorage) Load() (*domain.RunRecord, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}

	var data string
	err = db.QueryRow("SELECT record FROM ctr_runs ORDER BY id DESC LIMIT 1").Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load latest run: %w", ErrNoResults)
	}
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w", err)
	}

	var record domain.RunRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return &record, nil
}

// SaveOutput rewrites the stored record with the same run id
func (s *SQLStorage) SaveOutput(record *domain.RunRecord) error {
	db, err := s.open()
	if err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if _, err := db.Exec("UPDATE ctr_runs SET record = ? WHERE run_id = ?", string(data), record.Meta.RunID); err != nil {
		return fmt.Errorf("update run %s: %w", record.Meta.RunID, err)
	}
	return nil
}

// Close releases the database handle
func (s *SQLStorage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLStorage) open() (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}

	if err := s.ensureDatabase(); err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", s.config.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(createRunsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}

	s.db = db
	return db, nil
}

// ensureDatabase checks if the result database exists and creates it if it doesn't
func (s *SQLStorage) ensureDatabase() error {
	name := s.config.Database.Name
	if !isValidDatabaseName(name) {
		return fmt.Errorf("invalid database name: %s", name)
	}

	// Connect to MySQL server (without specifying database)
	db, err := sql.Open("mysql", s.config.GetServerDSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database server: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database server: %w", err)
	}

	exists, err := databaseExists(db, name)
	if err != nil {
		return fmt.Errorf("failed to check database %s: %w", name, err)
	}
	if exists {
		return nil
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)); err != nil {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return nil
}

// databaseExists checks if a database exists
func databaseExists(db *sql.DB, name string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?)"
	err := db.QueryRow(query, name).Scan(&exists)
	return exists, err
}

// isValidDatabaseName validates database name (basic check)
func isValidDatabaseName(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	// Check for SQL injection patterns
	invalid := []string{"'", "\"", "`", ";", "--", "/*", "*/", "DROP", "DELETE", "TRUNCATE"}
	upper := strings.ToUpper(name)
	for _, s := range invalid {
		if strings.Contains(upper, s) {
			return false
		}
	}
	return true
}
