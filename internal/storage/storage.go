package storage

import (
	"fmt"
	"time"

	"ctr/internal/config"
	"ctr/internal/domain"
)

// Storage persists and loads run records (the succeeded set and failures).
type Storage interface {
	Save(summary *domain.RunSummary, failures []domain.TestFailure) error
	// Load returns the last stored record, or an error wrapping
	// ErrNoResults when nothing was stored yet.
	Load() (*domain.RunRecord, error)
	// SaveOutput rewrites the last record (e.g. after marking failures resolved).
	SaveOutput(record *domain.RunRecord) error
}

// JSONStorage stores results in a JSON file under the configured output path.
type JSONStorage struct {
	cfg *config.Config
}

// NewJSONStorage returns a Storage that reads/writes the config's output JSON path.
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}

// New returns the storage backend selected by cfg.Store
func New(cfg *config.Config) (Storage, error) {
	switch cfg.Store {
	case config.StoreJSON, "":
		return NewJSONStorage(cfg), nil
	case config.StoreMySQL:
		return NewSQLStorage(cfg), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// NewRecord builds the stored form of a run
func NewRecord(summary *domain.RunSummary, failures []domain.TestFailure) *domain.RunRecord {
	if failures == nil {
		failures = []domain.TestFailure{}
	}
	return &domain.RunRecord{
		Meta: domain.RunMeta{
			RunID:           summary.RunID,
			Root:            summary.Root,
			Successful:      summary.Successes,
			Failed:          summary.Failures,
			Skipped:         summary.Skipped,
			Aborted:         summary.Aborted,
			Warnings:        len(summary.Warnings),
			Duration:        summary.Duration.String(),
			DurationSeconds: summary.Duration.Seconds(),
			Timestamp:       time.Now().Format(time.RFC3339),
		},
		Succeeded: summary.Succeeded.Sorted(),
		Details:   failures,
	}
}
