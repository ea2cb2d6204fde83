// Package storage keeps the history of harness runs.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/go-layercheck/internal/harness"
)

// Store persists run records.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, id string) (RunRecord, bool, error)
	// ListRuns returns the newest runs first; limit <= 0 returns all.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// RunRecord is one stored harness run.
type RunRecord struct {
	SchemaVersion int             `json:"schema_version"`
	ID            string          `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	Report        *harness.Report `json:"report"`
}

// RunSummary is the listing view of a run.
type RunSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Engine    string    `json:"engine"`
	Failed    bool      `json:"failed"`
}

// NewRunRecord wraps rep under a fresh run ID and stamps the ID into the
// report.
func NewRunRecord(rep *harness.Report, now time.Time) RunRecord {
	id := uuid.NewString()
	rep.ID = id

	return RunRecord{
		SchemaVersion: CurrentSchemaVersion,
		ID:            id,
		CreatedAt:     now.UTC(),
		Report:        rep,
	}
}

func (r RunRecord) summary() RunSummary {
	s := RunSummary{ID: r.ID, CreatedAt: r.CreatedAt}
	if r.Report != nil {
		s.Engine = r.Report.Engine
		s.Failed = r.Report.Failed()
	}

	return s
}
