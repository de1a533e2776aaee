package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"realestate-comps/models"
)

// DatasetWriter is the interface any file export of the cleaned dataset must satisfy.
type DatasetWriter interface {
	Write(listings []models.Listing) error
	Close() error
}

// DatasetStore persists cleaning runs and reloads the latest dataset.
type DatasetStore interface {
	Save(ctx context.Context, run Run, listings []models.Listing, audit []models.AuditEntry) error
	Load(ctx context.Context) ([]models.Listing, error)
	Close() error
}

// Run identifies one cleaning pipeline execution.
type Run struct {
	ID        string    `db:"id"`
	StartedAt time.Time `db:"started_at"`
	Source    string    `db:"source"`
	RawCount  int       `db:"raw_count"`
	Kept      int       `db:"listing_count"`
}

// NewRun starts a run record for rawCount records read from source.
func NewRun(source string, rawCount int) Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Source:    source,
		RawCount:  rawCount,
	}
}
