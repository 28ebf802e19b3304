package interfaces

import (
	"context"
	"market-flipper/src/models"
)

// -----------------------------------------------------------------------------
// IDatabase is the signal journal: it records published candidate lists.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveSnapshot stores one published candidate list for an engine.
	SaveSnapshot(ctx context.Context, snap models.MJournalSnapshot) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes rows older than the retention policy.
	CleanupOldData(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
