package interfaces

import (
	"context"
	"market-flipper/src/models"
)

// -----------------------------------------------------------------------------
// IDataExchanger shares published state with external clients (REST / WebSocket).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast stores the state and pushes it to connected listeners.
	Broadcast(state *models.MLatestData)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// ISnapshotSink pushes published candidate lists to an external store.
// -----------------------------------------------------------------------------

type ISnapshotSink interface {
	Publish(ctx context.Context, engine string, payload interface{}) error
	Close() error
}
