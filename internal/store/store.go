// Package store persists ingested batches and serves the case snapshots
// the analysis pipeline runs over. The store, not the engine, owns the
// transactional boundary of batch ingestion and name unification.
package store

import (
	"context"
	"errors"

	"github.com/casetrace/casetrace/internal/party"
	"github.com/casetrace/casetrace/pkg/models"
)

// ErrDuplicateBatch is returned when a batch with the same content hash
// was already ingested for the case
var ErrDuplicateBatch = errors.New("batch already ingested for this case")

// Store is the record store consumed by the analysis engine
type Store interface {
	// SaveBatch persists one ingested batch atomically: the batch row,
	// its transactions, party sightings and case files all become
	// visible together, or not at all.
	SaveBatch(ctx context.Context, batch *models.Batch, txns []models.Transaction, sightings []party.Sighting, caseFiles []models.CaseFile) error

	Batches(ctx context.Context, caseID string) ([]models.Batch, error)
	BatchByHash(ctx context.Context, caseID, contentHash string) (*models.Batch, error)

	Transactions(ctx context.Context, caseID string) ([]models.Transaction, error)
	Sightings(ctx context.Context, caseID string) ([]party.Sighting, error)
	CaseFiles(ctx context.Context, caseID string) ([]models.CaseFile, error)

	// UnifyNames relabels owner and counterparty display names for one
	// canonical id in a single transaction and returns the number of
	// rows touched. Callers validate the request first; concurrent
	// unifications for the same case must be serialized by the caller.
	UnifyNames(ctx context.Context, caseID, canonicalID, accepted string, variants []string) (int64, error)

	Close()
}
