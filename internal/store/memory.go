package store

import (
	"context"
	"sync"

	"github.com/casetrace/casetrace/internal/party"
	"github.com/casetrace/casetrace/pkg/models"
)

// MemoryStore is an in-memory Store used in tests and development mode
type MemoryStore struct {
	mu        sync.RWMutex
	batches   map[string][]models.Batch // case id -> batches
	txns      map[string][]models.Transaction
	sightings map[string][]party.Sighting
	caseFiles map[string][]models.CaseFile
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches:   make(map[string][]models.Batch),
		txns:      make(map[string][]models.Transaction),
		sightings: make(map[string][]party.Sighting),
		caseFiles: make(map[string][]models.CaseFile),
	}
}

// SaveBatch stores one ingested batch
func (s *MemoryStore) SaveBatch(ctx context.Context, batch *models.Batch, txns []models.Transaction, sightings []party.Sighting, caseFiles []models.CaseFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.batches[batch.CaseID] {
		if b.ContentHash == batch.ContentHash {
			return ErrDuplicateBatch
		}
	}

	s.batches[batch.CaseID] = append(s.batches[batch.CaseID], *batch)
	s.txns[batch.CaseID] = append(s.txns[batch.CaseID], txns...)
	s.sightings[batch.CaseID] = append(s.sightings[batch.CaseID], sightings...)
	s.caseFiles[batch.CaseID] = append(s.caseFiles[batch.CaseID], caseFiles...)
	return nil
}

// Batches lists the batches ingested for a case
func (s *MemoryStore) Batches(ctx context.Context, caseID string) ([]models.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Batch(nil), s.batches[caseID]...), nil
}

// BatchByHash finds a batch by content hash, nil when absent
func (s *MemoryStore) BatchByHash(ctx context.Context, caseID, contentHash string) (*models.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.batches[caseID] {
		if b.ContentHash == contentHash {
			copied := b
			return &copied, nil
		}
	}
	return nil, nil
}

// Transactions returns a copy of the case's transaction snapshot
func (s *MemoryStore) Transactions(ctx context.Context, caseID string) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Transaction(nil), s.txns[caseID]...), nil
}

// Sightings returns a copy of the case's party sightings
func (s *MemoryStore) Sightings(ctx context.Context, caseID string) ([]party.Sighting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]party.Sighting(nil), s.sightings[caseID]...), nil
}

// CaseFiles returns a copy of the case's occurrence records
func (s *MemoryStore) CaseFiles(ctx context.Context, caseID string) ([]models.CaseFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CaseFile(nil), s.caseFiles[caseID]...), nil
}

// UnifyNames relabels matching owner and counterparty names under one lock
func (s *MemoryStore) UnifyNames(ctx context.Context, caseID, canonicalID, accepted string, variants []string) (int64, error) {
	variantSet := make(map[string]bool, len(variants))
	for _, v := range variants {
		variantSet[v] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var touched int64
	txns := s.txns[caseID]
	for i := range txns {
		if txns[i].OwnerID == canonicalID && variantSet[txns[i].OwnerName] {
			txns[i].OwnerName = accepted
			touched++
		}
		if txns[i].CounterpartyID == canonicalID && variantSet[txns[i].CounterpartyName] {
			txns[i].CounterpartyName = accepted
			touched++
		}
	}

	sightings := s.sightings[caseID]
	for i := range sightings {
		if sightings[i].TaxID == canonicalID && variantSet[sightings[i].DisplayName] {
			sightings[i].DisplayName = accepted
			touched++
		}
	}

	return touched, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() {}
