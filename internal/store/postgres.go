package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/casetrace/casetrace/internal/party"
	"github.com/casetrace/casetrace/pkg/models"
)

// PostgresStore is the pgx-backed Store
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool and verifies the connection
func NewPostgresStore(ctx context.Context, url string, maxConns, minConns int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	if minConns > 0 {
		cfg.MinConns = int32(minConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the schema when missing
func (s *PostgresStore) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			case_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			file_name TEXT NOT NULL DEFAULT '',
			content_hash TEXT NOT NULL,
			accepted INT NOT NULL DEFAULT 0,
			rejected INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (case_id, content_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			case_id TEXT NOT NULL,
			batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
			owner_id TEXT NOT NULL DEFAULT '',
			owner_name TEXT NOT NULL DEFAULT '',
			counterparty_id TEXT NOT NULL DEFAULT '',
			counterparty_name TEXT NOT NULL DEFAULT '',
			amount NUMERIC(20,2) NOT NULL,
			direction TEXT NOT NULL,
			txn_date DATE,
			description TEXT NOT NULL DEFAULT '',
			additional_info TEXT NOT NULL DEFAULT '',
			source_file TEXT NOT NULL DEFAULT '',
			raw_amount TEXT NOT NULL DEFAULT '',
			raw_date TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_case ON transactions(case_id)`,
		`CREATE TABLE IF NOT EXISTS party_sightings (
			id BIGSERIAL PRIMARY KEY,
			case_id TEXT NOT NULL,
			batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
			tax_id TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sightings_case ON party_sightings(case_id)`,
		`CREATE TABLE IF NOT EXISTS case_files (
			id TEXT PRIMARY KEY,
			case_id TEXT NOT NULL,
			batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
			sequence TEXT NOT NULL DEFAULT '',
			label TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_case_files_case ON case_files(case_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveBatch persists one ingested batch in a single transaction
func (s *PostgresStore) SaveBatch(ctx context.Context, batch *models.Batch, txns []models.Transaction, sightings []party.Sighting, caseFiles []models.CaseFile) error {
	existing, err := s.BatchByHash(ctx, batch.CaseID, batch.ContentHash)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateBatch
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO batches (id, case_id, kind, file_name, content_hash, accepted, rejected, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		batch.ID, batch.CaseID, batch.Kind, batch.FileName, batch.ContentHash, batch.Accepted, batch.Rejected, batch.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	pgBatch := &pgx.Batch{}
	for _, t := range txns {
		var date interface{}
		if !t.Date.IsZero() {
			date = t.Date
		}
		pgBatch.Queue(
			`INSERT INTO transactions (id, case_id, batch_id, owner_id, owner_name, counterparty_id, counterparty_name,
				amount, direction, txn_date, description, additional_info, source_file, raw_amount, raw_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			t.ID, t.CaseID, t.BatchID, t.OwnerID, t.OwnerName, t.CounterpartyID, t.CounterpartyName,
			t.Amount.String(), t.Direction, date, t.Description, t.AdditionalInfo, t.SourceFile, t.RawAmount, t.RawDate)
	}
	for _, sg := range sightings {
		pgBatch.Queue(
			`INSERT INTO party_sightings (case_id, batch_id, tax_id, display_name, role)
			 VALUES ($1, $2, $3, $4, $5)`,
			batch.CaseID, sg.BatchID, sg.TaxID, sg.DisplayName, sg.Role)
	}
	for _, cf := range caseFiles {
		pgBatch.Queue(
			`INSERT INTO case_files (id, case_id, batch_id, sequence, label)
			 VALUES ($1, $2, $3, $4, $5)`,
			cf.ID, cf.CaseID, cf.BatchID, cf.Sequence, cf.Label)
	}

	br := tx.SendBatch(ctx, pgBatch)
	for i := 0; i < pgBatch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch insert %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// Batches lists the batches ingested for a case
func (s *PostgresStore) Batches(ctx context.Context, caseID string) ([]models.Batch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, case_id, kind, file_name, content_hash, accepted, rejected, created_at
		 FROM batches WHERE case_id = $1 ORDER BY created_at, id`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []models.Batch
	for rows.Next() {
		var b models.Batch
		if err := rows.Scan(&b.ID, &b.CaseID, &b.Kind, &b.FileName, &b.ContentHash, &b.Accepted, &b.Rejected, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// BatchByHash finds a batch by content hash, nil when absent
func (s *PostgresStore) BatchByHash(ctx context.Context, caseID, contentHash string) (*models.Batch, error) {
	var b models.Batch
	err := s.pool.QueryRow(ctx,
		`SELECT id, case_id, kind, file_name, content_hash, accepted, rejected, created_at
		 FROM batches WHERE case_id = $1 AND content_hash = $2`, caseID, contentHash).
		Scan(&b.ID, &b.CaseID, &b.Kind, &b.FileName, &b.ContentHash, &b.Accepted, &b.Rejected, &b.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Transactions returns the case's transaction snapshot ordered by date
func (s *PostgresStore) Transactions(ctx context.Context, caseID string) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, case_id, batch_id, owner_id, owner_name, counterparty_id, counterparty_name,
			amount::text, direction, txn_date, description, additional_info, source_file, raw_amount, raw_date
		 FROM transactions WHERE case_id = $1 ORDER BY txn_date NULLS LAST, id`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var amount string
		var date *time.Time
		if err := rows.Scan(&t.ID, &t.CaseID, &t.BatchID, &t.OwnerID, &t.OwnerName, &t.CounterpartyID, &t.CounterpartyName,
			&amount, &t.Direction, &date, &t.Description, &t.AdditionalInfo, &t.SourceFile, &t.RawAmount, &t.RawDate); err != nil {
			return nil, err
		}
		t.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("bad stored amount %q: %w", amount, err)
		}
		if date != nil {
			t.Date = *date
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// Sightings returns the case's party sightings
func (s *PostgresStore) Sightings(ctx context.Context, caseID string) ([]party.Sighting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT batch_id, tax_id, display_name, role FROM party_sightings WHERE case_id = $1 ORDER BY id`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sightings []party.Sighting
	for rows.Next() {
		var sg party.Sighting
		if err := rows.Scan(&sg.BatchID, &sg.TaxID, &sg.DisplayName, &sg.Role); err != nil {
			return nil, err
		}
		sightings = append(sightings, sg)
	}
	return sightings, rows.Err()
}

// CaseFiles returns the case's occurrence records
func (s *PostgresStore) CaseFiles(ctx context.Context, caseID string) ([]models.CaseFile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, case_id, batch_id, sequence, label FROM case_files WHERE case_id = $1 ORDER BY sequence, id`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.CaseFile
	for rows.Next() {
		var cf models.CaseFile
		if err := rows.Scan(&cf.ID, &cf.CaseID, &cf.BatchID, &cf.Sequence, &cf.Label); err != nil {
			return nil, err
		}
		files = append(files, cf)
	}
	return files, rows.Err()
}

// UnifyNames relabels owner, counterparty and sighting names in one
// transaction. No partial rename survives a failure.
func (s *PostgresStore) UnifyNames(ctx context.Context, caseID, canonicalID, accepted string, variants []string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var touched int64

	tag, err := tx.Exec(ctx,
		`UPDATE transactions SET owner_name = $1
		 WHERE case_id = $2 AND owner_id = $3 AND owner_name = ANY($4)`,
		accepted, caseID, canonicalID, variants)
	if err != nil {
		return 0, fmt.Errorf("rename owners: %w", err)
	}
	touched += tag.RowsAffected()

	tag, err = tx.Exec(ctx,
		`UPDATE transactions SET counterparty_name = $1
		 WHERE case_id = $2 AND counterparty_id = $3 AND counterparty_name = ANY($4)`,
		accepted, caseID, canonicalID, variants)
	if err != nil {
		return 0, fmt.Errorf("rename counterparties: %w", err)
	}
	touched += tag.RowsAffected()

	tag, err = tx.Exec(ctx,
		`UPDATE party_sightings SET display_name = $1
		 WHERE case_id = $2 AND tax_id = $3 AND display_name = ANY($4)`,
		accepted, caseID, canonicalID, variants)
	if err != nil {
		return 0, fmt.Errorf("rename sightings: %w", err)
	}
	touched += tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return touched, nil
}

// Close releases the pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}
