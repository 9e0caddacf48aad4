package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/casetrace/casetrace/internal/graph"
	"github.com/casetrace/casetrace/internal/ingest"
	"github.com/casetrace/casetrace/internal/party"
	"github.com/casetrace/casetrace/internal/report"
	"github.com/casetrace/casetrace/internal/store"
	"github.com/casetrace/casetrace/pkg/models"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	store     store.Store
	ingestor  *ingest.Ingestor
	resolver  *party.Resolver
	builder   *graph.Builder
	assembler *report.Assembler
}

// NewHandlers creates a new handlers instance
func NewHandlers(st store.Store, assembler *report.Assembler) *Handlers {
	return &Handlers{
		store:     st,
		ingestor:  ingest.NewIngestor(),
		resolver:  party.NewResolver(),
		builder:   graph.NewBuilder(),
		assembler: assembler,
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "casetrace",
		"time":    time.Now().UTC(),
	})
}

type ingestRequest struct {
	Kind     string     `json:"kind"`
	FileName string     `json:"file_name"`
	Headers  []string   `json:"headers"`
	Rows     [][]string `json:"rows"`
}

// IngestBatch accepts one tabular source batch for a case, normalizes it
// and persists the typed records together with the batch audit row.
func (h *Handlers) IngestBatch(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Headers) == 0 {
		respondError(w, http.StatusBadRequest, "Batch has no header row")
		return
	}

	kind := models.BatchKind(req.Kind)
	batch := &models.Batch{
		ID:          uuid.New().String(),
		CaseID:      caseID,
		Kind:        kind,
		FileName:    req.FileName,
		ContentHash: contentHash(&req),
		CreatedAt:   time.Now(),
	}
	tbl := ingest.Table{Headers: req.Headers, Rows: req.Rows}

	var (
		summary   *ingest.Summary
		err       error
		txns      []models.Transaction
		sightings []party.Sighting
		caseFiles []models.CaseFile
	)

	switch kind {
	case models.BatchKindStatement, models.BatchKindCommunications:
		mapping, _ := ingest.MappingFor(kind)
		var records []ingest.TransactionRecord
		records, summary, err = h.ingestor.Transactions(tbl, mapping)
		if err == nil {
			txns = h.buildTransactions(caseID, batch, req.FileName, records)
			sightings = party.SightingsFromTransactions(txns)
		}
	case models.BatchKindParties:
		var records []ingest.PartyRecord
		records, summary, err = h.ingestor.Parties(tbl)
		for _, rec := range records {
			sightings = append(sightings, party.Sighting{
				BatchID:     batch.ID,
				TaxID:       rec.TaxID,
				DisplayName: rec.DisplayName,
				Role:        rec.Role,
			})
		}
	case models.BatchKindOccurrences:
		var records []ingest.CaseFileRecord
		records, summary, err = h.ingestor.CaseFiles(tbl)
		for _, rec := range records {
			caseFiles = append(caseFiles, models.CaseFile{
				ID:       uuid.New().String(),
				CaseID:   caseID,
				BatchID:  batch.ID,
				Sequence: rec.Sequence,
				Label:    rec.Label,
			})
		}
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown batch kind %q", req.Kind))
		return
	}

	if err != nil {
		var schemaErr *ingest.SchemaError
		if errors.As(err, &schemaErr) {
			respondError(w, http.StatusBadRequest, schemaErr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to ingest batch")
		return
	}

	batch.Accepted = summary.Accepted
	batch.Rejected = summary.Rejected

	if err := h.store.SaveBatch(r.Context(), batch, txns, sightings, caseFiles); err != nil {
		if errors.Is(err, store.ErrDuplicateBatch) {
			respondError(w, http.StatusConflict, "Batch with identical content was already ingested for this case")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to save batch")
		return
	}

	respond(w, http.StatusCreated, map[string]interface{}{
		"batch":   batch,
		"summary": summary,
	})
}

func (h *Handlers) buildTransactions(caseID string, batch *models.Batch, fileName string, records []ingest.TransactionRecord) []models.Transaction {
	txns := make([]models.Transaction, 0, len(records))
	for _, rec := range records {
		txns = append(txns, models.Transaction{
			ID:               uuid.New().String(),
			CaseID:           caseID,
			BatchID:          batch.ID,
			OwnerID:          rec.OwnerTaxID,
			OwnerName:        rec.OwnerName,
			CounterpartyID:   rec.CounterpartyTaxID,
			CounterpartyName: rec.CounterpartyName,
			Amount:           rec.Amount,
			Direction:        rec.Direction,
			Date:             rec.Date,
			Description:      rec.Description,
			AdditionalInfo:   rec.AdditionalInfo,
			SourceFile:       fileName,
			RawAmount:        rec.RawAmount,
			RawDate:          rec.RawDate,
		})
	}
	return txns
}

// ListBatches handles listing a case's ingested batches
func (h *Handlers) ListBatches(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")

	batches, err := h.store.Batches(r.Context(), caseID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list batches")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"batches": batches,
		"count":   len(batches),
	})
}

// ListParties returns the case's deduplicated parties
func (h *Handlers) ListParties(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")

	parties, _, err := h.loadCase(r, caseID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load case snapshot")
		return
	}

	list := make([]*models.Party, 0, len(parties))
	for _, p := range parties {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CanonicalID < list[j].CanonicalID })

	respond(w, http.StatusOK, map[string]interface{}{
		"parties": list,
		"count":   len(list),
	})
}

type unifyRequest struct {
	AcceptedName string   `json:"accepted_name"`
	Variants     []string `json:"variants"`
}

// UnifyParty applies operator-driven display name unification for one
// canonical id. The request is validated against the full case snapshot
// before any rename is persisted.
func (h *Handlers) UnifyParty(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")
	canonicalID := chi.URLParam(r, "taxID")

	var req unifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	parties, txns, err := h.loadCase(r, caseID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load case snapshot")
		return
	}

	if _, err := h.resolver.UnifyNames(parties, txns, canonicalID, req.AcceptedName, req.Variants); err != nil {
		var verr *party.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusUnprocessableEntity, verr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to unify names")
		return
	}

	touched, err := h.store.UnifyNames(r.Context(), caseID, canonicalID, strings.TrimSpace(req.AcceptedName), req.Variants)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to persist unified names")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"canonical_id":  canonicalID,
		"accepted_name": strings.TrimSpace(req.AcceptedName),
		"renamed":       touched,
	})
}

// PartyReport assembles the full investigative report for one party
func (h *Handlers) PartyReport(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")
	canonicalID := chi.URLParam(r, "taxID")

	parties, txns, err := h.loadCase(r, caseID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load case snapshot")
		return
	}

	p, ok := parties[canonicalID]
	if !ok {
		respondError(w, http.StatusNotFound, "Party not found in this case")
		return
	}

	var own []models.Transaction
	for _, t := range txns {
		if party.Key(t.OwnerID, t.OwnerName) == canonicalID {
			own = append(own, t)
		}
	}

	respond(w, http.StatusOK, h.assembler.PartySummary(r.Context(), p, own))
}

// CaseSummary returns the case dashboard rollup
func (h *Handlers) CaseSummary(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")

	parties, txns, err := h.loadCase(r, caseID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load case snapshot")
		return
	}

	respond(w, http.StatusOK, h.assembler.CaseSummary(caseID, parties, txns))
}

// CaseFindings runs the typology battery across every party in the case
func (h *Handlers) CaseFindings(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")

	parties, txns, err := h.loadCase(r, caseID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load case snapshot")
		return
	}

	findings := h.assembler.CaseFindings(parties, txns)
	respond(w, http.StatusOK, map[string]interface{}{
		"case_id":  caseID,
		"findings": findings,
		"count":    len(findings),
	})
}

// GetGraph returns the case's link-analysis graph as JSON
func (h *Handlers) GetGraph(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")

	g, err := h.buildGraph(r, caseID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to build graph")
		return
	}

	data, err := g.JSON()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to serialize graph")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetGraphCSV returns the case's link-analysis graph as a CSV download
func (h *Handlers) GetGraphCSV(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")

	g, err := h.buildGraph(r, caseID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to build graph")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-graph.csv", caseID))
	w.WriteHeader(http.StatusOK)
	if err := g.WriteCSV(w); err != nil {
		// Headers are already out; nothing more to report to the client.
		return
	}
}

// ListCaseFiles returns the occurrence labels ingested for a case
func (h *Handlers) ListCaseFiles(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")

	files, err := h.store.CaseFiles(r.Context(), caseID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list case files")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"case_files": files,
		"count":      len(files),
	})
}

func (h *Handlers) buildGraph(r *http.Request, caseID string) (*graph.Graph, error) {
	parties, txns, err := h.loadCase(r, caseID)
	if err != nil {
		return nil, err
	}
	return h.builder.Build(parties, txns), nil
}

// loadCase materializes the case snapshot the analysis layers run over:
// all stored sightings resolved into canonical parties plus the full
// transaction list.
func (h *Handlers) loadCase(r *http.Request, caseID string) (map[string]*models.Party, []models.Transaction, error) {
	sightings, err := h.store.Sightings(r.Context(), caseID)
	if err != nil {
		return nil, nil, err
	}
	txns, err := h.store.Transactions(r.Context(), caseID)
	if err != nil {
		return nil, nil, err
	}
	return h.resolver.Resolve(sightings), txns, nil
}

func contentHash(req *ingestRequest) string {
	h := sha256.New()
	io.WriteString(h, req.Kind)
	io.WriteString(h, "\n")
	io.WriteString(h, strings.Join(req.Headers, "\x1f"))
	for _, row := range req.Rows {
		io.WriteString(h, "\n")
		io.WriteString(h, strings.Join(row, "\x1f"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Helper functions

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}
