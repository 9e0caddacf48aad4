// Package ingest reads tabular source batches, maps source column names to
// canonical fields and coerces values, rejecting malformed rows per policy.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/casetrace/casetrace/internal/normalize"
	"github.com/casetrace/casetrace/pkg/models"
)

// Table is a raw tabular batch as handed over by the upload layer
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// SchemaError indicates a structurally required column is absent from an
// entire batch. The batch is aborted; nothing is partially ingested.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required column %q missing from batch", e.Column)
}

// RowError records one rejected row. Row errors are collected in the
// ingestion summary, never raised.
type RowError struct {
	Line   int    `json:"line"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Summary reports the outcome of one batch ingestion
type Summary struct {
	Accepted  int        `json:"accepted"`
	Rejected  int        `json:"rejected"`
	Errors    []RowError `json:"errors,omitempty"`
	StoppedAt int        `json:"stopped_at,omitempty"` // 1-based row of the stop sentinel, 0 if none
}

func (s *Summary) reject(line int, field, reason string) {
	s.Rejected++
	s.Errors = append(s.Errors, RowError{Line: line, Field: field, Reason: reason})
}

// Ingestor normalizes tabular batches into typed records
type Ingestor struct {
	dateLayouts []string
}

// NewIngestor creates an ingestor with the default accepted date layouts
func NewIngestor() *Ingestor {
	return &Ingestor{
		dateLayouts: []string{"02/01/2006", "2006-01-02", "02/01/06", "02-01-2006"},
	}
}

// Transactions ingests a money-movement batch under the given convention
// (StatementMapping or CommunicationMapping). Statement rows require a
// parseable date and direction; communication rows carry no direction
// column and default to credit.
func (ing *Ingestor) Transactions(tbl Table, m Mapping) ([]TransactionRecord, *Summary, error) {
	cols, err := resolveColumns(tbl.Headers, m)
	if err != nil {
		return nil, nil, err
	}

	summary := &Summary{}
	var records []TransactionRecord

	for i, row := range tbl.Rows {
		line := i + 1

		seq, stop := sequenceCell(row, cols)
		if stop {
			summary.StoppedAt = line
			break
		}

		raw := rawValues(row, cols)
		rec := TransactionRecord{
			Line:           line,
			Sequence:       seq,
			RawAmount:      raw[FieldAmount],
			RawDate:        raw[FieldDate],
			Description:    strings.TrimSpace(raw[FieldDescription]),
			AdditionalInfo: strings.TrimSpace(raw[FieldAdditionalInfo]),
			Raw:            raw,
		}

		amount, aerr := normalize.ParseCurrency(raw[FieldAmount])
		if aerr != nil {
			summary.reject(line, FieldAmount, aerr.Error())
			continue
		}
		if amount.IsNegative() {
			summary.reject(line, FieldAmount, "negative amount")
			continue
		}
		rec.Amount = amount

		if _, ok := cols[FieldDirection]; ok {
			dir, ok := models.ParseDirection(strings.TrimSpace(raw[FieldDirection]))
			if !ok {
				summary.reject(line, FieldDirection, fmt.Sprintf("unknown direction code %q", raw[FieldDirection]))
				continue
			}
			rec.Direction = dir
		} else {
			rec.Direction = models.DirectionCredit
		}

		rawDate := strings.TrimSpace(raw[FieldDate])
		if rawDate == "" && m.Kind == models.BatchKindStatement {
			summary.reject(line, FieldDate, "missing transaction date")
			continue
		}
		if rawDate != "" {
			date, derr := ing.parseDate(rawDate)
			if derr != nil {
				summary.reject(line, FieldDate, derr.Error())
				continue
			}
			rec.Date = date
		}

		if id, ok := normalize.ValidateTaxID(raw[FieldTaxID]); ok {
			rec.OwnerTaxID = id
		}
		rec.OwnerName = strings.TrimSpace(raw[FieldDisplayName])

		if id, ok := normalize.ValidateTaxID(raw[FieldCounterpartyTaxID]); ok {
			rec.CounterpartyTaxID = id
		}
		rec.CounterpartyName = strings.TrimSpace(raw[FieldCounterpartyName])

		records = append(records, rec)
		summary.Accepted++
	}

	return records, summary, nil
}

// Parties ingests an involved-parties batch
func (ing *Ingestor) Parties(tbl Table) ([]PartyRecord, *Summary, error) {
	cols, err := resolveColumns(tbl.Headers, InvolvedPartyMapping)
	if err != nil {
		return nil, nil, err
	}

	summary := &Summary{}
	var records []PartyRecord

	for i, row := range tbl.Rows {
		line := i + 1

		seq, stop := sequenceCell(row, cols)
		if stop {
			summary.StoppedAt = line
			break
		}

		raw := rawValues(row, cols)
		rec := PartyRecord{
			Line:        line,
			Sequence:    seq,
			DisplayName: strings.TrimSpace(raw[FieldDisplayName]),
			Role:        ParseRole(raw[FieldRole]),
			Raw:         raw,
		}

		if id, ok := normalize.ValidateTaxID(raw[FieldTaxID]); ok {
			rec.TaxID = id
		}
		if rec.TaxID == "" && rec.DisplayName == "" {
			summary.reject(line, FieldDisplayName, "row carries neither a valid tax id nor a display name")
			continue
		}

		records = append(records, rec)
		summary.Accepted++
	}

	return records, summary, nil
}

// CaseFiles ingests an occurrences batch
func (ing *Ingestor) CaseFiles(tbl Table) ([]CaseFileRecord, *Summary, error) {
	cols, err := resolveColumns(tbl.Headers, OccurrenceMapping)
	if err != nil {
		return nil, nil, err
	}

	summary := &Summary{}
	var records []CaseFileRecord

	for i, row := range tbl.Rows {
		line := i + 1

		seq, stop := sequenceCell(row, cols)
		if stop {
			summary.StoppedAt = line
			break
		}

		raw := rawValues(row, cols)
		label := strings.TrimSpace(raw[FieldOccurrence])
		if label == "" {
			summary.reject(line, FieldOccurrence, "empty occurrence label")
			continue
		}

		records = append(records, CaseFileRecord{
			Line:     line,
			Sequence: seq,
			Label:    label,
			Raw:      raw,
		})
		summary.Accepted++
	}

	return records, summary, nil
}

func (ing *Ingestor) parseDate(raw string) (time.Time, error) {
	for _, layout := range ing.dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

// resolveColumns matches the mapping's header spellings against the actual
// headers, case-insensitively. A structural field with no matching header
// fails the whole batch.
func resolveColumns(headers []string, m Mapping) (map[string]int, error) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	cols := make(map[string]int)
	for _, field := range m.Fields {
		idx := -1
		for _, spelling := range field.Headers {
			for i, h := range normalized {
				if h == spelling {
					idx = i
					break
				}
			}
			if idx >= 0 {
				break
			}
		}
		if idx < 0 {
			if field.Structural {
				return nil, &SchemaError{Column: field.Name}
			}
			continue
		}
		cols[field.Name] = idx
	}
	return cols, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

// sequenceCell returns the row's sequence value and whether it is the stop
// sentinel: a blank cell or one starting with '#' marks end-of-data.
func sequenceCell(row []string, cols map[string]int) (string, bool) {
	seq := strings.TrimSpace(cell(row, cols, FieldSequence))
	if seq == "" || strings.HasPrefix(seq, "#") {
		return seq, true
	}
	return seq, false
}

func cell(row []string, cols map[string]int, field string) string {
	idx, ok := cols[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func rawValues(row []string, cols map[string]int) map[string]string {
	raw := make(map[string]string, len(cols))
	for field, idx := range cols {
		if idx < len(row) {
			raw[field] = row[idx]
		}
	}
	return raw
}
