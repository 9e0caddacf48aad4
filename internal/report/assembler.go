// Package report assembles per-party and per-case investigative report
// payloads from the aggregation, typology and narrative layers.
package report

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/casetrace/casetrace/internal/aggregate"
	"github.com/casetrace/casetrace/internal/normalize"
	"github.com/casetrace/casetrace/internal/typology"
	"github.com/casetrace/casetrace/pkg/models"
)

// DefaultTopN bounds the counterparty rankings in report payloads
const DefaultTopN = 10

// PartySummary is the per-party report payload. Monetary fields carry the
// raw decimal and its fixed-pattern rendering side by side.
type PartySummary struct {
	PartyID              string                     `json:"party_id"`
	DisplayName          string                     `json:"display_name"`
	TotalCredit          decimal.Decimal            `json:"total_credit"`
	TotalCreditFormatted string                     `json:"total_credit_formatted"`
	TotalDebit           decimal.Decimal            `json:"total_debit"`
	TotalDebitFormatted  string                     `json:"total_debit_formatted"`
	Net                  decimal.Decimal            `json:"net"`
	NetFormatted         string                     `json:"net_formatted"`
	CashCredit           decimal.Decimal            `json:"cash_credit"`
	CashDebit            decimal.Decimal            `json:"cash_debit"`
	TransactionCount     int                        `json:"transaction_count"`
	MonthlySeries        []models.MonthlyPoint      `json:"monthly_series"`
	DailyBalances        []models.DailyBalance      `json:"daily_balances,omitempty"`
	TopCredit            []models.CounterpartyTotal `json:"top_credit_counterparties"`
	TopDebit             []models.CounterpartyTotal `json:"top_debit_counterparties"`
	Findings             *typology.Results          `json:"typology_findings"`
	Narrative            string                     `json:"narrative"`
}

// CaseSummary is the case dashboard rollup
type CaseSummary struct {
	CaseID               string                     `json:"case_id"`
	PartyCount           int                        `json:"party_count"`
	TransactionCount     int                        `json:"transaction_count"`
	TotalCredit          decimal.Decimal            `json:"total_credit"`
	TotalCreditFormatted string                     `json:"total_credit_formatted"`
	TotalDebit           decimal.Decimal            `json:"total_debit"`
	TotalDebitFormatted  string                     `json:"total_debit_formatted"`
	MonthlySeries        []models.MonthlyPoint      `json:"monthly_series"`
	TopCredit            []models.CounterpartyTotal `json:"top_credit_counterparties"`
	TopDebit             []models.CounterpartyTotal `json:"top_debit_counterparties"`
	SharedCounterparties map[string][]string        `json:"shared_counterparties,omitempty"`
}

// Assembler builds report payloads
type Assembler struct {
	aggregator *aggregate.Aggregator
	detector   *typology.Detector
	summarizer Summarizer
	topN       int
}

// NewAssembler creates an assembler. summarizer may be nil, in which case
// every narrative degrades to the unavailable placeholder.
func NewAssembler(agg *aggregate.Aggregator, det *typology.Detector, summarizer Summarizer, topN int) *Assembler {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Assembler{
		aggregator: agg,
		detector:   det,
		summarizer: summarizer,
		topN:       topN,
	}
}

// PartySummary assembles the full per-party payload: aggregation, top-N
// rankings, monthly series, typology findings and the narrative section.
// A summarizer failure only affects the narrative; everything else
// proceeds.
func (a *Assembler) PartySummary(ctx context.Context, p *models.Party, txns []models.Transaction) *PartySummary {
	sorted := make([]models.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	agg := a.aggregator.Aggregate(p.CanonicalID, sorted)
	findings := a.detector.RunAll(p.CanonicalID, sorted)

	summary := &PartySummary{
		PartyID:              p.CanonicalID,
		DisplayName:          p.DisplayName,
		TotalCredit:          agg.TotalCredit,
		TotalCreditFormatted: normalize.FormatCurrency(agg.TotalCredit),
		TotalDebit:           agg.TotalDebit,
		TotalDebitFormatted:  normalize.FormatCurrency(agg.TotalDebit),
		Net:                  agg.Net,
		NetFormatted:         normalize.FormatCurrency(agg.Net),
		TransactionCount:     agg.Count,
		MonthlySeries:        a.aggregator.MonthlySeries(sorted),
		DailyBalances:        a.aggregator.DailyBalances(sorted),
		TopCredit:            a.aggregator.TopCounterparties(sorted, models.DirectionCredit, a.topN),
		TopDebit:             a.aggregator.TopCounterparties(sorted, models.DirectionDebit, a.topN),
		Findings:             findings,
	}

	summary.CashCredit, summary.CashDebit = a.cashTotals(sorted)
	summary.Narrative = a.narrative(ctx, p, summary)
	return summary
}

// CaseSummary assembles the dashboard rollup over a whole case snapshot
func (a *Assembler) CaseSummary(caseID string, parties map[string]*models.Party, txns []models.Transaction) *CaseSummary {
	totalCredit, totalDebit := decimal.Zero, decimal.Zero
	for _, t := range txns {
		switch t.Direction {
		case models.DirectionCredit:
			totalCredit = totalCredit.Add(t.Amount)
		case models.DirectionDebit:
			totalDebit = totalDebit.Add(t.Amount)
		}
	}

	return &CaseSummary{
		CaseID:               caseID,
		PartyCount:           len(parties),
		TransactionCount:     len(txns),
		TotalCredit:          totalCredit,
		TotalCreditFormatted: normalize.FormatCurrency(totalCredit),
		TotalDebit:           totalDebit,
		TotalDebitFormatted:  normalize.FormatCurrency(totalDebit),
		MonthlySeries:        a.aggregator.MonthlySeries(txns),
		TopCredit:            a.aggregator.TopCounterparties(txns, models.DirectionCredit, a.topN),
		TopDebit:             a.aggregator.TopCounterparties(txns, models.DirectionDebit, a.topN),
		SharedCounterparties: a.aggregator.SharedCounterparties(txns),
	}
}

// MentionsFromInfo asks the summarizer to structure the free-text
// additional information of report-derived transactions and parses the
// response through the two-stage extraction contract.
func (a *Assembler) MentionsFromInfo(ctx context.Context, infoText string) ([]Mention, int, error) {
	if a.summarizer == nil {
		return nil, 0, &ServiceError{Op: "extract", Err: fmt.Errorf("no summarizer configured")}
	}

	prompt := "Extract every party mentioned in the following report text as a JSON array of objects " +
		`with fields "name", "tax_id", "amount", "transactions" and "platform". ` +
		"Respond with JSON only.\n\n" + infoText

	raw, err := a.summarizer.Summarize(ctx, prompt)
	if err != nil {
		return nil, 0, err
	}
	return ExtractMentions(raw)
}

func (a *Assembler) cashTotals(txns []models.Transaction) (credit, debit decimal.Decimal) {
	credit, debit = decimal.Zero, decimal.Zero
	for _, t := range txns {
		if !a.detector.IsCashDescription(t.Description) {
			continue
		}
		switch t.Direction {
		case models.DirectionCredit:
			credit = credit.Add(t.Amount)
		case models.DirectionDebit:
			debit = debit.Add(t.Amount)
		}
	}
	return credit, debit
}

func (a *Assembler) narrative(ctx context.Context, p *models.Party, s *PartySummary) string {
	if a.summarizer == nil {
		return NarrativeUnavailable
	}

	text, err := a.summarizer.Summarize(ctx, a.narrativePrompt(p, s))
	if err != nil || strings.TrimSpace(text) == "" {
		log.Printf("narrative for party %s unavailable: %v", p.CanonicalID, err)
		return NarrativeUnavailable
	}
	return text
}

func (a *Assembler) narrativePrompt(p *models.Party, s *PartySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short investigative analysis of the financial activity of %s (id %s).\n", p.DisplayName, p.CanonicalID)
	fmt.Fprintf(&b, "Total credits: %s. Total debits: %s. Net: %s. Transactions: %d.\n",
		s.TotalCreditFormatted, s.TotalDebitFormatted, s.NetFormatted, s.TransactionCount)

	for _, kind := range typology.BatteryOrder {
		if n := len(s.Findings.Findings[kind]); n > 0 {
			fmt.Fprintf(&b, "Pattern %s: %d occurrence(s).\n", kind, n)
		}
	}

	b.WriteString("Base the analysis strictly on the figures above.")
	return b.String()
}
