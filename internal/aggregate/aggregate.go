// Package aggregate groups a party's transactions by counterparty, time
// bucket and direction, producing sums, counts and top-N rankings.
package aggregate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/casetrace/casetrace/internal/party"
	"github.com/casetrace/casetrace/pkg/models"
)

// Report holds the per-party aggregation of one analysis run
type Report struct {
	PartyID        string                      `json:"party_id"`
	TotalCredit    decimal.Decimal             `json:"total_credit"`
	TotalDebit     decimal.Decimal             `json:"total_debit"`
	Net            decimal.Decimal             `json:"net"`
	Count          int                         `json:"count"`
	Counterparties []models.CounterpartyBucket `json:"counterparties"`
}

// Aggregator computes derived aggregation structures. All methods are pure
// functions of their inputs; nothing is cached across runs.
type Aggregator struct{}

// New creates an aggregator
func New() *Aggregator {
	return &Aggregator{}
}

// Aggregate computes totals and per-counterparty buckets for one party's
// transactions. Transactions without a counterparty contribute to the
// totals but not to any bucket. Buckets are ordered by counterparty key
// ascending so output is reproducible.
func (a *Aggregator) Aggregate(partyID string, txns []models.Transaction) *Report {
	rep := &Report{
		PartyID:     partyID,
		TotalCredit: decimal.Zero,
		TotalDebit:  decimal.Zero,
	}

	buckets := make(map[string]*models.CounterpartyBucket)
	for _, t := range txns {
		rep.Count++
		switch t.Direction {
		case models.DirectionCredit:
			rep.TotalCredit = rep.TotalCredit.Add(t.Amount)
		case models.DirectionDebit:
			rep.TotalDebit = rep.TotalDebit.Add(t.Amount)
		}

		key := counterpartyKey(t)
		if key == "" {
			continue
		}
		b, ok := buckets[key]
		if !ok {
			b = &models.CounterpartyBucket{
				CounterpartyID:   key,
				CounterpartyName: t.CounterpartyName,
				Credit:           decimal.Zero,
				Debit:            decimal.Zero,
			}
			buckets[key] = b
		}
		switch t.Direction {
		case models.DirectionCredit:
			b.Credit = b.Credit.Add(t.Amount)
			b.CreditCount++
		case models.DirectionDebit:
			b.Debit = b.Debit.Add(t.Amount)
			b.DebitCount++
		}
	}

	rep.Net = rep.TotalCredit.Sub(rep.TotalDebit)

	rep.Counterparties = make([]models.CounterpartyBucket, 0, len(buckets))
	for _, b := range buckets {
		rep.Counterparties = append(rep.Counterparties, *b)
	}
	sort.Slice(rep.Counterparties, func(i, j int) bool {
		return rep.Counterparties[i].CounterpartyID < rep.Counterparties[j].CounterpartyID
	})

	return rep
}

// TopCounterparties ranks counterparties by summed amount in the given
// direction, descending, ties broken by counterparty key ascending. n <= 0
// returns the full ranking.
func (a *Aggregator) TopCounterparties(txns []models.Transaction, dir models.Direction, n int) []models.CounterpartyTotal {
	sums := make(map[string]*models.CounterpartyTotal)
	for _, t := range txns {
		if t.Direction != dir {
			continue
		}
		key := counterpartyKey(t)
		if key == "" {
			continue
		}
		entry, ok := sums[key]
		if !ok {
			entry = &models.CounterpartyTotal{
				CounterpartyID:   key,
				CounterpartyName: t.CounterpartyName,
				Sum:              decimal.Zero,
			}
			sums[key] = entry
		}
		entry.Sum = entry.Sum.Add(t.Amount)
		entry.Count++
	}

	ranking := make([]models.CounterpartyTotal, 0, len(sums))
	for _, entry := range sums {
		ranking = append(ranking, *entry)
	}
	sort.Slice(ranking, func(i, j int) bool {
		if !ranking[i].Sum.Equal(ranking[j].Sum) {
			return ranking[i].Sum.GreaterThan(ranking[j].Sum)
		}
		return ranking[i].CounterpartyID < ranking[j].CounterpartyID
	})

	if n > 0 && len(ranking) > n {
		ranking = ranking[:n]
	}
	return ranking
}

// MonthlySeries rolls transactions up by calendar month, ordered
// chronologically. Months without activity are omitted, not zero-filled.
// Transactions without a date are skipped.
func (a *Aggregator) MonthlySeries(txns []models.Transaction) []models.MonthlyPoint {
	points := make(map[string]*models.MonthlyPoint)
	for _, t := range txns {
		if t.Date.IsZero() {
			continue
		}
		month := t.Date.Format("2006-01")
		p, ok := points[month]
		if !ok {
			p = &models.MonthlyPoint{Month: month, Credit: decimal.Zero, Debit: decimal.Zero}
			points[month] = p
		}
		switch t.Direction {
		case models.DirectionCredit:
			p.Credit = p.Credit.Add(t.Amount)
		case models.DirectionDebit:
			p.Debit = p.Debit.Add(t.Amount)
		}
	}

	series := make([]models.MonthlyPoint, 0, len(points))
	for _, p := range points {
		series = append(series, *p)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Month < series[j].Month })
	return series
}

// DailyBalances rolls transactions up by calendar date with credit, debit
// and net per day, ordered chronologically. The zero-balance detector and
// the calendar view consume this rollup.
func (a *Aggregator) DailyBalances(txns []models.Transaction) []models.DailyBalance {
	days := make(map[string]*models.DailyBalance)
	for _, t := range txns {
		if t.Date.IsZero() {
			continue
		}
		date := t.Date.Format("2006-01-02")
		d, ok := days[date]
		if !ok {
			d = &models.DailyBalance{Date: date, Credit: decimal.Zero, Debit: decimal.Zero}
			days[date] = d
		}
		d.Count++
		switch t.Direction {
		case models.DirectionCredit:
			d.Credit = d.Credit.Add(t.Amount)
		case models.DirectionDebit:
			d.Debit = d.Debit.Add(t.Amount)
		}
	}

	balances := make([]models.DailyBalance, 0, len(days))
	for _, d := range days {
		d.Net = d.Credit.Sub(d.Debit)
		balances = append(balances, *d)
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Date < balances[j].Date })
	return balances
}

// SharedCounterparties returns the counterparty keys that transact with
// more than one distinct owner in the given set, with the owners listed.
func (a *Aggregator) SharedCounterparties(txns []models.Transaction) map[string][]string {
	owners := make(map[string]map[string]bool)
	for _, t := range txns {
		cp := counterpartyKey(t)
		if cp == "" {
			continue
		}
		owner := party.Key(t.OwnerID, t.OwnerName)
		if owners[cp] == nil {
			owners[cp] = make(map[string]bool)
		}
		owners[cp][owner] = true
	}

	shared := make(map[string][]string)
	for cp, set := range owners {
		if len(set) < 2 {
			continue
		}
		list := make([]string, 0, len(set))
		for owner := range set {
			list = append(list, owner)
		}
		sort.Strings(list)
		shared[cp] = list
	}
	return shared
}

func counterpartyKey(t models.Transaction) string {
	if t.CounterpartyID == "" && strings.TrimSpace(t.CounterpartyName) == "" {
		return ""
	}
	return party.Key(t.CounterpartyID, t.CounterpartyName)
}
