// Package typology runs the battery of money-laundering pattern detectors
// over a party's transaction set.
package typology

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/casetrace/casetrace/internal/party"
	"github.com/casetrace/casetrace/pkg/models"
)

// Config holds the detection thresholds. Zero values are replaced with the
// defaults in NewDetector.
type Config struct {
	// StructuringFloor is the minimum repeated amount a same-day,
	// same-counterparty credit group must exceed to be flagged.
	StructuringFloor decimal.Decimal `yaml:"structuring_floor"`
	// HighValueCutoff is the per-counterparty sum above which a
	// counterparty-direction pair is reported.
	HighValueCutoff decimal.Decimal `yaml:"high_value_cutoff"`
	// CashKeywords are matched case-insensitively against debit
	// descriptions to identify cash withdrawals.
	CashKeywords []string `yaml:"cash_keywords"`
}

// Detector evaluates the typology rules
type Detector struct {
	config *Config
}

// NewDetector creates a detector, applying default thresholds for any
// zero-valued config field
func NewDetector(config *Config) *Detector {
	if config == nil {
		config = &Config{}
	}
	if config.StructuringFloor.IsZero() {
		config.StructuringFloor = decimal.NewFromInt(100)
	}
	if config.HighValueCutoff.IsZero() {
		config.HighValueCutoff = decimal.NewFromInt(5000)
	}
	if len(config.CashKeywords) == 0 {
		config.CashKeywords = []string{"SAQUE", "RETIRADA", "DINHEIRO"}
	}
	return &Detector{config: config}
}

// IsCashDescription reports whether a transaction description matches the
// cash keyword list
func (d *Detector) IsCashDescription(desc string) bool {
	upper := strings.ToUpper(desc)
	for _, kw := range d.config.CashKeywords {
		if strings.Contains(upper, strings.ToUpper(kw)) {
			return true
		}
	}
	return false
}

// Structuring flags groups of credit transactions sharing date, amount and
// counterparty where the group has more than one member and the repeated
// amount exceeds the configured floor.
func (d *Detector) Structuring(partyID string, txns []models.Transaction) []models.Finding {
	type group struct {
		date         string
		amount       decimal.Decimal
		counterparty string
		cpName       string
		ids          []string
	}
	groups := make(map[string]*group)

	for _, t := range txns {
		if t.Direction != models.DirectionCredit || t.Date.IsZero() {
			continue
		}
		date := t.Date.Format("2006-01-02")
		cp := counterpartyKey(t)
		key := date + "|" + t.Amount.String() + "|" + cp
		g, ok := groups[key]
		if !ok {
			g = &group{date: date, amount: t.Amount, counterparty: cp, cpName: t.CounterpartyName}
			groups[key] = g
		}
		g.ids = append(g.ids, t.ID)
	}

	var findings []models.Finding
	for _, g := range groups {
		if len(g.ids) < 2 || !g.amount.GreaterThan(d.config.StructuringFloor) {
			continue
		}
		findings = append(findings, models.Finding{
			Kind:             models.TypologyStructuring,
			PartyID:          partyID,
			Date:             g.date,
			CounterpartyID:   g.counterparty,
			CounterpartyName: g.cpName,
			Direction:        models.DirectionCredit,
			Amount:           g.amount,
			Count:            len(g.ids),
			TransactionIDs:   g.ids,
		})
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Date != findings[j].Date {
			return findings[i].Date < findings[j].Date
		}
		if findings[i].CounterpartyID != findings[j].CounterpartyID {
			return findings[i].CounterpartyID < findings[j].CounterpartyID
		}
		return findings[i].Amount.LessThan(findings[j].Amount)
	})
	return findings
}

// ZeroBalanceDays flags dates where credits and debits cancel out exactly.
// Equality is exact decimal equality, not a tolerance band.
func (d *Detector) ZeroBalanceDays(partyID string, txns []models.Transaction) []models.Finding {
	type day struct {
		credit decimal.Decimal
		debit  decimal.Decimal
		ids    []string
	}
	days := make(map[string]*day)

	for _, t := range txns {
		if t.Date.IsZero() {
			continue
		}
		date := t.Date.Format("2006-01-02")
		entry, ok := days[date]
		if !ok {
			entry = &day{credit: decimal.Zero, debit: decimal.Zero}
			days[date] = entry
		}
		switch t.Direction {
		case models.DirectionCredit:
			entry.credit = entry.credit.Add(t.Amount)
		case models.DirectionDebit:
			entry.debit = entry.debit.Add(t.Amount)
		}
		entry.ids = append(entry.ids, t.ID)
	}

	var findings []models.Finding
	for date, entry := range days {
		if len(entry.ids) == 0 || !entry.credit.Sub(entry.debit).IsZero() {
			continue
		}
		findings = append(findings, models.Finding{
			Kind:           models.TypologyZeroBalanceDay,
			PartyID:        partyID,
			Date:           date,
			Amount:         entry.credit,
			Credit:         entry.credit,
			Debit:          entry.debit,
			Count:          len(entry.ids),
			TransactionIDs: entry.ids,
		})
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].Date < findings[j].Date })
	return findings
}

// CrossedFlows flags counterparties with which the party has both nonzero
// aggregate credit and nonzero aggregate debit
func (d *Detector) CrossedFlows(partyID string, txns []models.Transaction) []models.Finding {
	type flows struct {
		cpName string
		credit decimal.Decimal
		debit  decimal.Decimal
		ids    []string
	}
	byCP := make(map[string]*flows)

	for _, t := range txns {
		cp := counterpartyKey(t)
		if cp == "" {
			continue
		}
		f, ok := byCP[cp]
		if !ok {
			f = &flows{cpName: t.CounterpartyName, credit: decimal.Zero, debit: decimal.Zero}
			byCP[cp] = f
		}
		switch t.Direction {
		case models.DirectionCredit:
			f.credit = f.credit.Add(t.Amount)
		case models.DirectionDebit:
			f.debit = f.debit.Add(t.Amount)
		}
		f.ids = append(f.ids, t.ID)
	}

	var findings []models.Finding
	for cp, f := range byCP {
		if f.credit.IsZero() || f.debit.IsZero() {
			continue
		}
		findings = append(findings, models.Finding{
			Kind:             models.TypologyCrossedFlows,
			PartyID:          partyID,
			CounterpartyID:   cp,
			CounterpartyName: f.cpName,
			Amount:           f.credit.Add(f.debit),
			Credit:           f.credit,
			Debit:            f.debit,
			Count:            len(f.ids),
			TransactionIDs:   f.ids,
		})
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].CounterpartyID < findings[j].CounterpartyID })
	return findings
}

// SameDayWithdrawals flags dates with more than one cash withdrawal,
// identified by keyword match on debit descriptions
func (d *Detector) SameDayWithdrawals(partyID string, txns []models.Transaction) []models.Finding {
	type day struct {
		total decimal.Decimal
		ids   []string
	}
	days := make(map[string]*day)

	for _, t := range txns {
		if t.Direction != models.DirectionDebit || t.Date.IsZero() || !d.IsCashDescription(t.Description) {
			continue
		}
		date := t.Date.Format("2006-01-02")
		entry, ok := days[date]
		if !ok {
			entry = &day{total: decimal.Zero}
			days[date] = entry
		}
		entry.total = entry.total.Add(t.Amount)
		entry.ids = append(entry.ids, t.ID)
	}

	var findings []models.Finding
	for date, entry := range days {
		if len(entry.ids) < 2 {
			continue
		}
		findings = append(findings, models.Finding{
			Kind:           models.TypologyCashWithdrawals,
			PartyID:        partyID,
			Date:           date,
			Direction:      models.DirectionDebit,
			Amount:         entry.total,
			Count:          len(entry.ids),
			TransactionIDs: entry.ids,
		})
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].Date < findings[j].Date })
	return findings
}

// HighValueCounterparties flags counterparty-direction pairs whose summed
// amount exceeds the configured cutoff. Findings are sorted ascending by
// value; the historical presentation order is a contract.
func (d *Detector) HighValueCounterparties(partyID string, txns []models.Transaction) []models.Finding {
	type pair struct {
		cpName string
		dir    models.Direction
		sum    decimal.Decimal
		ids    []string
	}
	pairs := make(map[string]*pair)

	for _, t := range txns {
		cp := counterpartyKey(t)
		if cp == "" {
			continue
		}
		key := cp + "|" + string(t.Direction)
		p, ok := pairs[key]
		if !ok {
			p = &pair{cpName: t.CounterpartyName, dir: t.Direction, sum: decimal.Zero}
			pairs[key] = p
		}
		p.sum = p.sum.Add(t.Amount)
		p.ids = append(p.ids, t.ID)
	}

	var findings []models.Finding
	for key, p := range pairs {
		if !p.sum.GreaterThan(d.config.HighValueCutoff) {
			continue
		}
		cp := strings.SplitN(key, "|", 2)[0]
		findings = append(findings, models.Finding{
			Kind:             models.TypologyHighValue,
			PartyID:          partyID,
			CounterpartyID:   cp,
			CounterpartyName: p.cpName,
			Direction:        p.dir,
			Amount:           p.sum,
			Count:            len(p.ids),
			TransactionIDs:   p.ids,
		})
	}

	sort.Slice(findings, func(i, j int) bool {
		if !findings[i].Amount.Equal(findings[j].Amount) {
			return findings[i].Amount.LessThan(findings[j].Amount)
		}
		return findings[i].CounterpartyID < findings[j].CounterpartyID
	})
	return findings
}

func counterpartyKey(t models.Transaction) string {
	if t.CounterpartyID == "" && strings.TrimSpace(t.CounterpartyName) == "" {
		return ""
	}
	return party.Key(t.CounterpartyID, t.CounterpartyName)
}
