package typology

import (
	"log"

	"github.com/casetrace/casetrace/pkg/models"
)

// BatteryOrder is the fixed evaluation and presentation order of the
// detector battery
var BatteryOrder = []models.TypologyKind{
	models.TypologyStructuring,
	models.TypologyZeroBalanceDay,
	models.TypologyCrossedFlows,
	models.TypologyCashWithdrawals,
	models.TypologyHighValue,
}

// Results holds one battery run for a party, keyed by typology name.
// Detectors that failed are listed in Failed; a failing detector never
// aborts the run.
type Results struct {
	PartyID  string                                   `json:"party_id"`
	Findings map[models.TypologyKind][]models.Finding `json:"findings"`
	Failed   []models.TypologyKind                    `json:"failed,omitempty"`
}

// All returns the battery's findings flattened in battery order
func (r *Results) All() []models.Finding {
	var all []models.Finding
	for _, kind := range BatteryOrder {
		all = append(all, r.Findings[kind]...)
	}
	return all
}

// RunAll evaluates the full battery over one party's transactions,
// isolating each detector: a panic is recovered, logged and recorded
// without touching the other detectors' results.
func (d *Detector) RunAll(partyID string, txns []models.Transaction) *Results {
	results := &Results{
		PartyID:  partyID,
		Findings: make(map[models.TypologyKind][]models.Finding),
	}

	detectors := map[models.TypologyKind]func(string, []models.Transaction) []models.Finding{
		models.TypologyStructuring:     d.Structuring,
		models.TypologyZeroBalanceDay:  d.ZeroBalanceDays,
		models.TypologyCrossedFlows:    d.CrossedFlows,
		models.TypologyCashWithdrawals: d.SameDayWithdrawals,
		models.TypologyHighValue:       d.HighValueCounterparties,
	}

	for _, kind := range BatteryOrder {
		results.Findings[kind] = d.runOne(kind, detectors[kind], partyID, txns, results)
	}

	return results
}

func (d *Detector) runOne(kind models.TypologyKind, fn func(string, []models.Transaction) []models.Finding, partyID string, txns []models.Transaction, results *Results) (findings []models.Finding) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("typology %s failed for party %s: %v", kind, partyID, r)
			results.Failed = append(results.Failed, kind)
			findings = nil
		}
	}()
	return fn(partyID, txns)
}
