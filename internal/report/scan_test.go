package report

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/casetrace/casetrace/internal/aggregate"
	"github.com/casetrace/casetrace/internal/typology"
	"github.com/casetrace/casetrace/pkg/models"
)

func TestAssembler_CaseFindings(t *testing.T) {
	a := NewAssembler(aggregate.New(), typology.NewDetector(nil), nil, 10)

	day := time.Date(2022, 3, 7, 0, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		// Party p1: two same-day equal credits from one counterparty.
		{ID: "t1", OwnerID: "p1", OwnerName: "A", CounterpartyID: "c1", CounterpartyName: "X", Amount: decimal.NewFromInt(150), Direction: models.DirectionCredit, Date: day},
		{ID: "t2", OwnerID: "p1", OwnerName: "A", CounterpartyID: "c1", CounterpartyName: "X", Amount: decimal.NewFromInt(150), Direction: models.DirectionCredit, Date: day},
		// Party p2: nothing suspicious.
		{ID: "t3", OwnerID: "p2", OwnerName: "B", CounterpartyID: "c2", CounterpartyName: "Y", Amount: decimal.NewFromInt(40), Direction: models.DirectionDebit, Date: day},
	}
	parties := map[string]*models.Party{
		"p1": {CanonicalID: "p1", DisplayName: "A"},
		"p2": {CanonicalID: "p2", DisplayName: "B"},
		// Sighted only as a counterparty; owns no transactions.
		"c1": {CanonicalID: "c1", DisplayName: "X"},
	}

	results := a.CaseFindings(parties, txns)

	if len(results) != 2 {
		t.Fatalf("expected results for 2 transacting parties, got %d", len(results))
	}
	if _, ok := results["c1"]; ok {
		t.Error("party with no owned transactions should not be scanned")
	}
	r1, ok := results["p1"]
	if !ok {
		t.Fatal("missing results for p1")
	}
	if len(r1.Findings[models.TypologyStructuring]) != 1 {
		t.Errorf("expected one structuring finding for p1, got %d", len(r1.Findings[models.TypologyStructuring]))
	}
	if r2 := results["p2"]; r2 == nil || len(r2.All()) != 0 {
		t.Errorf("expected clean battery for p2, got %+v", r2)
	}
}

func TestAssembler_CaseFindings_ManyParties(t *testing.T) {
	a := NewAssembler(aggregate.New(), typology.NewDetector(nil), nil, 10)

	day := time.Date(2022, 5, 2, 0, 0, 0, 0, time.UTC)
	parties := make(map[string]*models.Party)
	var txns []models.Transaction
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("party-%02d", i)
		parties[id] = &models.Party{CanonicalID: id, DisplayName: id}
		txns = append(txns, models.Transaction{
			ID: id + "-t", OwnerID: id, OwnerName: id,
			CounterpartyID: "c1", CounterpartyName: "X",
			Amount: decimal.NewFromInt(10), Direction: models.DirectionCredit, Date: day,
		})
	}

	results := a.CaseFindings(parties, txns)
	if len(results) != 25 {
		t.Fatalf("expected 25 scanned parties, got %d", len(results))
	}
	for id, r := range results {
		if r.PartyID != id {
			t.Errorf("result keyed %q carries party id %q", id, r.PartyID)
		}
	}
}
