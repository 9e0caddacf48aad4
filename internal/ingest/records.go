package ingest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/casetrace/casetrace/pkg/models"
)

// TransactionRecord is one normalized money-movement row. Raw cell values
// are kept alongside the normalized fields for audit display.
type TransactionRecord struct {
	Line              int
	Sequence          string
	OwnerTaxID        string
	OwnerName         string
	CounterpartyTaxID string
	CounterpartyName  string
	Amount            decimal.Decimal
	RawAmount         string
	Direction         models.Direction
	Date              time.Time
	RawDate           string
	Description       string
	AdditionalInfo    string
	Raw               map[string]string
}

// PartyRecord is one normalized involved-party row from a regulator report
type PartyRecord struct {
	Line        int
	Sequence    string
	TaxID       string
	DisplayName string
	Role        models.PartyRole
	Raw         map[string]string
}

// CaseFileRecord is one normalized occurrence row: the typology label the
// reporting institution attached to a communication sequence.
type CaseFileRecord struct {
	Line     int
	Sequence string
	Label    string
	Raw      map[string]string
}
