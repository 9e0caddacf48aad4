package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartyRole represents the role a party plays in a source record
type PartyRole string

const (
	PartyRoleHolder         PartyRole = "holder"
	PartyRoleSender         PartyRole = "sender"
	PartyRoleBeneficiary    PartyRole = "beneficiary"
	PartyRoleRepresentative PartyRole = "representative"
	PartyRoleOther          PartyRole = "other"
)

// Direction represents the direction of a money movement
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// ParseDirection maps the single-character wire code to a Direction
func ParseDirection(code string) (Direction, bool) {
	switch code {
	case "C", "c":
		return DirectionCredit, true
	case "D", "d":
		return DirectionDebit, true
	}
	return "", false
}

// Party represents a natural or legal person resolved to a canonical tax id.
// Parties whose tax id failed validation are kept as unidentified buckets
// keyed by display name and are never merged with identified parties.
type Party struct {
	CanonicalID  string    `json:"canonical_id"`
	DisplayName  string    `json:"display_name"`
	Role         PartyRole `json:"role"`
	Unidentified bool      `json:"unidentified,omitempty"`
	Batches      []string  `json:"batches,omitempty"`
}

// Transaction represents one money-movement record. Raw values from the
// source file are carried alongside the normalized ones for audit display.
type Transaction struct {
	ID               string          `json:"id"`
	CaseID           string          `json:"case_id"`
	BatchID          string          `json:"batch_id"`
	OwnerID          string          `json:"owner_id"`
	OwnerName        string          `json:"owner_name"`
	CounterpartyID   string          `json:"counterparty_id,omitempty"`
	CounterpartyName string          `json:"counterparty_name,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Direction        Direction       `json:"direction"`
	Date             time.Time       `json:"date"`
	Description      string          `json:"description,omitempty"`
	AdditionalInfo   string          `json:"additional_info,omitempty"`
	SourceFile       string          `json:"source_file,omitempty"`
	RawAmount        string          `json:"raw_amount,omitempty"`
	RawDate          string          `json:"raw_date,omitempty"`
}

// BatchKind represents the source-file convention of an ingested batch
type BatchKind string

const (
	BatchKindStatement      BatchKind = "statement"
	BatchKindCommunications BatchKind = "report_communications"
	BatchKindParties        BatchKind = "report_parties"
	BatchKindOccurrences    BatchKind = "report_occurrences"
)

// Batch records one ingestion run of a source file
type Batch struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"case_id"`
	Kind        BatchKind `json:"kind"`
	FileName    string    `json:"file_name"`
	ContentHash string    `json:"content_hash"`
	Accepted    int       `json:"accepted"`
	Rejected    int       `json:"rejected"`
	CreatedAt   time.Time `json:"created_at"`
}

// CaseFile represents an occurrence entry from a regulator report: the
// typology label the reporting institution attached to a communication.
type CaseFile struct {
	ID       string `json:"id"`
	CaseID   string `json:"case_id"`
	BatchID  string `json:"batch_id"`
	Sequence string `json:"sequence"`
	Label    string `json:"label"`
}

// TypologyKind identifies a detection rule in the battery
type TypologyKind string

const (
	TypologyStructuring     TypologyKind = "structuring"
	TypologyZeroBalanceDay  TypologyKind = "zero_balance_day"
	TypologyCrossedFlows    TypologyKind = "crossed_flows"
	TypologyCashWithdrawals TypologyKind = "same_day_withdrawals"
	TypologyHighValue       TypologyKind = "high_value"
)

// Finding represents one typology detection for a party. Only the fields
// relevant to the finding's kind are populated: structuring carries the
// repeated unit amount, crossed flows carry the split credit/debit sums.
type Finding struct {
	Kind             TypologyKind    `json:"kind"`
	PartyID          string          `json:"party_id"`
	Date             string          `json:"date,omitempty"`
	CounterpartyID   string          `json:"counterparty_id,omitempty"`
	CounterpartyName string          `json:"counterparty_name,omitempty"`
	Direction        Direction       `json:"direction,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Credit           decimal.Decimal `json:"credit"`
	Debit            decimal.Decimal `json:"debit"`
	Count            int             `json:"count"`
	TransactionIDs   []string        `json:"transaction_ids,omitempty"`
}

// CounterpartyTotal is one entry of a top-N counterparty ranking
type CounterpartyTotal struct {
	CounterpartyID   string          `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	Sum              decimal.Decimal `json:"sum"`
	Count            int             `json:"count"`
}

// CounterpartyBucket holds per-counterparty sums split by direction
type CounterpartyBucket struct {
	CounterpartyID   string          `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	Credit           decimal.Decimal `json:"credit"`
	CreditCount      int             `json:"credit_count"`
	Debit            decimal.Decimal `json:"debit"`
	DebitCount       int             `json:"debit_count"`
}

// MonthlyPoint is one month of a party's activity series. Months without
// activity are omitted from the series, not zero-filled.
type MonthlyPoint struct {
	Month  string          `json:"month"` // "2006-01"
	Credit decimal.Decimal `json:"credit"`
	Debit  decimal.Decimal `json:"debit"`
}

// DailyBalance is a per-date rollup of one party's movements
type DailyBalance struct {
	Date   string          `json:"date"` // "2006-01-02"
	Credit decimal.Decimal `json:"credit"`
	Debit  decimal.Decimal `json:"debit"`
	Net    decimal.Decimal `json:"net"`
	Count  int             `json:"count"`
}

// EdgeKind distinguishes money-flow edges from same-identity edges
type EdgeKind string

const (
	EdgeKindFlow         EdgeKind = "flow"
	EdgeKindSameIdentity EdgeKind = "same_identity"
)

// GraphNode is one party in the link-analysis graph
type GraphNode struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	Role  PartyRole `json:"role"`
}

// GraphEdge is one aggregated link between two parties. Flow edges carry
// the summed value and count of all raw transactions for the ordered
// (source, target, direction) triple.
type GraphEdge struct {
	Source    string          `json:"source"`
	Target    string          `json:"target"`
	Kind      EdgeKind        `json:"kind"`
	Direction Direction       `json:"direction,omitempty"`
	Value     decimal.Decimal `json:"value"`
	Count     int             `json:"count"`
}
