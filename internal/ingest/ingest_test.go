package ingest

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/casetrace/casetrace/pkg/models"
)

func statementTable(rows [][]string) Table {
	return Table{
		Headers: []string{"Indexador", "cpf_cnpj_titular", "nome_titular", "valor_transacao", "natureza_lancamento", "data_lancamento", "cpf_cnpj_od", "nome_pessoa_od", "descricao_lancamento"},
		Rows:    rows,
	}
}

func TestIngestor_Transactions_Statement(t *testing.T) {
	ing := NewIngestor()
	tbl := statementTable([][]string{
		{"1", "111.444.777-35", "FULANO DE TAL", "R$ 1.234,56", "C", "15/03/2023", "", "MERCADO CENTRAL", "TED RECEBIDA"},
		{"2", "111.444.777-35", "FULANO DE TAL", "200,00", "D", "16/03/2023", "", "", "SAQUE 24H"},
	})

	records, summary, err := ing.Transactions(tbl, StatementMapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Accepted != 2 || summary.Rejected != 0 {
		t.Fatalf("expected 2 accepted / 0 rejected, got %d/%d", summary.Accepted, summary.Rejected)
	}

	first := records[0]
	if !first.Amount.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("expected amount 1234.56, got %s", first.Amount)
	}
	if first.Direction != models.DirectionCredit {
		t.Errorf("expected credit, got %s", first.Direction)
	}
	if first.OwnerTaxID != "11144477735" {
		t.Errorf("expected canonical owner id, got %q", first.OwnerTaxID)
	}
	if first.Date.Format("2006-01-02") != "2023-03-15" {
		t.Errorf("unexpected date %s", first.Date)
	}
	if first.RawAmount != "R$ 1.234,56" {
		t.Errorf("raw amount not preserved: %q", first.RawAmount)
	}

	if records[1].Direction != models.DirectionDebit {
		t.Errorf("expected debit, got %s", records[1].Direction)
	}
}

func TestIngestor_Transactions_StopsAtSentinel(t *testing.T) {
	ing := NewIngestor()
	rows := [][]string{
		{"1", "", "A", "10,00", "C", "01/01/2023", "", "", ""},
		{"2", "", "A", "10,00", "C", "02/01/2023", "", "", ""},
		{"3", "", "A", "10,00", "C", "03/01/2023", "", "", ""},
		{"4", "", "A", "10,00", "C", "04/01/2023", "", "", ""},
		{"#fim", "", "", "", "", "", "", "", ""},
		{"6", "", "A", "10,00", "C", "06/01/2023", "", "", ""},
		{"7", "", "A", "bogus", "C", "07/01/2023", "", "", ""},
	}

	records, summary, err := ing.Transactions(statementTable(rows), StatementMapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("expected 4 records before the sentinel, got %d", len(records))
	}
	if summary.StoppedAt != 5 {
		t.Errorf("expected stop at row 5, got %d", summary.StoppedAt)
	}
	if summary.Rejected != 0 {
		t.Errorf("rows after the sentinel must never be processed, got %d rejections", summary.Rejected)
	}
}

func TestIngestor_Transactions_BlankSequenceStops(t *testing.T) {
	ing := NewIngestor()
	rows := [][]string{
		{"1", "", "A", "10,00", "C", "01/01/2023", "", "", ""},
		{"", "", "A", "10,00", "C", "02/01/2023", "", "", ""},
		{"3", "", "A", "10,00", "C", "03/01/2023", "", "", ""},
	}

	records, summary, err := ing.Transactions(statementTable(rows), StatementMapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || summary.StoppedAt != 2 {
		t.Errorf("expected 1 record and stop at row 2, got %d records, stop %d", len(records), summary.StoppedAt)
	}
}

func TestIngestor_Transactions_RowRejection(t *testing.T) {
	ing := NewIngestor()
	rows := [][]string{
		{"1", "", "A", "abc", "C", "01/01/2023", "", "", ""},
		{"2", "", "A", "10,00", "X", "01/01/2023", "", "", ""},
		{"3", "", "A", "10,00", "C", "31/31/2023", "", "", ""},
		{"4", "", "A", "10,00", "C", "", "", "", ""},
		{"5", "", "A", "10,00", "C", "02/01/2023", "", "", ""},
	}

	records, summary, err := ing.Transactions(statementTable(rows), StatementMapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Accepted != 1 || summary.Rejected != 4 {
		t.Errorf("expected 1 accepted / 4 rejected, got %d/%d", summary.Accepted, summary.Rejected)
	}
	if len(records) != 1 || records[0].Sequence != "5" {
		t.Fatalf("expected only row 5 to survive")
	}
	if len(summary.Errors) != 4 {
		t.Fatalf("expected 4 row errors, got %d", len(summary.Errors))
	}
	if summary.Errors[0].Field != FieldAmount {
		t.Errorf("expected first rejection on amount, got %s", summary.Errors[0].Field)
	}
	if summary.Errors[1].Field != FieldDirection {
		t.Errorf("expected second rejection on direction, got %s", summary.Errors[1].Field)
	}
}

func TestIngestor_Transactions_MissingStructuralColumn(t *testing.T) {
	ing := NewIngestor()
	tbl := Table{
		Headers: []string{"valor_transacao", "natureza_lancamento", "data_lancamento"},
		Rows:    [][]string{{"10,00", "C", "01/01/2023"}},
	}

	_, _, err := ing.Transactions(tbl, StatementMapping)
	se, ok := err.(*SchemaError)
	if !ok {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if se.Column != FieldSequence {
		t.Errorf("expected missing column %q, got %q", FieldSequence, se.Column)
	}
}

func TestIngestor_Transactions_HeaderSpellingsCaseInsensitive(t *testing.T) {
	ing := NewIngestor()
	tbl := Table{
		Headers: []string{"INDEXADOR", "Valor", "Data", "NaturezaLancamento"},
		Rows:    [][]string{{"1", "50,00", "01/02/2023", "D"}},
	}

	records, summary, err := ing.Transactions(tbl, StatementMapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Accepted != 1 {
		t.Fatalf("expected 1 accepted, got %d", summary.Accepted)
	}
	if records[0].Direction != models.DirectionDebit {
		t.Errorf("expected debit, got %s", records[0].Direction)
	}
}

func TestIngestor_Transactions_CommunicationsDefaultCredit(t *testing.T) {
	ing := NewIngestor()
	tbl := Table{
		Headers: []string{"Indexador", "CampoA", "InformacoesAdicionais"},
		Rows: [][]string{
			{"1", "15.000,00", "movimentacao atipica envolvendo JOAO, CPF 111.444.777-35"},
		},
	}

	records, summary, err := ing.Transactions(tbl, CommunicationMapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Accepted != 1 {
		t.Fatalf("expected 1 accepted, got %d", summary.Accepted)
	}
	if records[0].Direction != models.DirectionCredit {
		t.Errorf("communications default to credit, got %s", records[0].Direction)
	}
	if records[0].AdditionalInfo == "" {
		t.Error("expected additional info to be captured")
	}
}

func TestIngestor_Parties(t *testing.T) {
	ing := NewIngestor()
	tbl := Table{
		Headers: []string{"Indexador", "cpfCnpjEnvolvido", "nomeEnvolvido", "tipoEnvolvido"},
		Rows: [][]string{
			{"1", "111.444.777-35", "FULANO DE TAL", "Titular"},
			{"1", "999", "CICLANO", "Beneficiário"},
			{"2", "", "", "Titular"},
			{"#", "", "", ""},
		},
	}

	records, summary, err := ing.Parties(tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Accepted != 2 || summary.Rejected != 1 {
		t.Fatalf("expected 2 accepted / 1 rejected, got %d/%d", summary.Accepted, summary.Rejected)
	}
	if summary.StoppedAt != 4 {
		t.Errorf("expected stop at row 4, got %d", summary.StoppedAt)
	}

	if records[0].TaxID != "11144477735" || records[0].Role != models.PartyRoleHolder {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	// Invalid tax id is kept, not rejected: the resolver buckets it by name.
	if records[1].TaxID != "" || records[1].DisplayName != "CICLANO" {
		t.Errorf("unexpected second record: %+v", records[1])
	}
	if records[1].Role != models.PartyRoleBeneficiary {
		t.Errorf("expected beneficiary role, got %s", records[1].Role)
	}
}

func TestIngestor_CaseFiles(t *testing.T) {
	ing := NewIngestor()
	tbl := Table{
		Headers: []string{"Indexador", "Ocorrencia"},
		Rows: [][]string{
			{"1", "Fracionamento de depositos"},
			{"2", "  "},
			{"3", "Movimentacao incompativel com renda"},
		},
	}

	records, summary, err := ing.CaseFiles(tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Accepted != 2 || summary.Rejected != 1 {
		t.Fatalf("expected 2 accepted / 1 rejected, got %d/%d", summary.Accepted, summary.Rejected)
	}
	if records[1].Label != "Movimentacao incompativel com renda" {
		t.Errorf("unexpected label %q", records[1].Label)
	}
}

func TestParseRole_Vocabulary(t *testing.T) {
	cases := map[string]models.PartyRole{
		"Titular":       models.PartyRoleHolder,
		"REMETENTE":     models.PartyRoleSender,
		"beneficiario":  models.PartyRoleBeneficiary,
		"Representante": models.PartyRoleRepresentative,
		"qualquer":      models.PartyRoleOther,
		"":              models.PartyRoleOther,
	}
	for label, want := range cases {
		if got := ParseRole(label); got != want {
			t.Errorf("ParseRole(%q) = %s, expected %s", label, got, want)
		}
	}
}
