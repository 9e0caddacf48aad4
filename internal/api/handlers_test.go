package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/casetrace/casetrace/internal/aggregate"
	"github.com/casetrace/casetrace/internal/config"
	"github.com/casetrace/casetrace/internal/report"
	"github.com/casetrace/casetrace/internal/store"
	"github.com/casetrace/casetrace/internal/typology"
)

func newTestServer(jwtSecret string) *Server {
	cfg := &config.Config{}
	cfg.Server.JWTSecret = jwtSecret

	assembler := report.NewAssembler(aggregate.New(), typology.NewDetector(nil), nil, 10)
	return NewServer(cfg, store.NewMemoryStore(), assembler)
}

func doJSON(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func statementBody() map[string]interface{} {
	return map[string]interface{}{
		"kind":      "statement",
		"file_name": "extrato.csv",
		"headers":   []string{"Indexador", "CPF_CNPJ_Titular", "Nome_Titular", "Valor_Transacao", "Natureza_Lancamento", "Data_Lancamento", "CPF_CNPJ_OD", "Nome_Pessoa_OD", "Descricao_Lancamento"},
		"rows": [][]string{
			{"1", "111.444.777-35", "FULANO DE TAL", "R$ 1.234,56", "C", "03/01/2022", "11.222.333/0001-81", "EMPRESA XPTO", "TED RECEBIDA"},
			{"2", "111.444.777-35", "FULANO DE TAL", "R$ 200,00", "D", "04/01/2022", "", "", "SAQUE 24H"},
		},
	}
}

func TestServer_IngestStatementBatch(t *testing.T) {
	s := newTestServer("")

	rec := doJSON(s, "POST", "/api/v1/cases/case-1/batches", statementBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Batch struct {
			ID       string `json:"id"`
			Accepted int    `json:"accepted"`
			Rejected int    `json:"rejected"`
		} `json:"batch"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Batch.Accepted != 2 || resp.Batch.Rejected != 0 {
		t.Errorf("expected 2 accepted rows, got %+v", resp.Batch)
	}
	if resp.Batch.ID == "" {
		t.Error("batch id not assigned")
	}

	list := doJSON(s, "GET", "/api/v1/cases/case-1/batches", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}
	var batches struct {
		Count int `json:"count"`
	}
	json.Unmarshal(list.Body.Bytes(), &batches)
	if batches.Count != 1 {
		t.Errorf("expected 1 batch listed, got %d", batches.Count)
	}
}

func TestServer_DuplicateBatchConflict(t *testing.T) {
	s := newTestServer("")

	if rec := doJSON(s, "POST", "/api/v1/cases/case-1/batches", statementBody()); rec.Code != http.StatusCreated {
		t.Fatalf("first ingest failed: %d", rec.Code)
	}
	body := statementBody()
	body["file_name"] = "extrato-copia.csv" // same content, other name
	if rec := doJSON(s, "POST", "/api/v1/cases/case-1/batches", body); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate content, got %d", rec.Code)
	}
	// Same content under another case is a fresh batch.
	if rec := doJSON(s, "POST", "/api/v1/cases/case-2/batches", statementBody()); rec.Code != http.StatusCreated {
		t.Errorf("expected 201 under another case, got %d", rec.Code)
	}
}

func TestServer_MissingColumnRejectsBatch(t *testing.T) {
	s := newTestServer("")

	body := map[string]interface{}{
		"kind":    "statement",
		"headers": []string{"CPF_CNPJ_Titular", "Valor_Transacao", "Natureza_Lancamento", "Data_Lancamento"},
		"rows":    [][]string{{"111.444.777-35", "100", "C", "03/01/2022"}},
	}
	rec := doJSON(s, "POST", "/api/v1/cases/case-1/batches", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing sequence column, got %d", rec.Code)
	}
}

func TestServer_UnknownBatchKind(t *testing.T) {
	s := newTestServer("")

	body := map[string]interface{}{
		"kind":    "spreadsheet",
		"headers": []string{"Indexador"},
	}
	if rec := doJSON(s, "POST", "/api/v1/cases/case-1/batches", body); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown kind, got %d", rec.Code)
	}
}

func TestServer_CaseSummaryAndParties(t *testing.T) {
	s := newTestServer("")
	doJSON(s, "POST", "/api/v1/cases/case-1/batches", statementBody())

	rec := doJSON(s, "GET", "/api/v1/cases/case-1/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var summary struct {
		TransactionCount     int    `json:"transaction_count"`
		TotalCreditFormatted string `json:"total_credit_formatted"`
	}
	json.Unmarshal(rec.Body.Bytes(), &summary)
	if summary.TransactionCount != 2 {
		t.Errorf("expected 2 transactions, got %d", summary.TransactionCount)
	}
	if summary.TotalCreditFormatted != "R$ 1.234,56" {
		t.Errorf("unexpected formatted credit total %q", summary.TotalCreditFormatted)
	}

	parties := doJSON(s, "GET", "/api/v1/cases/case-1/parties", nil)
	var plist struct {
		Count int `json:"count"`
	}
	json.Unmarshal(parties.Body.Bytes(), &plist)
	// Holder plus identified counterparty.
	if plist.Count != 2 {
		t.Errorf("expected 2 parties, got %d", plist.Count)
	}
}

func TestServer_UnifyParty(t *testing.T) {
	s := newTestServer("")
	doJSON(s, "POST", "/api/v1/cases/case-1/batches", statementBody())

	rec := doJSON(s, "POST", "/api/v1/cases/case-1/parties/11144477735/unify", map[string]interface{}{
		"accepted_name": "FULANO DE TAL SILVA",
		"variants":      []string{"FULANO DE TAL"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Renamed int64 `json:"renamed"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	// Two transaction owner rows plus their two stored sightings.
	if resp.Renamed != 4 {
		t.Errorf("expected 4 rows renamed, got %d", resp.Renamed)
	}

	// Unknown canonical id is rejected without side effects.
	bad := doJSON(s, "POST", "/api/v1/cases/case-1/parties/00000000000/unify", map[string]interface{}{
		"accepted_name": "X",
		"variants":      []string{"Y"},
	})
	if bad.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unknown id, got %d", bad.Code)
	}
}

func TestServer_PartyReport(t *testing.T) {
	s := newTestServer("")
	doJSON(s, "POST", "/api/v1/cases/case-1/batches", statementBody())

	rec := doJSON(s, "GET", "/api/v1/cases/case-1/parties/11144477735/report", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var summary struct {
		TransactionCount int    `json:"transaction_count"`
		Narrative        string `json:"narrative"`
	}
	json.Unmarshal(rec.Body.Bytes(), &summary)
	if summary.TransactionCount != 2 {
		t.Errorf("expected 2 transactions in report, got %d", summary.TransactionCount)
	}
	if summary.Narrative != report.NarrativeUnavailable {
		t.Errorf("expected placeholder narrative without a summarizer, got %q", summary.Narrative)
	}

	if missing := doJSON(s, "GET", "/api/v1/cases/case-1/parties/99988877700/report", nil); missing.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown party, got %d", missing.Code)
	}
}

func TestServer_CaseFindings(t *testing.T) {
	s := newTestServer("")
	doJSON(s, "POST", "/api/v1/cases/case-1/batches", statementBody())

	rec := doJSON(s, "GET", "/api/v1/cases/case-1/findings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Count    int                        `json:"count"`
		Findings map[string]json.RawMessage `json:"findings"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Count != 1 {
		t.Errorf("expected battery results for the one transacting party, got %d", resp.Count)
	}
	if _, ok := resp.Findings["11144477735"]; !ok {
		t.Error("missing battery results for the account holder")
	}
}

func TestServer_GraphEndpoints(t *testing.T) {
	s := newTestServer("")
	doJSON(s, "POST", "/api/v1/cases/case-1/batches", statementBody())

	rec := doJSON(s, "GET", "/api/v1/cases/case-1/graph", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var g struct {
		Nodes []json.RawMessage `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("graph body is not JSON: %v", err)
	}
	if len(g.Nodes) == 0 || len(g.Edges) == 0 {
		t.Errorf("expected nodes and edges, got %d/%d", len(g.Nodes), len(g.Edges))
	}

	csvRec := doJSON(s, "GET", "/api/v1/cases/case-1/graph/csv", nil)
	if csvRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", csvRec.Code)
	}
	if ct := csvRec.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestServer_AuthRequired(t *testing.T) {
	secret := "test-secret"
	s := newTestServer(secret)

	if rec := doJSON(s, "GET", "/api/v1/cases/case-1/batches", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "investigator-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/cases/case-1/batches", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d: %s", rec.Code, rec.Body.String())
	}

	// Health stays open.
	if rec := doJSON(s, "GET", "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("expected open health endpoint, got %d", rec.Code)
	}
}
