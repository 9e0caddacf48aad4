package ingest

import (
	"strings"

	"github.com/casetrace/casetrace/pkg/models"
)

// Canonical field names shared by the batch conventions
const (
	FieldSequence           = "sequence"
	FieldTaxID              = "tax_id"
	FieldDisplayName        = "display_name"
	FieldRole               = "party_role"
	FieldAmount             = "amount"
	FieldDirection          = "direction"
	FieldDate               = "transaction_date"
	FieldCounterpartyTaxID  = "counterparty_tax_id"
	FieldCounterpartyName   = "counterparty_display_name"
	FieldDescription        = "description"
	FieldAdditionalInfo     = "additional_info_text"
	FieldOccurrence         = "occurrence"
)

// Field binds a canonical field name to the header spellings seen for it
// across source-file generations. Structural fields abort the batch when
// no header matches; the rest are simply absent from the rows.
type Field struct {
	Name       string
	Headers    []string
	Structural bool
}

// Mapping describes one source-file convention
type Mapping struct {
	Kind   models.BatchKind
	Fields []Field
}

// StatementMapping matches detailed bank statement files
var StatementMapping = Mapping{
	Kind: models.BatchKindStatement,
	Fields: []Field{
		{Name: FieldSequence, Headers: []string{"indexador", "indice", "seq", "sequencial"}, Structural: true},
		{Name: FieldTaxID, Headers: []string{"cpf_cnpj_titular", "cpfcnpjtitular", "cpf_titular", "documento_titular"}},
		{Name: FieldDisplayName, Headers: []string{"nome_titular", "nometitular", "titular"}},
		{Name: FieldAmount, Headers: []string{"valor_transacao", "valortransacao", "valor"}, Structural: true},
		{Name: FieldDirection, Headers: []string{"natureza_lancamento", "naturezalancamento", "natureza", "tipo_lancamento"}, Structural: true},
		{Name: FieldDate, Headers: []string{"data_lancamento", "datalancamento", "data"}, Structural: true},
		{Name: FieldCounterpartyTaxID, Headers: []string{"cpf_cnpj_od", "cpfcnpjod", "cpf_cnpj_contraparte", "documento_od"}},
		{Name: FieldCounterpartyName, Headers: []string{"nome_pessoa_od", "nomepessoaod", "nome_contraparte"}},
		{Name: FieldDescription, Headers: []string{"descricao_lancamento", "descricaolancamento", "descricao", "historico"}},
	},
}

// CommunicationMapping matches the communications table of a regulator
// report. Communications carry no direction column; reported movements are
// ingested as credits.
var CommunicationMapping = Mapping{
	Kind: models.BatchKindCommunications,
	Fields: []Field{
		{Name: FieldSequence, Headers: []string{"indexador", "indice"}, Structural: true},
		{Name: FieldTaxID, Headers: []string{"cpf_cnpj_comunicado", "cpfcnpjcomunicado", "documento"}},
		{Name: FieldDisplayName, Headers: []string{"nome_comunicado", "nomecomunicado", "comunicado"}},
		{Name: FieldAmount, Headers: []string{"campo_a", "campoa", "valor_movimentado", "valor"}, Structural: true},
		{Name: FieldDate, Headers: []string{"data_operacao", "dataoperacao", "data_fim_fato", "data"}},
		{Name: FieldDescription, Headers: []string{"descricao", "historico"}},
		{Name: FieldAdditionalInfo, Headers: []string{"informacoes_adicionais", "informacoesadicionais", "info_adicional"}},
	},
}

// InvolvedPartyMapping matches the involved-parties table of a regulator
// report
var InvolvedPartyMapping = Mapping{
	Kind: models.BatchKindParties,
	Fields: []Field{
		{Name: FieldSequence, Headers: []string{"indexador", "indice"}, Structural: true},
		{Name: FieldTaxID, Headers: []string{"cpf_cnpj_envolvido", "cpfcnpjenvolvido", "documento_envolvido"}, Structural: true},
		{Name: FieldDisplayName, Headers: []string{"nome_envolvido", "nomeenvolvido", "envolvido"}, Structural: true},
		{Name: FieldRole, Headers: []string{"tipo_envolvido", "tipoenvolvido", "tipo"}},
	},
}

// OccurrenceMapping matches the occurrences table of a regulator report
var OccurrenceMapping = Mapping{
	Kind: models.BatchKindOccurrences,
	Fields: []Field{
		{Name: FieldSequence, Headers: []string{"indexador", "indice"}, Structural: true},
		{Name: FieldOccurrence, Headers: []string{"ocorrencia", "descricao_ocorrencia", "tipologia"}, Structural: true},
	},
}

// MappingFor returns the mapping for a batch kind
func MappingFor(kind models.BatchKind) (Mapping, bool) {
	switch kind {
	case models.BatchKindStatement:
		return StatementMapping, true
	case models.BatchKindCommunications:
		return CommunicationMapping, true
	case models.BatchKindParties:
		return InvolvedPartyMapping, true
	case models.BatchKindOccurrences:
		return OccurrenceMapping, true
	}
	return Mapping{}, false
}

// ParseRole maps the source role vocabulary to the canonical one. Unknown
// labels fall back to "other" rather than rejecting the row.
func ParseRole(label string) models.PartyRole {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "titular", "holder":
		return models.PartyRoleHolder
	case "remetente", "sender":
		return models.PartyRoleSender
	case "beneficiario", "beneficiário", "beneficiary":
		return models.PartyRoleBeneficiary
	case "representante", "representative", "procurador":
		return models.PartyRoleRepresentative
	}
	return models.PartyRoleOther
}
