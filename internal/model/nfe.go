// Package model defines the records exchanged between the extractor, the
// consolidation engine, the validation engine and their callers.
package model

// Header holds the document-level fields of one NF-e, as emitted by the
// source. All values are kept as raw strings; issuer software varies too much
// for eager typing to be safe.
type Header struct {
	// Chave is the 44-digit access key, the unique fiscal identifier.
	Chave string `json:"chave"`
	// Numero is the issue sequence number (nNF).
	Numero string `json:"nNF"`
	Serie  string `json:"serie"`
	// Emissao is the issue timestamp (dhEmi, or legacy dEmi).
	Emissao  string `json:"dhEmi"`
	EmitNome string `json:"emit_xNome"`
	// EmitCNPJ carries the issuer CNPJ, or CPF when the issuer is a person.
	EmitCNPJ string `json:"emit_CNPJ"`
	DestNome string `json:"dest_xNome"`
	DestCNPJ string `json:"dest_CNPJ"`
	// ValorNF is the declared total value of the document (vNF).
	ValorNF string `json:"vNF"`
	// Arquivo is the source file name, set by batch callers for traceability.
	Arquivo string `json:"arquivo,omitempty"`
}

// Item is one line item (det element) of an NF-e, in document order.
// CST and CSOSN are mutually exclusive in practice: CST under the normal
// regime, CSOSN under Simples Nacional.
type Item struct {
	// Chave references the owning document's access key.
	Chave string `json:"chave"`
	NItem string `json:"nItem"`
	CProd string `json:"cProd"`
	XProd string `json:"xProd"`
	NCM   string `json:"NCM"`
	CFOP  string `json:"CFOP"`
	UCom  string `json:"uCom"`
	QCom  string `json:"qCom"`
	VUn   string `json:"vUnCom"`
	VProd string `json:"vProd"`
	Orig  string `json:"orig"`
	CST   string `json:"CST_ICMS"`
	CSOSN string `json:"CSOSN"`
	PICMS string `json:"pICMS"`
	VICMS string `json:"vICMS"`
	// Regime is the local name of the ICMS variant element the tax fields
	// came from (ICMS00, ICMS60, ICMSSN102, ...). Empty when no ICMS block
	// was present.
	Regime string `json:"icms_regime,omitempty"`
}

// Severity classifies a Finding.
type Severity string

// Severity values serialize as the Portuguese literals the reference tables
// and existing reports use.
const (
	SeverityError   Severity = "ERRO"
	SeverityWarning Severity = "ALERTA"
)

// Finding is one validation issue. It carries a copy of the originating
// item's traceability fields so a findings list is readable on its own.
type Finding struct {
	Severity Severity `json:"severidade"`
	// Field names the code the issue concerns (NCM, CFOP, CST, CSOSN, ...).
	Field   string `json:"campo"`
	Message string `json:"mensagem"`
	// Rule is the stable rule identifier, e.g. FORMATO_NCM.
	Rule string `json:"regra"`
	// Table names the reference table implicated, when any.
	Table string `json:"base,omitempty"`

	Chave   string `json:"chave"`
	Numero  string `json:"nNF"`
	Serie   string `json:"serie"`
	Emissao string `json:"dEmi"`
	NItem   string `json:"nItem"`
	CProd   string `json:"cProd"`
	XProd   string `json:"xProd"`
}
