// Package reference defines the reference table snapshot the validation
// engine reads, and the gateway contract its providers implement. Tables are
// mutable on the provider side; a snapshot taken at validation time is never
// updated mid-run.
package reference

// Table keys used across the store, the CLI and the HTTP API.
const (
	TableNCM  = "ncm"
	TableCFOP = "cfop"
	TableCST  = "cst"
)

// Current file names of each table, reported in findings as the implicated
// base.
const (
	NCMFile  = "ncm_regras.xlsx"
	CFOPFile = "cfop_regras.xlsx"
	CSTFile  = "cst_csosn_regras.xlsx"
)

// Regime discriminator values of the combined CST/CSOSN table, matched
// case-insensitively after trimming.
const (
	TipoCST   = "CST"
	TipoCSOSN = "CSOSN"
)

// NCMEntry is one row of the NCM table.
type NCMEntry struct {
	Code        string `json:"ncm"`
	Description string `json:"descricao"`
}

// CFOPEntry is one row of the CFOP table.
type CFOPEntry struct {
	Code        string `json:"cfop"`
	Description string `json:"descricao"`
}

// CSTEntry is one row of the combined CST/CSOSN table. Tipo discriminates
// the regime the code belongs to.
type CSTEntry struct {
	Code        string `json:"codigo"`
	Tipo        string `json:"tipo"`
	Description string `json:"descricao"`
}

// Tables is an immutable snapshot of the three reference tables. Any of the
// slices may be empty; an empty table degrades the corresponding existence
// checks instead of failing validation.
type Tables struct {
	NCM  []NCMEntry
	CFOP []CFOPEntry
	CST  []CSTEntry
}

// Gateway supplies the currently-active reference tables. Implementations
// surface their own load failures as empty tables, never as errors to the
// validator.
type Gateway interface {
	Tables() Tables
}

// Status reports the health of one stored table.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Rows    int    `json:"rows"`
	Path    string `json:"path,omitempty"`
}
