// Package fiscal provides the public API for auditing Brazilian NF-e
// documents: extraction of header and line items, consolidation, and
// validation against reference tables.
//
// Example usage:
//
//	auditor := fiscal.NewAuditor()
//	doc, err := auditor.Extract("nota.xml", xmlBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(doc.Header.Chave)
package fiscal

import (
	"github.com/rezonia/nfe-auditor/internal/consolidate"
	"github.com/rezonia/nfe-auditor/internal/model"
	"github.com/rezonia/nfe-auditor/internal/processor"
	"github.com/rezonia/nfe-auditor/internal/reference"
	"github.com/rezonia/nfe-auditor/internal/validate"
)

// Re-export core types for public API
type (
	Header          = model.Header
	Item            = model.Item
	Finding         = model.Finding
	Severity        = model.Severity
	ConsolidatedRow = consolidate.Row
	GroupKey        = consolidate.Key
	Tables          = reference.Tables
	Gateway         = reference.Gateway
	Document        = processor.Document
	Result          = processor.Result
	Payload         = processor.Payload
)

// Re-export severities
const (
	SeverityError   = model.SeverityError
	SeverityWarning = model.SeverityWarning
)

// Re-export grouping keys and presets
const (
	KeyXProd = consolidate.KeyXProd
	KeyCProd = consolidate.KeyCProd
	KeyNCM   = consolidate.KeyNCM
	KeyCFOP  = consolidate.KeyCFOP
)

var (
	ByProductNCMCFOP = consolidate.ByProductNCMCFOP
	ByCodeNCMCFOP    = consolidate.ByCodeNCMCFOP
	ByNCMCFOP        = consolidate.ByNCMCFOP
	ByProduct        = consolidate.ByProduct
)

// Re-export error types
type (
	MalformedDocumentError = model.MalformedDocumentError
	TableError             = model.TableError
)

// Consolidate groups items by the given key columns.
func Consolidate(items []Item, keys []GroupKey) ([]ConsolidatedRow, error) {
	return consolidate.Consolidate(items, keys)
}

// Validate runs the rule engine over items against a table snapshot.
func Validate(items []Item, tables Tables) []Finding {
	return validate.NewEngine().Validate(items, tables)
}
