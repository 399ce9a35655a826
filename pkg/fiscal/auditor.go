package fiscal

import (
	"github.com/rezonia/nfe-auditor/internal/processor"
	"github.com/rezonia/nfe-auditor/internal/reference"
	"github.com/rezonia/nfe-auditor/internal/validate"
)

// Auditor wraps the processing pipeline behind a stable public surface.
type Auditor struct {
	pipeline *processor.Pipeline
}

// Options configures an Auditor.
type Options struct {
	// Gateway supplies the reference tables for validation. Nil means
	// validation runs with empty tables (format and presence rules only).
	Gateway Gateway
	// CSTPrecedence flips the regime-existence rule to check CST before
	// CSOSN when an item carries both codes.
	CSTPrecedence bool
}

// NewAuditor creates an auditor with default options.
func NewAuditor() *Auditor {
	return NewAuditorWithOptions(Options{})
}

// NewAuditorWithOptions creates an auditor with the given options.
func NewAuditorWithOptions(opts Options) *Auditor {
	var validateOpts []validate.Option
	if opts.CSTPrecedence {
		validateOpts = append(validateOpts, validate.WithCSTPrecedence())
	}
	pipelineOpts := []processor.Option{
		processor.WithValidateOptions(validateOpts...),
	}
	if opts.Gateway != nil {
		pipelineOpts = append(pipelineOpts, processor.WithGateway(opts.Gateway))
	}
	return &Auditor{pipeline: processor.NewPipeline(pipelineOpts...)}
}

// Extract parses one NF-e payload into a document. Fails with
// *MalformedDocumentError on unparseable XML or a missing infNFe element.
func (a *Auditor) Extract(name string, data []byte) (*Document, error) {
	return a.pipeline.Extract(processor.Payload{Name: name, Data: data})
}

// Audit runs the full pipeline over a batch of payloads. Per-document
// failures are reported in the result, never as an error.
func (a *Auditor) Audit(payloads []Payload, keys []GroupKey, runValidation bool) (*Result, error) {
	return a.pipeline.Audit(payloads, keys, runValidation)
}

// ExpandPayloads unwraps a ZIP archive into XML payloads; non-ZIP data
// passes through as a single payload.
func ExpandPayloads(name string, data []byte) ([]Payload, error) {
	return processor.ExpandPayloads(name, data)
}

// StaticTables adapts an in-memory snapshot into a Gateway, for callers that
// manage reference data themselves.
func StaticTables(tables Tables) Gateway {
	return staticGateway{tables: tables}
}

type staticGateway struct {
	tables reference.Tables
}

func (g staticGateway) Tables() reference.Tables {
	return g.tables
}
