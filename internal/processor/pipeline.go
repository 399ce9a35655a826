// Package processor wires the extraction, consolidation and validation
// stages into one audit pipeline. A batch never aborts on a bad document —
// per-document failures are collected and reported alongside the successes.
package processor

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/rezonia/nfe-auditor/internal/consolidate"
	"github.com/rezonia/nfe-auditor/internal/model"
	xmlparser "github.com/rezonia/nfe-auditor/internal/parser/xml"
	"github.com/rezonia/nfe-auditor/internal/reference"
	"github.com/rezonia/nfe-auditor/internal/validate"
)

// Format is the detected payload format.
type Format string

// Supported payload formats.
const (
	FormatXML     Format = "xml"
	FormatZIP     Format = "zip"
	FormatUnknown Format = "unknown"
)

// DetectFormat sniffs a payload's format from its leading bytes.
func DetectFormat(data []byte) Format {
	if len(data) >= 4 && data[0] == 'P' && data[1] == 'K' && data[2] == 0x03 && data[3] == 0x04 {
		return FormatZIP
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return FormatXML
	}
	return FormatUnknown
}

// Payload is one XML document to process, named for traceability.
type Payload struct {
	Name string
	Data []byte
}

// ExpandPayloads turns an uploaded file into XML payloads: a ZIP archive is
// unwrapped into its .xml entries, anything else passes through as a single
// payload.
func ExpandPayloads(name string, data []byte) ([]Payload, error) {
	if DetectFormat(data) != FormatZIP {
		return []Payload{{Name: name, Data: data}}, nil
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read ZIP %s: %w", name, err)
	}

	var payloads []Payload
	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open ZIP entry %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read ZIP entry %s: %w", f.Name, err)
		}
		payloads = append(payloads, Payload{Name: f.Name, Data: content})
	}

	return payloads, nil
}

// Document is one successfully extracted NF-e.
type Document struct {
	Header *model.Header `json:"header"`
	Items  []model.Item  `json:"items"`
}

// DocumentError reports a document that failed extraction.
type DocumentError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// Result is the outcome of one audit run.
type Result struct {
	RunID        string            `json:"run_id"`
	Documents    []Document        `json:"documents"`
	Items        []model.Item      `json:"items"`
	GroupKeys    []consolidate.Key `json:"group_keys,omitempty"`
	Consolidated []consolidate.Row `json:"consolidated,omitempty"`
	Findings     []model.Finding   `json:"findings,omitempty"`
	Errors       []DocumentError   `json:"errors,omitempty"`
}

// Pipeline processes batches of NF-e payloads.
type Pipeline struct {
	extractor *xmlparser.Extractor
	engine    *validate.Engine
	gateway   reference.Gateway
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithGateway installs the reference table gateway used for validation. A
// pipeline without a gateway validates against empty tables, so only format
// and presence rules fire.
func WithGateway(g reference.Gateway) Option {
	return func(p *Pipeline) {
		p.gateway = g
	}
}

// WithValidateOptions configures the validation engine.
func WithValidateOptions(opts ...validate.Option) Option {
	return func(p *Pipeline) {
		p.engine = validate.NewEngine(opts...)
	}
}

// NewPipeline creates a new pipeline
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: xmlparser.NewExtractor(),
		engine:    validate.NewEngine(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract parses one payload into a document.
func (p *Pipeline) Extract(payload Payload) (*Document, error) {
	header, items, err := p.extractor.Extract(payload.Data)
	if err != nil {
		if mde, ok := err.(*model.MalformedDocumentError); ok {
			mde.File = payload.Name
		}
		return nil, err
	}
	header.Arquivo = payload.Name
	return &Document{Header: header, Items: items}, nil
}

// Audit runs the full pipeline over a batch: extraction per payload,
// consolidation by the given keys, and validation against the gateway's
// current tables when runValidation is set. The reference tables are
// snapshotted once for the whole run.
func (p *Pipeline) Audit(payloads []Payload, keys []consolidate.Key, runValidation bool) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}

	headersByChave := make(map[string]*model.Header)
	for _, payload := range payloads {
		doc, err := p.Extract(payload)
		if err != nil {
			result.Errors = append(result.Errors, DocumentError{File: payload.Name, Message: err.Error()})
			continue
		}
		result.Documents = append(result.Documents, *doc)
		result.Items = append(result.Items, doc.Items...)
		headersByChave[doc.Header.Chave] = doc.Header
	}

	if len(keys) > 0 && len(result.Items) > 0 {
		rows, err := consolidate.Consolidate(result.Items, keys)
		if err != nil {
			return nil, err
		}
		result.GroupKeys = keys
		result.Consolidated = rows
	}

	if runValidation {
		var tables reference.Tables
		if p.gateway != nil {
			tables = p.gateway.Tables()
		}
		result.Findings = p.engine.Validate(result.Items, tables)
		annotateFindings(result.Findings, headersByChave)
	}

	return result, nil
}

// annotateFindings copies the document-level traceability fields onto each
// finding, resolving the item's back-reference by document key.
func annotateFindings(findings []model.Finding, headers map[string]*model.Header) {
	for i := range findings {
		h, ok := headers[findings[i].Chave]
		if !ok {
			continue
		}
		findings[i].Numero = h.Numero
		findings[i].Serie = h.Serie
		findings[i].Emissao = h.Emissao
	}
}
