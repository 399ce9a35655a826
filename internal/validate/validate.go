// Package validate cross-checks extracted item codes against the reference
// tables and flags format and consistency problems.
//
// Every item is evaluated independently and all rules run for every item, so
// one item can emit several findings. Findings come out in item order, rules
// in their fixed sequence within an item; validation itself never fails.
package validate

import (
	"fmt"
	"strings"

	"github.com/rezonia/nfe-auditor/internal/model"
	"github.com/rezonia/nfe-auditor/internal/normalize"
	"github.com/rezonia/nfe-auditor/internal/reference"
)

// Rule identifiers, stable across report formats.
const (
	RuleNCMFormat    = "FORMATO_NCM"
	RuleNCMMissing   = "NCM_AUSENTE_OU_ZERADO"
	RuleCFOPFormat   = "FORMATO_CFOP"
	RuleCFOPMissing  = "CFOP_AUSENTE"
	RuleCSOSNUnknown = "CSOSN_NAO_ENCONTRADO"
	RuleCSTUnknown   = "CST_NAO_ENCONTRADO"
	RuleCSTMissing   = "CST_CSOSN_AUSENTE"
	RuleNCMUnknown   = "NCM_NAO_ENCONTRADO"
	RuleCFOPUnknown  = "CFOP_NAO_ENCONTRADO"
)

const zeroNCM = "00000000"

// Engine validates items against a reference table snapshot.
type Engine struct {
	cstFirst bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithCSTPrecedence makes the regime-existence rule check CST before CSOSN
// when an item carries both codes. The default order (CSOSN first) matches
// observed issuer behavior but is not a confirmed domain rule.
func WithCSTPrecedence() Option {
	return func(e *Engine) {
		e.cstFirst = true
	}
}

// NewEngine creates a validation engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// codeSets holds the normalized lookup sets, built once per run.
type codeSets struct {
	ncm   map[string]struct{}
	cfop  map[string]struct{}
	cst   map[string]struct{}
	csosn map[string]struct{}
}

func buildSets(tables reference.Tables) codeSets {
	sets := codeSets{
		ncm:   make(map[string]struct{}, len(tables.NCM)),
		cfop:  make(map[string]struct{}, len(tables.CFOP)),
		cst:   make(map[string]struct{}),
		csosn: make(map[string]struct{}),
	}

	for _, e := range tables.NCM {
		sets.ncm[normalize.PadCode(normalize.StripNonDigits(e.Code), normalize.NCMWidth)] = struct{}{}
	}
	for _, e := range tables.CFOP {
		sets.cfop[normalize.PadCode(normalize.StripNonDigits(e.Code), normalize.CFOPWidth)] = struct{}{}
	}
	for _, e := range tables.CST {
		code := strings.TrimSpace(e.Code)
		switch strings.ToUpper(strings.TrimSpace(e.Tipo)) {
		case reference.TipoCST:
			sets.cst[code] = struct{}{}
		case reference.TipoCSOSN:
			sets.csosn[code] = struct{}{}
		}
	}

	return sets
}

// Validate runs the rule sequence over every item and returns the findings.
func (e *Engine) Validate(items []model.Item, tables reference.Tables) []model.Finding {
	sets := buildSets(tables)

	var findings []model.Finding
	for _, item := range items {
		findings = append(findings, e.validateItem(item, sets)...)
	}
	return findings
}

func (e *Engine) validateItem(item model.Item, sets codeSets) []model.Finding {
	var findings []model.Finding

	add := func(sev model.Severity, field, message, rule, table string) {
		findings = append(findings, model.Finding{
			Severity: sev,
			Field:    field,
			Message:  message,
			Rule:     rule,
			Table:    table,
			Chave:    item.Chave,
			NItem:    strings.TrimSpace(item.NItem),
			CProd:    strings.TrimSpace(item.CProd),
			XProd:    strings.TrimSpace(item.XProd),
		})
	}

	ncm := strings.TrimSpace(item.NCM)
	cfop := strings.TrimSpace(item.CFOP)
	cst := strings.TrimSpace(item.CST)
	csosn := strings.TrimSpace(item.CSOSN)

	ncmDigits := normalize.StripNonDigits(ncm)
	cfopDigits := normalize.StripNonDigits(cfop)

	// Format checks run regardless of reference table state.
	if ncmDigits != "" && len(ncmDigits) != normalize.NCMWidth {
		add(model.SeverityWarning, "NCM",
			fmt.Sprintf("NCM com tamanho incomum (%d dígitos): %s", len(ncmDigits), ncm),
			RuleNCMFormat, "")
	}
	if ncmDigits == "" || ncmDigits == zeroNCM {
		shown := ncm
		if shown == "" {
			shown = "(vazio)"
		}
		add(model.SeverityWarning, "NCM",
			fmt.Sprintf("NCM ausente ou zerado: %s", shown),
			RuleNCMMissing, "")
	}

	if cfopDigits != "" && len(cfopDigits) != normalize.CFOPWidth {
		add(model.SeverityWarning, "CFOP",
			fmt.Sprintf("CFOP com tamanho incomum (%d dígitos): %s", len(cfopDigits), cfop),
			RuleCFOPFormat, "")
	}
	if cfopDigits == "" {
		add(model.SeverityWarning, "CFOP", "CFOP ausente", RuleCFOPMissing, "")
	}

	// Regime code existence. An empty set means the table is unconfigured
	// and its check is suppressed.
	checkCSOSN := func() bool {
		if csosn == "" {
			return false
		}
		if _, ok := sets.csosn[csosn]; !ok && len(sets.csosn) > 0 {
			add(model.SeverityError, "CSOSN",
				fmt.Sprintf("CSOSN '%s' não encontrado na base.", csosn),
				RuleCSOSNUnknown, reference.CSTFile)
		}
		return true
	}
	checkCST := func() bool {
		if cst == "" {
			return false
		}
		if _, ok := sets.cst[cst]; !ok && len(sets.cst) > 0 {
			add(model.SeverityError, "CST",
				fmt.Sprintf("CST '%s' não encontrado na base.", cst),
				RuleCSTUnknown, reference.CSTFile)
		}
		return true
	}

	first, second := checkCSOSN, checkCST
	if e.cstFirst {
		first, second = checkCST, checkCSOSN
	}
	if !first() && !second() {
		add(model.SeverityWarning, "CST/CSOSN", "CST/CSOSN ausente no item", RuleCSTMissing, "")
	}

	// Existence against the reference tables.
	if len(sets.ncm) > 0 && ncmDigits != "" {
		norm := normalize.PadCode(ncmDigits, normalize.NCMWidth)
		if _, ok := sets.ncm[norm]; !ok {
			add(model.SeverityError, "NCM",
				fmt.Sprintf("NCM '%s' não encontrado na base.", norm),
				RuleNCMUnknown, reference.NCMFile)
		}
	}

	if len(sets.cfop) > 0 && cfopDigits != "" {
		norm := normalize.PadCode(cfopDigits, normalize.CFOPWidth)
		if _, ok := sets.cfop[norm]; !ok {
			add(model.SeverityError, "CFOP",
				fmt.Sprintf("CFOP '%s' não encontrado na base.", norm),
				RuleCFOPUnknown, reference.CFOPFile)
		}
	}

	return findings
}
