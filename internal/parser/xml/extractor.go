// Package xml extracts NF-e documents into header and item records.
//
// NF-e files in the wild carry arbitrary namespace prefixes and wrapper
// elements (nfeProc, enviNFe, ...) depending on the issuer software, so every
// tag comparison here is on the local name only and the infNFe element is
// located anywhere in the tree, not at a fixed depth.
package xml

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/rezonia/nfe-auditor/internal/model"
)

// chavePrefix is the literal prepended to the access key in the infNFe Id
// attribute.
const chavePrefix = "NFe"

// Extractor parses NF-e XML payloads.
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses one NF-e payload into a header and its line items, in
// document order. It fails with *model.MalformedDocumentError when the bytes
// are not well-formed XML or no infNFe element exists; absent optional fields
// resolve to empty strings, never to an error.
func (e *Extractor) Extract(data []byte) (*model.Header, []model.Item, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, nil, model.NewMalformedDocumentError("", "failed to parse XML", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, nil, model.NewMalformedDocumentError("", "empty XML document", nil)
	}

	infNFe := findLocal(root, "infNFe")
	if infNFe == nil {
		return nil, nil, model.NewMalformedDocumentError("", "infNFe element not found, not an NF-e", nil)
	}

	header := extractHeader(infNFe)
	items := extractItems(infNFe, header.Chave)

	return header, items, nil
}

func extractHeader(infNFe *etree.Element) *model.Header {
	h := &model.Header{
		Chave:    strings.TrimPrefix(infNFe.SelectAttrValue("Id", ""), chavePrefix),
		Numero:   findText(infNFe, "ide/nNF"),
		Serie:    findText(infNFe, "ide/serie"),
		Emissao:  findText(infNFe, "ide/dhEmi"),
		EmitNome: findText(infNFe, "emit/xNome"),
		EmitCNPJ: findText(infNFe, "emit/CNPJ"),
		DestNome: findText(infNFe, "dest/xNome"),
		DestCNPJ: findText(infNFe, "dest/CNPJ"),
		ValorNF:  findText(infNFe, "total/ICMSTot/vNF"),
	}

	// Legacy fallbacks: dEmi predates dhEmi, and person issuers/recipients
	// carry CPF instead of CNPJ.
	if h.Emissao == "" {
		h.Emissao = findText(infNFe, "ide/dEmi")
	}
	if h.EmitCNPJ == "" {
		h.EmitCNPJ = findText(infNFe, "emit/CPF")
	}
	if h.DestCNPJ == "" {
		h.DestCNPJ = findText(infNFe, "dest/CPF")
	}

	return h
}

func extractItems(infNFe *etree.Element, chave string) []model.Item {
	var items []model.Item

	for _, det := range infNFe.ChildElements() {
		if det.Tag != "det" {
			continue
		}
		// Items without a product block carry nothing worth extracting.
		if childLocal(det, "prod") == nil {
			continue
		}

		item := model.Item{
			Chave: chave,
			NItem: det.SelectAttrValue("nItem", ""),
			CProd: findText(det, "prod/cProd"),
			XProd: findText(det, "prod/xProd"),
			NCM:   findText(det, "prod/NCM"),
			CFOP:  findText(det, "prod/CFOP"),
			UCom:  findText(det, "prod/uCom"),
			QCom:  findText(det, "prod/qCom"),
			VUn:   findText(det, "prod/vUnCom"),
			VProd: findText(det, "prod/vProd"),
		}

		extractICMS(det, &item)
		items = append(items, item)
	}

	return items
}

// extractICMS reads the tax fields from the single regime-variant child of
// the ICMS element (ICMS00, ICMS60, ICMSSN102, ...). The variant tag differs
// per regime but the field layout is uniform, so one path walk covers all of
// them.
func extractICMS(det *etree.Element, item *model.Item) {
	imposto := childLocal(det, "imposto")
	if imposto == nil {
		return
	}
	icms := childLocal(imposto, "ICMS")
	if icms == nil {
		return
	}

	variants := icms.ChildElements()
	if len(variants) == 0 {
		return
	}
	variant := variants[0]

	item.Regime = variant.Tag
	item.Orig = findText(variant, "orig")
	item.CST = findText(variant, "CST")
	item.CSOSN = findText(variant, "CSOSN")
	item.PICMS = findText(variant, "pICMS")
	item.VICMS = findText(variant, "vICMS")
}

// findText walks a slash-separated path of local tag names from el, one
// matching direct child per step, and returns the final element's trimmed
// text. Any unresolved step yields an empty string.
func findText(el *etree.Element, path string) string {
	cur := el
	for _, part := range strings.Split(path, "/") {
		cur = childLocal(cur, part)
		if cur == nil {
			return ""
		}
	}
	return strings.TrimSpace(cur.Text())
}

// childLocal returns the first direct child whose local tag name matches.
// etree keeps the namespace prefix in Space, so Tag is already the local
// name.
func childLocal(el *etree.Element, local string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == local {
			return child
		}
	}
	return nil
}

// findLocal searches the whole subtree for an element with the given local
// tag name, depth-first in document order.
func findLocal(el *etree.Element, local string) *etree.Element {
	if el.Tag == local {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findLocal(child, local); found != nil {
			return found
		}
	}
	return nil
}
