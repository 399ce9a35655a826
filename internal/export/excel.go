// Package export renders audit results into the spreadsheet and CSV shapes
// the accounting workflow consumes.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/rezonia/nfe-auditor/internal/model"
	"github.com/rezonia/nfe-auditor/internal/processor"
)

// Workbook sheet names, matching the existing report layout.
const (
	SheetHeaders      = "Cabecalho_NFe"
	SheetItems        = "Itens_Bruto"
	SheetConsolidated = "Consolidado"
	SheetFindings     = "Validacao"
)

// Workbook builds a multi-sheet XLSX report from an audit result and returns
// the serialized file.
func Workbook(result *processor.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetHeaders); err != nil {
		return nil, fmt.Errorf("failed to create header sheet: %w", err)
	}
	if err := writeHeaders(f, result.Documents); err != nil {
		return nil, err
	}
	if err := writeItems(f, result.Items); err != nil {
		return nil, err
	}
	if err := writeConsolidated(f, result); err != nil {
		return nil, err
	}
	if err := writeFindings(f, result.Findings); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	if _, err := f.GetSheetIndex(sheet); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeHeaders(f *excelize.File, docs []processor.Document) error {
	rows := [][]interface{}{
		{"chave", "nNF", "serie", "dhEmi", "emit_xNome", "emit_CNPJ", "dest_xNome", "dest_CNPJ", "vNF", "arquivo"},
	}
	for _, doc := range docs {
		h := doc.Header
		rows = append(rows, []interface{}{
			h.Chave, h.Numero, h.Serie, h.Emissao,
			h.EmitNome, h.EmitCNPJ, h.DestNome, h.DestCNPJ,
			h.ValorNF, h.Arquivo,
		})
	}
	return writeRows(f, SheetHeaders, rows)
}

var itemColumns = []string{
	"chave", "nItem", "cProd", "xProd", "NCM", "CFOP",
	"uCom", "qCom", "vUnCom", "vProd",
	"orig", "CST_ICMS", "CSOSN", "pICMS", "vICMS",
}

func itemRow(item model.Item) []interface{} {
	return []interface{}{
		item.Chave, item.NItem, item.CProd, item.XProd, item.NCM, item.CFOP,
		item.UCom, item.QCom, item.VUn, item.VProd,
		item.Orig, item.CST, item.CSOSN, item.PICMS, item.VICMS,
	}
}

func writeItems(f *excelize.File, items []model.Item) error {
	if _, err := f.NewSheet(SheetItems); err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(items)+1)
	head := make([]interface{}, len(itemColumns))
	for i, c := range itemColumns {
		head[i] = c
	}
	rows = append(rows, head)
	for _, item := range items {
		rows = append(rows, itemRow(item))
	}
	return writeRows(f, SheetItems, rows)
}

func writeConsolidated(f *excelize.File, result *processor.Result) error {
	if _, err := f.NewSheet(SheetConsolidated); err != nil {
		return err
	}

	head := make([]interface{}, 0, len(result.GroupKeys)+3)
	for _, k := range result.GroupKeys {
		head = append(head, string(k))
	}
	head = append(head, "quantidade", "valor_total", "valor_unit_medio")

	rows := [][]interface{}{head}
	for _, row := range result.Consolidated {
		out := make([]interface{}, 0, len(head))
		for _, k := range result.GroupKeys {
			out = append(out, row.Keys[k])
		}
		out = append(out,
			row.Quantidade.String(),
			row.ValorTotal.String(),
			row.ValorUnitMedio.String(),
		)
		rows = append(rows, out)
	}
	return writeRows(f, SheetConsolidated, rows)
}

func writeFindings(f *excelize.File, findings []model.Finding) error {
	if _, err := f.NewSheet(SheetFindings); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"severidade", "campo", "mensagem", "regra", "base", "chave", "nNF", "serie", "dEmi", "nItem", "cProd", "xProd"},
	}
	for _, fd := range findings {
		rows = append(rows, []interface{}{
			string(fd.Severity), fd.Field, fd.Message, fd.Rule, fd.Table,
			fd.Chave, fd.Numero, fd.Serie, fd.Emissao, fd.NItem, fd.CProd, fd.XProd,
		})
	}
	return writeRows(f, SheetFindings, rows)
}

// ItemsCSV serializes raw items as CSV with the same column set as the
// workbook's item sheet.
func ItemsCSV(items []model.Item) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(itemColumns); err != nil {
		return nil, err
	}
	for _, item := range items {
		row := itemRow(item)
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = v.(string)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
