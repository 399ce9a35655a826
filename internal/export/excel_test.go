package export_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rezonia/nfe-auditor/internal/consolidate"
	"github.com/rezonia/nfe-auditor/internal/export"
	"github.com/rezonia/nfe-auditor/internal/model"
	"github.com/rezonia/nfe-auditor/internal/processor"
)

func sampleResult() *processor.Result {
	header := &model.Header{
		Chave:    "35240511222333000181550010000000421000000017",
		Numero:   "42",
		Serie:    "1",
		Emissao:  "2024-05-10T09:30:00-03:00",
		EmitNome: "Emitente LTDA",
		EmitCNPJ: "11222333000181",
		ValorNF:  "10.00",
		Arquivo:  "nota.xml",
	}
	item := model.Item{
		Chave: header.Chave, NItem: "1", CProd: "P1", XProd: "Produto",
		NCM: "85171231", CFOP: "5102", UCom: "UN", QCom: "1.0000",
		VUn: "10.00", VProd: "10.00", CST: "00",
	}
	return &processor.Result{
		RunID:     "test-run",
		Documents: []processor.Document{{Header: header, Items: []model.Item{item}}},
		Items:     []model.Item{item},
		GroupKeys: consolidate.ByNCMCFOP,
		Consolidated: []consolidate.Row{{
			Keys:           map[consolidate.Key]string{consolidate.KeyNCM: "85171231", consolidate.KeyCFOP: "5102"},
			Quantidade:     decimal.NewFromInt(1),
			ValorTotal:     decimal.RequireFromString("10.00"),
			ValorUnitMedio: decimal.RequireFromString("10.00"),
		}},
		Findings: []model.Finding{{
			Severity: model.SeverityError,
			Field:    "NCM",
			Message:  "NCM '85171231' não encontrado na base.",
			Rule:     "NCM_NAO_ENCONTRADO",
			Chave:    header.Chave,
			Numero:   "42",
			NItem:    "1",
		}},
	}
}

func TestWorkbook(t *testing.T) {
	data, err := export.Workbook(sampleResult())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t,
		[]string{export.SheetHeaders, export.SheetItems, export.SheetConsolidated, export.SheetFindings},
		f.GetSheetList())

	headers, err := f.GetRows(export.SheetHeaders)
	require.NoError(t, err)
	require.Len(t, headers, 2)
	assert.Equal(t, "chave", headers[0][0])
	assert.Equal(t, "42", headers[1][1])

	items, err := f.GetRows(export.SheetItems)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "85171231", items[1][4])

	// Consolidated columns follow the grouping key order.
	cons, err := f.GetRows(export.SheetConsolidated)
	require.NoError(t, err)
	require.Len(t, cons, 2)
	assert.Equal(t, []string{"NCM", "CFOP", "quantidade", "valor_total", "valor_unit_medio"}, cons[0])
	assert.Equal(t, "85171231", cons[1][0])
	assert.Equal(t, "5102", cons[1][1])

	findings, err := f.GetRows(export.SheetFindings)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "ERRO", findings[1][0])
	assert.Equal(t, "NCM_NAO_ENCONTRADO", findings[1][3])
}

func TestWorkbook_EmptyResult(t *testing.T) {
	data, err := export.Workbook(&processor.Result{RunID: "empty"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetItems)
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}

func TestItemsCSV(t *testing.T) {
	items := []model.Item{
		{Chave: "111", NItem: "1", CProd: "P1", XProd: "Produto, com vírgula", NCM: "85171231", CFOP: "5102"},
	}

	data, err := export.ItemsCSV(items)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "chave,nItem,cProd,xProd,NCM,CFOP"))
	assert.Contains(t, lines[1], `"Produto, com vírgula"`)
}
