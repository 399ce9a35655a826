package consolidate_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/nfe-auditor/internal/consolidate"
	"github.com/rezonia/nfe-auditor/internal/model"
)

func TestConsolidate_GroupsAndSums(t *testing.T) {
	items := []model.Item{
		{XProd: "A", NCM: "1111", CFOP: "5102", QCom: "2", VProd: "10,00"},
		{XProd: "A", NCM: "1111", CFOP: "5102", QCom: "3", VProd: "15,00"},
	}

	rows, err := consolidate.Consolidate(items, consolidate.ByProductNCMCFOP)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "A", row.Keys[consolidate.KeyXProd])
	assert.Equal(t, "1111", row.Keys[consolidate.KeyNCM])
	assert.Equal(t, "5102", row.Keys[consolidate.KeyCFOP])
	assert.True(t, row.Quantidade.Equal(decimal.NewFromInt(5)), "quantidade = %s", row.Quantidade)
	assert.True(t, row.ValorTotal.Equal(decimal.NewFromInt(25)), "valor_total = %s", row.ValorTotal)
	// No vUnCom present on any item: nothing to average.
	assert.True(t, row.ValorUnitMedio.IsZero())
}

func TestConsolidate_MeanUnitValue(t *testing.T) {
	items := []model.Item{
		{XProd: "A", VUn: "10,00", QCom: "1", VProd: "10,00"},
		{XProd: "A", VUn: "20,00", QCom: "1", VProd: "20,00"},
		// Unparseable unit value is excluded from the mean, not zeroed.
		{XProd: "A", VUn: "n/a", QCom: "1", VProd: "5,00"},
	}

	rows, err := consolidate.Consolidate(items, consolidate.ByProduct)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.True(t, rows[0].ValorUnitMedio.Equal(decimal.NewFromInt(15)),
		"valor_unit_medio = %s", rows[0].ValorUnitMedio)
}

func TestConsolidate_UnparseableValuesContributeNothing(t *testing.T) {
	items := []model.Item{
		{XProd: "A", QCom: "abc", VProd: ""},
		{XProd: "A", QCom: "2", VProd: "1,50"},
	}

	rows, err := consolidate.Consolidate(items, consolidate.ByProduct)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.True(t, rows[0].Quantidade.Equal(decimal.NewFromInt(2)))
	assert.True(t, rows[0].ValorTotal.Equal(decimal.NewFromFloat(1.5)))
}

func TestConsolidate_MissingKeyGroupsUnderEmpty(t *testing.T) {
	items := []model.Item{
		{XProd: "A", NCM: "", CFOP: "5102", VProd: "1,00"},
		{XProd: "A", CFOP: "5102", VProd: "2,00"},
	}

	rows, err := consolidate.Consolidate(items, consolidate.ByProductNCMCFOP)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Keys[consolidate.KeyNCM])
}

func TestConsolidate_SortsDescendingByTotal(t *testing.T) {
	items := []model.Item{
		{XProd: "small", VProd: "1,00"},
		{XProd: "big", VProd: "100,00"},
		{XProd: "mid", VProd: "50,00"},
	}

	rows, err := consolidate.Consolidate(items, consolidate.ByProduct)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "big", rows[0].Keys[consolidate.KeyXProd])
	assert.Equal(t, "mid", rows[1].Keys[consolidate.KeyXProd])
	assert.Equal(t, "small", rows[2].Keys[consolidate.KeyXProd])
}

func TestConsolidate_TiesKeepInputOrder(t *testing.T) {
	items := []model.Item{
		{XProd: "first", VProd: "10,00"},
		{XProd: "second", VProd: "10,00"},
		{XProd: "third", VProd: "10,00"},
	}

	rows, err := consolidate.Consolidate(items, consolidate.ByProduct)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "first", rows[0].Keys[consolidate.KeyXProd])
	assert.Equal(t, "second", rows[1].Keys[consolidate.KeyXProd])
	assert.Equal(t, "third", rows[2].Keys[consolidate.KeyXProd])
}

func TestConsolidate_InvalidKeys(t *testing.T) {
	_, err := consolidate.Consolidate(nil, nil)
	require.Error(t, err)

	_, err = consolidate.Consolidate(nil, []consolidate.Key{"vICMS"})
	require.Error(t, err)
}

func TestKeysFor(t *testing.T) {
	assert.Equal(t, consolidate.ByProductNCMCFOP, consolidate.KeysFor("xprod"))
	assert.Equal(t, consolidate.ByCodeNCMCFOP, consolidate.KeysFor("cprod"))
	assert.Equal(t, consolidate.ByNCMCFOP, consolidate.KeysFor("ncm"))
	assert.Equal(t, consolidate.ByProduct, consolidate.KeysFor("xprod-only"))
	// Unknown presets fall back to the default.
	assert.Equal(t, consolidate.ByProductNCMCFOP, consolidate.KeysFor(""))
}
