package xlsx_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rezonia/nfe-auditor/internal/model"
	"github.com/rezonia/nfe-auditor/internal/reference"
	"github.com/rezonia/nfe-auditor/internal/reference/xlsx"
)

// buildSheet builds an in-memory workbook with the given rows on the first
// sheet.
func buildSheet(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestNewStore_SeedsStarterTables(t *testing.T) {
	dir := t.TempDir()

	store, err := xlsx.NewStore(dir)
	require.NoError(t, err)

	for _, fname := range []string{reference.NCMFile, reference.CFOPFile, reference.CSTFile} {
		_, err := os.Stat(filepath.Join(dir, "base_legal", "current", fname))
		assert.NoError(t, err, fname)
	}

	tables := store.Tables()
	require.Len(t, tables.CFOP, 1)
	assert.Equal(t, "5102", tables.CFOP[0].Code)
	require.Len(t, tables.CST, 2)
	assert.Equal(t, "CST", tables.CST[0].Tipo)
	assert.Equal(t, "CSOSN", tables.CST[1].Tipo)
}

func TestNewStore_KeepsExistingTables(t *testing.T) {
	dir := t.TempDir()

	store, err := xlsx.NewStore(dir)
	require.NoError(t, err)

	payload := buildSheet(t, [][]interface{}{
		{"cfop", "descricao"},
		{"6102", "Venda interestadual"},
	})
	_, err = store.Import(reference.TableCFOP, payload)
	require.NoError(t, err)

	// Reopening the same data dir must not reseed over the imported file.
	store, err = xlsx.NewStore(dir)
	require.NoError(t, err)

	tables := store.Tables()
	require.Len(t, tables.CFOP, 1)
	assert.Equal(t, "6102", tables.CFOP[0].Code)
}

func TestImport_ReplacesAndBacksUp(t *testing.T) {
	dir := t.TempDir()
	store, err := xlsx.NewStore(dir)
	require.NoError(t, err)

	payload := buildSheet(t, [][]interface{}{
		{"NCM", "Descricao"}, // header matching is case-insensitive
		{"85171231", "Telefones celulares"},
		{"73269090", "Obras de ferro"},
	})

	status, err := store.Import(reference.TableNCM, payload)
	require.NoError(t, err)
	assert.True(t, status.OK)
	assert.Equal(t, 2, status.Rows)

	tables := store.Tables()
	require.Len(t, tables.NCM, 2)
	assert.Equal(t, "85171231", tables.NCM[0].Code)

	// The seeded file moved to history.
	entries, err := os.ReadDir(filepath.Join(dir, "base_legal", "history"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), reference.NCMFile)
}

func TestImport_RejectsMissingColumn(t *testing.T) {
	dir := t.TempDir()
	store, err := xlsx.NewStore(dir)
	require.NoError(t, err)

	payload := buildSheet(t, [][]interface{}{
		{"codigo", "descricao"}, // NCM table needs an "ncm" column
		{"85171231", "Telefones"},
	})

	_, err = store.Import(reference.TableNCM, payload)
	require.Error(t, err)

	var tableErr *model.TableError
	require.ErrorAs(t, err, &tableErr)
	assert.Equal(t, reference.TableNCM, tableErr.Table)

	// The current file is untouched on a rejected import.
	tables := store.Tables()
	require.Len(t, tables.NCM, 1)
	assert.Equal(t, "00000000", tables.NCM[0].Code)
}

func TestImport_RejectsUnknownKeyAndGarbage(t *testing.T) {
	dir := t.TempDir()
	store, err := xlsx.NewStore(dir)
	require.NoError(t, err)

	_, err = store.Import("icms", buildSheet(t, [][]interface{}{{"a"}}))
	require.Error(t, err)

	_, err = store.Import(reference.TableCFOP, []byte("not a spreadsheet"))
	require.Error(t, err)
}

func TestTables_DegradesToEmptyOnBrokenFile(t *testing.T) {
	dir := t.TempDir()
	store, err := xlsx.NewStore(dir)
	require.NoError(t, err)

	broken := filepath.Join(dir, "base_legal", "current", reference.NCMFile)
	require.NoError(t, os.WriteFile(broken, []byte("garbage"), 0o644))

	tables := store.Tables()
	assert.Empty(t, tables.NCM)
	assert.NotEmpty(t, tables.CFOP)
	assert.NotEmpty(t, tables.CST)
}

func TestStatusAll(t *testing.T) {
	dir := t.TempDir()
	store, err := xlsx.NewStore(dir)
	require.NoError(t, err)

	status := store.StatusAll()
	require.Len(t, status, 3)
	for key, st := range status {
		assert.True(t, st.OK, key)
		assert.NotZero(t, st.Rows, key)
	}

	require.NoError(t, os.Remove(filepath.Join(dir, "base_legal", "current", reference.CFOPFile)))

	status = store.StatusAll()
	assert.False(t, status[reference.TableCFOP].OK)
	assert.True(t, status[reference.TableNCM].OK)
}
