// Package xlsx implements the reference table gateway over spreadsheet files,
// the format the tax team maintains the tables in. The active version of each
// table lives under current/; imports keep a timestamped backup under
// history/ before replacing it.
package xlsx

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rezonia/nfe-auditor/internal/model"
	"github.com/rezonia/nfe-auditor/internal/reference"
)

// fileFor maps a table key to its spreadsheet file name.
var fileFor = map[string]string{
	reference.TableNCM:  reference.NCMFile,
	reference.TableCFOP: reference.CFOPFile,
	reference.TableCST:  reference.CSTFile,
}

// requiredColumns lists the columns each table must carry, matched
// case-insensitively after trimming.
var requiredColumns = map[string][]string{
	reference.TableNCM:  {"ncm", "descricao"},
	reference.TableCFOP: {"cfop", "descricao"},
	reference.TableCST:  {"codigo", "tipo", "descricao"},
}

// Store reads and replaces the reference table spreadsheets under a data
// directory.
type Store struct {
	currentDir string
	historyDir string
}

// NewStore creates a store rooted at dataDir and makes sure the directory
// layout and starter templates exist.
func NewStore(dataDir string) (*Store, error) {
	s := &Store{
		currentDir: filepath.Join(dataDir, "base_legal", "current"),
		historyDir: filepath.Join(dataDir, "base_legal", "history"),
	}
	if err := s.ensure(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensure() error {
	for _, dir := range []string{s.currentDir, s.historyDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	// Starter templates so a fresh install validates against something;
	// replaced through Import.
	seeds := map[string][][]interface{}{
		reference.TableNCM: {
			{"ncm", "descricao"},
			{"00000000", "PLACEHOLDER - Substitua pela sua base NCM/TIPI"},
		},
		reference.TableCFOP: {
			{"cfop", "descricao"},
			{"5102", "Venda de mercadoria adquirida ou recebida de terceiros"},
		},
		reference.TableCST: {
			{"codigo", "tipo", "descricao"},
			{"00", "CST", "Tributada integralmente"},
			{"102", "CSOSN", "Tributada pelo Simples Nacional sem permissão de crédito"},
		},
	}

	for key, rows := range seeds {
		path := filepath.Join(s.currentDir, fileFor[key])
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := writeSheet(path, rows); err != nil {
			return model.NewTableError(key, "failed to seed starter table", err)
		}
	}

	return nil
}

func writeSheet(path string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// Tables loads the current snapshot of all three tables. A table that cannot
// be read or lacks its required columns comes back empty; existence checks
// degrade gracefully instead of failing the validation run.
func (s *Store) Tables() reference.Tables {
	var t reference.Tables

	if rows, err := s.readTable(reference.TableNCM); err == nil {
		for _, r := range rows {
			t.NCM = append(t.NCM, reference.NCMEntry{Code: r["ncm"], Description: r["descricao"]})
		}
	}
	if rows, err := s.readTable(reference.TableCFOP); err == nil {
		for _, r := range rows {
			t.CFOP = append(t.CFOP, reference.CFOPEntry{Code: r["cfop"], Description: r["descricao"]})
		}
	}
	if rows, err := s.readTable(reference.TableCST); err == nil {
		for _, r := range rows {
			t.CST = append(t.CST, reference.CSTEntry{Code: r["codigo"], Tipo: r["tipo"], Description: r["descricao"]})
		}
	}

	return t
}

// readTable reads the current file of a table into rows keyed by normalized
// column name.
func (s *Store) readTable(key string) ([]map[string]string, error) {
	path := filepath.Join(s.currentDir, fileFor[key])
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, model.NewTableError(key, "failed to open spreadsheet", err)
	}
	defer f.Close()

	return parseSheet(f, key)
}

func parseSheet(f *excelize.File, key string) ([]map[string]string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, model.NewTableError(key, "workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, model.NewTableError(key, "failed to read rows", err)
	}
	if len(rows) == 0 {
		return nil, model.NewTableError(key, "missing header row", nil)
	}

	// First row carries the column names; normalize for the lookup.
	columns := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		columns[i] = strings.ToLower(strings.TrimSpace(c))
	}
	for _, req := range requiredColumns[key] {
		found := false
		for _, c := range columns {
			if c == req {
				found = true
				break
			}
		}
		if !found {
			return nil, model.NewTableError(key, fmt.Sprintf("missing required column: %s", req), nil)
		}
	}

	var out []map[string]string
	for _, row := range rows[1:] {
		record := make(map[string]string, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(row) {
				record[col] = strings.TrimSpace(row[i])
			} else {
				record[col] = ""
			}
		}
		out = append(out, record)
	}

	return out, nil
}

// Import validates an uploaded spreadsheet and installs it as the current
// version of the table, keeping a timestamped backup of the previous file.
func (s *Store) Import(key string, payload []byte) (reference.Status, error) {
	fname, ok := fileFor[key]
	if !ok {
		return reference.Status{}, model.NewTableError(key, "unknown table key", nil)
	}

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return reference.Status{}, model.NewTableError(key, "failed to read spreadsheet", err)
	}
	rows, err := parseSheet(f, key)
	f.Close()
	if err != nil {
		return reference.Status{}, err
	}

	current := filepath.Join(s.currentDir, fname)
	if _, err := os.Stat(current); err == nil {
		backup := filepath.Join(s.historyDir, fmt.Sprintf("%s__%s", time.Now().Format("20060102_150405"), fname))
		if err := os.Rename(current, backup); err != nil {
			return reference.Status{}, model.NewTableError(key, "failed to back up current table", err)
		}
	}

	if err := os.WriteFile(current, payload, 0o644); err != nil {
		return reference.Status{}, model.NewTableError(key, "failed to install new table", err)
	}

	return reference.Status{
		OK:      true,
		Message: "Base atualizada com sucesso.",
		Rows:    len(rows),
		Path:    current,
	}, nil
}

// StatusAll reports the health of every stored table.
func (s *Store) StatusAll() map[string]reference.Status {
	out := make(map[string]reference.Status, len(fileFor))
	for key, fname := range fileFor {
		path := filepath.Join(s.currentDir, fname)
		if _, err := os.Stat(path); err != nil {
			out[key] = reference.Status{OK: false, Message: "Arquivo não encontrado."}
			continue
		}
		rows, err := s.readTable(key)
		if err != nil {
			out[key] = reference.Status{OK: false, Message: fmt.Sprintf("Erro ao ler: %v", err), Path: path}
			continue
		}
		out[key] = reference.Status{OK: true, Message: "OK", Rows: len(rows), Path: path}
	}
	return out
}
