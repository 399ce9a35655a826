package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-auditor/internal/reference"
	"github.com/rezonia/nfe-auditor/internal/reference/xlsx"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Manage the reference tables (Base Legal)",
}

var tablesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the current reference tables",
	RunE:  runTablesStatus,
}

var tablesImportCmd = &cobra.Command{
	Use:   "import <ncm|cfop|cst> <file.xlsx>",
	Short: "Install a new version of a reference table",
	Long: `Validate an XLSX file and install it as the current version of a reference
table. The previous version is kept as a timestamped backup under history/.

Required columns (matched case-insensitively):
  ncm   ncm, descricao
  cfop  cfop, descricao
  cst   codigo, tipo, descricao (tipo: CST or CSOSN)`,
	Args: cobra.ExactArgs(2),
	RunE: runTablesImport,
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	tablesCmd.AddCommand(tablesStatusCmd)
	tablesCmd.AddCommand(tablesImportCmd)
}

func runTablesStatus(cmd *cobra.Command, args []string) error {
	store, err := xlsx.NewStore(dataDir)
	if err != nil {
		return err
	}

	statuses := store.StatusAll()
	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABELA\tLINHAS\tSTATUS\tARQUIVO")
	for _, key := range []string{reference.TableNCM, reference.TableCFOP, reference.TableCST} {
		st := statuses[key]
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", key, st.Rows, st.Message, st.Path)
	}
	return tw.Flush()
}

func runTablesImport(cmd *cobra.Command, args []string) error {
	key, file := args[0], args[1]

	payload, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	store, err := xlsx.NewStore(dataDir)
	if err != nil {
		return err
	}

	status, err := store.Import(key, payload)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%d linhas) -> %s\n", status.Message, status.Rows, status.Path)
	return nil
}
