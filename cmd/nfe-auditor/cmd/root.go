package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "2.0.0"

	// Global flags
	verbose       bool
	outputFormat  string
	dataDir       string
	cstPrecedence bool
)

var rootCmd = &cobra.Command{
	Use:   "nfe-auditor",
	Short: "Read, consolidate and validate NF-e fiscal XML documents",
	Long: `NF-e Auditor extracts line items from Brazilian electronic invoices (NF-e),
consolidates them by configurable keys, and validates NCM/CFOP/CST/CSOSN codes
against the reference tables (Base Legal).

Examples:
  # Extract header and items from XML files
  nfe-auditor process notas/*.xml

  # Process a ZIP of XMLs and consolidate by product
  nfe-auditor consolidate notas.zip --by xprod-only

  # Validate against the current reference tables
  nfe-auditor validate notas/*.xml

  # Full audit report as a spreadsheet
  nfe-auditor report notas.zip -o relatorio.xlsx`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table, csv)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory for reference tables and users (env: NFE_AUDITOR_DATA_DIR)")
	rootCmd.PersistentFlags().BoolVar(&cstPrecedence, "cst-precedence", false, "Check CST before CSOSN when an item carries both")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if dataDir == "" {
		dataDir = os.Getenv("NFE_AUDITOR_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = "data"
	}
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
