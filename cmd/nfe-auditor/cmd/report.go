package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-auditor/internal/consolidate"
	"github.com/rezonia/nfe-auditor/internal/export"
)

var (
	reportOutput string
	reportBy     string
	skipValidate bool
)

var reportCmd = &cobra.Command{
	Use:   "report [files...]",
	Short: "Build a spreadsheet audit report",
	Long: `Run the full audit pipeline and write a multi-sheet XLSX workbook with
the document headers, raw items, consolidated rows and validation findings.

Examples:
  nfe-auditor report notas.zip -o relatorio.xlsx
  nfe-auditor report notas/*.xml -o relatorio.xlsx --by ncm --no-validate`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Output XLSX file (required)")
	reportCmd.Flags().StringVar(&reportBy, "by", "xprod", "Grouping preset (xprod, cprod, ncm, xprod-only)")
	reportCmd.Flags().BoolVar(&skipValidate, "no-validate", false, "Skip the validation sheet")
	reportCmd.MarkFlagRequired("output")
}

func runReport(cmd *cobra.Command, args []string) error {
	payloads, err := loadPayloads(args)
	if err != nil {
		return err
	}

	keys := consolidate.KeysFor(reportBy)
	result, err := newPipeline().Audit(payloads, keys, !skipValidate)
	if err != nil {
		return err
	}

	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "✗ %s: %s\n", e.File, e.Message)
	}

	workbook, err := export.Workbook(result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(reportOutput, workbook, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	printVerbose("Run %s: %d document(s), %d item(s), %d finding(s)\n",
		result.RunID, len(result.Documents), len(result.Items), len(result.Findings))
	fmt.Printf("Report written to %s\n", reportOutput)
	return nil
}
