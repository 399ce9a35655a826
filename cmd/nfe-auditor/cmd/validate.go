package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-auditor/internal/model"
)

var failOnWarning bool

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate NF-e items against the reference tables",
	Long: `Extract items from NF-e files and validate NCM, CFOP and CST/CSOSN codes
against the current reference tables (Base Legal).

Checks performed per item:
  - NCM digit count (8) and presence
  - CFOP digit count (4) and presence
  - CST/CSOSN presence and existence in the combined regime table
  - NCM/CFOP existence in their reference tables

The command exits non-zero when any ERRO-severity finding is emitted.

Examples:
  nfe-auditor validate notas/*.xml
  nfe-auditor validate notas.zip --data-dir /srv/fiscal/data`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&failOnWarning, "strict", false, "Also exit non-zero on ALERTA findings")
}

func runValidate(cmd *cobra.Command, args []string) error {
	payloads, err := loadPayloads(args)
	if err != nil {
		return err
	}

	result, err := newPipeline().Audit(payloads, nil, true)
	if err != nil {
		return err
	}

	for _, e := range result.Errors {
		fmt.Printf("✗ %s: %s\n", e.File, e.Message)
	}

	var errors, warnings int
	for _, f := range result.Findings {
		switch f.Severity {
		case model.SeverityError:
			errors++
		case model.SeverityWarning:
			warnings++
		}
	}

	if outputFormat == "json" {
		w, closeFn, err := outputWriter()
		if err != nil {
			return err
		}
		defer closeFn()
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Findings); err != nil {
			return err
		}
	} else {
		for _, f := range result.Findings {
			marker := "⚠"
			if f.Severity == model.SeverityError {
				marker = "✗"
			}
			fmt.Printf("%s [%s] item %s (%s): %s\n", marker, f.Rule, f.NItem, f.XProd, f.Message)
		}
		fmt.Printf("\n%d erro(s), %d alerta(s) em %d item(ns)\n", errors, warnings, len(result.Items))
	}

	if errors > 0 || (failOnWarning && warnings > 0) {
		return fmt.Errorf("validation found %d error(s) and %d warning(s)", errors, warnings)
	}
	return nil
}
