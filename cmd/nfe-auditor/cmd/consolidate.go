package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-auditor/internal/consolidate"
)

var consolidateBy string

var consolidateCmd = &cobra.Command{
	Use:   "consolidate [files...]",
	Short: "Consolidate NF-e items by a grouping key",
	Long: `Group the line items of one or more NF-e files and sum quantities and
values per group.

Grouping presets (--by):
  xprod       xProd + NCM + CFOP (default)
  cprod       cProd + NCM + CFOP
  ncm         NCM + CFOP
  xprod-only  xProd

Examples:
  nfe-auditor consolidate notas.zip
  nfe-auditor consolidate notas/*.xml --by ncm -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConsolidate,
}

func init() {
	rootCmd.AddCommand(consolidateCmd)

	consolidateCmd.Flags().StringVar(&consolidateBy, "by", "xprod", "Grouping preset (xprod, cprod, ncm, xprod-only)")
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	payloads, err := loadPayloads(args)
	if err != nil {
		return err
	}

	keys := consolidate.KeysFor(consolidateBy)
	result, err := newPipeline().Audit(payloads, keys, false)
	if err != nil {
		return err
	}

	w, closeFn, err := outputWriter()
	if err != nil {
		return err
	}
	defer closeFn()

	switch outputFormat {
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, k := range keys {
			fmt.Fprintf(tw, "%s\t", k)
		}
		fmt.Fprintln(tw, "QUANTIDADE\tVALOR_TOTAL\tVALOR_UNIT_MEDIO")
		for _, row := range result.Consolidated {
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t", row.Keys[k])
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n",
				row.Quantidade.String(), row.ValorTotal.String(), row.ValorUnitMedio.String())
		}
		return tw.Flush()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Consolidated)
	}
}
