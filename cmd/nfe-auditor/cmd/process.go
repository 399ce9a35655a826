package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-auditor/internal/export"
	"github.com/rezonia/nfe-auditor/internal/processor"
	"github.com/rezonia/nfe-auditor/internal/reference/xlsx"
	"github.com/rezonia/nfe-auditor/internal/validate"
)

var outputFile string

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Extract header and items from NF-e files",
	Long: `Extract the document header and line items from one or more NF-e files.

Accepts .xml files and .zip archives of XMLs; directories and glob patterns
are walked. A document that fails to parse is reported and the rest of the
batch continues.

Examples:
  nfe-auditor process nota.xml
  nfe-auditor process notas.zip -f table
  nfe-auditor process notas/ -o itens.csv -f csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	payloads, err := loadPayloads(args)
	if err != nil {
		return err
	}

	pipeline := newPipeline()
	result, err := pipeline.Audit(payloads, nil, false)
	if err != nil {
		return err
	}

	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "✗ %s: %s\n", e.File, e.Message)
	}

	w, closeFn, err := outputWriter()
	if err != nil {
		return err
	}
	defer closeFn()

	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Documents)
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ARQUIVO\tCHAVE\tNNF\tSERIE\tEMITENTE\tVNF\tITENS")
		for _, doc := range result.Documents {
			h := doc.Header
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
				h.Arquivo, h.Chave, h.Numero, h.Serie, h.EmitNome, h.ValorNF, len(doc.Items))
		}
		return tw.Flush()
	case "csv":
		data, err := export.ItemsCSV(result.Items)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

// newPipeline builds the audit pipeline over the configured data directory.
// An unusable reference table store degrades to empty tables rather than
// failing the command.
func newPipeline() *processor.Pipeline {
	var validateOpts []validate.Option
	if cstPrecedence {
		validateOpts = append(validateOpts, validate.WithCSTPrecedence())
	}
	opts := []processor.Option{processor.WithValidateOptions(validateOpts...)}

	if store, err := xlsx.NewStore(dataDir); err == nil {
		opts = append(opts, processor.WithGateway(store))
	} else {
		printVerbose("reference table store unavailable: %v\n", err)
	}

	return processor.NewPipeline(opts...)
}

// loadPayloads resolves file arguments (paths, globs, directories) and
// expands ZIP archives into their XML payloads.
func loadPayloads(args []string) ([]processor.Payload, error) {
	files, err := collectFiles(args)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to process")
	}
	printVerbose("Found %d files\n", len(files))

	var payloads []processor.Payload
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		expanded, err := processor.ExpandPayloads(file, data)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, expanded...)
	}

	if len(payloads) == 0 {
		return nil, fmt.Errorf("no XML payloads found")
	}
	return payloads, nil
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}

		if len(matches) == 0 {
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}

			if info.IsDir() {
				err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
					if err != nil {
						return err
					}
					if !info.IsDir() && isSupportedFile(path) {
						files = append(files, path)
					}
					return nil
				})
				if err != nil {
					return nil, err
				}
			} else {
				files = append(files, arg)
			}
		} else {
			for _, match := range matches {
				info, err := os.Stat(match)
				if err != nil {
					continue
				}
				if !info.IsDir() && isSupportedFile(match) {
					files = append(files, match)
				}
			}
		}
	}

	return files, nil
}

func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".zip":
		return true
	default:
		return false
	}
}

func outputWriter() (*os.File, func(), error) {
	if outputFile == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
