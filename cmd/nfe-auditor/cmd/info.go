package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-auditor/internal/processor"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Show payload information for files",
	Long: `Detect the format of each file and, for ZIP archives, count the XML
payloads inside without extracting them.

Examples:
  nfe-auditor info nota.xml notas.zip`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

type fileInfo struct {
	File     string `json:"file"`
	Format   string `json:"format"`
	Size     int    `json:"size"`
	Payloads int    `json:"payloads"`
	Error    string `json:"error,omitempty"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	infos := make([]fileInfo, 0, len(files))
	for _, file := range files {
		info := fileInfo{File: file}
		data, err := os.ReadFile(file)
		if err != nil {
			info.Error = err.Error()
			infos = append(infos, info)
			continue
		}

		info.Format = string(processor.DetectFormat(data))
		info.Size = len(data)
		if payloads, err := processor.ExpandPayloads(file, data); err == nil {
			info.Payloads = len(payloads)
		} else {
			info.Error = err.Error()
		}
		infos = append(infos, info)
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	for _, info := range infos {
		if info.Error != "" {
			fmt.Printf("%s: error: %s\n", info.File, info.Error)
			continue
		}
		fmt.Printf("%s: %s, %d bytes, %d payload(s)\n", info.File, info.Format, info.Size, info.Payloads)
	}
	return nil
}
