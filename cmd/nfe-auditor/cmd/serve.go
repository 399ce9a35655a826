package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-auditor/internal/auth"
	"github.com/rezonia/nfe-auditor/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for auditing NF-e documents.

Endpoints:
  - POST /api/v1/process/xml   - Extract one XML document
  - POST /api/v1/audit         - Full audit of an XML or ZIP payload
  - POST /api/v1/validate      - Validate a JSON batch of items
  - POST /api/v1/report        - Audit and download the XLSX workbook
  - POST /api/v1/info          - Payload information
  - GET  /api/v1/tables/status - Reference table status
  - PUT  /api/v1/tables/:key   - Install a reference table (admin)
  - GET  /health               - Health check

The bootstrap admin account is created on startup from ADMIN_USER and
ADMIN_PASS (default admin/admin123 — change it).

Examples:
  nfe-auditor serve
  nfe-auditor serve --address :9090 --data-dir /srv/fiscal/data --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", ":8080", "Server listen address")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 2*time.Minute, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	adminUser := os.Getenv("ADMIN_USER")
	if adminUser == "" {
		adminUser = "admin"
	}
	adminPass := os.Getenv("ADMIN_PASS")
	if adminPass == "" {
		adminPass = "admin123"
	}
	if err := auth.NewStore(dataDir).EnsureAdmin(adminUser, adminPass); err != nil {
		return fmt.Errorf("failed to bootstrap admin user: %w", err)
	}

	config := &server.Config{
		Address:       serverAddr,
		DataDir:       dataDir,
		ReadTimeout:   readTimeout,
		WriteTimeout:  writeTimeout,
		Debug:         serverDebug,
		CSTPrecedence: cstPrecedence,
	}

	srv, err := server.NewServer(config)
	if err != nil {
		return err
	}

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		os.Exit(0)
	}()

	fmt.Printf("Starting server on %s (data dir: %s)\n", serverAddr, dataDir)
	return srv.Run()
}
