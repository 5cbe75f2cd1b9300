package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the trade history",
	Long: `Export the trade history for spreadsheets or backup.

Subcommands:
  trades  - trade history as CSV
  sales   - partial-sale history as CSV
  backup  - full session as JSON (restorable via import)

Examples:
  tradeplanner export trades -o trades.csv
  tradeplanner export backup -o session.json`,
}

var exportTradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Export trades as CSV",
	Args:  cobra.NoArgs,
	RunE:  runExportTrades,
}

var exportSalesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Export partial sales as CSV",
	Args:  cobra.NoArgs,
	RunE:  runExportSales,
}

var exportBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export a JSON backup of the session",
	Args:  cobra.NoArgs,
	RunE:  runExportBackup,
}

var importCmd = &cobra.Command{
	Use:   "import <backup.json>",
	Short: "Restore a session from a JSON backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var exportOut string

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	exportCmd.AddCommand(exportTradesCmd)
	exportCmd.AddCommand(exportSalesCmd)
	exportCmd.AddCommand(exportBackupCmd)

	exportCmd.PersistentFlags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
}

// outWriter opens the --out file, or falls back to stdout.
func outWriter() (*os.File, func(), error) {
	if exportOut == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(exportOut)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func runExportTrades(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	w, done, err := outWriter()
	if err != nil {
		return err
	}
	defer done()
	return svc.ExportTradesCSV(ctx, w)
}

func runExportSales(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	w, done, err := outWriter()
	if err != nil {
		return err
	}
	defer done()
	return svc.ExportPartialSalesCSV(ctx, w)
}

func runExportBackup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	w, done, err := outWriter()
	if err != nil {
		return err
	}
	defer done()
	return svc.ExportBackup(ctx, w)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening backup file: %w", err)
	}
	defer f.Close()

	n, err := svc.ImportBackup(ctx, f)
	if err != nil {
		return err
	}
	fmt.Printf("Restored %d trades\n", n)
	return nil
}
