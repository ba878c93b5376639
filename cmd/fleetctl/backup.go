package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fleetbook/fleetbook/internal/backup"
)

func newBackupCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or restore the whole dataset",
	}

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write a backup workbook (.xlsx) or JSON bundle (.json)",
		Example: `  fleetctl backup export --out fleetbook-2026-10-16.xlsx
  fleetctl backup export --out - > fleetbook.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := deps.Backup(cmd.Context())
			if err != nil {
				return err
			}
			bundle, err := svc.Export(cmd.Context())
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if out == "-" {
				return writeBundle(cmd.OutOrStdout(), ".json", bundle)
			}
			if err := writeFile(out, bundle); err != nil {
				return err
			}
			stats := bundle.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d cars, %d customers, %d invoices, %d payments to %s\n",
				stats.Cars, stats.Customers, stats.Invoices, stats.Payments, out)
			return nil
		},
	}
	export.Flags().StringVar(&out, "out", "", "destination file; extension selects the format, - writes JSON to stdout")
	_ = export.MarkFlagRequired("out")

	var in string
	var yes bool
	restore := &cobra.Command{
		Use:   "import",
		Short: "Replace every record with the contents of a backup",
		Long: `Replace every record with the contents of a backup.

The current data is deleted before the backup is loaded. Balances, journal
entries and document counters are rebuilt from the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("import replaces all existing data; rerun with --yes to confirm")
			}
			bundle, err := readFile(in)
			if err != nil {
				return err
			}
			svc, err := deps.Backup(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := svc.Import(cmd.Context(), bundle)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d cars, %d employees, %d items, %d customers, %d invoices (%d lines), %d payments\n",
				stats.Cars, stats.Employees, stats.Items, stats.Customers, stats.Invoices, stats.InvoiceItems, stats.Payments)
			return nil
		},
	}
	restore.Flags().StringVar(&in, "in", "", "backup file (.xlsx or .json)")
	restore.Flags().BoolVar(&yes, "yes", false, "confirm that existing data may be replaced")
	_ = restore.MarkFlagRequired("in")

	cmd.AddCommand(export, restore)
	return cmd
}

func format(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx", ".json":
		return ext, nil
	default:
		return "", fmt.Errorf("unsupported backup format %q, use .xlsx or .json", ext)
	}
}

func writeFile(path string, b backup.Bundle) (err error) {
	ext, err := format(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return writeBundle(f, ext, b)
}

func writeBundle(w io.Writer, ext string, b backup.Bundle) error {
	if ext == ".xlsx" {
		return backup.WriteWorkbook(w, b)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

func readFile(path string) (backup.Bundle, error) {
	ext, err := format(path)
	if err != nil {
		return backup.Bundle{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return backup.Bundle{}, err
	}
	defer func() { _ = f.Close() }()
	if ext == ".xlsx" {
		return backup.ReadWorkbook(f)
	}
	var b backup.Bundle
	if err := json.NewDecoder(f).Decode(&b); err != nil {
		return backup.Bundle{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return b, nil
}
