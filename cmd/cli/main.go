package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vg-tools/ledger-audit/pkg/handlers/ledger"
	"github.com/vg-tools/ledger-audit/pkg/ingest/csvsource"
	"github.com/vg-tools/ledger-audit/pkg/models/domain"
	"github.com/vg-tools/ledger-audit/pkg/runtime/terminal"
	"github.com/vg-tools/ledger-audit/pkg/runtime/terminal/export"
	"github.com/vg-tools/ledger-audit/pkg/services/audit"
	"github.com/vg-tools/ledger-audit/pkg/services/auditcfg"
	"github.com/vg-tools/ledger-audit/pkg/services/canonical"
	"github.com/vg-tools/ledger-audit/pkg/store/duckdb"
	duckdbfindings "github.com/vg-tools/ledger-audit/pkg/store/duckdb/findings"
	findingsstore "github.com/vg-tools/ledger-audit/pkg/store/findings"
)

var (
	unitsPath  string
	txnsPath   string
	leasesPath string
	cfgPath    string
	fromMonth  string
	toMonth    string
	dbPath     string
	asJSON     bool
	asTable    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ledger-audit",
		Short: "Audit a recurring-transaction ledger for revenue risks",
		RunE:  runAudit,
	}

	rootCmd.Flags().StringVarP(&unitsPath, "units", "u", "", "Path to the units CSV file")
	rootCmd.Flags().StringVarP(&txnsPath, "transactions", "t", "", "Path to the transactions CSV file")
	rootCmd.Flags().StringVarP(&leasesPath, "leases", "l", "", "Path to the leases CSV file")
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to the audit config YAML (defaults apply when omitted)")
	rootCmd.Flags().StringVar(&fromMonth, "from", "", "First month of the window (YYYY-MM, defaults to earliest transaction)")
	rootCmd.Flags().StringVar(&toMonth, "to", "", "Last month of the window (YYYY-MM, defaults to latest transaction)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "DuckDB path for persisting findings (no persistence when omitted)")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "Emit findings as JSON")
	rootCmd.Flags().BoolVar(&asTable, "table", false, "Render the report as a bordered table")

	_ = rootCmd.MarkFlagRequired("units")
	_ = rootCmd.MarkFlagRequired("transactions")
	_ = rootCmd.MarkFlagRequired("leases")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAudit(cmd *cobra.Command, _ []string) error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg := auditcfg.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = auditcfg.LoadConfig(cfgPath); err != nil {
			return err
		}
	}

	normalizer := canonical.NewNormalizer(cfg)
	units, err := csvsource.ReadUnits(unitsPath)
	if err != nil {
		return err
	}
	txns, err := csvsource.ReadTransactions(txnsPath, normalizer)
	if err != nil {
		return err
	}
	leases, err := csvsource.ReadLeases(leasesPath)
	if err != nil {
		return err
	}

	window := ledger.DatasetWindow(txns)
	if fromMonth != "" {
		if window.Start, err = domain.ParseYearMonth(fromMonth); err != nil {
			return err
		}
	}
	if toMonth != "" {
		if window.End, err = domain.ParseYearMonth(toMonth); err != nil {
			return err
		}
	}

	var store findingsstore.Store
	if dbPath != "" {
		db, err := duckdb.NewDB(duckdb.Settings{DbPath: dbPath})
		if err != nil {
			return fmt.Errorf("failed to open findings database: %w", err)
		}
		defer db.Close()
		if store, err = duckdbfindings.NewStore(db); err != nil {
			return err
		}
	}

	svc := audit.NewService(cfg, store)
	result, err := svc.Run(ctx, units, txns, leases, window)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Findings)
	}

	report := audit.BuildReport(result, window)
	if asTable {
		if err := export.NewReporter(os.Stdout).Handle(&report); err != nil {
			return err
		}
	} else {
		if err := terminal.NewReporter(os.Stdout).Handle(&report); err != nil {
			return err
		}
	}

	if store != nil {
		fmt.Printf("%d finding(s) newly persisted\n", result.Merged)
	}
	return nil
}
