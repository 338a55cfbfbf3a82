package main

import (
	"fmt"
	"net"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	findingshandlers "github.com/vg-tools/ledger-audit/pkg/handlers/findings"
	ledgerhandlers "github.com/vg-tools/ledger-audit/pkg/handlers/ledger"
	"github.com/vg-tools/ledger-audit/pkg/ingest/csvsource"
	"github.com/vg-tools/ledger-audit/pkg/server"
	"github.com/vg-tools/ledger-audit/pkg/services/audit"
	"github.com/vg-tools/ledger-audit/pkg/services/auditcfg"
	"github.com/vg-tools/ledger-audit/pkg/services/canonical"
	"github.com/vg-tools/ledger-audit/pkg/store/duckdb"
	duckdbfindings "github.com/vg-tools/ledger-audit/pkg/store/duckdb/findings"
)

var (
	cfgPath    string
	dbPath     string
	unitsPath  string
	txnsPath   string
	leasesPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "web",
		Short: "Start the findings review server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to the audit config YAML (defaults apply when omitted)")
	rootCmd.Flags().StringVar(&dbPath, "db", "ledger-audit.db", "DuckDB path for the findings store")
	rootCmd.Flags().StringVarP(&unitsPath, "units", "u", "", "Units CSV; with --transactions and --leases enables the aggregate and audit-run routes")
	rootCmd.Flags().StringVarP(&txnsPath, "transactions", "t", "", "Transactions CSV")
	rootCmd.Flags().StringVarP(&leasesPath, "leases", "l", "", "Leases CSV")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := auditcfg.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = auditcfg.LoadConfig(cfgPath); err != nil {
			return fmt.Errorf("failed to load audit config: %w", err)
		}
		logger.Info().Msgf("Configuration found at `%s` successfully loaded.", cfgPath)
	}

	db, err := duckdb.NewDB(duckdb.Settings{DbPath: dbPath})
	if err != nil {
		return fmt.Errorf("failed to open findings database: %w", err)
	}
	defer db.Close()

	store, err := duckdbfindings.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create findings store: %w", err)
	}

	deps := server.Dependencies{
		Findings: findingshandlers.NewHandler(store),
	}

	if unitsPath != "" && txnsPath != "" && leasesPath != "" {
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
		svc := audit.NewService(cfg, store)
		deps.Ledger = ledgerhandlers.NewHandler(svc, units, txns, leases)
		logger.Info().
			Int("units", len(units)).
			Int("transactions", len(txns)).
			Int("leases", len(leases)).
			Msg("dataset loaded")
	}

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")

	if host == "" || port == "" {
		logger.Error().Msgf("Missing server configuration from .env file")
		os.Exit(1)
	}

	api := server.NewWebAPI(logger, server.Config{
		Addr:         net.JoinHostPort(host, port),
		Dependencies: deps,
	})

	return api.Start()
}
