// Package auditcfg holds the configuration surface consumed by the audit
// core: the recurring fee template, the category mapping table and the
// severity bands. Configuration is data passed into constructors, never
// read from ambient globals, so distinct rule sets can run side by side.
package auditcfg

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
)

// Config is the resolved configuration for one property / tenant.
type Config struct {
	// FeeTemplate maps a fee name to its expected monthly amount.
	FeeTemplate map[string]decimal.Decimal
	// CategoryMappings maps a canonical category to the raw ledger labels
	// that normalize into it.
	CategoryMappings map[domain.Category][]string
	// FeeLabels maps a fee-template name to the raw labels recognized as
	// that fee.
	FeeLabels map[string][]string
	// SeverityBands maps a rule id to its fixed severity. Rules absent
	// from the map are banded by the detector's defaults.
	SeverityBands map[string]domain.Severity

	// Rule thresholds.
	LeaseCliffThreshold          decimal.Decimal // fraction, default 0.20
	ExcessiveConcessionThreshold decimal.Decimal // fraction of rent, default 0.50
	FeeTolerance                 decimal.Decimal // default 0.01
	RentTolerance                decimal.Decimal // default 1.00
}

// fileConfig is the on-disk shape; amounts are plain decimals in YAML.
type fileConfig struct {
	FeeTemplate                  map[string]float64  `mapstructure:"fee_template"`
	CategoryMappings             map[string][]string `mapstructure:"category_mappings"`
	FeeLabels                    map[string][]string `mapstructure:"fee_labels"`
	SeverityBands                map[string]string   `mapstructure:"severity_bands"`
	LeaseCliffThreshold          float64             `mapstructure:"lease_cliff_threshold"`
	ExcessiveConcessionThreshold float64             `mapstructure:"excessive_concession_threshold"`
	FeeTolerance                 float64             `mapstructure:"fee_tolerance"`
	RentTolerance                float64             `mapstructure:"rent_tolerance"`
}

// Default returns the standard Village Green configuration.
func Default() Config {
	return Config{
		FeeTemplate: map[string]decimal.Decimal{
			"Billing Fee":    decimal.NewFromFloat(5.00),
			"Cable":          decimal.NewFromFloat(55.00),
			"CAM":            decimal.NewFromFloat(10.00),
			"HOA":            decimal.NewFromFloat(2.50),
			"Trash":          decimal.NewFromFloat(10.00),
			"Valet Trash":    decimal.NewFromFloat(35.00),
			"Package Locker": decimal.NewFromFloat(9.00),
			"Pest Control":   decimal.NewFromFloat(8.00),
		},
		CategoryMappings: map[domain.Category][]string{
			domain.CategoryRent:       {"Rent", "Base Rent", "Monthly Rent"},
			domain.CategoryConcession: {"Concession", "Discount", "Credit", "Adjustment"},
			domain.CategoryFee: {
				"Billing Fee", "Cable", "CAM", "HOA", "Trash",
				"Valet Trash", "Package Locker", "Pest Control",
			},
		},
		FeeLabels: map[string][]string{
			"Billing Fee":    {"Billing Fee", "Billing"},
			"Cable":          {"Cable", "Cable TV"},
			"CAM":            {"CAM"},
			"HOA":            {"HOA"},
			"Trash":          {"Trash"},
			"Valet Trash":    {"Valet Trash"},
			"Package Locker": {"Package Locker", "Locker"},
			"Pest Control":   {"Pest Control", "Pest"},
		},
		SeverityBands: map[string]domain.Severity{
			domain.RuleDoubleDiscountRisk:     domain.SeverityCritical,
			domain.RuleExcessiveConcession:    domain.SeverityHigh,
			domain.RuleConcessionMisaligned:   domain.SeverityMedium,
			domain.RuleRentProrationMismatch:  domain.SeverityMedium,
			domain.RuleFeeAmountMismatch:      domain.SeverityLow,
			domain.RuleMissingRecurringCharge: domain.SeverityLow,
		},
		LeaseCliffThreshold:          decimal.NewFromFloat(0.20),
		ExcessiveConcessionThreshold: decimal.NewFromFloat(0.50),
		FeeTolerance:                 decimal.NewFromFloat(0.01),
		RentTolerance:                decimal.NewFromFloat(1.00),
	}
}

// LoadConfig reads a YAML config file and overlays it on the defaults.
// Sections absent from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return Config{}, fmt.Errorf("failed to parse audit config: %w", err)
	}

	cfg := Default()

	if len(fc.FeeTemplate) > 0 {
		cfg.FeeTemplate = make(map[string]decimal.Decimal, len(fc.FeeTemplate))
		for name, amount := range fc.FeeTemplate {
			cfg.FeeTemplate[name] = decimal.NewFromFloat(amount)
		}
	}
	if len(fc.CategoryMappings) > 0 {
		cfg.CategoryMappings = make(map[domain.Category][]string, len(fc.CategoryMappings))
		for cat, labels := range fc.CategoryMappings {
			cfg.CategoryMappings[domain.Category(cat)] = labels
		}
	}
	if len(fc.FeeLabels) > 0 {
		cfg.FeeLabels = fc.FeeLabels
	}
	if len(fc.SeverityBands) > 0 {
		cfg.SeverityBands = make(map[string]domain.Severity, len(fc.SeverityBands))
		for ruleID, sev := range fc.SeverityBands {
			cfg.SeverityBands[ruleID] = domain.ParseSeverity(sev)
		}
	}
	if fc.LeaseCliffThreshold > 0 {
		cfg.LeaseCliffThreshold = decimal.NewFromFloat(fc.LeaseCliffThreshold)
	}
	if fc.ExcessiveConcessionThreshold > 0 {
		cfg.ExcessiveConcessionThreshold = decimal.NewFromFloat(fc.ExcessiveConcessionThreshold)
	}
	if fc.FeeTolerance > 0 {
		cfg.FeeTolerance = decimal.NewFromFloat(fc.FeeTolerance)
	}
	if fc.RentTolerance > 0 {
		cfg.RentTolerance = decimal.NewFromFloat(fc.RentTolerance)
	}

	return cfg, nil
}
