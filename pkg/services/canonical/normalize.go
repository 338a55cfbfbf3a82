// Package canonical validates ledger records against the common schema and
// normalizes raw charge labels into canonical categories. Every ingestion
// source must run its rows through this package before the audit pipeline
// sees them.
package canonical

import (
	"strings"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
	"github.com/vg-tools/ledger-audit/pkg/services/auditcfg"
)

// Normalizer resolves raw ledger labels against the configured mapping
// table. It fails closed: a label matching no mapping entry normalizes to
// CategoryOther and participates in no rule.
type Normalizer struct {
	categories map[domain.Category][]string
	feeLabels  map[string][]string
}

func NewNormalizer(cfg auditcfg.Config) *Normalizer {
	return &Normalizer{
		categories: cfg.CategoryMappings,
		feeLabels:  cfg.FeeLabels,
	}
}

// Category normalizes a raw charge description. Concession labels are
// matched first: a "Rent Concession" line is a concession, not rent.
func (n *Normalizer) Category(raw string) domain.Category {
	label := strings.ToLower(strings.TrimSpace(raw))
	if label == "" {
		return domain.CategoryOther
	}

	for _, cat := range []domain.Category{
		domain.CategoryConcession,
		domain.CategoryFee,
		domain.CategoryRent,
	} {
		for _, term := range n.categories[cat] {
			if strings.Contains(label, strings.ToLower(term)) {
				return cat
			}
		}
	}
	return domain.CategoryOther
}

// FeeName resolves a raw fee label to its fee-template name. The second
// return is false when the label matches no configured fee.
func (n *Normalizer) FeeName(raw string) (string, bool) {
	label := strings.ToLower(strings.TrimSpace(raw))
	for name, terms := range n.feeLabels {
		for _, term := range terms {
			if strings.Contains(label, strings.ToLower(term)) {
				return name, true
			}
		}
	}
	return "", false
}

// NormalizeTransaction fills the canonical Category and FeeName fields of a
// raw transaction from its description.
func (n *Normalizer) NormalizeTransaction(t domain.Transaction) domain.Transaction {
	t.Category = n.Category(t.Description)
	if t.Category == domain.CategoryFee {
		if name, ok := n.FeeName(t.Description); ok {
			t.FeeName = name
		}
	}
	return t
}

// employeeMarker prefixes a resident name to mark an employee unit on rent
// rolls that have no dedicated column.
const employeeMarker = "*"

// NormalizeUnit strips the employee marker from the resident name and sets
// the employee flag.
func NormalizeUnit(u domain.Unit) domain.Unit {
	if strings.HasPrefix(u.ResidentName, employeeMarker) {
		u.IsEmployeeUnit = true
		u.ResidentName = strings.TrimSpace(strings.TrimLeft(u.ResidentName, employeeMarker))
	}
	return u
}
