package explain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
)

func amount(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func finding(ruleID string, evidence domain.Evidence) *domain.Finding {
	return &domain.Finding{
		ID:       "f1",
		UnitID:   "U7",
		RuleID:   ruleID,
		Month:    domain.NewYearMonth(2024, time.March),
		Delta:    amount(25),
		Evidence: evidence,
	}
}

func TestExplain_LeaseCliff(t *testing.T) {
	f := finding(domain.RuleLeaseCliffRisk, domain.Evidence{
		"prev_month": "2024-02",
		"prev_net":   amount(1000),
		"curr_net":   amount(750),
		"drop_pct":   amount(25),
	})

	Explain(f)

	assert.False(t, f.EvidenceIncomplete)
	assert.Contains(t, f.Narrative, "unit U7")
	assert.Contains(t, f.Narrative, "$1000.00")
	assert.Contains(t, f.Narrative, "$750.00")
	assert.Contains(t, f.Narrative, "2024-02")
	assert.Contains(t, f.Narrative, "Mar 2024")
	assert.Contains(t, f.Narrative, "25.0%")
}

func TestExplain_FeeMismatch(t *testing.T) {
	f := finding(domain.RuleFeeAmountMismatch, domain.Evidence{
		"fee_type":        "Valet Trash",
		"expected_amount": amount(35),
		"actual_amount":   amount(45),
	})

	Explain(f)

	assert.False(t, f.EvidenceIncomplete)
	assert.Contains(t, f.Narrative, `"Valet Trash"`)
	assert.Contains(t, f.Narrative, "$35.00")
	assert.Contains(t, f.Narrative, "$45.00")
}

func TestExplain_DoubleDiscount(t *testing.T) {
	f := finding(domain.RuleDoubleDiscountRisk, domain.Evidence{
		"resident_name":     "Dana Whitfield",
		"concession_count":  2,
		"total_concessions": amount(450),
	})

	Explain(f)

	assert.False(t, f.EvidenceIncomplete)
	assert.Contains(t, f.Narrative, "Dana Whitfield")
	assert.Contains(t, f.Narrative, "2 concession(s)")
	assert.Contains(t, f.Narrative, "$450.00")
}

func TestExplain_ExcessiveConcession(t *testing.T) {
	f := finding(domain.RuleExcessiveConcession, domain.Evidence{
		"rent":       amount(1000),
		"concession": amount(600),
		"ratio":      amount(0.6),
	})

	Explain(f)

	assert.False(t, f.EvidenceIncomplete)
	assert.Contains(t, f.Narrative, "60% of rent")
}

// Missing evidence keys degrade the narrative instead of failing.
func TestExplain_IncompleteEvidence(t *testing.T) {
	f := finding(domain.RuleLeaseCliffRisk, domain.Evidence{
		"prev_month": "2024-02",
	})

	Explain(f)

	assert.True(t, f.EvidenceIncomplete)
	assert.Contains(t, f.Narrative, "incomplete")
	assert.Contains(t, f.Narrative, domain.RuleLeaseCliffRisk)
}

func TestExplain_UnknownRule(t *testing.T) {
	f := finding("SOME_FUTURE_RULE", domain.Evidence{})

	Explain(f)

	assert.True(t, f.EvidenceIncomplete)
	assert.Contains(t, f.Narrative, "SOME_FUTURE_RULE")
}

// Evidence round-tripped through JSON comes back as float64 and string
// values; the reader must still produce the full narrative.
func TestExplain_JSONDecodedEvidence(t *testing.T) {
	f := finding(domain.RuleConcessionMisaligned, domain.Evidence{
		"concession_amount": "200",
		"offset_months":     float64(3),
	})

	Explain(f)

	assert.False(t, f.EvidenceIncomplete)
	assert.Contains(t, f.Narrative, "$200.00")
	assert.Contains(t, f.Narrative, "3 month(s)")
}

func TestExplainAll(t *testing.T) {
	findings := []domain.Finding{
		*finding(domain.RuleMissingRecurringCharge, domain.Evidence{
			"fee_type":        "Trash",
			"expected_amount": amount(10),
		}),
		*finding(domain.RuleRentProrationMismatch, domain.Evidence{
			"expected_rent": amount(1000),
			"actual_rent":   amount(900),
			"is_lease_edge": false,
		}),
	}

	out := ExplainAll(findings)
	require.Len(t, out, 2)
	for _, f := range out {
		assert.NotEmpty(t, f.Narrative)
		assert.False(t, f.EvidenceIncomplete)
	}
	assert.Contains(t, out[1].Narrative, "$100.00")
}
