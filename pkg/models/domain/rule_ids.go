package domain

// Rule identifiers produced by the rules engine. Severity bands and
// narrative templates are keyed by these values.
const (
	RuleLeaseCliffRisk         = "LEASE_CLIFF_RISK"
	RuleRentProrationMismatch  = "RENT_PRORATION_MISMATCH"
	RuleConcessionMisaligned   = "CONCESSION_MISALIGNED"
	RuleExcessiveConcession    = "EXCESSIVE_CONCESSION"
	RuleMissingRecurringCharge = "MISSING_RECURRING_CHARGE"
	RuleFeeAmountMismatch      = "FEE_AMOUNT_MISMATCH"
	RuleDoubleDiscountRisk     = "DOUBLE_DISCOUNT_RISK"
)
