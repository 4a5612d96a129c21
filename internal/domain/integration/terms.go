package integration

import "time"

// DateLayout is the calendar date format used by the billing platform
const DateLayout = "2006-01-02"

// TermPolicy is the subscription term applied to every account signup and
// every subscription created from an order.
type TermPolicy struct {
	PeriodMonths   int
	AutoRenew      bool
	TermType       string
	RenewalSetting string
}

// DefaultTermPolicy is a six month, non auto-renewing term renewed with the same length.
func DefaultTermPolicy() TermPolicy {
	return TermPolicy{
		PeriodMonths:   6,
		AutoRenew:      false,
		TermType:       "TERMED",
		RenewalSetting: "RENEW_WITH_SPECIFIC_TERM",
	}
}

// Terms renders the policy as a billing subscription term starting on start.
func (p TermPolicy) Terms(start time.Time) SubscriptionTerms {
	return SubscriptionTerms{
		AutoRenew: p.AutoRenew,
		InitialTerm: InitialTerm{
			Period:     p.PeriodMonths,
			PeriodType: BillingPeriodMonth,
			StartDate:  start.Format(DateLayout),
			TermType:   p.TermType,
		},
		RenewalSetting: p.RenewalSetting,
		RenewalTerms: []RenewalTerm{
			{Period: p.PeriodMonths, PeriodType: BillingPeriodMonth},
		},
	}
}
