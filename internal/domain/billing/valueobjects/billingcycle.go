package valueobjects

type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

func (c BillingCycle) String() string {
	return string(c)
}

func (c BillingCycle) IsValid() bool {
	return c == BillingCycleMonthly || c == BillingCycleYearly
}

// ParseBillingCycle accepts only the two supported cycles.
func ParseBillingCycle(s string) (BillingCycle, bool) {
	c := BillingCycle(s)
	return c, c.IsValid()
}
