// Package pricing computes order totals. All functions are pure: callers are
// responsible for clamping quantities to the allowed [0,5] range before
// calling, and the integer total is always computed in primary currency.
package pricing

import (
	"fmt"
	"math"

	"github.com/fairyhunter13/hosting-checkout/internal/model"
)

const (
	// BackupUnitPrice is the price of one additional backup slot, in rupees.
	BackupUnitPrice = 19
	// PortUnitPrice is the price of one additional network port, in rupees.
	PortUnitPrice = 9

	// exchangeRate converts rupees to the secondary display currency (USD).
	exchangeRate = 83.0
)

// ComputeTotal derives the final integer total for a plan with add-ons and
// an optional discount. Percent discounts round half-up; fixed discounts
// floor at zero. The result is never negative.
func ComputeTotal(plan *model.Plan, additionalBackups, additionalPorts int, discount *model.Discount) int {
	raw := plan.Price + additionalBackups*BackupUnitPrice + additionalPorts*PortUnitPrice

	total := raw
	if discount != nil {
		switch discount.Kind {
		case model.DiscountPercent:
			total = int(math.Floor(float64(raw)*(1-float64(discount.Amount)/100) + 0.5))
		case model.DiscountFixed:
			total = raw - discount.Amount
		}
	}

	if total < 0 {
		total = 0
	}
	return total
}

// ToSecondaryCurrency formats a rupee amount as its USD display value with
// exactly two decimal places. Display-only: nothing feeds back into totals.
func ToSecondaryCurrency(amount int) string {
	return fmt.Sprintf("%.2f", float64(amount)/exchangeRate)
}
