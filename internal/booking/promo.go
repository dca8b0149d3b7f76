package booking

import (
	"fmt"
	"strings"
	"time"

	"slotbook/internal/model"
)

// Promo rejection reasons.
const (
	ReasonPromoNotFound      = "promo code not found"
	ReasonPromoInactive      = "promo code is inactive"
	ReasonPromoNotYetValid   = "promo code is not yet valid"
	ReasonPromoExpired       = "promo code expired"
	ReasonPromoUsageExceeded = "promo code usage limit reached"
	ReasonPromoNotApplicable = "promo code not applicable to selected services"
)

// NormalizeCode trims and upper-cases a promo code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CheckPromo returns the reasons p cannot be applied to an order. A nil promo is not found.
func CheckPromo(p *model.Promo, subtotal float64, serviceIDs []string, now time.Time) []string {
	if p == nil {
		return []string{ReasonPromoNotFound}
	}

	var reasons []string
	if !p.Active {
		reasons = append(reasons, ReasonPromoInactive)
	}
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		reasons = append(reasons, ReasonPromoNotYetValid)
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		reasons = append(reasons, ReasonPromoExpired)
	}
	if p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit {
		reasons = append(reasons, ReasonPromoUsageExceeded)
	}
	if p.MinOrderAmount > 0 && subtotal < p.MinOrderAmount {
		reasons = append(reasons, fmt.Sprintf("minimum order of %.2f not reached", p.MinOrderAmount))
	}
	if len(p.SpecificServices) > 0 {
		applies := false
		for _, id := range serviceIDs {
			if p.AppliesTo(id) {
				applies = true
				break
			}
		}
		if !applies {
			reasons = append(reasons, ReasonPromoNotApplicable)
		}
	}
	return reasons
}
