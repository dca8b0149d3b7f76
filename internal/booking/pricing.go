package booking

import (
	"math"

	"slotbook/internal/cart"
	"slotbook/internal/model"
)

// Round2 rounds half away from zero to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Subtotal sums effective price plus add-ons over every guest service.
func Subtotal(guests []cart.Guest) float64 {
	total := 0.0
	for _, g := range guests {
		for _, s := range g.Services {
			total += s.TotalPrice
		}
	}
	return Round2(total)
}

// discountableBase sums the lines the promo applies to.
func discountableBase(p model.Promo, guests []cart.Guest) float64 {
	base := 0.0
	for _, g := range guests {
		for _, s := range g.Services {
			if p.AppliesTo(s.Service.ID) {
				base += s.TotalPrice
			}
		}
	}
	return Round2(base)
}

// PromoDiscount computes the discount of p over the cart's lines. The result never
// exceeds MaxDiscount when set, nor the discountable base.
func PromoDiscount(p model.Promo, guests []cart.Guest) float64 {
	base := discountableBase(p, guests)
	if base <= 0 {
		return 0
	}

	var discount float64
	switch p.DiscountType {
	case model.DiscountPercentage:
		discount = base * p.DiscountValue / 100
	case model.DiscountFixed:
		discount = p.DiscountValue
	}

	if p.MaxDiscount != nil && discount > *p.MaxDiscount {
		discount = *p.MaxDiscount
	}
	discount = min(discount, base)
	return Round2(max(discount, 0))
}

// Total is subtotal minus discount, floored at zero.
func Total(subtotal, discount float64) float64 {
	return Round2(max(subtotal-discount, 0))
}

// Deposit is what an online payer owes up front. The flat deposit discount is
// reported separately and never pushes the amount below zero.
type Deposit struct {
	Required bool
	Amount   float64
	Discount float64
}

// ComputeDeposit applies the shop's deposit rules to total. Deposits only apply
// to online payment with deposits enabled.
func ComputeDeposit(total float64, cal model.CalendarSettings, method model.PaymentMethod) Deposit {
	if method != model.PaymentOnline || !cal.DepositEnabled {
		return Deposit{}
	}
	amount := Round2(total * cal.DepositPercentage / 100)
	discount := Round2(min(max(cal.DepositDiscountAmount, 0), amount))
	return Deposit{
		Required: true,
		Amount:   Round2(amount - discount),
		Discount: discount,
	}
}
