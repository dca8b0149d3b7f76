package booking

import (
	"slotbook/internal/cart"
	"slotbook/internal/model"
)

// CartSummary is derived from a cart on demand and never stored.
type CartSummary struct {
	ServiceCount    int     `json:"service_count"`
	GuestCount      int     `json:"guest_count"`
	Subtotal        float64 `json:"subtotal"`
	PromoDiscount   float64 `json:"promo_discount"`
	DepositDiscount float64 `json:"deposit_discount"`
	Total           float64 `json:"total"`
	TotalDuration   int     `json:"total_duration"`
	DepositAmount   float64 `json:"deposit_amount"`
	Savings         float64 `json:"savings"`
}

// Summarize prices c. promo is applied as given; eligibility is checked by CheckPromo.
func Summarize(c cart.Cart, promo *model.Promo, cal model.CalendarSettings, method model.PaymentMethod) CartSummary {
	guests := c.Guests()
	subtotal := Subtotal(guests)

	discount := 0.0
	if promo != nil {
		discount = PromoDiscount(*promo, guests)
	}
	total := Total(subtotal, discount)
	deposit := ComputeDeposit(total, cal, method)

	return CartSummary{
		ServiceCount:    c.ServiceCount(),
		GuestCount:      c.GuestCount(),
		Subtotal:        subtotal,
		PromoDiscount:   discount,
		DepositDiscount: deposit.Discount,
		Total:           total,
		TotalDuration:   c.TotalDuration(),
		DepositAmount:   deposit.Amount,
		Savings:         Round2(promotionSavings(guests) + discount),
	}
}

// promotionSavings is the regular price minus the promotion price over lines that have one.
func promotionSavings(guests []cart.Guest) float64 {
	saved := 0.0
	for _, g := range guests {
		for _, s := range g.Services {
			regular, promo := s.Service.Price, s.Service.PromotionPrice
			if s.Option != nil {
				regular, promo = s.Option.Price, s.Option.PromotionPrice
			}
			if promo != nil && *promo < regular {
				saved += regular - *promo
			}
		}
	}
	return saved
}
