package model

import "time"

// Service is a bookable treatment.
type Service struct {
	ID             string          `json:"id"`
	ShopID         string          `json:"shop_id"`
	Name           string          `json:"name"`
	Duration       int             `json:"duration"`
	Price          float64         `json:"price"`
	PromotionPrice *float64        `json:"promotion_price,omitempty"`
	RequiresStaff  bool            `json:"requires_staff"`
	Options        []ServiceOption `json:"options,omitempty"`
	AddOns         []ServiceAddOn  `json:"add_ons,omitempty"`
}

// EffectivePrice returns the promotion price when present, else the base price.
func (s Service) EffectivePrice() float64 {
	if s.PromotionPrice != nil {
		return *s.PromotionPrice
	}
	return s.Price
}

// Option looks up an option by id.
func (s Service) Option(id string) (ServiceOption, bool) {
	for _, o := range s.Options {
		if o.ID == id {
			return o, true
		}
	}
	return ServiceOption{}, false
}

// AddOn looks up an add-on by id.
func (s Service) AddOn(id string) (ServiceAddOn, bool) {
	for _, a := range s.AddOns {
		if a.ID == id {
			return a, true
		}
	}
	return ServiceAddOn{}, false
}

// ServiceOption replaces the base duration and price of its service.
type ServiceOption struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Duration       int      `json:"duration"`
	Price          float64  `json:"price"`
	PromotionPrice *float64 `json:"promotion_price,omitempty"`
}

// EffectivePrice returns the promotion price when present, else the option price.
func (o ServiceOption) EffectivePrice() float64 {
	if o.PromotionPrice != nil {
		return *o.PromotionPrice
	}
	return o.Price
}

// ServiceAddOn adds duration and price on top of a service, multiplied by Quantity.
type ServiceAddOn struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Duration int     `json:"duration"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Units returns the multiplier, never less than one.
func (a ServiceAddOn) Units() int {
	if a.Quantity < 1 {
		return 1
	}
	return a.Quantity
}

// DiscountType selects how a promo computes its discount.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Promo is a discount code.
type Promo struct {
	Code             string       `json:"code"`
	ShopID           string       `json:"shop_id"`
	DiscountType     DiscountType `json:"discount_type"`
	DiscountValue    float64      `json:"discount_value"`
	MaxDiscount      *float64     `json:"max_discount,omitempty"`
	SpecificServices []string     `json:"specific_services,omitempty"`
	MinOrderAmount   float64      `json:"min_order_amount,omitempty"`
	ValidFrom        *time.Time   `json:"valid_from,omitempty"`
	ValidUntil       *time.Time   `json:"valid_until,omitempty"`
	UsageLimit       int          `json:"usage_limit,omitempty"`
	UsageCount       int          `json:"usage_count"`
	Active           bool         `json:"active"`
}

// AppliesTo reports whether serviceID is discountable under this promo.
func (p Promo) AppliesTo(serviceID string) bool {
	if len(p.SpecificServices) == 0 {
		return true
	}
	for _, id := range p.SpecificServices {
		if id == serviceID {
			return true
		}
	}
	return false
}
