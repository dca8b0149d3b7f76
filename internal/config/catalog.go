package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"slotbook/internal/model"
	"slotbook/internal/timeutil"
)

// Catalog is the shop/staff/service definition file synced into the database on start.
type Catalog struct {
	Shops []ShopConfig `yaml:"shops"`
}

type ShopConfig struct {
	ID                 string              `yaml:"id"`
	Name               string              `yaml:"name"`
	ConnectedAccountID string              `yaml:"connected_account_id"`
	Hours              map[string][]string `yaml:"hours"`
	Calendar           *CalendarConfig     `yaml:"calendar"`
	Staff              []StaffConfig       `yaml:"staff"`
	Services           []ServiceConfig     `yaml:"services"`
	Promos             []PromoConfig       `yaml:"promos"`
	TimeOffs           []TimeOffConfig     `yaml:"time_offs"`
}

type CalendarConfig struct {
	IntervalMinutes       int     `yaml:"interval_minutes"`
	Timezone              string  `yaml:"timezone"`
	AdvanceNoticeHours    int     `yaml:"advance_notice_hours"`
	MaxBookingHorizonDays int     `yaml:"max_booking_horizon_days"`
	DepositEnabled        bool    `yaml:"deposit_enabled"`
	DepositPercentage     float64 `yaml:"deposit_percentage"`
	DepositDiscountAmount float64 `yaml:"deposit_discount_amount"`
	RefundDeadlineHours   int     `yaml:"refund_deadline_hours"`
	AutoConfirm           bool    `yaml:"auto_confirm"`
}

type StaffConfig struct {
	ID       string              `yaml:"id"`
	Name     string              `yaml:"name"`
	Services []string            `yaml:"services"`
	Hours    map[string][]string `yaml:"hours"` // falls back to shop hours
}

type ServiceConfig struct {
	ID             string         `yaml:"id"`
	Name           string         `yaml:"name"`
	Duration       int            `yaml:"duration"`
	Price          float64        `yaml:"price"`
	PromotionPrice *float64       `yaml:"promotion_price"`
	RequiresStaff  bool           `yaml:"requires_staff"`
	Options        []OptionConfig `yaml:"options"`
	AddOns         []AddOnConfig  `yaml:"add_ons"`
}

type OptionConfig struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Duration       int      `yaml:"duration"`
	Price          float64  `yaml:"price"`
	PromotionPrice *float64 `yaml:"promotion_price"`
}

type AddOnConfig struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Duration int     `yaml:"duration"`
	Price    float64 `yaml:"price"`
}

type PromoConfig struct {
	Code             string   `yaml:"code"`
	DiscountType     string   `yaml:"discount_type"`
	DiscountValue    float64  `yaml:"discount_value"`
	MaxDiscount      *float64 `yaml:"max_discount"`
	SpecificServices []string `yaml:"specific_services"`
	MinOrderAmount   float64  `yaml:"min_order_amount"`
	ValidFrom        string   `yaml:"valid_from"`
	ValidUntil       string   `yaml:"valid_until"`
	UsageLimit       int      `yaml:"usage_limit"`
	Active           *bool    `yaml:"active"`
}

type TimeOffConfig struct {
	ID        string `yaml:"id"`
	StaffID   string `yaml:"staff_id"`
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
	Hours     string `yaml:"hours"` // "HH:MM-HH:MM", empty for whole days
	Reason    string `yaml:"reason"`
}

// ShopBundle is one shop converted to domain types.
type ShopBundle struct {
	Shop     model.Shop
	Staff    []model.StaffMember
	Services []model.Service
	Promos   []model.Promo
	TimeOffs []model.TimeOff
}

// LoadCatalog reads, validates and applies defaults to a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog([]byte(os.ExpandEnv(string(data))))
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

// Validate checks ids, clock strings and references between sections.
func (c *Catalog) Validate() error {
	shopIDs := map[string]struct{}{}
	for i, s := range c.Shops {
		if s.ID == "" {
			return fmt.Errorf("shop[%d]: id is required", i)
		}
		if _, ok := shopIDs[s.ID]; ok {
			return fmt.Errorf("shop[%d]: duplicate id %s", i, s.ID)
		}
		shopIDs[s.ID] = struct{}{}

		if _, err := parseHours(s.Hours); err != nil {
			return fmt.Errorf("shop %s: %w", s.ID, err)
		}
		if s.Calendar != nil {
			if s.Calendar.IntervalMinutes < 0 {
				return fmt.Errorf("shop %s: interval_minutes must be positive", s.ID)
			}
			if s.Calendar.DepositPercentage < 0 || s.Calendar.DepositPercentage > 100 {
				return fmt.Errorf("shop %s: deposit_percentage must be within 0..100", s.ID)
			}
		}

		serviceIDs := map[string]struct{}{}
		for j, svc := range s.Services {
			if svc.ID == "" {
				return fmt.Errorf("shop %s: service[%d]: id is required", s.ID, j)
			}
			if _, ok := serviceIDs[svc.ID]; ok {
				return fmt.Errorf("shop %s: service[%d]: duplicate id %s", s.ID, j, svc.ID)
			}
			serviceIDs[svc.ID] = struct{}{}
			if svc.Duration < 0 || svc.Price < 0 {
				return fmt.Errorf("shop %s: service %s: duration and price must not be negative", s.ID, svc.ID)
			}
		}

		staffIDs := map[string]struct{}{}
		for j, m := range s.Staff {
			if m.ID == "" {
				return fmt.Errorf("shop %s: staff[%d]: id is required", s.ID, j)
			}
			if _, ok := staffIDs[m.ID]; ok {
				return fmt.Errorf("shop %s: staff[%d]: duplicate id %s", s.ID, j, m.ID)
			}
			staffIDs[m.ID] = struct{}{}
			for _, id := range m.Services {
				if _, ok := serviceIDs[id]; !ok {
					return fmt.Errorf("shop %s: staff %s: unknown service %s", s.ID, m.ID, id)
				}
			}
			if _, err := parseHours(m.Hours); err != nil {
				return fmt.Errorf("shop %s: staff %s: %w", s.ID, m.ID, err)
			}
		}

		codes := map[string]struct{}{}
		for j, p := range s.Promos {
			code := strings.ToUpper(strings.TrimSpace(p.Code))
			if code == "" {
				return fmt.Errorf("shop %s: promo[%d]: code is required", s.ID, j)
			}
			if _, ok := codes[code]; ok {
				return fmt.Errorf("shop %s: promo[%d]: duplicate code %s", s.ID, j, code)
			}
			codes[code] = struct{}{}
			switch model.DiscountType(p.DiscountType) {
			case model.DiscountPercentage, model.DiscountFixed, "":
			default:
				return fmt.Errorf("shop %s: promo %s: unknown discount_type %q", s.ID, code, p.DiscountType)
			}
			if _, err := optionalDate(p.ValidFrom); err != nil {
				return fmt.Errorf("shop %s: promo %s: valid_from: %w", s.ID, code, err)
			}
			if _, err := optionalDate(p.ValidUntil); err != nil {
				return fmt.Errorf("shop %s: promo %s: valid_until: %w", s.ID, code, err)
			}
		}

		for j, t := range s.TimeOffs {
			if _, ok := staffIDs[t.StaffID]; !ok {
				return fmt.Errorf("shop %s: time_off[%d]: unknown staff %s", s.ID, j, t.StaffID)
			}
			start, err := timeutil.ParseDate(t.StartDate)
			if err != nil {
				return fmt.Errorf("shop %s: time_off[%d]: start_date: %w", s.ID, j, err)
			}
			end := start
			if t.EndDate != "" {
				if end, err = timeutil.ParseDate(t.EndDate); err != nil {
					return fmt.Errorf("shop %s: time_off[%d]: end_date: %w", s.ID, j, err)
				}
			}
			if end.Before(start) {
				return fmt.Errorf("shop %s: time_off[%d]: end_date before start_date", s.ID, j)
			}
			if t.Hours != "" {
				if _, err := parseRange(t.Hours); err != nil {
					return fmt.Errorf("shop %s: time_off[%d]: %w", s.ID, j, err)
				}
			}
		}
	}
	return nil
}

func (c *Catalog) applyDefaults() {
	for i := range c.Shops {
		s := &c.Shops[i]
		if s.Name == "" {
			s.Name = s.ID
		}
		if s.Calendar != nil {
			if s.Calendar.IntervalMinutes == 0 {
				s.Calendar.IntervalMinutes = 30
			}
			if s.Calendar.Timezone == "" {
				s.Calendar.Timezone = "UTC"
			}
		}
		for j := range s.Staff {
			if len(s.Staff[j].Hours) == 0 {
				s.Staff[j].Hours = s.Hours
			}
			if s.Staff[j].Name == "" {
				s.Staff[j].Name = s.Staff[j].ID
			}
		}
		for j := range s.Services {
			if s.Services[j].Name == "" {
				s.Services[j].Name = s.Services[j].ID
			}
		}
		for j := range s.Promos {
			p := &s.Promos[j]
			p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
			if p.DiscountType == "" {
				p.DiscountType = string(model.DiscountPercentage)
			}
			if p.Active == nil {
				active := true
				p.Active = &active
			}
		}
		for j := range s.TimeOffs {
			t := &s.TimeOffs[j]
			if t.EndDate == "" {
				t.EndDate = t.StartDate
			}
			if t.ID == "" {
				t.ID = fmt.Sprintf("%s-%s-%d", t.StaffID, t.StartDate, j)
			}
		}
	}
}

// Bundles converts the validated catalog into domain types.
func (c *Catalog) Bundles() []ShopBundle {
	out := make([]ShopBundle, 0, len(c.Shops))
	for _, s := range c.Shops {
		out = append(out, s.bundle())
	}
	return out
}

func (s ShopConfig) bundle() ShopBundle {
	hours, _ := parseHours(s.Hours)
	b := ShopBundle{
		Shop: model.Shop{
			ID:                 s.ID,
			Name:               s.Name,
			Schedule:           hours,
			ConnectedAccountID: s.ConnectedAccountID,
		},
	}
	if cal := s.Calendar; cal != nil {
		b.Shop.Calendar = &model.CalendarSettings{
			IntervalMinutes:       cal.IntervalMinutes,
			Timezone:              cal.Timezone,
			AdvanceNoticeHours:    cal.AdvanceNoticeHours,
			MaxBookingHorizonDays: cal.MaxBookingHorizonDays,
			DepositEnabled:        cal.DepositEnabled,
			DepositPercentage:     cal.DepositPercentage,
			DepositDiscountAmount: cal.DepositDiscountAmount,
			RefundDeadlineHours:   cal.RefundDeadlineHours,
			AutoConfirm:           cal.AutoConfirm,
		}
	}

	for _, m := range s.Staff {
		schedule, _ := parseHours(m.Hours)
		b.Staff = append(b.Staff, model.StaffMember{
			ID:         m.ID,
			ShopID:     s.ID,
			Name:       m.Name,
			ServiceIDs: append([]string(nil), m.Services...),
			Schedule:   schedule,
		})
	}

	for _, svc := range s.Services {
		ms := model.Service{
			ID:             svc.ID,
			ShopID:         s.ID,
			Name:           svc.Name,
			Duration:       svc.Duration,
			Price:          svc.Price,
			PromotionPrice: svc.PromotionPrice,
			RequiresStaff:  svc.RequiresStaff,
		}
		for _, o := range svc.Options {
			ms.Options = append(ms.Options, model.ServiceOption{
				ID: o.ID, Name: o.Name, Duration: o.Duration, Price: o.Price, PromotionPrice: o.PromotionPrice,
			})
		}
		for _, a := range svc.AddOns {
			ms.AddOns = append(ms.AddOns, model.ServiceAddOn{
				ID: a.ID, Name: a.Name, Duration: a.Duration, Price: a.Price, Quantity: 1,
			})
		}
		b.Services = append(b.Services, ms)
	}

	for _, p := range s.Promos {
		from, _ := optionalDate(p.ValidFrom)
		until, _ := optionalDate(p.ValidUntil)
		if until != nil {
			// valid through the whole last day
			end := until.Add(24*time.Hour - time.Second)
			until = &end
		}
		b.Promos = append(b.Promos, model.Promo{
			Code:             p.Code,
			ShopID:           s.ID,
			DiscountType:     model.DiscountType(p.DiscountType),
			DiscountValue:    p.DiscountValue,
			MaxDiscount:      p.MaxDiscount,
			SpecificServices: append([]string(nil), p.SpecificServices...),
			MinOrderAmount:   p.MinOrderAmount,
			ValidFrom:        from,
			ValidUntil:       until,
			UsageLimit:       p.UsageLimit,
			Active:           p.Active == nil || *p.Active,
		})
	}

	for _, t := range s.TimeOffs {
		start, _ := timeutil.ParseDate(t.StartDate)
		end, _ := timeutil.ParseDate(t.EndDate)
		to := model.TimeOff{
			ID:        t.ID,
			ShopID:    s.ID,
			StaffID:   t.StaffID,
			StartDate: start,
			EndDate:   end,
			Reason:    t.Reason,
		}
		if t.Hours != "" {
			r, _ := parseRange(t.Hours)
			to.Hours = &r
		}
		b.TimeOffs = append(b.TimeOffs, to)
	}
	return b
}

func parseHours(raw map[string][]string) (model.WeeklySchedule, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := model.WeeklySchedule{}
	for day, ranges := range raw {
		wd, ok := timeutil.ParseDayName(day)
		if !ok {
			return nil, fmt.Errorf("unknown day %q", day)
		}
		for _, r := range ranges {
			tr, err := parseRange(r)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", day, err)
			}
			out[wd] = append(out[wd], tr)
		}
	}
	return out, nil
}

// parseRange parses "HH:MM-HH:MM".
func parseRange(s string) (model.TimeRange, error) {
	open, closeAt, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return model.TimeRange{}, fmt.Errorf("invalid range %q", s)
	}
	o, err := timeutil.ParseClock(strings.TrimSpace(open))
	if err != nil {
		return model.TimeRange{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	c, err := timeutil.ParseClock(strings.TrimSpace(closeAt))
	if err != nil {
		return model.TimeRange{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	if c <= o {
		return model.TimeRange{}, fmt.Errorf("invalid range %q: close must be after open", s)
	}
	return model.TimeRange{Open: o, Close: c}, nil
}

func optionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := timeutil.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
