// Package cart implements the multi-guest selection aggregate. Every transition
// returns a new Cart; a Cart value is never changed after it is returned.
package cart

import (
	"fmt"
	"math"

	"slotbook/internal/model"
)

// PrimaryGuestID is the permanent first guest.
const PrimaryGuestID = "guest_0"

// PrimaryGuestName is the display name of the permanent guest.
const PrimaryGuestName = "Me"

// GuestService is a service selected for one guest with its derived totals.
type GuestService struct {
	Service model.Service        `json:"service"`
	Option  *model.ServiceOption `json:"option,omitempty"`
	AddOns  []model.ServiceAddOn `json:"add_ons,omitempty"`
	Staff   *model.StaffRef      `json:"staff,omitempty"`

	Duration int `json:"duration"`
	// BasePrice is the effective service or option price without add-ons.
	BasePrice float64 `json:"base_price"`
	// TotalPrice is BasePrice plus add-on price times quantity.
	TotalPrice float64 `json:"total_price"`
}

// Guest is one participant.
type Guest struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Services []GuestService `json:"services"`
	IsActive bool           `json:"is_active"`
}

// Duration is the sum of the guest's sequential services.
func (g Guest) Duration() int {
	total := 0
	for _, s := range g.Services {
		total += s.Duration
	}
	return total
}

// Price is the sum of the guest's service totals.
func (g Guest) Price() float64 {
	total := 0.0
	for _, s := range g.Services {
		total += s.TotalPrice
	}
	return round2(total)
}

type guest struct {
	id       string
	name     string
	services []GuestService
}

// Cart is the immutable guest cart.
type Cart struct {
	guests   []guest
	activeID string
	seq      int
}

// New returns a cart holding only the permanent guest, active.
func New() Cart {
	return Cart{
		guests:   []guest{{id: PrimaryGuestID, name: PrimaryGuestName}},
		activeID: PrimaryGuestID,
	}
}

// normalized treats the zero Cart as New().
func (c Cart) normalized() Cart {
	if len(c.guests) == 0 {
		return New()
	}
	return c
}

func (c Cart) clone() Cart {
	c = c.normalized()
	guests := make([]guest, len(c.guests))
	for i, g := range c.guests {
		guests[i] = guest{id: g.id, name: g.name, services: append([]GuestService(nil), g.services...)}
	}
	return Cart{guests: guests, activeID: c.activeID, seq: c.seq}
}

func (c Cart) index(id string) int {
	for i, g := range c.guests {
		if g.id == id {
			return i
		}
	}
	return -1
}

// AddGuest appends a guest, makes it active and returns its id.
func (c Cart) AddGuest() (Cart, string) {
	next := c.clone()
	next.seq++
	id := fmt.Sprintf("guest_%d", next.seq)
	next.guests = append(next.guests, guest{id: id, name: fmt.Sprintf("Guest %d", next.seq)})
	next.activeID = id
	return next, id
}

// SetActive activates guest id. Unknown ids leave the cart unchanged.
func (c Cart) SetActive(id string) Cart {
	c = c.normalized()
	if c.index(id) < 0 {
		return c
	}
	next := c.clone()
	next.activeID = id
	return next
}

// AddService prices the selection and upserts it into the active guest's list,
// replacing an entry with the same service id in place.
func (c Cart) AddService(svc model.Service, opt *model.ServiceOption, addOns []model.ServiceAddOn, staff *model.StaffRef) Cart {
	next := c.clone()
	i := next.index(next.activeID)
	if i < 0 {
		return c.normalized()
	}

	entry := newGuestService(svc, opt, addOns, staff)
	services := next.guests[i].services
	for j := range services {
		if services[j].Service.ID == svc.ID {
			services[j] = entry
			return next
		}
	}
	next.guests[i].services = append(services, entry)
	return next
}

// RemoveService drops serviceID from the active guest.
func (c Cart) RemoveService(serviceID string) Cart {
	return c.RemoveGuestService(c.normalized().activeID, serviceID)
}

// RemoveGuestService drops serviceID from guestID.
func (c Cart) RemoveGuestService(guestID, serviceID string) Cart {
	c = c.normalized()
	i := c.index(guestID)
	if i < 0 {
		return c
	}
	next := c.clone()
	kept := next.guests[i].services[:0]
	for _, s := range next.guests[i].services {
		if s.Service.ID != serviceID {
			kept = append(kept, s)
		}
	}
	next.guests[i].services = kept
	return next
}

// RemoveGuest drops a guest. The permanent guest is never removed; removing the
// active guest re-activates the permanent guest.
func (c Cart) RemoveGuest(id string) Cart {
	c = c.normalized()
	i := c.index(id)
	if id == PrimaryGuestID || i < 0 {
		return c
	}
	next := c.clone()
	next.guests = append(next.guests[:i], next.guests[i+1:]...)
	if next.activeID == id {
		next.activeID = PrimaryGuestID
	}
	return next
}

// UpdateServiceStaff sets the staff on one entry. A nil staff clears it.
func (c Cart) UpdateServiceStaff(guestID, serviceID string, staff *model.StaffRef) Cart {
	return c.updateEntry(guestID, serviceID, func(s GuestService) GuestService {
		return newGuestService(s.Service, s.Option, s.AddOns, staff)
	})
}

// UpdateServiceAddOns replaces the add-ons on one entry and recomputes its totals.
func (c Cart) UpdateServiceAddOns(guestID, serviceID string, addOns []model.ServiceAddOn) Cart {
	return c.updateEntry(guestID, serviceID, func(s GuestService) GuestService {
		return newGuestService(s.Service, s.Option, addOns, s.Staff)
	})
}

func (c Cart) updateEntry(guestID, serviceID string, fn func(GuestService) GuestService) Cart {
	c = c.normalized()
	i := c.index(guestID)
	if i < 0 {
		return c
	}
	for j, s := range c.guests[i].services {
		if s.Service.ID == serviceID {
			next := c.clone()
			next.guests[i].services[j] = fn(s)
			return next
		}
	}
	return c
}

// Reset returns the initial cart.
func (c Cart) Reset() Cart {
	return New()
}

// ActiveID returns the id of the active guest.
func (c Cart) ActiveID() string {
	return c.normalized().activeID
}

// Guests returns a copy of every guest with IsActive populated.
func (c Cart) Guests() []Guest {
	c = c.normalized()
	out := make([]Guest, 0, len(c.guests))
	for _, g := range c.guests {
		out = append(out, Guest{
			ID:       g.id,
			Name:     g.name,
			Services: append([]GuestService(nil), g.services...),
			IsActive: g.id == c.activeID,
		})
	}
	return out
}

// Guest returns one guest by id.
func (c Cart) Guest(id string) (Guest, bool) {
	for _, g := range c.Guests() {
		if g.ID == id {
			return g, true
		}
	}
	return Guest{}, false
}

// TotalPrice sums every guest's services.
func (c Cart) TotalPrice() float64 {
	total := 0.0
	for _, g := range c.normalized().guests {
		for _, s := range g.services {
			total += s.TotalPrice
		}
	}
	return round2(total)
}

// TotalDuration is the longest guest track. Guests run in parallel; one guest's services run back to back.
func (c Cart) TotalDuration() int {
	longest := 0
	for _, g := range c.Guests() {
		longest = max(longest, g.Duration())
	}
	return longest
}

// GuestCount counts all guests, including those with no services yet.
func (c Cart) GuestCount() int {
	return len(c.normalized().guests)
}

// ServicedGuestCount counts guests with at least one service.
func (c Cart) ServicedGuestCount() int {
	n := 0
	for _, g := range c.normalized().guests {
		if len(g.services) > 0 {
			n++
		}
	}
	return n
}

// ServiceCount counts service entries across guests.
func (c Cart) ServiceCount() int {
	n := 0
	for _, g := range c.normalized().guests {
		n += len(g.services)
	}
	return n
}

// IsEmpty reports whether no guest has a service.
func (c Cart) IsEmpty() bool {
	return c.ServiceCount() == 0
}

// ServiceIDs returns the distinct service ids in selection order.
func (c Cart) ServiceIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, g := range c.normalized().guests {
		for _, s := range g.services {
			if _, dup := seen[s.Service.ID]; dup {
				continue
			}
			seen[s.Service.ID] = struct{}{}
			ids = append(ids, s.Service.ID)
		}
	}
	return ids
}

func newGuestService(svc model.Service, opt *model.ServiceOption, addOns []model.ServiceAddOn, staff *model.StaffRef) GuestService {
	duration, base, total := Price(svc, opt, addOns)
	entry := GuestService{
		Service:    svc,
		AddOns:     append([]model.ServiceAddOn(nil), addOns...),
		Duration:   duration,
		BasePrice:  base,
		TotalPrice: total,
	}
	if opt != nil {
		o := *opt
		entry.Option = &o
	}
	if staff != nil {
		s := *staff
		entry.Staff = &s
	}
	return entry
}

// Price computes the effective duration, base price and total of a selection.
// An option replaces the service's duration and price; add-ons add duration and
// price times quantity; a promotion price wins over the regular price.
func Price(svc model.Service, opt *model.ServiceOption, addOns []model.ServiceAddOn) (duration int, base, total float64) {
	duration = svc.Duration
	base = svc.EffectivePrice()
	if opt != nil {
		duration = opt.Duration
		base = opt.EffectivePrice()
	}

	total = base
	for _, a := range addOns {
		duration += a.Duration * a.Units()
		total += a.Price * float64(a.Units())
	}
	return duration, round2(base), round2(total)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
