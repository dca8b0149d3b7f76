package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotbook/internal/model"
)

func ptr(v float64) *float64 { return &v }

var (
	haircut = model.Service{ID: "cut", Name: "Haircut", Duration: 45, Price: 40}
	color   = model.Service{
		ID: "color", Name: "Color", Duration: 90, Price: 120, PromotionPrice: ptr(100),
		Options: []model.ServiceOption{{ID: "long", Name: "Long hair", Duration: 120, Price: 150}},
		AddOns:  []model.ServiceAddOn{{ID: "gloss", Name: "Gloss", Duration: 10, Price: 15}},
	}
	massage = model.Service{ID: "massage", Name: "Massage", Duration: 60, Price: 80}
)

func assertInvariants(t *testing.T, c Cart) {
	t.Helper()
	guests := c.Guests()
	require.NotEmpty(t, guests)
	assert.Equal(t, PrimaryGuestID, guests[0].ID)

	active := 0
	for _, g := range guests {
		if g.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active, "exactly one active guest")
}

func TestNew(t *testing.T) {
	c := New()
	assertInvariants(t, c)
	g := c.Guests()[0]
	assert.Equal(t, PrimaryGuestName, g.Name)
	assert.True(t, g.IsActive)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 1, c.GuestCount())

	var zero Cart
	assertInvariants(t, zero)
}

func TestAddGuest(t *testing.T) {
	c, id1 := New().AddGuest()
	c, id2 := c.AddGuest()

	assert.Equal(t, "guest_1", id1)
	assert.Equal(t, "guest_2", id2)
	assert.Equal(t, id2, c.ActiveID())
	assert.Equal(t, 3, c.GuestCount())
	g, ok := c.Guest(id2)
	require.True(t, ok)
	assert.Equal(t, "Guest 2", g.Name)
	assertInvariants(t, c)

	// ids are not reused after removal
	c = c.RemoveGuest(id2)
	c, id3 := c.AddGuest()
	assert.Equal(t, "guest_3", id3)
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	before := New().AddService(haircut, nil, nil, nil)
	after := before.AddService(massage, nil, nil, nil)
	after = after.UpdateServiceAddOns(PrimaryGuestID, "cut", []model.ServiceAddOn{{ID: "x", Duration: 5, Price: 5}})

	assert.Equal(t, 1, before.ServiceCount())
	assert.Equal(t, 45, before.Guests()[0].Services[0].Duration)
	assert.Equal(t, 2, after.ServiceCount())
	assert.Equal(t, 50, after.Guests()[0].Services[0].Duration)
}

func TestSetActive(t *testing.T) {
	c, id := New().AddGuest()
	c = c.SetActive(PrimaryGuestID)
	assert.Equal(t, PrimaryGuestID, c.ActiveID())

	c = c.SetActive("guest_99")
	assert.Equal(t, PrimaryGuestID, c.ActiveID(), "unknown id is a no-op")

	c = c.SetActive(id)
	assert.Equal(t, id, c.ActiveID())
	assertInvariants(t, c)
}

func TestAddServiceUpserts(t *testing.T) {
	c := New().
		AddService(haircut, nil, nil, nil).
		AddService(color, nil, nil, nil)
	require.Equal(t, 2, c.ServiceCount())

	long := color.Options[0]
	c = c.AddService(color, &long, nil, nil)

	services := c.Guests()[0].Services
	require.Len(t, services, 2)
	assert.Equal(t, "cut", services[0].Service.ID)
	assert.Equal(t, "color", services[1].Service.ID, "replaced in place")
	assert.Equal(t, 120, services[1].Duration)
	assert.Equal(t, 150.0, services[1].TotalPrice)
}

func TestAddServiceGoesToActiveGuest(t *testing.T) {
	c := New().AddService(haircut, nil, nil, nil)
	c, id := c.AddGuest()
	c = c.AddService(massage, nil, nil, nil)

	primary, _ := c.Guest(PrimaryGuestID)
	second, _ := c.Guest(id)
	assert.Len(t, primary.Services, 1)
	require.Len(t, second.Services, 1)
	assert.Equal(t, "massage", second.Services[0].Service.ID)
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name     string
		svc      model.Service
		opt      *model.ServiceOption
		addOns   []model.ServiceAddOn
		duration int
		base     float64
		total    float64
	}{
		{"base", haircut, nil, nil, 45, 40, 40},
		{"promotion wins", color, nil, nil, 90, 100, 100},
		{"option overrides", color, &model.ServiceOption{Duration: 120, Price: 150}, nil, 120, 150, 150},
		{"option promotion", color, &model.ServiceOption{Duration: 120, Price: 150, PromotionPrice: ptr(130)}, nil, 120, 130, 130},
		{
			"add-ons times quantity", haircut, nil,
			[]model.ServiceAddOn{{Duration: 10, Price: 15, Quantity: 2}, {Duration: 5, Price: 2.5}},
			70, 40, 72.5,
		},
		{"zero quantity counts once", haircut, nil, []model.ServiceAddOn{{Duration: 10, Price: 15, Quantity: 0}}, 55, 40, 55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, base, total := Price(tt.svc, tt.opt, tt.addOns)
			assert.Equal(t, tt.duration, d)
			assert.InDelta(t, tt.base, base, 0.001)
			assert.InDelta(t, tt.total, total, 0.001)
		})
	}
}

func TestRemoveService(t *testing.T) {
	c := New().AddService(haircut, nil, nil, nil).AddService(massage, nil, nil, nil)
	c = c.RemoveService("cut")
	assert.Equal(t, []string{"massage"}, c.ServiceIDs())

	c = c.RemoveService("unknown")
	assert.Equal(t, 1, c.ServiceCount())

	c, id := c.AddGuest()
	c = c.AddService(haircut, nil, nil, nil)
	c = c.RemoveGuestService(PrimaryGuestID, "massage")
	assert.Equal(t, []string{"cut"}, c.ServiceIDs())
	g, _ := c.Guest(id)
	assert.Len(t, g.Services, 1)
}

func TestRemoveGuest(t *testing.T) {
	c, id := New().AddGuest()

	t.Run("permanent guest is a no-op", func(t *testing.T) {
		next := c.RemoveGuest(PrimaryGuestID)
		assert.Equal(t, 2, next.GuestCount())
		assertInvariants(t, next)
	})

	t.Run("removing active guest reactivates primary", func(t *testing.T) {
		next := c.RemoveGuest(id)
		assert.Equal(t, 1, next.GuestCount())
		assert.Equal(t, PrimaryGuestID, next.ActiveID())
		assertInvariants(t, next)
	})

	t.Run("removing inactive guest keeps active", func(t *testing.T) {
		c2, id2 := c.AddGuest()
		next := c2.RemoveGuest(id)
		assert.Equal(t, id2, next.ActiveID())
		assertInvariants(t, next)
	})

	t.Run("unknown id", func(t *testing.T) {
		next := c.RemoveGuest("nobody")
		assert.Equal(t, c.Guests(), next.Guests())
	})
}

func TestUpdateServiceStaffAndAddOns(t *testing.T) {
	c := New().AddService(color, nil, nil, nil)
	staff := &model.StaffRef{ID: "s1", Name: "Ann"}

	c = c.UpdateServiceStaff(PrimaryGuestID, "color", staff)
	entry := c.Guests()[0].Services[0]
	require.NotNil(t, entry.Staff)
	assert.Equal(t, "s1", entry.Staff.ID)

	staff.Name = "changed"
	assert.Equal(t, "Ann", c.Guests()[0].Services[0].Staff.Name, "entry holds its own copy")

	c = c.UpdateServiceAddOns(PrimaryGuestID, "color", []model.ServiceAddOn{{ID: "gloss", Duration: 10, Price: 15, Quantity: 2}})
	entry = c.Guests()[0].Services[0]
	assert.Equal(t, 110, entry.Duration)
	assert.InDelta(t, 130.0, entry.TotalPrice, 0.001)
	assert.InDelta(t, 100.0, entry.BasePrice, 0.001)
	assert.Equal(t, "s1", entry.Staff.ID, "staff kept")

	unchanged := c.UpdateServiceStaff("guest_9", "color", nil)
	assert.Equal(t, c.Guests(), unchanged.Guests())
}

func TestTotals(t *testing.T) {
	c := New().
		AddService(haircut, nil, nil, nil).
		AddService(massage, nil, nil, nil)
	c, _ = c.AddGuest()
	c = c.AddService(color, nil, []model.ServiceAddOn{{Duration: 10, Price: 15}}, nil)
	c, _ = c.AddGuest()

	assert.InDelta(t, 40+80+115.0, c.TotalPrice(), 0.001)
	assert.Equal(t, 105, c.TotalDuration(), "max of 45+60 and 100")
	assert.Equal(t, 3, c.GuestCount())
	assert.Equal(t, 2, c.ServicedGuestCount())
	assert.Equal(t, 3, c.ServiceCount())
	assert.Equal(t, []string{"cut", "massage", "color"}, c.ServiceIDs())
}

func TestReset(t *testing.T) {
	c, _ := New().AddService(haircut, nil, nil, nil).AddGuest()
	c = c.Reset()
	assert.Equal(t, New().Guests(), c.Guests())
	assertInvariants(t, c)
}
