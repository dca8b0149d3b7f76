package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotbook/internal/model"
)

const sampleCatalog = `
shops:
  - id: downtown
    name: Downtown
    connected_account_id: acct_1
    hours:
      monday: ["09:00-13:00", "14:00-18:00"]
      sat: ["10:00-16:00"]
    calendar:
      deposit_enabled: true
      deposit_percentage: 20
    staff:
      - id: ann
        name: Ann
        services: [cut]
      - id: ben
        services: [cut, color]
        hours:
          tuesday: ["12:00-20:00"]
    services:
      - id: cut
        name: Haircut
        duration: 45
        price: 40
        promotion_price: 35
        requires_staff: true
        add_ons:
          - id: wash
            duration: 15
            price: 10
      - id: color
        duration: 90
        price: 120
        options:
          - id: long
            name: Long hair
            duration: 120
            price: 150
    promos:
      - code: " spring20 "
        discount_value: 20
        max_discount: 50
        valid_until: "2025-05-31"
    time_offs:
      - staff_id: ann
        start_date: "2025-04-01"
        end_date: "2025-04-07"
        reason: vacation
      - staff_id: ben
        start_date: "2025-04-02"
        hours: "12:00-14:00"
`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)

	bundles := c.Bundles()
	require.Len(t, bundles, 1)
	b := bundles[0]

	assert.Equal(t, "downtown", b.Shop.ID)
	assert.Equal(t, "acct_1", b.Shop.ConnectedAccountID)
	assert.Equal(t, []model.TimeRange{{Open: 540, Close: 780}, {Open: 840, Close: 1080}}, b.Shop.Schedule.Day(time.Monday))
	assert.Equal(t, []model.TimeRange{{Open: 600, Close: 960}}, b.Shop.Schedule.Day(time.Saturday))
	require.NotNil(t, b.Shop.Calendar)
	assert.Equal(t, 30, b.Shop.Calendar.IntervalMinutes, "interval defaults to 30")
	assert.Equal(t, "UTC", b.Shop.Calendar.Timezone)

	require.Len(t, b.Staff, 2)
	assert.Equal(t, b.Shop.Schedule, b.Staff[0].Schedule, "staff without hours inherit the shop's")
	assert.Equal(t, "ben", b.Staff[1].Name)
	assert.True(t, b.Staff[1].WorksOn(time.Tuesday))
	assert.False(t, b.Staff[1].WorksOn(time.Monday))

	require.Len(t, b.Services, 2)
	assert.Equal(t, 35.0, b.Services[0].EffectivePrice())
	assert.Equal(t, "downtown", b.Services[0].ShopID)
	assert.Equal(t, 1, b.Services[0].AddOns[0].Units())
	opt, ok := b.Services[1].Option("long")
	require.True(t, ok)
	assert.Equal(t, 120, opt.Duration)

	require.Len(t, b.Promos, 1)
	p := b.Promos[0]
	assert.Equal(t, "SPRING20", p.Code)
	assert.Equal(t, model.DiscountPercentage, p.DiscountType)
	assert.True(t, p.Active)
	require.NotNil(t, p.ValidUntil)
	assert.Equal(t, time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC), *p.ValidUntil)

	require.Len(t, b.TimeOffs, 2)
	assert.True(t, b.TimeOffs[0].IsFullDay())
	assert.True(t, b.TimeOffs[0].CoversDate(time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)))
	assert.NotEmpty(t, b.TimeOffs[0].ID)
	require.NotNil(t, b.TimeOffs[1].Hours)
	assert.Equal(t, model.TimeRange{Open: 720, Close: 840}, *b.TimeOffs[1].Hours)
	assert.Equal(t, b.TimeOffs[1].StartDate, b.TimeOffs[1].EndDate, "single-day time off")
}

func TestParseCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"missing shop id", "shops:\n  - name: x\n", "id is required"},
		{"duplicate shop", "shops:\n  - id: a\n  - id: a\n", "duplicate id a"},
		{"bad day", "shops:\n  - id: a\n    hours:\n      funday: [\"09:00-10:00\"]\n", `unknown day "funday"`},
		{"bad range", "shops:\n  - id: a\n    hours:\n      monday: [\"10:00-09:00\"]\n", "close must be after open"},
		{"bad clock", "shops:\n  - id: a\n    hours:\n      monday: [\"9am-10:00\"]\n", "invalid range"},
		{"unknown staff service", "shops:\n  - id: a\n    staff:\n      - id: s\n        services: [cut]\n", "unknown service cut"},
		{"duplicate promo", "shops:\n  - id: a\n    promos:\n      - code: x\n      - code: X\n", "duplicate code X"},
		{"bad discount type", "shops:\n  - id: a\n    promos:\n      - code: x\n        discount_type: bogus\n", "unknown discount_type"},
		{"time off unknown staff", "shops:\n  - id: a\n    time_offs:\n      - staff_id: z\n        start_date: \"2025-01-01\"\n", "unknown staff z"},
		{"time off reversed", "shops:\n  - id: a\n    staff:\n      - id: s\n    time_offs:\n      - staff_id: s\n        start_date: \"2025-01-05\"\n        end_date: \"2025-01-01\"\n", "end_date before start_date"},
		{"deposit percentage", "shops:\n  - id: a\n    calendar:\n      deposit_percentage: 120\n", "deposit_percentage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestShopWithoutCalendarStaysUnconfigured(t *testing.T) {
	c, err := ParseCatalog([]byte("shops:\n  - id: a\n"))
	require.NoError(t, err)
	assert.Nil(t, c.Bundles()[0].Shop.Calendar)
}
