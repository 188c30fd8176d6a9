package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndegwakip/huduma_hub/models"
)

func TestFormatCents(t *testing.T) {
	cases := map[int64]string{
		0:        "0.00",
		5:        "0.05",
		100:      "1.00",
		150050:   "1,500.50",
		11000:    "110.00",
		12345678: "123,456.78",
	}
	for cents, want := range cases {
		assert.Equal(t, want, formatCents(cents))
	}
}

func TestRenderReceiptHTML(t *testing.T) {
	booking := &models.Booking{
		Reference:        "HBTEST1234",
		Currency:         "KES",
		TotalAmountCents: 10000,
		ServiceFeeCents:  1000,
		FinalAmountCents: 11000,
	}

	html, err := renderReceiptHTML(booking, "Wanjiku Kamau", "Deep Cleaning", time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, html, "HBTEST1234")
	assert.Contains(t, html, "Wanjiku Kamau")
	assert.Contains(t, html, "Deep Cleaning")
	assert.Contains(t, html, "100.00")
	assert.Contains(t, html, "10.00")
	assert.Contains(t, html, "110.00")
	assert.Contains(t, html, "March 14, 2026")

	// No discount row when there is no discount.
	assert.False(t, strings.Contains(html, "Discount"))
}

func TestRenderReceiptHTMLWithDiscount(t *testing.T) {
	booking := &models.Booking{
		Reference:        "HBTEST5678",
		Currency:         "KES",
		TotalAmountCents: 10000,
		ServiceFeeCents:  1000,
		DiscountCents:    500,
		FinalAmountCents: 10500,
	}

	html, err := renderReceiptHTML(booking, "Wanjiku Kamau", "Deep Cleaning", time.Now())
	require.NoError(t, err)
	assert.Contains(t, html, "Discount")
	assert.Contains(t, html, "5.00")
}
