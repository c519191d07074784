package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLuhn(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   bool
	}{
		{"visa valid", "4111111111111111", true},
		{"visa off by one", "4111111111111112", false},
		{"mastercard valid", "5555555555554444", true},
		{"amex valid", "378282246310005", true},
		{"with spaces", "4111 1111 1111 1111", true},
		{"with dashes", "4111-1111-1111-1111", true},
		{"too short", "411111111111", false},
		{"too long", "41111111111111111111", false},
		{"non digits", "4111a11111111111", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Luhn(tt.number))
		})
	}
}

func TestDetectCardNetwork(t *testing.T) {
	tests := []struct {
		number string
		want   CardNetwork
	}{
		{"4111111111111111", NetworkVisa},
		{"5111111111111111", NetworkMastercard},
		{"5511111111111111", NetworkMastercard},
		{"341111111111111", NetworkAmex},
		{"371111111111111", NetworkAmex},
		{"6011111111111117", NetworkRuPay},
		{"6511111111111111", NetworkRuPay},
		{"8111111111111111", NetworkRuPay},
		{"8911111111111111", NetworkRuPay},
		{"9911111111111111", NetworkUnknown},
		{"5611111111111111", NetworkUnknown},
		{"", NetworkUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectCardNetwork(tt.number), "number %q", tt.number)
	}
}

func TestValidateVPA(t *testing.T) {
	valid := []string{"alice@upi", "a.b-c_1@okaxis", "MERCHANT99@ybl"}
	for _, vpa := range valid {
		assert.True(t, ValidateVPA(vpa), "expected %q to be valid", vpa)
	}

	invalid := []string{"", "alice", "@upi", "alice@", "alice@ok axis", "alice@ok-axis", "alice@upi@upi"}
	for _, vpa := range invalid {
		assert.False(t, ValidateVPA(vpa), "expected %q to be invalid", vpa)
	}
}

func TestValidateCardExpiry(t *testing.T) {
	now := time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		month, year string
		want        bool
	}{
		{"12", "30", true},
		{"08", "26", true},
		{"07", "26", false},
		{"12", "2026", true},
		{"01", "2025", false},
		{"13", "30", false},
		{"00", "30", false},
		{"aa", "30", false},
		{"12", "bb", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateCardExpiry(tt.month, tt.year, now), "%s/%s", tt.month, tt.year)
	}
}

func TestNewUPIDetails(t *testing.T) {
	d, err := NewUPIDetails("alice@upi")
	require.NoError(t, err)
	assert.Equal(t, MethodUPI, d.Method())
	assert.Equal(t, "alice@upi", d.VPA)

	_, err = NewUPIDetails("")
	assert.Error(t, err)

	_, err = NewUPIDetails("not a vpa")
	assert.Error(t, err)
}

func TestNewCardDetails(t *testing.T) {
	now := time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)
	card := &CardInput{
		Number:      "4111 1111 1111 1111",
		ExpiryMonth: "12",
		ExpiryYear:  "30",
		CVV:         "123",
		HolderName:  "Alice",
	}

	d, err := NewCardDetails(card, now)
	require.NoError(t, err)
	assert.Equal(t, MethodCard, d.Method())
	assert.Equal(t, NetworkVisa, d.Network)
	assert.Equal(t, "1111", d.Last4)

	t.Run("missing fields", func(t *testing.T) {
		_, err := NewCardDetails(nil, now)
		assert.Error(t, err)

		incomplete := *card
		incomplete.CVV = ""
		_, err = NewCardDetails(&incomplete, now)
		assert.Error(t, err)
	})

	t.Run("luhn failure", func(t *testing.T) {
		bad := *card
		bad.Number = "4111111111111112"
		_, err := NewCardDetails(&bad, now)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired := *card
		expired.ExpiryMonth = "07"
		expired.ExpiryYear = "26"
		_, err := NewCardDetails(&expired, now)
		assert.Error(t, err)
	})
}

func TestPaymentView(t *testing.T) {
	vpa := "alice@upi"
	network := "visa"
	last4 := "1111"
	created := time.Date(2026, time.August, 15, 10, 30, 0, 0, time.UTC)

	t.Run("upi only exposes vpa", func(t *testing.T) {
		p := &Payment{
			ID: "pay_x", OrderID: "order_x", Amount: 5000, Currency: "INR",
			Method: MethodUPI, Status: PaymentPending,
			VPA: &vpa, CardNetwork: &network, CardLast4: &last4,
			CreatedAt: created, UpdatedAt: created,
		}
		v := p.View()
		assert.Equal(t, &vpa, v.VPA)
		assert.Nil(t, v.CardNetwork)
		assert.Nil(t, v.CardLast4)
		assert.Equal(t, "2026-08-15T10:30:00Z", v.CreatedAt)
	})

	t.Run("error fields only after failure", func(t *testing.T) {
		code := PaymentFailedCode
		desc := PaymentFailedDescription
		p := &Payment{
			ID: "pay_x", Method: MethodCard, Status: PaymentFailed,
			CardNetwork: &network, CardLast4: &last4,
			ErrorCode: &code, ErrorDescription: &desc,
			CreatedAt: created, UpdatedAt: created,
		}
		v := p.View()
		assert.Equal(t, &code, v.ErrorCode)
		assert.Equal(t, &desc, v.ErrorDescription)

		p.ErrorCode = nil
		v = p.View()
		assert.Nil(t, v.ErrorCode)
		assert.Nil(t, v.ErrorDescription)
	})
}
