package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nimbuspay/gateway/internal/utils"
)

// PaymentMethod enumerates the supported payment instruments.
type PaymentMethod string

const (
	MethodUPI  PaymentMethod = "upi"
	MethodCard PaymentMethod = "card"
)

// CardNetwork is the issuer network derived from the card number.
type CardNetwork string

const (
	NetworkVisa       CardNetwork = "visa"
	NetworkMastercard CardNetwork = "mastercard"
	NetworkAmex       CardNetwork = "amex"
	NetworkRuPay      CardNetwork = "rupay"
	NetworkUnknown    CardNetwork = "unknown"
)

// MethodDetails is the closed variant of validated method-specific fields.
// Exactly one concrete case exists per payment; the persisted row only ever
// carries the fields of its own case.
type MethodDetails interface {
	Method() PaymentMethod
}

// UPIDetails carries a validated virtual payment address.
type UPIDetails struct {
	VPA string
}

func (UPIDetails) Method() PaymentMethod { return MethodUPI }

// CardDetails carries the persistable card fields. The full number and CVV
// are validated and discarded; only the network and last four digits remain.
type CardDetails struct {
	Network CardNetwork
	Last4   string
}

func (CardDetails) Method() PaymentMethod { return MethodCard }

// CardInput is the raw card data supplied at payment creation. It is never
// persisted.
type CardInput struct {
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv"`
	HolderName  string `json:"holder_name"`
}

var vpaRegexp = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9]+$`)

// ValidateVPA reports whether a virtual payment address has the expected
// local@domain shape.
func ValidateVPA(vpa string) bool {
	return vpaRegexp.MatchString(vpa)
}

// NewUPIDetails validates a VPA and returns the UPI variant.
func NewUPIDetails(vpa string) (*UPIDetails, error) {
	if vpa == "" {
		return nil, utils.ErrMissingVPA
	}
	if !ValidateVPA(vpa) {
		return nil, utils.ErrInvalidVPA
	}
	return &UPIDetails{VPA: vpa}, nil
}

// NewCardDetails validates raw card input against presence, Luhn, and expiry
// rules and returns the card variant with only the persistable fields.
func NewCardDetails(card *CardInput, now time.Time) (*CardDetails, error) {
	if card == nil || card.Number == "" || card.ExpiryMonth == "" ||
		card.ExpiryYear == "" || card.CVV == "" || card.HolderName == "" {
		return nil, utils.ErrMissingCardDetails
	}
	if !Luhn(card.Number) {
		return nil, utils.ErrInvalidCard
	}
	if !ValidateCardExpiry(card.ExpiryMonth, card.ExpiryYear, now) {
		return nil, utils.ErrExpiredCard
	}
	cleaned := cleanCardNumber(card.Number)
	return &CardDetails{
		Network: DetectCardNetwork(cleaned),
		Last4:   cleaned[len(cleaned)-4:],
	}, nil
}

// Luhn checks the card number checksum. Spaces and dashes are ignored.
func Luhn(number string) bool {
	cleaned := cleanCardNumber(number)
	if len(cleaned) < 13 || len(cleaned) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(cleaned) - 1; i >= 0; i-- {
		c := cleaned[i]
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}

// DetectCardNetwork derives the issuer network from leading digits:
// Visa 4, Mastercard 51-55, Amex 34/37, RuPay 60/65 and 81-89.
func DetectCardNetwork(number string) CardNetwork {
	cleaned := cleanCardNumber(number)
	if cleaned == "" {
		return NetworkUnknown
	}
	if cleaned[0] == '4' {
		return NetworkVisa
	}
	if len(cleaned) < 2 {
		return NetworkUnknown
	}
	firstTwo, err := strconv.Atoi(cleaned[:2])
	if err != nil {
		return NetworkUnknown
	}
	switch {
	case firstTwo >= 51 && firstTwo <= 55:
		return NetworkMastercard
	case firstTwo == 34 || firstTwo == 37:
		return NetworkAmex
	case firstTwo == 60 || firstTwo == 65:
		return NetworkRuPay
	case firstTwo >= 81 && firstTwo <= 89:
		return NetworkRuPay
	}
	return NetworkUnknown
}

// ValidateCardExpiry reports whether month/year name the current month or a
// later one. Two-digit years are interpreted as 20xx.
func ValidateCardExpiry(expiryMonth, expiryYear string, now time.Time) bool {
	month, err := strconv.Atoi(expiryMonth)
	if err != nil || month < 1 || month > 12 {
		return false
	}
	year, err := strconv.Atoi(expiryYear)
	if err != nil {
		return false
	}
	if year < 100 {
		year += 2000
	}
	if year < now.Year() {
		return false
	}
	if year == now.Year() && month < int(now.Month()) {
		return false
	}
	return true
}

func cleanCardNumber(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(number)
}
