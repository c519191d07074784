package service

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/nimbuspay/gateway/internal/models"
	"github.com/nimbuspay/gateway/internal/repository"
	"github.com/nimbuspay/gateway/internal/utils"
)

// minOrderAmount is the smallest accepted order amount in minor units
// (100 paise = 1 INR).
const minOrderAmount = 100

// maxIDAttempts bounds id regeneration on primary-key conflicts.
const maxIDAttempts = 3

// OrderService handles order creation and lookup.
type OrderService struct {
	orders *repository.OrderRepository
}

// NewOrderService creates a new OrderService.
func NewOrderService(orders *repository.OrderRepository) *OrderService {
	return &OrderService{orders: orders}
}

// CreateOrderInput is the validated body of POST /v1/orders.
type CreateOrderInput struct {
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  *string         `json:"receipt"`
	Notes    json.RawMessage `json:"notes"`
}

// CreateOrder validates and persists a new order. IDs are opaque and random;
// a primary-key conflict just regenerates.
func (s *OrderService) CreateOrder(merchantID string, in *CreateOrderInput) (*models.Order, error) {
	if in.Amount < minOrderAmount {
		return nil, utils.ErrInvalidAmount
	}
	currency := in.Currency
	if currency == "" {
		currency = "INR"
	}

	o := &models.Order{
		MerchantID: merchantID,
		Amount:     in.Amount,
		Currency:   currency,
		Receipt:    in.Receipt,
		Notes:      in.Notes,
		Status:     models.OrderCreated,
	}

	for attempt := 0; ; attempt++ {
		o.ID = utils.GenerateID("order_")
		err := s.orders.Create(o)
		if err == nil {
			break
		}
		if repository.IsDuplicateID(err) && attempt < maxIDAttempts {
			log.Warn().Str("order_id", o.ID).Msg("Order id collision, regenerating")
			continue
		}
		return nil, err
	}

	log.Info().Str("order_id", o.ID).Str("merchant_id", merchantID).Int64("amount", o.Amount).Msg("Order created")
	return o, nil
}

// GetOrder returns an order scoped to the calling merchant.
func (s *OrderService) GetOrder(id, merchantID string) (*models.Order, error) {
	o, err := s.orders.GetByID(id, merchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrderPublic returns an order without merchant scoping, for the hosted
// checkout page.
func (s *OrderService) GetOrderPublic(id string) (*models.Order, error) {
	o, err := s.orders.GetByIDPublic(id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}
