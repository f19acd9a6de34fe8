package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

// TypePromoRedeem records promo usage once an order is paid.
const TypePromoRedeem = "promo:redeem"

// PromoRedeemPayload is the body of a TypePromoRedeem task.
type PromoRedeemPayload struct {
	OrderID  uuid.UUID       `json:"orderId"`
	Code     string          `json:"code"`
	UserID   string          `json:"userId"`
	Discount decimal.Decimal `json:"discount"`
}

func (p PromoRedeemPayload) validate() error {
	switch {
	case p.OrderID == uuid.Nil:
		return errors.New("queue: order id is required")
	case strings.TrimSpace(p.Code) == "":
		return errors.New("queue: promo code is required")
	case strings.TrimSpace(p.UserID) == "":
		return errors.New("queue: user id is required")
	}
	return nil
}

// NewPromoRedeemTask builds the task for p.
func NewPromoRedeemTask(p PromoRedeemPayload) (*asynq.Task, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("queue: encode %s: %w", TypePromoRedeem, err)
	}
	return asynq.NewTask(TypePromoRedeem, body), nil
}

// DecodePromoRedeem parses a TypePromoRedeem task. Malformed payloads are permanent failures.
func DecodePromoRedeem(t *asynq.Task) (PromoRedeemPayload, error) {
	var p PromoRedeemPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, Permanent(fmt.Errorf("queue: decode %s: %w", TypePromoRedeem, err))
	}
	if err := p.validate(); err != nil {
		return p, Permanent(err)
	}
	return p, nil
}

// Permanent marks err so the worker archives the task instead of retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}
