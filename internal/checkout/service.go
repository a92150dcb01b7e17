package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/fidelia-cart/internal/cart"
	"github.com/noah-isme/fidelia-cart/internal/events"
	"github.com/noah-isme/fidelia-cart/internal/obs"
	"github.com/noah-isme/fidelia-cart/internal/pricing"
	"github.com/noah-isme/fidelia-cart/internal/promo"
)

// ErrEmptyCart is returned when submitting a cart without lines.
var ErrEmptyCart = errors.New("cart is empty")

// Receipt is the priced outcome of a checkout.
type Receipt struct {
	OrderID       string            `json:"orderId,omitempty"`
	CartID        string            `json:"cartId"`
	Lines         []pricing.Line    `json:"lines"`
	Promo         *promo.Code       `json:"promo,omitempty"`
	Pricing       pricing.Breakdown `json:"pricing"`
	NegativeTotal bool              `json:"negativeTotal"`
	Currency      string            `json:"currency"`
	PlacedAt      *time.Time        `json:"placedAt,omitempty"`
}

// Service turns carts into priced receipts.
type Service struct {
	Carts    *cart.Service
	Currency string
	Events   *events.Bus
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Quote prices the cart without side effects.
func (s *Service) Quote(ctx context.Context, cartID string) (Receipt, error) {
	if s == nil || s.Carts == nil {
		return Receipt{}, errors.New("checkout service not configured")
	}
	state, err := s.Carts.Get(ctx, cartID)
	if err != nil {
		return Receipt{}, err
	}
	return s.receipt(state), nil
}

// Submit prices the cart, assigns an order id and clears the cart.
// A negative grand total is reported on the receipt and logged, never clamped.
func (s *Service) Submit(ctx context.Context, cartID string) (Receipt, error) {
	if s == nil || s.Carts == nil {
		return Receipt{}, errors.New("checkout service not configured")
	}
	ctx, span := otel.Tracer("fidelia/checkout").Start(ctx, "checkout.Submit")
	defer span.End()

	state, err := s.Carts.Take(ctx, cartID, func(st cart.State) error {
		if len(st.Lines) == 0 {
			return ErrEmptyCart
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			recordCheckout("empty")
		} else {
			recordCheckout("error")
		}
		return Receipt{}, err
	}
	receipt := s.receipt(state)
	placedAt := s.now().UTC()
	receipt.OrderID = uuid.NewString()
	receipt.PlacedAt = &placedAt

	span.SetAttributes(
		attribute.String("cart.id", state.ID),
		attribute.String("order.id", receipt.OrderID),
		attribute.Int64("order.grand_total", receipt.Pricing.GrandTotal),
	)

	if receipt.NegativeTotal {
		s.Logger.Warn().
			Str("order_id", receipt.OrderID).
			Int64("subtotal", receipt.Pricing.Subtotal).
			Int64("discount", receipt.Pricing.Discount).
			Int64("grand_total", receipt.Pricing.GrandTotal).
			Msg("checkout_negative_total")
		if obs.NegativeTotalTotal != nil {
			obs.NegativeTotalTotal.Inc()
		}
		s.emit(ctx, events.TopicOrderNegativeTotal, receipt)
	}
	s.Logger.Info().
		Str("order_id", receipt.OrderID).
		Str("cart_id", receipt.CartID).
		Int("lines", len(receipt.Lines)).
		Int64("grand_total", receipt.Pricing.GrandTotal).
		Msg("order_submitted")
	s.emit(ctx, events.TopicOrderSubmitted, receipt)
	recordCheckout("submitted")
	return receipt, nil
}

func (s *Service) receipt(state cart.State) Receipt {
	breakdown := s.Carts.Price(state)
	lines := state.Lines
	if lines == nil {
		lines = []pricing.Line{}
	}
	return Receipt{
		CartID:        state.ID,
		Lines:         lines,
		Promo:         state.Promo,
		Pricing:       breakdown,
		NegativeTotal: breakdown.Negative(),
		Currency:      s.Currency,
	}
}

func (s *Service) emit(ctx context.Context, topic string, receipt Receipt) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, receipt.OrderID, receipt); err != nil {
		s.Logger.Error().Err(err).Str("topic", topic).Msg("emit event")
	}
}

func recordCheckout(result string) {
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
}
