package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fidelia-cart/internal/lock"
	"github.com/noah-isme/fidelia-cart/internal/obs"
	"github.com/noah-isme/fidelia-cart/internal/pricing"
	"github.com/noah-isme/fidelia-cart/internal/promo"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Service encapsulates cart domain operations.
type Service struct {
	Store  Store
	Promos promo.Catalog
	Fees   pricing.Fees
	Logger zerolog.Logger
	Now    func() time.Time
	// Lock serialises mutations per cart. Nil falls back to an in-process lock.
	Lock lock.Locker

	local lock.Local
}

func (s *Service) locker() lock.Locker {
	if s.Lock != nil {
		return s.Lock
	}
	return &s.local
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

// Create starts an empty cart.
func (s *Service) Create(ctx context.Context) (State, error) {
	if err := s.ready(); err != nil {
		return State{}, err
	}
	now := s.now()
	state := State{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := s.Store.Save(ctx, state); err != nil {
		return State{}, err
	}
	return state, nil
}

// Get loads the cart.
func (s *Service) Get(ctx context.Context, cartID string) (State, error) {
	if err := s.ready(); err != nil {
		return State{}, err
	}
	if _, err := uuid.Parse(cartID); err != nil {
		return State{}, fmt.Errorf("parse cart id: %w", ErrInvalidInput)
	}
	return s.Store.Get(ctx, cartID)
}

// AddLine inserts a line or increments the existing line for the same product.
func (s *Service) AddLine(ctx context.Context, cartID string, line pricing.Line) (State, error) {
	return s.mutate(ctx, cartID, "add_line", func(state *State) error {
		lines, err := pricing.Add(state.Lines, line)
		if err != nil {
			return err
		}
		state.Lines = lines
		return nil
	})
}

// ChangeQuantity applies delta to a line. A line that would drop below 1 is removed.
func (s *Service) ChangeQuantity(ctx context.Context, cartID, productID string, delta int) (State, error) {
	return s.mutate(ctx, cartID, "change_quantity", func(state *State) error {
		lines, removed, err := pricing.ChangeQuantity(state.Lines, productID, delta)
		if err != nil {
			return err
		}
		if removed {
			s.Logger.Debug().Str("cart_id", state.ID).Str("product_id", productID).Msg("cart_line_removed")
		}
		state.Lines = lines
		return nil
	})
}

// RemoveLine deletes a line.
func (s *Service) RemoveLine(ctx context.Context, cartID, productID string) (State, error) {
	return s.mutate(ctx, cartID, "remove_line", func(state *State) error {
		lines, err := pricing.Remove(state.Lines, productID)
		if err != nil {
			return err
		}
		state.Lines = lines
		return nil
	})
}

// ApplyPromo validates code and makes it the single active promo.
// An unrecognised code returns promo.ErrNotFound and leaves the active promo untouched.
func (s *Service) ApplyPromo(ctx context.Context, cartID, code string) (promo.Code, error) {
	var applied promo.Code
	_, err := s.mutate(ctx, cartID, "apply_promo", func(state *State) error {
		match, err := s.Promos.Lookup(code)
		if err != nil {
			return err
		}
		applied = match
		state.Promo = &match
		return nil
	})
	switch {
	case err == nil:
		recordPromo("applied")
	case errors.Is(err, promo.ErrNotFound):
		recordPromo("rejected")
		s.Logger.Info().Str("cart_id", cartID).Str("code", strings.TrimSpace(code)).Msg("promo_rejected")
	}
	if err != nil {
		return promo.Code{}, err
	}
	return applied, nil
}

// RemovePromo clears the active discount.
func (s *Service) RemovePromo(ctx context.Context, cartID string) (State, error) {
	return s.mutate(ctx, cartID, "remove_promo", func(state *State) error {
		state.Promo = nil
		return nil
	})
}

// SetTip records the tip amount.
func (s *Service) SetTip(ctx context.Context, cartID string, tip pricing.Money) (State, error) {
	if tip < 0 {
		return State{}, fmt.Errorf("tip must not be negative: %w", ErrInvalidInput)
	}
	return s.mutate(ctx, cartID, "set_tip", func(state *State) error {
		state.Tip = tip
		return nil
	})
}

// Clear drops the cart.
func (s *Service) Clear(ctx context.Context, cartID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.locker().WithLock(ctx, cartID, func(ctx context.Context) error {
		return s.Store.Delete(ctx, cartID)
	})
}

// Take loads and deletes the cart under its lock, so exactly one caller receives it.
// A non-nil accept error aborts the take and leaves the cart in place.
func (s *Service) Take(ctx context.Context, cartID string, accept func(State) error) (State, error) {
	if err := s.ready(); err != nil {
		return State{}, err
	}
	if _, err := uuid.Parse(cartID); err != nil {
		return State{}, fmt.Errorf("parse cart id: %w", ErrInvalidInput)
	}
	var taken State
	err := s.locker().WithLock(ctx, cartID, func(ctx context.Context) error {
		current, err := s.Store.Get(ctx, cartID)
		if err != nil {
			return err
		}
		if accept != nil {
			if err := accept(current); err != nil {
				return err
			}
		}
		if err := s.Store.Delete(ctx, cartID); err != nil {
			return err
		}
		taken = current
		return nil
	})
	if err != nil {
		return State{}, err
	}
	return taken, nil
}

// Pricing recomputes the breakdown from the current cart state.
func (s *Service) Pricing(ctx context.Context, cartID string) (pricing.Breakdown, error) {
	state, err := s.Get(ctx, cartID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return s.Price(state), nil
}

// Price computes the breakdown for an already loaded cart.
func (s *Service) Price(state State) pricing.Breakdown {
	return pricing.Compute(state.Lines, s.Fees, state.Discount(), state.Tip)
}

func (s *Service) mutate(ctx context.Context, cartID, op string, fn func(*State) error) (State, error) {
	if err := s.ready(); err != nil {
		return State{}, err
	}
	if _, err := uuid.Parse(cartID); err != nil {
		return State{}, fmt.Errorf("parse cart id: %w", ErrInvalidInput)
	}
	var state State
	err := s.locker().WithLock(ctx, cartID, func(ctx context.Context) error {
		current, err := s.Store.Get(ctx, cartID)
		if err != nil {
			return err
		}
		if err := fn(&current); err != nil {
			return err
		}
		current.UpdatedAt = s.now()
		if err := s.Store.Save(ctx, current); err != nil {
			return err
		}
		state = current
		return nil
	})
	if err != nil {
		return State{}, err
	}
	if obs.CartMutationsTotal != nil {
		obs.CartMutationsTotal.WithLabelValues(op).Inc()
	}
	return state, nil
}

func recordPromo(result string) {
	if obs.PromoApplyTotal != nil {
		obs.PromoApplyTotal.WithLabelValues(result).Inc()
	}
}
