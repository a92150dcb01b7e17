package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/fidelia-cart/internal/common"
	"github.com/noah-isme/fidelia-cart/internal/pricing"
	"github.com/noah-isme/fidelia-cart/internal/promo"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handler wires cart services to HTTP.
type Handler struct {
	Svc      *Service
	Currency string
}

type addItemRequest struct {
	ProductID    string          `json:"productId" validate:"required,max=64"`
	Name         string          `json:"name" validate:"max=200"`
	UnitPrice    pricing.Money   `json:"unitPrice" validate:"gt=0"`
	Quantity     int             `json:"quantity" validate:"omitempty,gte=1,lte=999"`
	OptionPrices []pricing.Money `json:"optionPrices" validate:"omitempty,max=20,dive,gte=0"`
}

type updateItemRequest struct {
	Delta int `json:"delta" validate:"required,gte=-999,lte=999"`
}

type promoRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type tipRequest struct {
	Tip pricing.Money `json:"tip" validate:"gte=0"`
}

// Create starts a new cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	state, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, http.StatusCreated, state)
}

// Get returns cart contents and pricing.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	state, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, http.StatusOK, state)
}

// AddItem adds or increments a cart line item.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload addItemRequest
	if !decode(w, r, &payload) {
		return
	}
	if payload.Quantity == 0 {
		payload.Quantity = 1
	}
	state, err := h.Svc.AddLine(r.Context(), chi.URLParam(r, "id"), pricing.Line{
		ProductID:    strings.TrimSpace(payload.ProductID),
		Name:         strings.TrimSpace(payload.Name),
		UnitPrice:    payload.UnitPrice,
		Quantity:     payload.Quantity,
		OptionPrices: payload.OptionPrices,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, http.StatusOK, state)
}

// UpdateItem applies a quantity delta to a line item.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload updateItemRequest
	if !decode(w, r, &payload) {
		return
	}
	state, err := h.Svc.ChangeQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"), payload.Delta)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, http.StatusOK, state)
}

// RemoveItem deletes a cart line item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	state, err := h.Svc.RemoveLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, http.StatusOK, state)
}

// ApplyPromo attaches a promo code, replacing any active one.
func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload promoRequest
	if !decode(w, r, &payload) {
		return
	}
	cartID := chi.URLParam(r, "id")
	applied, err := h.Svc.ApplyPromo(r.Context(), cartID, payload.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	state, err := h.Svc.Get(r.Context(), cartID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"promo":    applied,
			"discount": applied.Amount,
			"cart":     h.cartView(state),
		},
	})
}

// RemovePromo clears the active promo.
func (h *Handler) RemovePromo(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	state, err := h.Svc.RemovePromo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, http.StatusOK, state)
}

// SetTip records the courier tip.
func (h *Handler) SetTip(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload tipRequest
	if !decode(w, r, &payload) {
		return
	}
	state, err := h.Svc.SetTip(r.Context(), chi.URLParam(r, "id"), payload.Tip)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, http.StatusOK, state)
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, state State) {
	common.JSON(w, status, map[string]any{"data": h.cartView(state)})
}

func (h *Handler) cartView(state State) map[string]any {
	lines := state.Lines
	if lines == nil {
		lines = []pricing.Line{}
	}
	breakdown := h.Svc.Price(state)
	return map[string]any{
		"id":    state.ID,
		"lines": lines,
		"promo": state.Promo,
		"tip":   state.Tip,
		"pricing": map[string]any{
			"subtotal":    breakdown.Subtotal,
			"deliveryFee": breakdown.DeliveryFee,
			"serviceFee":  breakdown.ServiceFee,
			"discount":    breakdown.Discount,
			"tip":         breakdown.Tip,
			"grandTotal":  breakdown.GrandTotal,
			"negative":    breakdown.Negative(),
		},
		"currency":  h.Currency,
		"updatedAt": state.UpdatedAt,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, promo.ErrNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "PROMO_NOT_FOUND", "promo code not recognized", nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, pricing.ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, "LINE_NOT_FOUND", "item not in cart", nil)
	case errors.Is(err, pricing.ErrOptionsConflict):
		common.JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, pricing.ErrInvalidLine):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid payload", common.ValidationDetails(err))
		return false
	}
	return true
}
