package checkout

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/fidelia-cart/internal/cart"
	"github.com/noah-isme/fidelia-cart/internal/common"
)

// Handler exposes quote and checkout endpoints.
type Handler struct {
	Svc *Service
}

// Quote returns the priced cart without placing an order.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	receipt, err := h.Svc.Quote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, receipt)
}

// Checkout places the order for the cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	receipt, err := h.Svc.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, receipt)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		err = common.NewAppError("EMPTY_CART", "cart is empty", http.StatusUnprocessableEntity, err)
	case errors.Is(err, cart.ErrNotFound):
		err = common.NewAppError("NOT_FOUND", "cart not found", http.StatusNotFound, err)
	case errors.Is(err, cart.ErrInvalidInput):
		err = common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
	}
	if common.WriteAppError(w, err) {
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
}
