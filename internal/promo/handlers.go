package promo

import (
	"net/http"

	"github.com/noah-isme/fidelia-cart/internal/common"
)

// Handler exposes the promo catalog.
type Handler struct {
	Catalog Catalog
}

// List returns every known promo code.
func (h Handler) List(w http.ResponseWriter, _ *http.Request) {
	common.Data(w, http.StatusOK, h.Catalog.Codes())
}
