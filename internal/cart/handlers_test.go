package cart

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type cartResponse struct {
	Data struct {
		ID    string `json:"id"`
		Lines []struct {
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
		} `json:"lines"`
		Pricing struct {
			Subtotal   int64 `json:"subtotal"`
			Discount   int64 `json:"discount"`
			Tip        int64 `json:"tip"`
			GrandTotal int64 `json:"grandTotal"`
			Negative   bool  `json:"negative"`
		} `json:"pricing"`
		Currency string `json:"currency"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	h := &Handler{Svc: newTestService(t), Currency: "IDR"}
	r := chi.NewRouter()
	r.Post("/carts", h.Create)
	r.Get("/carts/{id}", h.Get)
	r.Post("/carts/{id}/items", h.AddItem)
	r.Patch("/carts/{id}/items/{productId}", h.UpdateItem)
	r.Delete("/carts/{id}/items/{productId}", h.RemoveItem)
	r.Post("/carts/{id}/promo", h.ApplyPromo)
	r.Delete("/carts/{id}/promo", h.RemovePromo)
	r.Put("/carts/{id}/tip", h.SetTip)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandlerCartFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/carts", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeCart(t, rec)
	id := created.Data.ID
	require.NotEmpty(t, id)
	require.Equal(t, "IDR", created.Data.Currency)
	require.NotNil(t, created.Data.Lines)

	rec = do(t, router, http.MethodPost, "/carts/"+id+"/items", `{"productId":"a","name":"Ayam Bakar","unitPrice":2500,"quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPost, "/carts/"+id+"/items", `{"productId":"b","unitPrice":3000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, rec)
	require.EqualValues(t, 8000, cart.Data.Pricing.Subtotal)

	rec = do(t, router, http.MethodPost, "/carts/"+id+"/promo", `{"code":"fidelia10"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var promoResp struct {
		Data struct {
			Discount int64 `json:"discount"`
			Promo    struct {
				Code string `json:"code"`
			} `json:"promo"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &promoResp))
	require.EqualValues(t, 1000, promoResp.Data.Discount)
	require.Equal(t, "FIDELIA10", promoResp.Data.Promo.Code)

	rec = do(t, router, http.MethodPut, "/carts/"+id+"/tip", `{"tip":500}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	// 8000 + 500 + 200 + 500 - 1000
	require.EqualValues(t, 8200, cart.Data.Pricing.GrandTotal)

	rec = do(t, router, http.MethodPatch, "/carts/"+id+"/items/b", `{"delta":-1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	require.Len(t, cart.Data.Lines, 1)
	require.Equal(t, "a", cart.Data.Lines[0].ProductID)

	rec = do(t, router, http.MethodDelete, "/carts/"+id+"/items/a", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/carts/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	require.Empty(t, cart.Data.Lines)
	require.EqualValues(t, 1000, cart.Data.Pricing.Discount)
	require.EqualValues(t, 200, cart.Data.Pricing.GrandTotal)

	rec = do(t, router, http.MethodDelete, "/carts/"+id+"/promo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	require.EqualValues(t, 0, cart.Data.Pricing.Discount)
}

func TestHandlerRejectsUnknownPromo(t *testing.T) {
	router := newTestRouter(t)
	id := decodeCart(t, do(t, router, http.MethodPost, "/carts", "")).Data.ID

	rec := do(t, router, http.MethodPost, "/carts/"+id+"/promo", `{"code":"INVALID"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "PROMO_NOT_FOUND", resp.Error.Code)
	require.Equal(t, "promo code not recognized", resp.Error.Message)

	cart := decodeCart(t, do(t, router, http.MethodGet, "/carts/"+id, ""))
	require.EqualValues(t, 0, cart.Data.Pricing.Discount)
}

func TestHandlerNegativeTotalFlag(t *testing.T) {
	router := newTestRouter(t)
	id := decodeCart(t, do(t, router, http.MethodPost, "/carts", "")).Data.ID
	rec := do(t, router, http.MethodPost, "/carts/"+id+"/promo", `{"code":"FIDELIA10"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cart := decodeCart(t, do(t, router, http.MethodGet, "/carts/"+id, ""))
	require.EqualValues(t, -300, cart.Data.Pricing.GrandTotal)
	require.True(t, cart.Data.Pricing.Negative)
}

func TestHandlerValidationAndErrors(t *testing.T) {
	router := newTestRouter(t)
	id := decodeCart(t, do(t, router, http.MethodPost, "/carts", "")).Data.ID

	rec := do(t, router, http.MethodPost, "/carts/"+id+"/items", `{"productId":"","unitPrice":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
	require.Equal(t, "required", resp.Error.Details["productID"])
	require.Equal(t, "gt", resp.Error.Details["unitPrice"])

	rec = do(t, router, http.MethodPost, "/carts/"+id+"/items", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPatch, "/carts/"+id+"/items/missing", `{"delta":1}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPatch, "/carts/"+id+"/items/missing", `{"delta":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/carts/"+id+"/tip", `{"tip":-5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/carts/5f0c7d1e-8a43-4a4e-9f55-0d6a3c2b1e11", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/carts/nope", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/carts/"+id+"/items", `{"productId":"a","unitPrice":1000,"optionPrices":[100]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPost, "/carts/"+id+"/items", `{"productId":"a","unitPrice":1000}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}
