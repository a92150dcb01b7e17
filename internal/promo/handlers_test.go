package promo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlerList(t *testing.T) {
	catalog, err := ParseCatalog("ongkir:500, FIDELIA10:1000")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	Handler{Catalog: catalog}.List(rec, httptest.NewRequest(http.MethodGet, "/promos", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []Code `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	require.Equal(t, "FIDELIA10", resp.Data[0].Code)
	require.EqualValues(t, 500, resp.Data[1].Amount)
}
