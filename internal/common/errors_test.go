package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestValidationDetails(t *testing.T) {
	type payload struct {
		ProductID string `validate:"required"`
		UnitPrice int64  `validate:"gt=0"`
	}
	err := validator.New().Struct(payload{})
	details := ValidationDetails(err)
	require.Equal(t, map[string]string{"productID": "required", "unitPrice": "gt"}, details)
	require.Nil(t, ValidationDetails(errors.New("plain")))
}

func TestWriteAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := errors.Join(errors.New("ctx"), NewAppError("PROMO_NOT_FOUND", "promo code not recognized", http.StatusUnprocessableEntity, nil))
	require.True(t, WriteAppError(rec, wrapped))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "promo code not recognized")

	require.False(t, WriteAppError(httptest.NewRecorder(), errors.New("plain")))
}
