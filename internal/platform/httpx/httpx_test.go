package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		typ    string
	}{
		{fmt.Errorf("qty: %w", shared.ErrValidation), http.StatusBadRequest, "/problems/validation"},
		{fmt.Errorf("product %w", shared.ErrNotFound), http.StatusNotFound, "/problems/not-found"},
		{fmt.Errorf("central: %w", shared.ErrInsufficientStock), http.StatusConflict, "/problems/insufficient-stock"},
		{fmt.Errorf("sku: %w", shared.ErrConflict), http.StatusConflict, "/problems/conflict"},
		{fmt.Errorf("outlet:b: %w", shared.ErrForbidden), http.StatusForbidden, "/problems/forbidden"},
		{fmt.Errorf("lock timeout: %w", shared.ErrUnavailable), http.StatusServiceUnavailable, "/problems/retry"},
		{errors.New("pq: connection reset"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.status, rr.Code, tc.err.Error())
		require.Equal(t, ProblemContentType, rr.Header().Get("Content-Type"))

		var p ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
		require.Equal(t, tc.typ, p.Type)
		if tc.status == http.StatusServiceUnavailable {
			require.Equal(t, "1", rr.Header().Get("Retry-After"))
		}
		if tc.status == http.StatusInternalServerError {
			require.NotContains(t, p.Detail, "connection reset")
		}
	}
}

func TestDecodeJSONKeepsNumbers(t *testing.T) {
	var body struct {
		Quantity json.Number `json:"quantity"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":2.5}`))
	require.NoError(t, DecodeJSON(req, &body))
	require.Equal(t, "2.5", body.Quantity.String())

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":1,"extra":true}`))
	err := DecodeJSON(req, &body)
	require.ErrorIs(t, err, ErrMalformedBody)
	require.ErrorIs(t, err, shared.ErrValidation)
}
