package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestProblemDetail_CopiesOnWrite(t *testing.T) {
	base := ErrConflict.WithExtension("a", 1)
	derived := base.WithDetail("busy").Retryable()

	require.Equal(t, "Conflict: busy", derived.Error())
	require.Equal(t, "Conflict", ErrConflict.Error())
	require.Nil(t, ErrConflict.Extensions)
	require.NotContains(t, base.Extensions, ExtensionRetryable)
	require.True(t, derived.IsRetryable())
	require.False(t, base.IsRetryable())
}

func TestResponder_Resolve(t *testing.T) {
	sentinel := errors.New("busy")
	responder := NewResponder(WithMappers(func(err error) (ProblemDetail, bool) {
		if errors.Is(err, sentinel) {
			return ErrUnavailable.Retryable(), true
		}
		return ProblemDetail{}, false
	}))

	require.Equal(t, http.StatusServiceUnavailable, responder.Resolve(fmt.Errorf("wrapped: %w", sentinel)).Status)
	require.Equal(t, http.StatusConflict, responder.Resolve(fmt.Errorf("ctx: %w", ErrConflict)).Status)

	unknown := responder.Resolve(errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, unknown.Status)
	require.Equal(t, "boom", unknown.Detail)
}

func newTestContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, path, nil)
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()
	require.Equal(t, ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestResponder_RespondErrorLogsServerProblems(t *testing.T) {
	var logs bytes.Buffer
	sentinel := errors.New("store down")
	responder := NewResponder(
		WithBaseURI("https://errors.example"),
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
		WithMappers(func(err error) (ProblemDetail, bool) {
			if errors.Is(err, sentinel) {
				return ErrUnavailable.WithDetail(err.Error()).Retryable(), true
			}
			return ProblemDetail{}, false
		}),
	)

	c, rec := newTestContext(http.MethodPost, "/v1/sales-orders/o-1/shipments")
	responder.RespondError(c, sentinel)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "https://errors.example"+TypeUnavailable, body.Type)
	require.Equal(t, "/v1/sales-orders/o-1/shipments", body.Instance)
	require.Equal(t, true, body.Extensions[ExtensionRetryable])

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	require.Equal(t, "request failed", entry["msg"])
	require.Equal(t, float64(http.StatusServiceUnavailable), entry["http.status"])
	require.Equal(t, true, entry["retryable"])
	require.Equal(t, "store down", entry["error"])
}

func TestResponder_ClientProblemsAreNotLogged(t *testing.T) {
	var logs bytes.Buffer
	responder := NewResponder(WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))))

	c, rec := newTestContext(http.MethodGet, "/v1/sales-orders/o-1/shipment-plan")
	responder.RespondError(c, ErrNotFound.WithDetail("sales order not found"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, TypeNotFound, decode(t, rec).Type)
	require.Zero(t, logs.Len())
}

func TestResponder_BadRequestAndValidation(t *testing.T) {
	responder := NewResponder()

	c, rec := newTestContext(http.MethodGet, "/v1/shipments/stats")
	responder.BadRequest(c, "asOf must be a date")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	require.Equal(t, TypeBadRequest, body.Type)
	require.Equal(t, "asOf must be a date", body.Detail)

	c, rec = newTestContext(http.MethodPost, "/v1/sales-orders/o-1/shipments")
	responder.ValidationFailed(c, map[string]string{"ShippedBy": "required"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body = decode(t, rec)
	require.Equal(t, TypeValidation, body.Type)
	require.Equal(t, map[string]any{"ShippedBy": "required"}, body.Extensions["fields"])
}
