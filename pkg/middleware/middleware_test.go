package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reqctx "github.com/Ramsey-B/fern/pkg/context"
	ferrors "github.com/Ramsey-B/fern/pkg/errors"
)

func newTestEcho() *echo.Echo {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	e := echo.New()
	e.HTTPErrorHandler = Error(logger)
	e.Use(Context())
	e.Use(Logger(logger))
	return e
}

func serve(e *echo.Echo, req *http.Request) (*httptest.ResponseRecorder, ErrorResponse) {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var body ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestError(t *testing.T) {
	t.Run("should map a pipeline error to its status", func(t *testing.T) {
		e := newTestEcho()
		e.GET("/fail", func(c echo.Context) error {
			return ferrors.NewPipelineError(ferrors.MissingColumn, "column gone").AddStage("load")
		})

		req := httptest.NewRequest(http.MethodGet, "/fail", nil)
		req.Header.Set(echo.HeaderXRequestID, "req-1")
		rec, body := serve(e, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, body.Message, "column gone")
		assert.Equal(t, "req-1", body.RequestID)
		assert.Equal(t, "missing_column", body.Meta["kind"])
	})

	t.Run("should keep the code of an echo error", func(t *testing.T) {
		e := newTestEcho()
		e.GET("/missing", func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusNotFound, "nothing here")
		})

		rec, body := serve(e, httptest.NewRequest(http.MethodGet, "/missing", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "nothing here", body.Message)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	})

	t.Run("should hide unknown errors", func(t *testing.T) {
		e := newTestEcho()
		e.GET("/boom", func(c echo.Context) error {
			return errors.New("secret detail")
		})

		rec, body := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal Server Error", body.Message)
	})
}

func TestContext(t *testing.T) {
	t.Run("should store the request details", func(t *testing.T) {
		e := newTestEcho()
		var got string
		e.GET("/ctx", func(c echo.Context) error {
			got = reqctx.GetRequestID(c.Request().Context())
			return c.NoContent(http.StatusNoContent)
		})

		req := httptest.NewRequest(http.MethodGet, "/ctx", nil)
		req.Header.Set(echo.HeaderXRequestID, "abc")
		rec, _ := serve(e, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "abc", got)
		assert.Equal(t, "abc", rec.Header().Get(echo.HeaderXRequestID))
	})
}

type rejectingVerifier struct{ calls int }

func (v *rejectingVerifier) Verify(context.Context, string) (*oidc.IDToken, error) {
	v.calls++
	return nil, errors.New("expired")
}

func TestAuthentication(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	t.Run("should reject a request without a bearer token", func(t *testing.T) {
		verifier := &rejectingVerifier{}
		e := newTestEcho()
		e.GET("/secure", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, Authentication(logger, verifier))

		rec, body := serve(e, httptest.NewRequest(http.MethodGet, "/secure", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "missing bearer", body.Message)
		assert.Zero(t, verifier.calls)
	})

	t.Run("should reject an invalid token", func(t *testing.T) {
		verifier := &rejectingVerifier{}
		e := newTestEcho()
		e.GET("/secure", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, Authentication(logger, verifier))

		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer token")
		rec, body := serve(e, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid token", body.Message)
		assert.Equal(t, 1, verifier.calls)
	})
}
