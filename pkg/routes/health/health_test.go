package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestChecker(t *testing.T) {
	t.Run("should be healthy when every check passes", func(t *testing.T) {
		e := echo.New()
		c := NewChecker("1.0.0", map[string]Pinger{
			"postgres": PingFunc(func(context.Context) error { return nil }),
		})
		c.RegisterRoutes(e)

		rec := get(e, "/api/v1/health")
		require.Equal(t, http.StatusOK, rec.Code)

		var body HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "1.0.0", body.Version)
		assert.Equal(t, "healthy", body.Checks["postgres"].Status)
	})

	t.Run("should be unhealthy when a check fails", func(t *testing.T) {
		e := echo.New()
		c := NewChecker("1.0.0", map[string]Pinger{
			"redis": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
		})
		c.RegisterRoutes(e)

		rec := get(e, "/api/v1/health")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "connection refused", body.Checks["redis"].Message)
	})

	t.Run("should report readiness", func(t *testing.T) {
		e := echo.New()
		c := NewChecker("1.0.0", nil)
		c.RegisterRoutes(e)

		assert.Equal(t, http.StatusOK, get(e, "/api/v1/health/live").Code)
		assert.Equal(t, http.StatusServiceUnavailable, get(e, "/api/v1/health/ready").Code)

		c.SetReady(true)
		assert.Equal(t, http.StatusOK, get(e, "/api/v1/health/ready").Code)
	})
}
