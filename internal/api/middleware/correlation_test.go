package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func correlationRouter(seen *string) *gin.Engine {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/v1/wallet", func(c *gin.Context) {
		*seen = GetCorrelationID(c)
		c.Status(http.StatusOK)
	})
	return router
}

func TestCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("MintsAnIDWhenTheClientSendsNone", func(t *testing.T) {
		var seen string
		router := correlationRouter(&seen)

		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/v1/wallet", nil)
		router.ServeHTTP(recorder, request)

		echoed := recorder.Header().Get(CorrelationIDHeader)
		require.NotEmpty(t, echoed)
		_, err := uuid.Parse(echoed)
		assert.NoError(t, err, "minted IDs are UUIDs")
		assert.Equal(t, echoed, seen, "handler and response header see the same ID")
	})

	t.Run("KeepsTheIDTheClientProvided", func(t *testing.T) {
		var seen string
		router := correlationRouter(&seen)

		provided := uuid.New().String()
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/v1/wallet", nil)
		request.Header.Set(CorrelationIDHeader, provided)
		router.ServeHTTP(recorder, request)

		assert.Equal(t, provided, recorder.Header().Get(CorrelationIDHeader))
		assert.Equal(t, provided, seen)
	})
}

func TestGetCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("ReadsTheStoredID", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		want := uuid.New().String()
		c.Set(CorrelationIDKey, want)

		assert.Equal(t, want, GetCorrelationID(c))
	})

	t.Run("EmptyWhenTheMiddlewareDidNotRun", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		assert.Empty(t, GetCorrelationID(c))
	})

	t.Run("EmptyWhenTheStoredValueIsNotAString", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(CorrelationIDKey, 42)

		assert.Empty(t, GetCorrelationID(c))
	})
}
