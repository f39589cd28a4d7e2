package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"socialhub/infrastructure/utils"
)

func newGuardedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("api")
	api.Use(Auth())
	api.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"operator": c.GetString("operator")})
	})
	return router
}

func TestAuth_RejectsMissingToken(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	router := newGuardedRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_RejectsGarbageToken(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	router := newGuardedRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_AcceptsSignedToken(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	router := newGuardedRouter()

	token, err := utils.GenerateToken(map[string]interface{}{
		"name": "ops",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}, "test-secret")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ops")
}

func TestAuth_RejectsExpiredToken(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	router := newGuardedRouter()

	token, err := utils.GenerateToken(map[string]interface{}{
		"name": "ops",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	}, "test-secret")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
