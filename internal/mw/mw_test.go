package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"instrupro-backend/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func whoami(c *gin.Context) {
	p := PrincipalFrom(c)
	c.JSON(http.StatusOK, gin.H{"uid": p.UID, "label": p.Label()})
}

func TestAuth(t *testing.T) {
	a := NewAuthenticator("s3cret")
	r := gin.New()
	r.GET("/me", Auth(a, nil), whoami)

	valid, err := a.Issue(model.Principal{UID: "u-1", Email: "op@plant.example", DisplayName: "Asha"}, time.Hour)
	require.NoError(t, err)
	expired, err := a.Issue(model.Principal{UID: "u-1"}, -time.Minute)
	require.NoError(t, err)
	foreign, err := NewAuthenticator("other").Issue(model.Principal{UID: "u-1"}, time.Hour)
	require.NoError(t, err)
	noSubject, err := a.Issue(model.Principal{Email: "x@plant.example"}, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	testCases := []struct {
		name   string
		header string
		status int
	}{
		{name: "Valid", header: "Bearer " + valid, status: http.StatusOK},
		{name: "Missing", header: "", status: http.StatusUnauthorized},
		{name: "Not bearer", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "Expired", header: "Bearer " + expired, status: http.StatusUnauthorized},
		{name: "Wrong secret", header: "Bearer " + foreign, status: http.StatusUnauthorized},
		{name: "No subject", header: "Bearer " + noSubject, status: http.StatusUnauthorized},
		{name: "Unsigned", header: "Bearer " + none, status: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"uid":"u-1","label":"Asha"}`, w.Body.String())
			}
		})
	}
}

func TestPrincipalFrom_Absent(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, PrincipalFrom(c))
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.GET("/ping", RateLimiter(rate.Limit(1), 2, nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(ip string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, do("10.0.0.1").Code)
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1").Code)
	limited := do("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, do("10.0.0.2").Code, "limits are per client")
}
