package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/clinic-scheduler/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "s3cret"}

	r := gin.New()
	r.Use(AuthMiddleware(cfg))
	r.GET("/staff", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user":   c.MustGet(ContextUserID),
			"branch": c.MustGet(ContextBranchID),
			"role":   c.MustGet(ContextUserRole),
		})
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/staff", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	valid := jwt.MapClaims{"sub": 3, "branchId": 1, "role": "receptionist", "exp": time.Now().Add(time.Hour).Unix()}

	t.Run("Valid Token", func(t *testing.T) {
		w := do("Bearer " + sign(t, "s3cret", jwt.SigningMethodHS256, valid))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user":3,"branch":1,"role":"receptionist"}`, w.Body.String())
	})

	t.Run("Rejected", func(t *testing.T) {
		expired := jwt.MapClaims{"sub": 3, "branchId": 1, "exp": time.Now().Add(-time.Hour).Unix()}
		noBranch := jwt.MapClaims{"sub": 3}

		cases := map[string]string{
			"missing":      "",
			"not bearer":   "Basic abc",
			"wrong secret": "Bearer " + sign(t, "other", jwt.SigningMethodHS256, valid),
			"wrong alg":    "Bearer " + sign(t, "s3cret", jwt.SigningMethodHS512, valid),
			"expired":      "Bearer " + sign(t, "s3cret", jwt.SigningMethodHS256, expired),
			"no branch":    "Bearer " + sign(t, "s3cret", jwt.SigningMethodHS256, noBranch),
		}
		for name, header := range cases {
			w := do(header)
			assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, w.Header().Get(HeaderRequestID), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	newRouter := func(allowed []string) *gin.Engine {
		r := gin.New()
		r.Use(CORSMiddleware(allowed))
		r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	request := func(r *gin.Engine, method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/ping", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("Allow List", func(t *testing.T) {
		r := newRouter([]string{"https://clinic.mn/"})

		w := request(r, http.MethodGet, "https://clinic.mn")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://clinic.mn", w.Header().Get("Access-Control-Allow-Origin"))

		w = request(r, http.MethodGet, "https://evil.example")
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Empty List Allows Any", func(t *testing.T) {
		w := request(newRouter(nil), http.MethodGet, "https://any.mn")
		assert.Equal(t, "https://any.mn", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Preflight", func(t *testing.T) {
		w := request(newRouter(nil), http.MethodOptions, "https://any.mn")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/x",
		func(c *gin.Context) { c.Set(ContextUserRole, c.Query("role")) },
		RequireRole("admin", "receptionist"),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	for role, want := range map[string]int{
		"admin":        http.StatusOK,
		"receptionist": http.StatusOK,
		"doctor":       http.StatusForbidden,
		"":             http.StatusForbidden,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?role="+role, nil))
		assert.Equal(t, want, w.Code, role)
	}
}
