package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flavornet/utils"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(tokens *utils.Tokens, roles ...string) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{JWT(tokens)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetInt64(UserIDKey),
			"role":    c.GetString(RoleKey),
		})
	})
	r.GET("/private", handlers...)
	return r
}

func TestJWT(t *testing.T) {
	tokens := utils.NewTokens("secret", time.Hour)
	userToken, _ := tokens.SignedToken(5, "u@example.com", utils.RoleUser)
	adminToken, _ := tokens.SignedToken(1, "a@example.com", utils.RoleAdmin)

	tests := []struct {
		name   string
		roles  []string
		header string
		cookie string
		want   int
	}{
		{name: "no token", want: http.StatusUnauthorized},
		{name: "header", header: "Bearer " + userToken, want: http.StatusOK},
		{name: "lower-case scheme", header: "bearer " + userToken, want: http.StatusOK},
		{name: "cookie", cookie: userToken, want: http.StatusOK},
		{name: "garbage", header: "Bearer junk", want: http.StatusUnauthorized},
		{name: "wrong scheme falls back to missing cookie", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "admin route as user", roles: []string{utils.RoleAdmin}, header: "Bearer " + userToken, want: http.StatusForbidden},
		{name: "admin route as admin", roles: []string{utils.RoleAdmin}, header: "Bearer " + adminToken, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := protectedRouter(tokens, tt.roles...)
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	want := []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d: status = %d, want %d", i, codes[i], want[i])
		}
	}

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("second client status = %d", w.Code)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	rl.limiter("a")
	now = now.Add(rl.idle + time.Second)
	rl.limiter("b")
	rl.Sweep()
	if _, ok := rl.visitors["a"]; ok {
		t.Error("idle visitor should be swept")
	}
	if _, ok := rl.visitors["b"]; !ok {
		t.Error("active visitor should be kept")
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	if len(generated) != 36 || w.Body.String() != generated {
		t.Errorf("generated id = %q, body = %q", generated, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "upstream-1" {
		t.Errorf("upstream id = %q", got)
	}
}
