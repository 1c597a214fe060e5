package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/teamtrackhq/teamtrack/pkg/response"
)

func limitedRouter(rl *RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(rl.Middleware())
	router.POST("/login", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return router
}

func hitLogin(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/login", nil)
	req.RemoteAddr = ip + ":12345"
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_AllowsWithinBudget(t *testing.T) {
	router := limitedRouter(NewRateLimiter(10, 10))

	w := hitLogin(router, "192.168.1.1")
	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRateLimit_BlocksBurstWithRetryableKind(t *testing.T) {
	router := limitedRouter(NewRateLimiter(1, 2))

	var last *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		last = hitLogin(router, "10.0.0.1")
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d after burst exceeded, got %d", http.StatusTooManyRequests, last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("throttled response should carry Retry-After")
	}

	var body response.Response
	if err := json.Unmarshal(last.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Kind != response.KindTransient {
		t.Errorf("kind = %q, expected %q (throttling is retryable)", body.Kind, response.KindTransient)
	}
}

func TestRateLimit_BudgetIsPerClient(t *testing.T) {
	router := limitedRouter(NewRateLimiter(1, 1))

	if w := hitLogin(router, "10.0.0.1"); w.Code != http.StatusOK {
		t.Errorf("first client: expected %d, got %d", http.StatusOK, w.Code)
	}
	if w := hitLogin(router, "10.0.0.1"); w.Code != http.StatusTooManyRequests {
		t.Errorf("first client over budget: expected %d, got %d", http.StatusTooManyRequests, w.Code)
	}
	// A different client keeps its own budget.
	if w := hitLogin(router, "10.0.0.2"); w.Code != http.StatusOK {
		t.Errorf("second client: expected %d, got %d", http.StatusOK, w.Code)
	}
}
