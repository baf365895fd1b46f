package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "pocketbook/internal/errors"
	"pocketbook/internal/logger"
	"pocketbook/internal/models"
	"pocketbook/internal/ratelimit"
	"pocketbook/internal/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Set(zap.NewNop().Sugar())
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("expected status %d, got %d: %s", wantStatus, rec.Code, rec.Body.String())
	}
	body := parseBody(t, rec)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %v", body)
	}
	if errObj["code"] != wantCode {
		t.Errorf("expected code %s, got %v", wantCode, errObj["code"])
	}
}

func setupAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("userID"), "email": c.GetString("email")})
	})
	return r
}

func doAuthRequest(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	user := &models.User{Email: "owner@example.com"}
	user.ID = uuid.New()
	valid, err := GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	forged, _ := foreign.SignedString([]byte("some-other-secret"))

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	stale, _ := expired.SignedString(getJWTKey())

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid_token", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "missing_header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong_scheme", header: "Token " + valid, wantStatus: http.StatusUnauthorized},
		{name: "garbage_token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized},
		{name: "wrong_secret", header: "Bearer " + forged, wantStatus: http.StatusUnauthorized},
		{name: "expired_token", header: "Bearer " + stale, wantStatus: http.StatusUnauthorized},
	}

	r := setupAuthRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doAuthRequest(r, tt.header)
			if tt.wantStatus != http.StatusOK {
				assertErrorCode(t, rec, tt.wantStatus, "UNAUTHORIZED")
				return
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			body := parseBody(t, rec)
			if body["user_id"] != user.ID {
				t.Errorf("expected user_id %s, got %v", user.ID, body["user_id"])
			}
			if body["email"] != user.Email {
				t.Errorf("expected email %s, got %v", user.Email, body["email"])
			}
		})
	}
}

func TestParseAccessToken_RejectsMissingUser(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, _ := token.SignedString(getJWTKey())
	if _, err := ParseAccessToken(signed); err == nil {
		t.Fatal("expected error for token without user")
	}
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrBudgetNotFound)
	})
	r.GET("/wrapped", func(c *gin.Context) {
		_ = c.Error(apperrors.Wrap(apperrors.ErrStoreUnavailable, errors.New("connection refused")))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	tests := []struct {
		path       string
		wantStatus int
		wantCode   string
	}{
		{"/app", http.StatusNotFound, "BUDGET_NOT_FOUND"},
		{"/wrapped", http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"/plain", http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))
			assertErrorCode(t, rec, tt.wantStatus, tt.wantCode)
		})
	}

	t.Run("internal_details_not_leaked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wrapped", http.NoBody))
		errObj := parseBody(t, rec)["error"].(map[string]interface{})
		if errObj["message"] != apperrors.ErrStoreUnavailable.Message {
			t.Errorf("unexpected message %v", errObj["message"])
		}
	})

	t.Run("no_error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", http.NoBody))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger.Set(zap.New(core).Sugar())
	t.Cleanup(func() { logger.Set(zap.NewNop().Sugar()) })

	r := gin.New()
	r.Use(RequestLogging())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	t.Run("generates_request_id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", http.NoBody))
		if !uuid.IsValid(rec.Header().Get(requestIDHeader)) {
			t.Errorf("expected a generated request id, got %q", rec.Header().Get(requestIDHeader))
		}
	})

	t.Run("reuses_client_request_id", func(t *testing.T) {
		id := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
		req.Header.Set(requestIDHeader, id)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if got := rec.Header().Get(requestIDHeader); got != id {
			t.Errorf("expected request id %s, got %s", id, got)
		}
	})

	t.Run("ignores_malformed_request_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
		req.Header.Set(requestIDHeader, "<script>")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if got := rec.Header().Get(requestIDHeader); got == "<script>" || !uuid.IsValid(got) {
			t.Errorf("expected a fresh request id, got %q", got)
		}
	})

	entries := logs.FilterMessage("request").All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 request log entries, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/ping" || fields["status"] != int64(http.StatusNoContent) {
		t.Errorf("unexpected log fields: %v", fields)
	}
}

type stubLimiter struct {
	result ratelimit.Result
	err    error
	keys   []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (ratelimit.Result, error) {
	s.keys = append(s.keys, key)
	return s.result, s.err
}

func setupRateLimitRouter(limiter RateLimiter) *gin.Engine {
	r := gin.New()
	r.POST("/login", RateLimit(limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func doLogin(r *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", http.NoBody)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		stub := &stubLimiter{result: ratelimit.Result{Allowed: true, Remaining: 4}}
		rec := doLogin(setupRateLimitRouter(stub))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Remaining") != "4" {
			t.Errorf("expected remaining header 4, got %q", rec.Header().Get("X-RateLimit-Remaining"))
		}
		if len(stub.keys) != 1 || stub.keys[0] != "/login|10.0.0.1" {
			t.Errorf("unexpected limiter keys %v", stub.keys)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		stub := &stubLimiter{result: ratelimit.Result{Allowed: false, RetryAfter: 1500 * time.Millisecond}}
		rec := doLogin(setupRateLimitRouter(stub))
		assertErrorCode(t, rec, http.StatusTooManyRequests, "RATE_LIMITED")
		if rec.Header().Get("Retry-After") != "2" {
			t.Errorf("expected Retry-After 2, got %q", rec.Header().Get("Retry-After"))
		}
	})

	t.Run("limiter_failure_lets_request_through", func(t *testing.T) {
		stub := &stubLimiter{err: errors.New("redis down")}
		rec := doLogin(setupRateLimitRouter(stub))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("redis_backed", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		r := setupRateLimitRouter(ratelimit.New(client, 2, time.Minute))

		for i := 0; i < 2; i++ {
			if rec := doLogin(r); rec.Code != http.StatusOK {
				t.Fatalf("attempt %d: expected 200, got %d", i+1, rec.Code)
			}
		}
		assertErrorCode(t, doLogin(r), http.StatusTooManyRequests, "RATE_LIMITED")

		mr.FastForward(time.Minute)
		if rec := doLogin(r); rec.Code != http.StatusOK {
			t.Fatalf("expected 200 after window reset, got %d", rec.Code)
		}
	})
}
