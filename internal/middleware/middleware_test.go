package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"studynotes/internal/redis"
	"studynotes/internal/services"
	notes_errors "studynotes/pkg/errors"
	"studynotes/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "middleware-secret"

func token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, services.AccessClaims{
		UserID:           userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func echoUser(c *gin.Context) {
	id, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, id.String())
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := services.NewAuthService(testSecret)
	engine := gin.New()
	engine.GET("/required", AuthMiddleware(auth), echoUser)
	engine.GET("/optional", OptionalAuthMiddleware(auth), echoUser)
	userID := uuid.New()

	cases := []struct {
		name, path, header string
		wantCode           int
		wantBody           string
	}{
		{"bearer", "/required", "Bearer " + token(t, userID), http.StatusOK, userID.String()},
		{"query token", "/required?token=" + token(t, userID), "", http.StatusOK, userID.String()},
		{"missing", "/required", "", http.StatusUnauthorized, ""},
		{"bad token", "/required", "Bearer nope", http.StatusUnauthorized, ""},
		{"optional anonymous", "/optional", "", http.StatusOK, "anonymous"},
		{"optional bad token", "/optional", "Bearer nope", http.StatusOK, "anonymous"},
		{"optional bearer", "/optional", "Bearer " + token(t, userID), http.StatusOK, userID.String()},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		if rec.Code != tc.wantCode {
			t.Fatalf("%s: status want=%d got=%d", tc.name, tc.wantCode, rec.Code)
		}
		if tc.wantBody != "" && rec.Body.String() != tc.wantBody {
			t.Fatalf("%s: body want=%q got=%q", tc.name, tc.wantBody, rec.Body.String())
		}
	}
}

func TestUserRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()
	identify := func(c *gin.Context) {
		c.Request = c.Request.WithContext(services.WithIdentity(c.Request.Context(), services.Identity{UserID: userID}))
	}
	var seen string
	remaining := 1
	check := func(_ context.Context, id string) (*redis.RateLimitResult, error) {
		seen = id
		res := &redis.RateLimitResult{Allowed: remaining > 0, Remaining: remaining, Limit: 1, ResetIn: 30 * time.Second}
		remaining--
		return res, nil
	}

	engine := gin.New()
	engine.POST("/limited", identify, UserRateLimitMiddleware(check, "slow down", logger.Nop()), echoUser)
	engine.POST("/unlimited", identify, UserRateLimitMiddleware(nil, "unused", logger.Nop()), echoUser)
	engine.POST("/broken", identify, UserRateLimitMiddleware(func(context.Context, string) (*redis.RateLimitResult, error) {
		return nil, errors.New("redis down")
	}, "unused", logger.Nop()), echoUser)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/limited", nil))
	if rec.Code != http.StatusOK || seen != userID.String() || rec.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("first request: status=%d seen=%s headers=%v", rec.Code, seen, rec.Header())
	}
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/limited", nil))
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("X-RateLimit-Reset") != "30" {
		t.Fatalf("second request: status=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/unlimited", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("nil limiter: status=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/broken", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("limiter error: status=%d", rec.Code)
	}
}

func TestErrorHandlerRendersUnwrittenErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestIDMiddleware(), ErrorHandler(logger.Nop()))
	engine.GET("/fail", func(c *gin.Context) {
		_ = c.Error(notes_errors.New(notes_errors.ErrNotFound, "Post not found."))
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want=%d got=%d", http.StatusNotFound, rec.Code)
	}
	if rec.Header().Get("X-Request-Id") != "req-1" {
		t.Fatalf("request id should be echoed")
	}
}

func TestRequestIDReplacesMalformedIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestIDMiddleware())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := []struct {
		name, in string
		keep     bool
	}{
		{"client id", "req-42", true},
		{"missing", "", false},
		{"control chars", "a\nlevel=error msg=forged", false},
		{"too long", strings.Repeat("a", maxRequestIDBytes+1), false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.in != "" {
			req.Header["X-Request-Id"] = []string{tc.in}
		}
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		got := rec.Header().Get("X-Request-Id")
		if tc.keep && got != tc.in {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.in, got)
		}
		if !tc.keep && (got == tc.in || len(got) != 32) {
			t.Fatalf("%s: id not regenerated: %q", tc.name, got)
		}
	}
}
