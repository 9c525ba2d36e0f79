package jwtmw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"auth_backend/internal/feature/auth/domain"
	"auth_backend/internal/feature/auth/domain/entity"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockResolver is a mock implementation of BearerResolver.
type mockResolver struct {
	CurrentUserFunc func(ctx context.Context, bearer string) (*entity.Identity, error)
	calls           []string
}

func (m *mockResolver) CurrentUser(ctx context.Context, bearer string) (*entity.Identity, error) {
	m.calls = append(m.calls, bearer)
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx, bearer)
	}
	return nil, nil
}

func TestAuthRequired_MissingBearerToken(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
	}{
		{"no header", ""},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"bearer lowercase", "bearer token123"},
		{"no space after Bearer", "Bearertoken123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mockResolver{}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				c.Request.Header.Set("Authorization", tt.authHeader)
			}

			AuthRequired(resolver, "")(c)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.True(t, c.IsAborted())
			assert.Empty(t, resolver.calls, "resolver should not be called without a bearer")
		})
	}
}

func TestAuthRequired_Outcomes(t *testing.T) {
	tests := []struct {
		name           string
		resolve        func(ctx context.Context, bearer string) (*entity.Identity, error)
		expectedStatus int
		expectAborted  bool
	}{
		{
			name:           "unauthenticated",
			resolve:        func(ctx context.Context, bearer string) (*entity.Identity, error) { return nil, nil },
			expectedStatus: http.StatusUnauthorized,
			expectAborted:  true,
		},
		{
			name: "store unavailable",
			resolve: func(ctx context.Context, bearer string) (*entity.Identity, error) {
				return nil, domain.Wrap(domain.KindUnavailable, "store down", errors.New("dial tcp"))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectAborted:  true,
		},
		{
			name: "internal failure",
			resolve: func(ctx context.Context, bearer string) (*entity.Identity, error) {
				return nil, errors.New("boom")
			},
			expectedStatus: http.StatusInternalServerError,
			expectAborted:  true,
		},
		{
			name: "authenticated",
			resolve: func(ctx context.Context, bearer string) (*entity.Identity, error) {
				return &entity.Identity{UserID: 42, Email: "a@x.com"}, nil
			},
			expectedStatus: http.StatusOK,
			expectAborted:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mockResolver{CurrentUserFunc: tt.resolve}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.Header.Set("Authorization", "Bearer token-value")

			AuthRequired(resolver, "")(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectAborted, c.IsAborted())
			assert.Equal(t, []string{"token-value"}, resolver.calls)
			if !tt.expectAborted {
				userID, exists := c.Get(ContextUserID)
				assert.True(t, exists)
				assert.Equal(t, uint(42), userID)
				id, ok := IdentityFrom(c)
				assert.True(t, ok)
				assert.Equal(t, "a@x.com", id.Email)
			}
		})
	}
}

func TestAuthRequired_WithCodecResolver(t *testing.T) {
	codec := NewCodec("middleware-secret", time.Hour)
	token, _, err := codec.Sign(entity.Identity{UserID: 5, Email: "e@x.com"})
	assert.NoError(t, err)

	resolver := &mockResolver{CurrentUserFunc: func(ctx context.Context, bearer string) (*entity.Identity, error) {
		if id, ok := codec.Verify(bearer); ok {
			return &id, nil
		}
		return nil, nil
	}}

	r := gin.New()
	r.GET("/me", AuthRequired(resolver, "session"), func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": id.UserID})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":5}`, w.Body.String())
}

func TestBearerFromRequest(t *testing.T) {
	tests := []struct {
		name     string
		cookie   string
		header   string
		expected string
	}{
		{"cookie only", "cookie-token", "", "cookie-token"},
		{"header only", "", "Bearer header-token", "header-token"},
		{"cookie wins over header", "cookie-token", "Bearer header-token", "cookie-token"},
		{"neither", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				c.Request.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}

			assert.Equal(t, tt.expected, BearerFromRequest(c, ""))
		})
	}
}
