package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/pusat-bantuan/helpcenter-auth/internal/models"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/config"
	appErrors "github.com/pusat-bantuan/helpcenter-auth/pkg/errors"
)

type fakeVerifier struct {
	claims *models.AccessClaims
	err    error
}

func (f *fakeVerifier) VerifyAccessToken(raw string) (*models.AccessClaims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func protectedEngine(verifier TokenVerifier, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{Auth(verifier)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.AccessClaims)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	r.GET("/protected", handlers...)
	return r
}

func staffClaims() *models.AccessClaims {
	return &models.AccessClaims{UserID: "u1", Role: models.RoleStaff, Email: "staff@example.com"}
}

func TestAuthMissingHeader(t *testing.T) {
	r := protectedEngine(&fakeVerifier{claims: staffClaims()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMalformedHeader(t *testing.T) {
	r := protectedEngine(&fakeVerifier{claims: staffClaims()})

	for _, header := range []string{"Token abc", "Bearer", "abc"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestAuthRejectedToken(t *testing.T) {
	r := protectedEngine(&fakeVerifier{err: appErrors.Wrap(errors.New("expired"), appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, "invalid or expired token")})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthStoresClaims(t *testing.T) {
	r := protectedEngine(&fakeVerifier{claims: staffClaims()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"u1"`)
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	r := protectedEngine(&fakeVerifier{claims: staffClaims()}, models.RoleAdmin, models.RoleStaff)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRBACForbidsMismatchedRole(t *testing.T) {
	r := protectedEngine(&fakeVerifier{claims: staffClaims()}, models.RoleAdmin)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", RateLimit(config.RateLimitConfig{Enabled: false}, nil, nil, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
