package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/FezAmir/projectfinal-api/internal/models"
)

func performWithRole(t *testing.T, allowed []models.UserRole, claims *models.JWTClaims) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}, RequireRoles(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRequireRolesAllows(t *testing.T) {
	w := performWithRole(t, []models.UserRole{models.RoleAdmin, models.RoleOrganizer}, &models.JWTClaims{UserID: "org1", Role: models.RoleOrganizer})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesForbids(t *testing.T) {
	w := performWithRole(t, []models.UserRole{models.RoleAdmin}, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	w := performWithRole(t, []models.UserRole{models.RoleAdmin}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
