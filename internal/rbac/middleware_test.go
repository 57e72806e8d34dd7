package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"paynet-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u", RoleSuperAdmin)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, RequireAnyRole(RoleAdmin), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAnyRole_UnlistedRoleForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u", RoleRetailer)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, RequirePrivileged(), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	if w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireAnyRole_MissingRoleUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", RequirePrivileged(), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireSelfOrPrivileged(t *testing.T) {
	gin.SetMode(gin.TestMode)

	route := func(userID, role string) *gin.Engine {
		r := gin.New()
		r.GET("/u/:user_id", func(c *gin.Context) {
			ctx := auth.WithIdentity(c.Request.Context(), userID, role)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		}, RequireSelfOrPrivileged("user_id"), func(c *gin.Context) {
			c.Status(200)
		})
		return r
	}

	cases := []struct {
		name   string
		userID string
		role   string
		path   string
		want   int
	}{
		{"self allowed", "ret-1", RoleRetailer, "/u/ret-1", 200},
		{"other partner forbidden", "ret-1", RoleRetailer, "/u/ret-2", 403},
		{"admin allowed on anyone", "adm-1", RoleAdmin, "/u/ret-2", 200},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		route(tc.userID, tc.role).ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, w.Code)
		}
	}
}
