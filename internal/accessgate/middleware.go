package accessgate

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kivabase/kivabase-backend/internal/keyring"
	tenantdomain "github.com/kivabase/kivabase-backend/internal/tenants/domain"
)

// ProjectGetter resolves a project by id. The gate looks the project
// up on every call; it never caches.
type ProjectGetter interface {
	Get(ctx context.Context, projectID string) (*tenantdomain.Project, error)
}

// AdminToken extracts the admin session token from the request:
// X-Admin-Token first, then a bearer Authorization header.
func AdminToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader("X-Admin-Token")); token != "" {
		return token
	}
	return bearerToken(c)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return ""
}

// APIKey extracts the project API key: the apikey header, a bearer
// Authorization header, or an apikey query parameter (the websocket
// client cannot set headers). The rate limiter keys on the same
// extraction so a caller is one bucket however it presents the key.
func APIKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader("apikey")); key != "" {
		return key
	}
	if key := bearerToken(c); key != "" {
		return key
	}
	return strings.TrimSpace(c.Query("apikey"))
}

// RequireAdmin guards admin-scoped endpoints. A missing or
// unresolvable token fails 401; on success the administrator identity
// is attached to the request context.
func RequireAdmin(reg *keyring.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := reg.ResolveAdminToken(AdminToken(c))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin authorization required"})
			return
		}

		c.Set(CtxAccountID, account.ID)
		c.Set(CtxAccountName, account.Name)
		c.Set(CtxCapability, CapabilityAdmin)
		c.Next()
	}
}

// RequireProjectKey guards project-scoped client endpoints. The
// project from the path must exist (404 otherwise); the caller must
// present one of its API keys, or fall back to a valid admin token.
// Keys only match the project they belong to.
func RequireProjectKey(reg *keyring.Registry, projects ProjectGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")

		p, err := projects.Get(c.Request.Context(), projectID)
		if errors.Is(err, tenantdomain.ErrProjectNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}

		switch key := APIKey(c); key {
		case "":
		case p.ServiceKey:
			c.Set(CtxProject, p)
			c.Set(CtxCapability, CapabilityService)
			c.Next()
			return
		case p.AnonKey:
			c.Set(CtxProject, p)
			c.Set(CtxCapability, CapabilityAnon)
			c.Next()
			return
		}

		if account, ok := reg.ResolveAdminToken(AdminToken(c)); ok {
			c.Set(CtxAccountID, account.ID)
			c.Set(CtxAccountName, account.Name)
			c.Set(CtxProject, p)
			c.Set(CtxCapability, CapabilityAdmin)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key or authorization required"})
	}
}
