// Package accessgate resolves caller identity once per request: admin
// session tokens on the dashboard surface, project API keys on the
// client surface. Business logic below the gate never re-checks
// capability.
package accessgate

import (
	"github.com/gin-gonic/gin"

	tenantdomain "github.com/kivabase/kivabase-backend/internal/tenants/domain"
)

const (
	CtxAccountID   = "account_id"
	CtxAccountName = "account_name"
	CtxProject     = "project"
	CtxCapability  = "capability"
)

// Capability levels resolved by the gate.
const (
	CapabilityAdmin   = "admin"
	CapabilityService = "service"
	CapabilityAnon    = "anon"
)

// AccountID returns the administrator account id attached by
// RequireAdmin.
func AccountID(c *gin.Context) string {
	return c.GetString(CtxAccountID)
}

// Project returns the project attached by RequireProjectKey, or nil.
func Project(c *gin.Context) *tenantdomain.Project {
	v, ok := c.Get(CtxProject)
	if !ok {
		return nil
	}
	p, _ := v.(*tenantdomain.Project)
	return p
}

// Capability returns the capability level resolved for this call.
func Capability(c *gin.Context) string {
	return c.GetString(CtxCapability)
}
