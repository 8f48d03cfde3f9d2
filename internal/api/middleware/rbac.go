package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"aibos-vmp/core/ent"
)

// RequirePermission returns middleware that checks if the authenticated user
// has a specific global permission (from their platform role).
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		perms, exists := c.Get("permissions")
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": "FORBIDDEN", "message": "no permissions in context",
			})
			return
		}
		permList, ok := perms.([]string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": "FORBIDDEN", "message": "invalid permissions type",
			})
			return
		}

		// platform:admin is the explicit super-admin permission.
		if slices.Contains(permList, "platform:admin") {
			c.Next()
			return
		}

		if slices.Contains(permList, permission) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"code": "FORBIDDEN", "message": "insufficient permissions",
		})
	}
}

// CaseScope is the middleware-layer mirror of authz.Filters (spec 4.E): the
// row-level authorization inputs derived from the request's resolved
// Principal. It is set upstream, once per request, by whatever composes the
// Principal/authz.Filters pair (kept out of this package to avoid an import
// cycle: internal/principal already imports internal/api/middleware for
// JWTConfig, and internal/authz imports internal/principal).
type CaseScope struct {
	TenantID   string
	VendorIDs  []string
	CompanyIDs []string
	Super      bool
}

const ctxKeyCaseScope contextKey = "case_scope"

// SetCaseScope stores scope on the gin context for RequireCaseAccess and
// downstream handlers.
func SetCaseScope(c *gin.Context, scope CaseScope) {
	c.Set(string(ctxKeyCaseScope), scope)
}

// RequireCaseAccess returns middleware that 404s a request whose :paramName
// case is outside the caller's CaseScope. This is defense in depth: the
// service layer (caseengine/evidence/messaging) re-derives and re-checks
// authz.Filters itself on every call, so a bug here narrows blast radius
// rather than being the only gate.
func RequireCaseAccess(client *ent.Client, paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := c.Get(string(ctxKeyCaseScope))
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": "FORBIDDEN", "message": "no case scope in context",
			})
			return
		}
		scope, ok := raw.(CaseScope)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": "FORBIDDEN", "message": "invalid case scope type",
			})
			return
		}

		caseID := c.Param(paramName)
		if caseID == "" {
			c.Next()
			return
		}

		row, err := client.CaseRecord.Get(c.Request.Context(), caseID)
		if err != nil {
			if ent.IsNotFound(err) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
					"code": "NOT_FOUND", "message": "case not found",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code": "INTERNAL_ERROR", "message": "case lookup failed",
			})
			return
		}

		if !scope.allows(row) {
			// Mirror authz.Filters: an out-of-scope case reads as not found,
			// never forbidden, so scope is never leaked via status code.
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"code": "NOT_FOUND", "message": "case not found",
			})
			return
		}

		c.Next()
	}
}

func (s CaseScope) allows(row *ent.CaseRecord) bool {
	if s.Super || row.ClientID == s.TenantID {
		return true
	}
	if slices.Contains(s.VendorIDs, row.VendorID) {
		return true
	}
	if row.CompanyID != nil && slices.Contains(s.CompanyIDs, *row.CompanyID) {
		return true
	}
	return false
}
