package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aibos-vmp/core/ent/user"
	"aibos-vmp/core/internal/api/middleware"
	apperrors "aibos-vmp/core/internal/pkg/errors"
	"aibos-vmp/core/internal/tenant"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	TenantID  string    `json:"tenantId"`
	Role      string    `json:"role"`
}

// Login authenticates email+password and mints a session-backed JWT (spec 4.K).
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validationf("invalid login request: %v", err))
		return
	}

	u, err := s.deps.Tenant.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	roles, permissions := rolePermissions(u.Role.String(), u.ScopeType)

	tokenString, expiresAt, err := middleware.GenerateToken(s.deps.JWTCfg, u.ID, u.Email, roles, permissions)
	if err != nil {
		writeError(c, apperrors.Internalf("mint session token: %v", err))
		return
	}

	claims, err := s.deps.JWTCfg.ValidateToken(c.Request.Context(), tokenString)
	if err != nil {
		writeError(c, apperrors.Internalf("recover minted token claims: %v", err))
		return
	}

	if _, err := s.deps.EntClient.Session.Create().
		SetID(claims.ID).
		SetUserID(u.ID).
		SetExpiresAt(expiresAt).
		Save(c.Request.Context()); err != nil {
		writeError(c, apperrors.Internalf("create session: %v", err))
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:     tokenString,
		ExpiresAt: expiresAt,
		UserID:    u.ID,
		TenantID:  u.TenantID,
		Role:      u.Role.String(),
	})
}

// rolePermissions derives JWT roles/permissions from a user's role and
// internal scope. Only internal users carry platform-level permissions;
// client/vendor users rely on authz.Filters for row-level scoping instead.
func rolePermissions(role string, scopeType *user.ScopeType) ([]string, []string) {
	roles := []string{role}
	if role != "internal" {
		return roles, nil
	}

	permissions := []string{"ops:view"}
	if scopeType != nil && *scopeType == user.ScopeTypeSuper {
		permissions = append(permissions, "platform:admin")
	}
	return roles, permissions
}

type acceptInviteRequest struct {
	Vendor tenant.AcceptInviteVendorData `json:"vendor"`
	User   tenant.AcceptInviteUserData   `json:"user"`
}

// AcceptInvite completes a vendor invite, creating the vendor tenant,
// owner user, and relationship in one transaction (spec 4.F).
func (s *Server) AcceptInvite(c *gin.Context) {
	token := c.Param("token")

	var req acceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validationf("invalid invite acceptance: %v", err))
		return
	}

	result, err := s.deps.Tenant.AcceptInvite(c.Request.Context(), token, req.Vendor, req.User, s.deps.Triggers)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"vendorTenantId": result.VendorTenant.ID,
		"ownerUserId":    result.OwnerUser.ID,
		"relationshipId": result.Relationship.ID,
	})
}

// Logout revokes the caller's current session. Best-effort: a missing
// session row (e.g. already revoked) is not an error.
func (s *Server) Logout(c *gin.Context) {
	tokenString, ok := bearerToken(c)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	claims, err := s.deps.JWTCfg.ValidateToken(c.Request.Context(), tokenString)
	if err != nil {
		c.Status(http.StatusNoContent)
		return
	}

	now := time.Now().UTC()
	_, _ = s.deps.EntClient.Session.UpdateOneID(claims.ID).
		SetRevokedAt(now).
		Save(c.Request.Context())

	c.Status(http.StatusNoContent)
}

// HealthReady reports readiness by pinging the database pool.
func (s *Server) HealthReady(c *gin.Context) {
	if err := s.deps.Pool.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// HealthLive reports liveness unconditionally; the process responding is the check.
func (s *Server) HealthLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "live"})
}
