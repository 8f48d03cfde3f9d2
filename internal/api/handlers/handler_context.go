package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aibos-vmp/core/internal/principal"
	apperrors "aibos-vmp/core/internal/pkg/errors"
)

// GetMyContexts lists the relationships the caller's tenant plays as client
// and as vendor, alongside which context is currently active (spec 4.F/4.K).
func (s *Server) GetMyContexts(c *gin.Context) {
	p := principalFrom(c)
	if p == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}

	contexts, err := s.deps.Tenant.GetTenantContexts(c.Request.Context(), p.TenantID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asClient":        contexts.AsClient,
		"asVendor":        contexts.AsVendor,
		"activeContext":   p.ActiveContext,
		"activeContextId": p.ActiveContextID,
	})
}

// SwitchContext flips a non-internal caller between acting as their tenant's
// client identity and its vendor identity (spec 4.K), persisting the choice
// on the request's Session row so it survives subsequent requests on the
// same token. Internal users have no client/vendor identity to switch.
func (s *Server) SwitchContext(c *gin.Context) {
	p := principalFrom(c)
	if p == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}
	if p.ActiveContext == principal.ContextInternal {
		writeError(c, apperrors.Validationf("internal users have no client/vendor context to switch"))
		return
	}

	contextID := c.Param("contextId")

	tenantRow, err := s.deps.EntClient.Tenant.Get(c.Request.Context(), p.TenantID)
	if err != nil {
		writeError(c, apperrors.Internalf("load tenant for context switch: %v", err))
		return
	}

	var newContext principal.Context
	switch contextID {
	case tenantRow.ClientID:
		newContext = principal.ContextClient
	case tenantRow.VendorID:
		newContext = principal.ContextVendor
	default:
		writeError(c, apperrors.Validationf("contextId %q is not one of this tenant's identities", contextID))
		return
	}

	tokenString, ok := bearerToken(c)
	if !ok {
		writeError(c, apperrors.ContextMissing())
		return
	}
	claims, err := s.deps.JWTCfg.ValidateToken(c.Request.Context(), tokenString)
	if err != nil {
		writeError(c, apperrors.Unauthenticated(apperrors.CodeTokenInvalid, "invalid or expired token"))
		return
	}

	activeContext := string(newContext)
	if _, err := s.deps.EntClient.Session.UpdateOneID(claims.ID).
		SetActiveContext(activeContext).
		SetActiveContextID(contextID).
		Save(c.Request.Context()); err != nil {
		writeError(c, apperrors.Internalf("persist context switch: %v", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activeContext":   newContext,
		"activeContextId": contextID,
	})
}
