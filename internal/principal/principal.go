// Package principal resolves an opaque bearer token into a Principal
// (spec 4.D). Caching is per-request only, via context.Context, never a
// package-level cache — mirroring the teacher's per-gin-context
// c.Set("user_id", ...) memoization shape.
//
// Import path: aibos-vmp/core/internal/principal
package principal

import (
	"context"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/ent/session"
	"aibos-vmp/core/ent/user"
	"aibos-vmp/core/internal/api/middleware"
	apperrors "aibos-vmp/core/internal/pkg/errors"
)

// Context is the role a tenant is playing in the current request.
type Context string

const (
	ContextClient   Context = "client"
	ContextVendor   Context = "vendor"
	ContextInternal Context = "internal"
)

// Scope mirrors the user schema's scope_type/scope_group_id/scope_company_id
// triple for internal users.
type Scope struct {
	Type      string // "super", "group", "company", or "" for non-internal users
	GroupID   string
	CompanyID string
}

// Principal is the resolved identity of the caller for one request.
type Principal struct {
	UserID          string
	TenantID        string
	ActiveContext   Context
	ActiveContextID string // TC-/TV-/tenantId depending on ActiveContext
	Role            string
	Scope           Scope
}

// Resolver validates bearer tokens and loads the resulting Principal.
type Resolver struct {
	client  *ent.Client
	jwtCfg  middleware.JWTConfig
}

// NewResolver constructs a Resolver.
func NewResolver(client *ent.Client, jwtCfg middleware.JWTConfig) *Resolver {
	return &Resolver{client: client, jwtCfg: jwtCfg}
}

// Resolve validates bearerToken and loads the User/Tenant/Scope it names.
func (r *Resolver) Resolve(ctx context.Context, bearerToken string) (*Principal, error) {
	claims, err := r.jwtCfg.ValidateToken(ctx, bearerToken)
	if err != nil {
		return nil, apperrors.Unauthenticated(apperrors.CodeTokenInvalid, "invalid or expired token")
	}

	u, err := r.client.User.Query().
		Where(user.IDEQ(claims.UserID)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.Unauthenticated(apperrors.CodeTokenInvalid, "token subject no longer exists")
		}
		return nil, apperrors.Internalf("load user for principal: %v", err)
	}
	if !u.Active {
		return nil, apperrors.Forbidden(apperrors.CodeTenantInactive, "user account is disabled")
	}

	p := &Principal{
		UserID:   u.ID,
		TenantID: u.TenantID,
		Role:     u.Role.String(),
	}

	switch u.Role.String() {
	case "internal":
		if u.ScopeType == nil {
			return nil, apperrors.ContextMissing()
		}
		p.ActiveContext = ContextInternal
		p.ActiveContextID = u.TenantID
		p.Scope = Scope{Type: string(*u.ScopeType)}
		if u.ScopeGroupID != nil {
			p.Scope.GroupID = *u.ScopeGroupID
		}
		if u.ScopeCompanyID != nil {
			p.Scope.CompanyID = *u.ScopeCompanyID
		}
	default:
		// Non-internal users derive scope from their tenant; the active
		// context (client vs vendor) defaults to client and is overridden by
		// whatever SwitchContext last persisted on this token's Session row.
		p.ActiveContext = ContextClient
		tenant, err := r.client.Tenant.Get(ctx, u.TenantID)
		if err != nil {
			return nil, apperrors.Internalf("load tenant for principal: %v", err)
		}
		p.ActiveContextID = tenant.ClientID

		if claims.ID != "" {
			sess, err := r.client.Session.Query().Where(session.IDEQ(claims.ID)).Only(ctx)
			if err != nil && !ent.IsNotFound(err) {
				return nil, apperrors.Internalf("load session for principal: %v", err)
			}
			if sess != nil && sess.ActiveContext != nil && sess.ActiveContextID != nil {
				p.ActiveContext = Context(*sess.ActiveContext)
				p.ActiveContextID = *sess.ActiveContextID
			}
		}
	}

	return p, nil
}

// WithActiveContext overrides the resolved active context/ID, used by
// SwitchContext (spec 4.K) to flip a non-internal user between their
// client and vendor identities.
func (p *Principal) WithActiveContext(ctx Context, contextID string) *Principal {
	clone := *p
	clone.ActiveContext = ctx
	clone.ActiveContextID = contextID
	return &clone
}
