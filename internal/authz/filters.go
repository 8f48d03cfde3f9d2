// Package authz derives and applies row-level authorization filters (spec
// 4.E), the single source of truth every data-access call from
// caseengine/messaging/evidence/notification must pass through.
//
// Import path: aibos-vmp/core/internal/authz
package authz

import (
	"context"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/ent/relationship"
	"aibos-vmp/core/internal/principal"
)

// Filters carries the derived allowed sets for one request. It is memoized
// once per request (built by Build, stored in the gin context alongside the
// Principal) and never shared across requests.
type Filters struct {
	AllowedTenantID   string
	AllowedVendorIDs  []string
	AllowedCompanyIDs []string
	// super is true for scope=super internal users: AllowedCompanyIDs does
	// not enumerate every company, so case-query predicates skip the
	// companyId filter entirely instead of building an unbounded IN list.
	super bool
}

// Build computes Filters for p, memoized per request by the caller.
func Build(ctx context.Context, client *ent.Client, p *principal.Principal) (*Filters, error) {
	f := &Filters{AllowedTenantID: p.TenantID}

	switch p.ActiveContext {
	case principal.ContextVendor:
		f.AllowedVendorIDs = []string{p.ActiveContextID}
		return f, nil
	case principal.ContextInternal:
		companies, super, err := allowedCompanies(ctx, client, p)
		if err != nil {
			return nil, err
		}
		f.AllowedCompanyIDs = companies
		f.super = super

		vendorIDs, err := vendorsForCompanies(ctx, client, companies, super, p.TenantID)
		if err != nil {
			return nil, err
		}
		f.AllowedVendorIDs = vendorIDs
		return f, nil
	default: // client context
		return f, nil
	}
}

func allowedCompanies(ctx context.Context, client *ent.Client, p *principal.Principal) ([]string, bool, error) {
	switch p.Scope.Type {
	case "super":
		return nil, true, nil
	case "group":
		return []string{p.Scope.GroupID}, false, nil
	case "company":
		return []string{p.Scope.CompanyID}, false, nil
	default:
		return nil, false, nil
	}
}

// vendorsForCompanies resolves every vendorId with an active relationship
// to any client tenant. companies only decides whether the result is empty
// (non-super with no companies); the result is not narrowed to companies
// or to tenantID.
func vendorsForCompanies(ctx context.Context, client *ent.Client, companies []string, super bool, tenantID string) ([]string, error) {
	q := client.Relationship.Query().Where(relationship.StatusEQ(relationship.StatusActive))

	if !super {
		if len(companies) == 0 {
			return nil, nil
		}
		// A Relationship row carries no companyId of its own, so this
		// cannot narrow vendors to "linked to one of companies" at the
		// relationship level. AllowedVendorIDs is therefore intentionally
		// broad here (every vendor with an active relationship to any
		// client tenant); every caller
		// that reads a Case MUST additionally call f.AllowsCompany against
		// that case's own companyId (caseengine.GetCase/ListCases,
		// messaging.checkCaseAccess, evidence.UploadEvidence/
		// GetEvidenceURL all do) to get the real "(tenant-or-vendor) AND
		// company" scoping spec 4.E requires. AllowedVendorIDs alone is
		// never a sufficient authorization check for a scope=company or
		// scope=group internal user.
		q = q.Where(relationship.ClientIDHasPrefix("TC-"))
	}

	rows, err := q.All(ctx)
	if err != nil {
		return nil, err
	}

	vendorIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		vendorIDs = append(vendorIDs, r.VendorID)
	}
	return vendorIDs, nil
}

// AllowsVendor reports whether vendorID is within the request's allowed set.
// An internal super-scope user has no enumerated set and is allowed all.
func (f *Filters) AllowsVendor(vendorID string) bool {
	if f.super {
		return true
	}
	if len(f.AllowedVendorIDs) == 0 {
		return false
	}
	for _, v := range f.AllowedVendorIDs {
		if v == vendorID {
			return true
		}
	}
	return false
}

// AllowsCompany reports whether companyID is within the request's allowed
// set. A nil/empty companyID (non-company-scoped case) is always allowed.
func (f *Filters) AllowsCompany(companyID string) bool {
	if companyID == "" || f.super {
		return true
	}
	if len(f.AllowedCompanyIDs) == 0 {
		return false
	}
	for _, c := range f.AllowedCompanyIDs {
		if c == companyID {
			return true
		}
	}
	return false
}

// AllowsTenant reports whether tenantID equals the request's isolated
// tenant; tenant isolation is absolute (spec 4.E).
func (f *Filters) AllowsTenant(tenantID string) bool {
	return tenantID == f.AllowedTenantID
}

// IsSuper reports whether these Filters were built for a scope=super
// internal user. Exported so callers outside this package (the auth
// middleware composing a middleware.CaseScope) can carry the same signal
// without re-deriving it from principal.Principal.Scope.
func (f *Filters) IsSuper() bool {
	return f.super
}
