package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/ent/relationship"
	enttenant "aibos-vmp/core/ent/tenant"
	"aibos-vmp/core/internal/authz"
	"aibos-vmp/core/internal/caseengine"
	apperrors "aibos-vmp/core/internal/pkg/errors"
)

// GetOpsCaseQueue returns every case within the caller's scope, for the
// internal ops queue view (spec 4.K, gated by ops:view).
func (s *Server) GetOpsCaseQueue(c *gin.Context) {
	f := filtersFrom(c)
	if f == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}

	in := caseengine.ListCasesInput{
		Status:    c.Query("status"),
		CaseType:  c.Query("caseType"),
		CompanyID: c.Query("companyId"),
		Limit:     200,
	}
	if limitParam := c.Query("limit"); limitParam != "" {
		if limit, err := strconv.Atoi(limitParam); err == nil {
			in.Limit = limit
		}
	}

	rows, err := s.deps.CaseEngine.ListCases(c.Request.Context(), f, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cases": rows})
}

// GetVendorDirectory lists the vendor tenants reachable from the caller's
// scope (spec 4.F, gated by ops:view).
func (s *Server) GetVendorDirectory(c *gin.Context) {
	f := filtersFrom(c)
	if f == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}
	if len(f.AllowedVendorIDs) == 0 && !f.IsSuper() {
		c.JSON(http.StatusOK, gin.H{"vendors": []interface{}{}})
		return
	}

	vendors, err := s.vendorDirectory(c, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": vendors})
}

// vendorDirectory resolves the distinct vendor tenants reachable through
// active relationships within f's scope.
func (s *Server) vendorDirectory(c *gin.Context, f *authz.Filters) ([]*ent.Tenant, error) {
	ctx := c.Request.Context()

	q := s.deps.EntClient.Relationship.Query().Where(relationship.StatusEQ(relationship.StatusActive))
	if !f.IsSuper() {
		q = q.Where(relationship.VendorIDIn(f.AllowedVendorIDs...))
	}
	rels, err := q.All(ctx)
	if err != nil {
		return nil, apperrors.Internalf("query vendor relationships: %v", err)
	}

	seen := make(map[string]struct{}, len(rels))
	vendorIDs := make([]string, 0, len(rels))
	for _, r := range rels {
		if _, ok := seen[r.VendorID]; ok {
			continue
		}
		seen[r.VendorID] = struct{}{}
		vendorIDs = append(vendorIDs, r.VendorID)
	}
	if len(vendorIDs) == 0 {
		return nil, nil
	}

	vendors, err := s.deps.EntClient.Tenant.Query().Where(enttenant.VendorIDIn(vendorIDs...)).All(ctx)
	if err != nil {
		return nil, apperrors.Internalf("load vendor tenants: %v", err)
	}
	return vendors, nil
}

// VerifyChain recomputes the audit chain's hash links and reports the first
// point of divergence, if any (spec 4.C, gated by platform:admin).
func (s *Server) VerifyChain(c *gin.Context) {
	result, err := s.deps.Chain.VerifyChain(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Metrics exposes Prometheus counters for scraping.
func (s *Server) Metrics(c *gin.Context) {
	promhttp.Handler().ServeHTTP(c.Writer, c.Request)
}
