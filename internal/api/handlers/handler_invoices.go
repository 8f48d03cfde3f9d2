package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aibos-vmp/core/internal/caseengine"
	apperrors "aibos-vmp/core/internal/pkg/errors"
)

// ListInvoices lists invoice-typed cases visible to the caller (spec 4.K):
// invoices have no dedicated entity, they are CaseRecord rows with
// caseType=invoice.
func (s *Server) ListInvoices(c *gin.Context) {
	s.listDenormalizedCases(c, "invoice")
}

// ListPayments lists payment-typed cases visible to the caller (spec 4.K).
func (s *Server) ListPayments(c *gin.Context) {
	s.listDenormalizedCases(c, "payment")
}

func (s *Server) listDenormalizedCases(c *gin.Context, caseType string) {
	f := filtersFrom(c)
	if f == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}

	rows, err := s.deps.CaseEngine.ListCases(c.Request.Context(), f, caseengine.ListCasesInput{
		CaseType:  caseType,
		Status:    c.Query("status"),
		CompanyID: c.Query("companyId"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cases": rows})
}
