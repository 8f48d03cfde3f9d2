// Package handlers implements the platform's public HTTP API (spec 4.K).
//
// Import Path (ADR-0016): aibos-vmp/core/internal/api/handlers
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/internal/api/middleware"
	"aibos-vmp/core/internal/authz"
	"aibos-vmp/core/internal/caseengine"
	"aibos-vmp/core/internal/chain"
	"aibos-vmp/core/internal/evidence"
	"aibos-vmp/core/internal/messaging"
	"aibos-vmp/core/internal/notification"
	apperrors "aibos-vmp/core/internal/pkg/errors"
	"aibos-vmp/core/internal/principal"
	"aibos-vmp/core/internal/tenant"
)

// ServerDeps collects every dependency a handler needs. Populated by
// internal/app/modules.NewServerDeps, one module at a time.
type ServerDeps struct {
	EntClient   *ent.Client
	Pool        *pgxpool.Pool
	JWTCfg      middleware.JWTConfig
	RiverClient *river.Client[pgx.Tx]

	Chain             *chain.Chain
	Inbox             *notification.Inbox
	Sender            notification.Sender
	Triggers          *notification.Triggers
	PrincipalResolver *principal.Resolver

	CaseEngine *caseengine.Service
	Evidence   *evidence.Service
	Messaging  *messaging.Service
	Tenant     *tenant.Service
}

// Server holds deps and implements every route handler as a method.
type Server struct {
	deps ServerDeps
}

// NewServer constructs a Server.
func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps}
}

// RegisterRoutes wires every spec 4.K operation onto router. Called once
// from internal/app.newRouter after the global JWT/CORS/error middleware.
func RegisterRoutes(router *gin.Engine, s *Server) {
	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/login", s.Login)
		auth.POST("/invites/:token/accept", s.AcceptInvite)
		auth.POST("/logout", s.withPrincipal(), s.Logout)
	}

	v1.GET("/health/ready", s.HealthReady)
	v1.GET("/health/live", s.HealthLive)

	me := v1.Group("/me", s.withPrincipal())
	{
		me.GET("/contexts", s.GetMyContexts)
		me.POST("/contexts/:contextId/switch", s.SwitchContext)
	}

	notifications := v1.Group("/notifications", s.withPrincipal())
	{
		notifications.GET("", s.ListNotifications)
		notifications.GET("/unread-count", s.GetUnreadCount)
		notifications.POST("/mark-read", s.MarkNotificationsRead)
	}

	cases := v1.Group("/cases", s.withPrincipal())
	{
		cases.GET("", s.ListCases)
		cases.POST("", s.CreateCase)
		cases.GET("/:caseId", s.requireCaseAccess("caseId"), s.GetCase)
		cases.PATCH("/:caseId/status", s.requireCaseAccess("caseId"), s.UpdateCaseStatus)
		cases.POST("/:caseId/reassign", s.requireCaseAccess("caseId"), s.ReassignCase)
		cases.POST("/:caseId/escalate", s.requireCaseAccess("caseId"), s.EscalateCase)
		cases.POST("/:caseId/close", s.requireCaseAccess("caseId"), s.CloseCase)
		cases.POST("/:caseId/approve-onboarding", s.requireCaseAccess("caseId"), s.ApproveOnboarding)

		cases.GET("/:caseId/messages", s.requireCaseAccess("caseId"), s.ListMessages)
		cases.POST("/:caseId/messages", s.requireCaseAccess("caseId"), s.PostMessage)

		cases.POST("/:caseId/evidence", s.requireCaseAccess("caseId"), s.UploadEvidence)
		cases.GET("/:caseId/evidence/:evidenceId/url", s.requireCaseAccess("caseId"), s.GetEvidenceURL)

		cases.POST("/checklist-steps/:stepId/verify", s.VerifyChecklistStep)
		cases.POST("/checklist-steps/:stepId/reject", s.RejectChecklistStep)
	}

	invoices := v1.Group("/invoices", s.withPrincipal())
	{
		invoices.GET("", s.ListInvoices)
	}
	payments := v1.Group("/payments", s.withPrincipal())
	{
		payments.GET("", s.ListPayments)
	}

	ops := v1.Group("/ops", s.withPrincipal(), middleware.RequirePermission("ops:view"))
	{
		ops.GET("/case-queue", s.GetOpsCaseQueue)
		ops.GET("/vendor-directory", s.GetVendorDirectory)
	}

	v1.GET("/chain/verify", s.withPrincipal(), middleware.RequirePermission("platform:admin"), s.VerifyChain)

	router.GET("/metrics", s.Metrics)
}

// withPrincipal resolves a Principal + authz.Filters from the request's
// already-validated bearer token and stores both on the gin context,
// including the middleware.CaseScope that requireCaseAccess checks.
//
// Kept as a second, explicit pass over the Authorization header rather than
// reusing jwtSkipPublic's claims: that middleware only proves the token is
// well-formed and unexpired, while resolving a Principal additionally loads
// the User row (active check) and its tenant/scope — work every case-scoped
// or identity-scoped route needs but public/health routes never do.
func (s *Server) withPrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": "UNAUTHORIZED", "message": "missing authorization header",
			})
			return
		}

		p, err := s.deps.PrincipalResolver.Resolve(c.Request.Context(), tokenString)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}

		f, err := authz.Build(c.Request.Context(), s.deps.EntClient, p)
		if err != nil {
			writeError(c, apperrors.Internalf("build authz filters: %v", err))
			c.Abort()
			return
		}

		c.Set(ctxKeyPrincipal, p)
		c.Set(ctxKeyFilters, f)
		middleware.SetCaseScope(c, middleware.CaseScope{
			TenantID:   f.AllowedTenantID,
			VendorIDs:  f.AllowedVendorIDs,
			CompanyIDs: f.AllowedCompanyIDs,
			Super:      f.IsSuper(),
		})
		c.Next()
	}
}

// requireCaseAccess composes middleware.RequireCaseAccess, which reads the
// CaseScope withPrincipal already set.
func (s *Server) requireCaseAccess(paramName string) gin.HandlerFunc {
	return middleware.RequireCaseAccess(s.deps.EntClient, paramName)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

const (
	ctxKeyPrincipal = "vmp_principal"
	ctxKeyFilters   = "vmp_authz_filters"
)

func principalFrom(c *gin.Context) *principal.Principal {
	v, ok := c.Get(ctxKeyPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*principal.Principal)
	return p
}

func filtersFrom(c *gin.Context) *authz.Filters {
	v, ok := c.Get(ctxKeyFilters)
	if !ok {
		return nil
	}
	f, _ := v.(*authz.Filters)
	return f
}

// writeError renders err as the spec §7 error envelope. AppErrors carry
// their own Kind->status mapping; anything else is an unclassified 500.
func writeError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(apperrors.KindHTTPStatus(appErr.Kind), gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "an internal error occurred",
	})
}
