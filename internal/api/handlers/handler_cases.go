package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aibos-vmp/core/internal/caseengine"
	"aibos-vmp/core/internal/evidence"
	"aibos-vmp/core/internal/messaging"
	apperrors "aibos-vmp/core/internal/pkg/errors"
)

// ListCases lists cases visible to the caller, optionally narrowed by
// status/caseType/companyId query params (spec 4.G/4.K).
func (s *Server) ListCases(c *gin.Context) {
	f := filtersFrom(c)
	if f == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}

	in := caseengine.ListCasesInput{
		Status:    c.Query("status"),
		CaseType:  c.Query("caseType"),
		CompanyID: c.Query("companyId"),
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

type createCaseRequest struct {
	CaseType  string `json:"caseType" binding:"required"`
	ClientID  string `json:"clientId" binding:"required"`
	VendorID  string `json:"vendorId" binding:"required"`
	Subject   string `json:"subject" binding:"required"`
	OwnerTeam string `json:"ownerTeam"`
	CompanyID string `json:"companyId"`
	GroupID   string `json:"groupId"`
}

// CreateCase opens a new case and its initial checklist (spec 4.G).
func (s *Server) CreateCase(c *gin.Context) {
	var req createCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validationf("invalid case request: %v", err))
		return
	}

	row, err := s.deps.CaseEngine.CreateCase(c.Request.Context(), caseengine.CreateCaseInput{
		CaseType:  req.CaseType,
		ClientID:  req.ClientID,
		VendorID:  req.VendorID,
		Subject:   req.Subject,
		OwnerTeam: req.OwnerTeam,
		CompanyID: req.CompanyID,
		GroupID:   req.GroupID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// GetCase returns one case; requireCaseAccess has already confirmed it is
// within the caller's scope.
func (s *Server) GetCase(c *gin.Context) {
	f := filtersFrom(c)
	if f == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}
	row, err := s.deps.CaseEngine.GetCase(c.Request.Context(), f, c.Param("caseId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// UpdateCaseStatus applies a manual status override (spec 4.G).
func (s *Server) UpdateCaseStatus(c *gin.Context) {
	p := principalFrom(c)
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validationf("invalid status update: %v", err))
		return
	}
	if err := s.deps.CaseEngine.UpdateStatus(c.Request.Context(), p, c.Param("caseId"), req.Status, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type reassignRequest struct {
	OwnerTeam  string `json:"ownerTeam" binding:"required"`
	AssignedTo string `json:"assignedTo"`
	Reason     string `json:"reason"`
}

// ReassignCase changes a case's owner team/assignee (spec 4.G).
func (s *Server) ReassignCase(c *gin.Context) {
	p := principalFrom(c)
	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validationf("invalid reassign request: %v", err))
		return
	}
	if err := s.deps.CaseEngine.Reassign(c.Request.Context(), p, c.Param("caseId"), req.OwnerTeam, req.AssignedTo, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type escalateRequest struct {
	Level  int    `json:"level" binding:"required"`
	Reason string `json:"reason"`
}

// EscalateCase raises a case's escalation level (spec 4.G).
func (s *Server) EscalateCase(c *gin.Context) {
	p := principalFrom(c)
	var req escalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validationf("invalid escalate request: %v", err))
		return
	}
	if err := s.deps.CaseEngine.Escalate(c.Request.Context(), p, c.Param("caseId"), req.Level, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// CloseCase manually closes a case; the checklist is not checked (spec 4.G).
func (s *Server) CloseCase(c *gin.Context) {
	p := principalFrom(c)
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	if err := s.deps.CaseEngine.Close(c.Request.Context(), p, c.Param("caseId"), req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ApproveOnboarding approves an onboarding case after checklist completion
// (spec 4.G).
func (s *Server) ApproveOnboarding(c *gin.Context) {
	p := principalFrom(c)
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	if err := s.deps.CaseEngine.ApproveOnboarding(c.Request.Context(), p, c.Param("caseId"), req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages returns a case's message thread, vendor-filtered to exclude
// internal notes when the caller is in vendor context (spec 4.H).
func (s *Server) ListMessages(c *gin.Context) {
	f := filtersFrom(c)
	p := principalFrom(c)
	if f == nil || p == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}
	rows, err := s.deps.Messaging.GetMessages(c.Request.Context(), f, p, c.Param("caseId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": rows})
}

type postMessageRequest struct {
	Body           string                 `json:"body" binding:"required"`
	Channel        string                 `json:"channel"`
	IsInternalNote bool                   `json:"isInternalNote"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// PostMessage appends a message to a case's thread (spec 4.H).
func (s *Server) PostMessage(c *gin.Context) {
	f := filtersFrom(c)
	p := principalFrom(c)
	if f == nil || p == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validationf("invalid message request: %v", err))
		return
	}

	row, err := s.deps.Messaging.CreateMessage(c.Request.Context(), f, p, messaging.CreateMessageInput{
		CaseID:         c.Param("caseId"),
		Body:           req.Body,
		SenderContext:  string(p.ActiveContext),
		Channel:        req.Channel,
		SenderUserID:   p.UserID,
		IsInternalNote: req.IsInternalNote,
		Metadata:       req.Metadata,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// UploadEvidence accepts a multipart file upload for a case (spec 4.I).
func (s *Server) UploadEvidence(c *gin.Context) {
	f := filtersFrom(c)
	p := principalFrom(c)
	if f == nil || p == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(c, apperrors.Validationf("file is required: %v", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		writeError(c, apperrors.Internalf("open uploaded file: %v", err))
		return
	}
	defer file.Close()

	buf := make([]byte, fileHeader.Size)
	if _, err := file.Read(buf); err != nil {
		writeError(c, apperrors.Internalf("read uploaded file: %v", err))
		return
	}

	row, err := s.deps.Evidence.UploadEvidence(c.Request.Context(), f, evidence.UploadInput{
		CaseID:          c.Param("caseId"),
		Bytes:           buf,
		Filename:        fileHeader.Filename,
		MimeType:        fileHeader.Header.Get("Content-Type"),
		EvidenceType:    c.PostForm("evidenceType"),
		ChecklistStepID: c.PostForm("checklistStepId"),
		UploaderContext: string(p.ActiveContext),
		UploaderUserID:  p.UserID,
		RemoteIP:        c.ClientIP(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// GetEvidenceURL returns a short-lived signed URL for one evidence file
// (spec 4.I), logging the download to the audit chain.
func (s *Server) GetEvidenceURL(c *gin.Context) {
	f := filtersFrom(c)
	p := principalFrom(c)
	if f == nil || p == nil {
		writeError(c, apperrors.ContextMissing())
		return
	}
	url, err := s.deps.Evidence.GetEvidenceURL(c.Request.Context(), f, p, c.Param("evidenceId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

type checklistActionRequest struct {
	Reason string `json:"reason"`
}

// VerifyChecklistStep marks a checklist step verified and re-derives case
// status (spec 4.G/4.I).
func (s *Server) VerifyChecklistStep(c *gin.Context) {
	p := principalFrom(c)
	var req checklistActionRequest
	_ = c.ShouldBindJSON(&req)
	if err := s.deps.CaseEngine.Verify(c.Request.Context(), p, c.Param("stepId"), req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RejectChecklistStep marks a checklist step rejected with a reason and
// re-derives case status (spec 4.G/4.I).
func (s *Server) RejectChecklistStep(c *gin.Context) {
	p := principalFrom(c)
	var req checklistActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Validationf("invalid reject request: %v", err))
		return
	}
	if err := s.deps.CaseEngine.Reject(c.Request.Context(), p, c.Param("stepId"), req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
