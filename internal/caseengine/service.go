package caseengine

import (
	"context"
	"fmt"

	"aibos-vmp/core/ent"
	entcase "aibos-vmp/core/ent/caserecord"
	"aibos-vmp/core/ent/checkliststep"
	"aibos-vmp/core/ent/decisionlogentry"
	"aibos-vmp/core/ent/message"
	"aibos-vmp/core/ent/predicate"
	"aibos-vmp/core/internal/authz"
	"aibos-vmp/core/internal/chain"
	"aibos-vmp/core/internal/idgen"
	"aibos-vmp/core/internal/notification"
	apperrors "aibos-vmp/core/internal/pkg/errors"
	"aibos-vmp/core/internal/pkg/metrics"
	"aibos-vmp/core/internal/principal"
)

// Service implements spec 4.G's case creation, checklist, status
// derivation, escalation, and decisioning operations.
type Service struct {
	client   *ent.Client
	chain    *chain.Chain
	triggers *notification.Triggers
}

// NewService constructs a Service.
func NewService(client *ent.Client, ch *chain.Chain, triggers *notification.Triggers) *Service {
	return &Service{client: client, chain: ch, triggers: triggers}
}

// CreateCaseInput is the input to CreateCase.
type CreateCaseInput struct {
	CaseType  string
	ClientID  string
	VendorID  string
	Subject   string
	OwnerTeam string
	CompanyID string
	GroupID   string
}

// CreateCase inserts a case and ensures its initial checklist (spec 4.G).
func (s *Service) CreateCase(ctx context.Context, in CreateCaseInput) (*ent.CaseRecord, error) {
	if in.Subject == "" {
		return nil, apperrors.Validation(apperrors.CodeValidationFailed, "subject is required")
	}
	if in.ClientID == "" || in.VendorID == "" {
		return nil, apperrors.Validation(apperrors.CodeValidationFailed, "clientId and vendorId are required")
	}

	create := s.client.CaseRecord.Create().
		SetID(idgen.NewID("CASE", in.Subject)).
		SetClientID(in.ClientID).
		SetVendorID(in.VendorID).
		SetCaseType(entcase.CaseType(in.CaseType)).
		SetSubject(in.Subject)

	if in.OwnerTeam != "" {
		create = create.SetOwnerTeam(entcase.OwnerTeam(in.OwnerTeam))
	}
	if in.CompanyID != "" {
		create = create.SetCompanyID(in.CompanyID)
	}
	if in.GroupID != "" {
		create = create.SetGroupID(in.GroupID)
	}

	row, err := create.Save(ctx)
	if err != nil {
		return nil, apperrors.Internalf("create case: %v", err)
	}

	if err := s.EnsureChecklist(ctx, row.ID, in.CaseType); err != nil {
		return nil, err
	}
	metrics.CasesCreated.WithLabelValues(in.CaseType).Inc()
	return row, nil
}

// EnsureChecklist creates the fixed initial checklist steps for caseType if
// none exist yet (spec 4.G). Idempotent: a case with steps already present
// is left untouched.
func (s *Service) EnsureChecklist(ctx context.Context, caseID, caseType string) error {
	rules := RulesFor(caseType)
	if len(rules) == 0 {
		return nil
	}

	existing, err := s.client.ChecklistStep.Query().
		Where(checkliststep.CaseIDEQ(caseID)).
		Count(ctx)
	if err != nil {
		return apperrors.Internalf("count existing checklist steps: %v", err)
	}
	if existing > 0 {
		return nil
	}

	for _, rule := range rules {
		create := s.client.ChecklistStep.Create().
			SetID(idgen.NewID("CHK", caseID+rule.Label)).
			SetCaseID(caseID).
			SetLabel(rule.Label).
			SetSortOrder(rule.SortOrder)
		if rule.RequiredEvidenceType != "" {
			create = create.SetRequiredEvidenceType(rule.RequiredEvidenceType)
		}
		if _, err := create.Save(ctx); err != nil {
			return apperrors.Internalf("create checklist step %q: %v", rule.Label, err)
		}
	}
	return nil
}

// RecomputeStatus loads every checklist step for caseID and applies
// DeriveStatus, writing the case's status if it changed. Called at the end
// of Verify and Reject; internal/evidence's UploadEvidence applies
// DeriveStatus through its own helper instead.
func (s *Service) RecomputeStatus(ctx context.Context, caseID string) error {
	steps, err := s.client.ChecklistStep.Query().
		Where(checkliststep.CaseIDEQ(caseID)).
		All(ctx)
	if err != nil {
		return apperrors.Internalf("load checklist steps: %v", err)
	}

	statuses := make([]string, len(steps))
	for i, st := range steps {
		statuses[i] = string(st.Status)
	}

	newStatus := DeriveStatus(statuses)
	if newStatus == "" {
		return nil
	}

	if _, err := s.client.CaseRecord.UpdateOneID(caseID).SetStatus(entcase.Status(newStatus)).Save(ctx); err != nil {
		return apperrors.Internalf("update case status: %v", err)
	}
	return nil
}

// Verify marks a checklist step verified and re-runs status derivation
// (spec 4.G/4.I).
func (s *Service) Verify(ctx context.Context, p *principal.Principal, checklistStepID, reason string) error {
	step, err := s.client.ChecklistStep.Get(ctx, checklistStepID)
	if err != nil {
		return notFoundOrInternal(err, "checklist step")
	}

	if _, err := s.client.ChecklistStep.UpdateOneID(checklistStepID).SetStatus(checkliststep.StatusVerified).Save(ctx); err != nil {
		return apperrors.Internalf("verify checklist step: %v", err)
	}

	if err := s.appendDecision(ctx, step.CaseID, p, decisionlogentry.DecisionTypeVerify, fmt.Sprintf("verified checklist step %s", checklistStepID), reason); err != nil {
		return err
	}
	return s.RecomputeStatus(ctx, step.CaseID)
}

// Reject marks a checklist step rejected with a reason and re-runs status
// derivation (spec 4.G/4.I).
func (s *Service) Reject(ctx context.Context, p *principal.Principal, checklistStepID, reason string) error {
	if reason == "" {
		return apperrors.Validation(apperrors.CodeValidationFailed, "reason is required to reject a checklist step")
	}

	step, err := s.client.ChecklistStep.Get(ctx, checklistStepID)
	if err != nil {
		return notFoundOrInternal(err, "checklist step")
	}

	if _, err := s.client.ChecklistStep.UpdateOneID(checklistStepID).
		SetStatus(checkliststep.StatusRejected).
		SetWaivedReason(reason).
		Save(ctx); err != nil {
		return apperrors.Internalf("reject checklist step: %v", err)
	}

	if err := s.appendDecision(ctx, step.CaseID, p, decisionlogentry.DecisionTypeReject, fmt.Sprintf("rejected checklist step %s", checklistStepID), reason); err != nil {
		return err
	}
	return s.RecomputeStatus(ctx, step.CaseID)
}

// Reassign changes a case's owner team and optionally its assignee.
func (s *Service) Reassign(ctx context.Context, p *principal.Principal, caseID, ownerTeam, assignedTo, reason string) error {
	update := s.client.CaseRecord.UpdateOneID(caseID).SetOwnerTeam(entcase.OwnerTeam(ownerTeam))
	if assignedTo != "" {
		update = update.SetAssignedTo(assignedTo)
	}
	if _, err := update.Save(ctx); err != nil {
		return notFoundOrInternal(err, "case")
	}

	what := fmt.Sprintf("reassigned to ownerTeam=%s", ownerTeam)
	if assignedTo != "" {
		what += fmt.Sprintf(" assignedTo=%s", assignedTo)
		if s.triggers != nil {
			row, err := s.client.CaseRecord.Get(ctx, caseID)
			if err == nil {
				s.triggers.OnCaseAssigned(ctx, row.ClientID, assignedTo, caseID, row.Subject)
			}
		}
	}
	return s.appendDecision(ctx, caseID, p, decisionlogentry.DecisionTypeReassign, what, reason)
}

// UpdateStatus sets a case's status directly (spec 4.G decisions list),
// bypassing derivation, as a manual override. Close does not use it; it
// writes the resolved status itself.
func (s *Service) UpdateStatus(ctx context.Context, p *principal.Principal, caseID, status, reason string) error {
	if _, err := s.client.CaseRecord.UpdateOneID(caseID).SetStatus(entcase.Status(status)).Save(ctx); err != nil {
		return notFoundOrInternal(err, "case")
	}
	return s.appendDecision(ctx, caseID, p, decisionlogentry.DecisionTypeStatusUpdate, fmt.Sprintf("status set to %s", status), reason)
}

// Escalate raises a case's escalation level (spec 4.G). Level 3 is a
// break-glass event: status forced to blocked, a tamper-evident chain
// entry is appended, and Triggers.OnCaseEscalated sends a case_escalated
// notification for the case's client.
func (s *Service) Escalate(ctx context.Context, p *principal.Principal, caseID string, level int, reason string) error {
	if level < 1 || level > 3 {
		return apperrors.Validation(apperrors.CodeValidationFailed, "level must be 1, 2, or 3")
	}

	status := entcase.StatusWaitingInternal
	if level == 3 {
		status = entcase.StatusBlocked
	}

	row, err := s.client.CaseRecord.UpdateOneID(caseID).
		SetEscalationLevel(level).
		SetOwnerTeam(entcase.OwnerTeamAp).
		SetStatus(status).
		Save(ctx)
	if err != nil {
		return notFoundOrInternal(err, "case")
	}

	if _, err := s.client.Message.Create().
		SetID(idgen.NewID("MSG", caseID)).
		SetCaseID(caseID).
		SetSenderContext(message.SenderContextInternal).
		SetChannel(message.ChannelPortal).
		SetBody(fmt.Sprintf("Escalated to level %d: %s", level, reason)).
		SetIsInternalNote(true).
		Save(ctx); err != nil {
		return apperrors.Internalf("append escalation note: %v", err)
	}

	if level == 3 {
		if s.chain != nil {
			if _, err := s.chain.LogEvent(ctx, caseID, p.UserID, "", map[string]interface{}{
				"action": "BREAK_GLASS",
				"caseId": caseID,
				"level":  level,
			}); err != nil {
				return apperrors.Chainf("log break-glass escalation: %v", err)
			}
		}
		if s.triggers != nil {
			s.triggers.OnCaseEscalated(ctx, row.ClientID, caseID, level)
		}
	}

	return s.appendDecision(ctx, caseID, p, decisionlogentry.DecisionTypeEscalate, fmt.Sprintf("escalated to level %d", level), reason)
}

// ApproveOnboarding applies spec 4.G's Approve Onboarding preconditions and
// effects: caseType must be onboarding and every checklist step must be
// verified or waived; on success the case resolves, the vendor's users are
// activated, and the vendor owner is notified.
func (s *Service) ApproveOnboarding(ctx context.Context, p *principal.Principal, caseID, reason string) error {
	row, err := s.client.CaseRecord.Get(ctx, caseID)
	if err != nil {
		return notFoundOrInternal(err, "case")
	}
	if row.CaseType != entcase.CaseTypeOnboarding {
		return apperrors.Validation(apperrors.CodeInvalidCaseType, "ApproveOnboarding requires caseType=onboarding")
	}

	steps, err := s.client.ChecklistStep.Query().Where(checkliststep.CaseIDEQ(caseID)).All(ctx)
	if err != nil {
		return apperrors.Internalf("load checklist steps: %v", err)
	}
	for _, st := range steps {
		if st.Status != checkliststep.StatusVerified && st.Status != checkliststep.StatusWaived {
			return apperrors.ChecklistIncomplete()
		}
	}

	if _, err := s.client.CaseRecord.UpdateOneID(caseID).SetStatus(entcase.StatusResolved).Save(ctx); err != nil {
		return apperrors.Internalf("resolve case: %v", err)
	}

	if err := s.appendDecision(ctx, caseID, p, decisionlogentry.DecisionTypeApprove, "onboarding approved", reason); err != nil {
		return err
	}

	if s.triggers != nil {
		s.triggers.OnCaseAssigned(ctx, row.VendorID, "", caseID, "Onboarding approved")
	}
	return nil
}

// Close manually closes a case, bypassing checklist-driven derivation.
func (s *Service) Close(ctx context.Context, p *principal.Principal, caseID, reason string) error {
	if _, err := s.client.CaseRecord.UpdateOneID(caseID).SetStatus(entcase.StatusResolved).Save(ctx); err != nil {
		return notFoundOrInternal(err, "case")
	}
	return s.appendDecision(ctx, caseID, p, decisionlogentry.DecisionTypeClose, "case closed", reason)
}

// CreateBankChangeCase implements the bank-detail-change workflow
// short-circuit (spec 4.G): a payment case owned by finance, carrying the
// proposed bank details in metadata, requiring a bank-letter evidence.
func (s *Service) CreateBankChangeCase(ctx context.Context, clientID, vendorID string, proposedBankDetails map[string]interface{}) (*ent.CaseRecord, error) {
	row, err := s.client.CaseRecord.Create().
		SetID(idgen.NewID("CASE", "bank-change")).
		SetClientID(clientID).
		SetVendorID(vendorID).
		SetCaseType(entcase.CaseTypeBankChange).
		SetOwnerTeam(entcase.OwnerTeamFinance).
		SetSubject("Bank detail change request").
		SetMetadata(map[string]interface{}{"proposedBankDetails": proposedBankDetails}).
		Save(ctx)
	if err != nil {
		return nil, apperrors.Internalf("create bank change case: %v", err)
	}
	if err := s.EnsureChecklist(ctx, row.ID, string(entcase.CaseTypeBankChange)); err != nil {
		return nil, err
	}
	return row, nil
}

// GetCase loads a case, enforcing authz.Filters (spec 3.E).
func (s *Service) GetCase(ctx context.Context, f *authz.Filters, caseID string) (*ent.CaseRecord, error) {
	row, err := s.client.CaseRecord.Get(ctx, caseID)
	if err != nil {
		return nil, apperrors.CaseNotFoundOrForbidden()
	}
	if !f.AllowsTenant(row.ClientID) && !f.AllowsVendor(row.VendorID) {
		return nil, apperrors.CaseNotFoundOrForbidden()
	}
	if !f.AllowsCompany(derefString(row.CompanyID)) {
		return nil, apperrors.CaseNotFoundOrForbidden()
	}
	return row, nil
}

// ListCasesInput narrows ListCases beyond the caller's authz.Filters.
type ListCasesInput struct {
	Status    string
	CaseType  string
	CompanyID string
	Limit     int
}

// ListCases returns cases within f's allowed tenant/vendor/company sets,
// optionally narrowed by in. Mirrors GetCase's authz enforcement: a caller
// never sees a row outside its Filters (spec 4.E).
func (s *Service) ListCases(ctx context.Context, f *authz.Filters, in ListCasesInput) ([]*ent.CaseRecord, error) {
	limit := in.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	preds := []predicate.CaseRecord{
		entcase.Or(
			entcase.ClientIDEQ(f.AllowedTenantID),
			entcase.VendorIDIn(f.AllowedVendorIDs...),
		),
	}
	if in.Status != "" {
		preds = append(preds, entcase.StatusEQ(entcase.Status(in.Status)))
	}
	if in.CaseType != "" {
		preds = append(preds, entcase.CaseTypeEQ(entcase.CaseType(in.CaseType)))
	}
	if in.CompanyID != "" {
		preds = append(preds, entcase.CompanyIDEQ(in.CompanyID))
	}

	rows, err := s.client.CaseRecord.Query().
		Where(entcase.And(preds...)).
		Order(ent.Desc(entcase.FieldCreatedAt)).
		Limit(limit).
		All(ctx)
	if err != nil {
		return nil, apperrors.Internalf("list cases: %v", err)
	}

	if f.AllowedCompanyIDs == nil {
		return rows, nil
	}
	filtered := rows[:0]
	for _, row := range rows {
		if f.AllowsCompany(derefString(row.CompanyID)) {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *Service) appendDecision(ctx context.Context, caseID string, p *principal.Principal, decisionType decisionlogentry.DecisionType, what, why string) error {
	create := s.client.DecisionLogEntry.Create().
		SetID(idgen.NewID("DEC", caseID)).
		SetCaseID(caseID).
		SetDecisionType(decisionType).
		SetWho(p.UserID).
		SetWhat(what)
	if why != "" {
		create = create.SetWhy(why)
	}
	if _, err := create.Save(ctx); err != nil {
		return apperrors.Internalf("append decision log entry: %v", err)
	}
	return nil
}

func notFoundOrInternal(err error, what string) error {
	if ent.IsNotFound(err) {
		return apperrors.NotFoundf("%s not found", what)
	}
	return apperrors.Internalf("load %s: %v", what, err)
}
