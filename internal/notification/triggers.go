package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/ent/user"
	"aibos-vmp/core/internal/pkg/logger"
)

// Triggers fans out notifications for the platform's lifecycle events
// (spec 4.J). Each trigger resolves its own recipient set and is
// best-effort: a delivery failure is logged, never returned to the caller,
// since a notification is never allowed to roll back the business
// transaction that produced it.
type Triggers struct {
	sender Sender
	client *ent.Client
}

// NewTriggers constructs a Triggers.
func NewTriggers(sender Sender, client *ent.Client) *Triggers {
	return &Triggers{sender: sender, client: client}
}

// OnVendorInviteAccepted notifies the inviting tenant's owners that a vendor
// has accepted and onboarded.
func (t *Triggers) OnVendorInviteAccepted(ctx context.Context, invitingTenantID, vendorDisplayName, relationshipID string) {
	owners, err := t.ownerUserIDs(ctx, invitingTenantID)
	if err != nil {
		logger.Error("failed to find owners for vendor_invite_accepted", zap.String("tenant_id", invitingTenantID), zap.Error(err))
		return
	}

	params := Params{
		TenantID:      invitingTenantID,
		Type:          TypeVendorInviteAccepted,
		Title:         fmt.Sprintf("%s accepted your invite", vendorDisplayName),
		Body:          fmt.Sprintf("%s has onboarded and is now an active vendor.", vendorDisplayName),
		ReferenceType: "relationship",
		ReferenceID:   relationshipID,
	}
	t.sendBestEffort(ctx, owners, params, TypeVendorInviteAccepted)
}

// OnPaymentQueryOpened notifies the owner-role users of clientTenantID that
// a payment-type case was opened against them.
func (t *Triggers) OnPaymentQueryOpened(ctx context.Context, clientTenantID, caseID, subject string) {
	recipients, err := t.ownerUserIDs(ctx, clientTenantID)
	if err != nil {
		logger.Error("failed to find recipients for payment_query_opened", zap.String("case_id", caseID), zap.Error(err))
		return
	}

	params := Params{
		TenantID:      clientTenantID,
		Type:          TypePaymentQueryOpened,
		Title:         "New payment query",
		Body:          subject,
		ReferenceType: "case",
		ReferenceID:   caseID,
	}
	t.sendBestEffort(ctx, recipients, params, TypePaymentQueryOpened)
}

// OnInvoiceException notifies the client tenant's owners of an invoice
// discrepancy raised against a case.
func (t *Triggers) OnInvoiceException(ctx context.Context, clientTenantID, caseID, invoiceRef string) {
	recipients, err := t.ownerUserIDs(ctx, clientTenantID)
	if err != nil {
		logger.Error("failed to find recipients for invoice_exception", zap.String("case_id", caseID), zap.Error(err))
		return
	}

	params := Params{
		TenantID:      clientTenantID,
		Type:          TypeInvoiceException,
		Title:         fmt.Sprintf("Invoice exception on %s", invoiceRef),
		Body:          fmt.Sprintf("Case %s has an open invoice exception for %s.", caseID, invoiceRef),
		ReferenceType: "case",
		ReferenceID:   caseID,
	}
	t.sendBestEffort(ctx, recipients, params, TypeInvoiceException)
}

// OnCaseEscalated notifies the owner-role users of tenantID that a case
// was escalated.
func (t *Triggers) OnCaseEscalated(ctx context.Context, tenantID, caseID string, level int) {
	recipients, err := t.ownerUserIDs(ctx, tenantID)
	if err != nil {
		logger.Error("failed to find recipients for case_escalated", zap.String("case_id", caseID), zap.Error(err))
		return
	}

	params := Params{
		TenantID:      tenantID,
		Type:          TypeCaseEscalated,
		Title:         fmt.Sprintf("Case %s escalated to level %d", caseID, level),
		Body:          fmt.Sprintf("Case %s now requires attention (escalation level %d).", caseID, level),
		ReferenceType: "case",
		ReferenceID:   caseID,
	}
	t.sendBestEffort(ctx, recipients, params, TypeCaseEscalated)
}

// OnCaseAssigned notifies the newly assigned user.
func (t *Triggers) OnCaseAssigned(ctx context.Context, tenantID, assignedToUserID, caseID, subject string) {
	params := Params{
		RecipientID:   assignedToUserID,
		TenantID:      tenantID,
		Type:          TypeCaseAssigned,
		Title:         "Case assigned to you",
		Body:          subject,
		ReferenceType: "case",
		ReferenceID:   caseID,
	}
	if err := t.sender.Send(ctx, params); err != nil {
		logger.Error("failed to send case_assigned notification", zap.String("case_id", caseID), zap.Error(err))
	}
}

// OnEvidenceRejected notifies the vendor tenant's owners that a submitted
// evidence item was rejected.
func (t *Triggers) OnEvidenceRejected(ctx context.Context, vendorTenantID, caseID, evidenceType, reason string) {
	recipients, err := t.ownerUserIDs(ctx, vendorTenantID)
	if err != nil {
		logger.Error("failed to find recipients for evidence_rejected", zap.String("case_id", caseID), zap.Error(err))
		return
	}

	body := fmt.Sprintf("Your %s submission was rejected.", evidenceType)
	if reason != "" {
		body += " Reason: " + reason
	}
	params := Params{
		TenantID:      vendorTenantID,
		Type:          TypeEvidenceRejected,
		Title:         "Evidence rejected",
		Body:          body,
		ReferenceType: "case",
		ReferenceID:   caseID,
	}
	t.sendBestEffort(ctx, recipients, params, TypeEvidenceRejected)
}

func (t *Triggers) sendBestEffort(ctx context.Context, recipients []string, params Params, logType string) {
	if len(recipients) == 0 {
		logger.Warn("no recipients found for notification", zap.String("type", logType))
		return
	}
	if err := t.sender.SendToMany(ctx, recipients, params); err != nil {
		logger.Error("failed to send notification", zap.String("type", logType), zap.Int("recipients", len(recipients)), zap.Error(err))
	}
}

// ownerUserIDs returns the active owner-role users of tenantID.
func (t *Triggers) ownerUserIDs(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := t.client.User.Query().
		Where(
			user.TenantIDEQ(tenantID),
			user.RoleEQ(user.RoleOwner),
			user.ActiveEQ(true),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("query owners for tenant %s: %w", tenantID, err)
	}

	ids := make([]string, 0, len(rows))
	for _, u := range rows {
		ids = append(ids, u.ID)
	}
	return ids, nil
}
