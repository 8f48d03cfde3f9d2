// Package notification implements the platform's in-app notification inbox
// (spec 4.J). Delivery is a synchronous DB write within the caller's
// transaction or request context — there is no external push channel.
//
// Import path: aibos-vmp/core/internal/notification
package notification

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"aibos-vmp/core/ent"
	entnotification "aibos-vmp/core/ent/notification"
	"aibos-vmp/core/internal/idgen"
	"aibos-vmp/core/internal/pkg/logger"
	"aibos-vmp/core/internal/pkg/metrics"
)

// Well-known type strings (spec 4.J, Glossary). Type is a free-form string
// on the schema, not an enum, so new types can be added without a migration;
// these constants document the ones the platform itself emits.
const (
	TypeVendorInviteAccepted = "vendor_invite_accepted"
	TypePaymentQueryOpened   = "payment_query_opened"
	TypeInvoiceException     = "invoice_exception"
	TypeCaseEscalated        = "case_escalated"
	TypeCaseAssigned         = "case_assigned"
	TypeEvidenceRejected     = "evidence_rejected"
	TypeOnboardingApproved   = "onboarding_approved"
)

// criticalPrefixes lists the type prefixes that are always delivered at
// Priority critical regardless of what the caller requests.
var criticalPrefixes = []string{"payment_", "invoice_"}

// Params holds the fields for creating one notification.
type Params struct {
	RecipientID   string
	TenantID      string
	Type          string
	Title         string
	Body          string
	ReferenceType string
	ReferenceID   string
	ActionURL     string
}

// Sender defines the interface for delivering notifications.
type Sender interface {
	Send(ctx context.Context, params Params) error
	SendToMany(ctx context.Context, recipientIDs []string, params Params) error
}

// InboxSender is the in-app inbox implementation.
type InboxSender struct {
	client *ent.Client
}

// NewInboxSender constructs an InboxSender.
func NewInboxSender(client *ent.Client) *InboxSender {
	return &InboxSender{client: client}
}

// Send stores a single notification.
func (s *InboxSender) Send(ctx context.Context, params Params) error {
	if err := validateParams(params); err != nil {
		return fmt.Errorf("notification params invalid: %w", err)
	}

	priority := entnotification.PriorityNormal
	if isCriticalType(params.Type) {
		priority = entnotification.PriorityCritical
	}

	create := s.client.Notification.Create().
		SetID(idgen.NewID("NTF", params.Type)).
		SetUserID(params.RecipientID).
		SetTenantID(params.TenantID).
		SetType(params.Type).
		SetPriority(priority).
		SetTitle(params.Title).
		SetBody(params.Body).
		SetIsRead(false)

	if params.ReferenceType != "" {
		create = create.SetReferenceType(params.ReferenceType)
	}
	if params.ReferenceID != "" {
		create = create.SetReferenceID(params.ReferenceID)
	}
	if params.ActionURL != "" {
		create = create.SetActionURL(params.ActionURL)
	}

	if _, err := create.Save(ctx); err != nil {
		return fmt.Errorf("create notification for user %s: %w", params.RecipientID, err)
	}

	metrics.NotificationsSent.WithLabelValues(params.Type).Inc()
	logger.Debug("notification sent",
		zap.String("recipient", params.RecipientID),
		zap.String("type", params.Type),
		zap.String("priority", string(priority)),
	)
	return nil
}

// SendToMany creates notifications for multiple recipients, best-effort.
func (s *InboxSender) SendToMany(ctx context.Context, recipientIDs []string, params Params) error {
	if len(recipientIDs) == 0 {
		return nil
	}

	var failCount int
	for _, recipientID := range recipientIDs {
		p := params
		p.RecipientID = recipientID
		if err := s.Send(ctx, p); err != nil {
			failCount++
			logger.Error("notification delivery failed",
				zap.String("recipient", recipientID),
				zap.String("type", params.Type),
				zap.Error(err),
			)
		}
	}

	if failCount > 0 {
		return fmt.Errorf("notification delivery failed for %d/%d recipients", failCount, len(recipientIDs))
	}
	return nil
}

var _ Sender = (*InboxSender)(nil)

func isCriticalType(t string) bool {
	for _, prefix := range criticalPrefixes {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

func validateParams(p Params) error {
	if p.RecipientID == "" {
		return fmt.Errorf("recipient_id is required")
	}
	if p.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if p.Type == "" {
		return fmt.Errorf("type is required")
	}
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	if p.Body == "" {
		return fmt.Errorf("body is required")
	}
	return nil
}
