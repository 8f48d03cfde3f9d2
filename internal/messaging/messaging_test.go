package messaging

import (
	"context"
	"testing"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/ent/caserecord"
	"aibos-vmp/core/internal/authz"
	"aibos-vmp/core/internal/idgen"
	"aibos-vmp/core/internal/principal"
	"aibos-vmp/core/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *ent.Client, context.Context) {
	t.Helper()
	client := testutil.OpenEntPostgres(t, "messaging")
	return NewService(client, nil, nil), client, context.Background()
}

func newTestCase(t *testing.T, client *ent.Client, ctx context.Context) string {
	t.Helper()
	row, err := client.CaseRecord.Create().
		SetID(idgen.NewID("CASE", "messaging-test")).
		SetClientID("TC-AAAA0000").
		SetVendorID("TV-BBBB1111").
		SetCaseType(caserecord.CaseTypeGeneral).
		SetSubject("messaging test case").
		Save(ctx)
	if err != nil {
		t.Fatalf("create test case: %v", err)
	}
	return row.ID
}

func TestCreateMessage_VendorCannotPostInternalNote(t *testing.T) {
	t.Parallel()
	svc, client, ctx := newTestService(t)
	caseID := newTestCase(t, client, ctx)
	p := &principal.Principal{UserID: "USR-VENDOR1", ActiveContext: principal.ContextVendor, ActiveContextID: "TV-BBBB1111"}
	f := &authz.Filters{AllowedVendorIDs: []string{"TV-BBBB1111"}}

	_, err := svc.CreateMessage(ctx, f, p, CreateMessageInput{
		CaseID:         caseID,
		Body:           "trying to sneak an internal note",
		SenderContext:  "vendor",
		SenderUserID:   p.UserID,
		IsInternalNote: true,
	})
	if err == nil {
		t.Fatal("expected error when vendor context posts an internal note")
	}
}

func TestCreateMessage_InternalCanPostInternalNote(t *testing.T) {
	t.Parallel()
	svc, client, ctx := newTestService(t)
	caseID := newTestCase(t, client, ctx)
	p := &principal.Principal{UserID: "USR-INTERNAL1", ActiveContext: principal.ContextInternal}
	f := &authz.Filters{AllowedTenantID: "TC-AAAA0000"}

	row, err := svc.CreateMessage(ctx, f, p, CreateMessageInput{
		CaseID:         caseID,
		Body:           "internal note visible only to staff",
		SenderContext:  "internal",
		SenderUserID:   p.UserID,
		IsInternalNote: true,
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if !row.IsInternalNote {
		t.Fatal("expected IsInternalNote to be true")
	}
}

func TestCreateMessage_RejectsCaseOutsideFilters(t *testing.T) {
	t.Parallel()
	svc, client, ctx := newTestService(t)
	caseID := newTestCase(t, client, ctx)
	p := &principal.Principal{UserID: "USR-VENDOR2", ActiveContext: principal.ContextVendor, ActiveContextID: "TV-OTHERVENDOR"}
	f := &authz.Filters{AllowedVendorIDs: []string{"TV-OTHERVENDOR"}}

	_, err := svc.CreateMessage(ctx, f, p, CreateMessageInput{
		CaseID: caseID, Body: "should not be allowed", SenderContext: "vendor", SenderUserID: p.UserID,
	})
	if err == nil {
		t.Fatal("expected error when filters do not cover the case's vendor")
	}
}

func TestGetMessages_HidesInternalNotesFromVendor(t *testing.T) {
	t.Parallel()
	svc, client, ctx := newTestService(t)
	caseID := newTestCase(t, client, ctx)
	internal := &principal.Principal{UserID: "USR-INTERNAL1", ActiveContext: principal.ContextInternal}
	vendor := &principal.Principal{UserID: "USR-VENDOR1", ActiveContext: principal.ContextVendor, ActiveContextID: "TV-BBBB1111"}
	internalFilters := &authz.Filters{AllowedTenantID: "TC-AAAA0000"}
	vendorFilters := &authz.Filters{AllowedVendorIDs: []string{"TV-BBBB1111"}}

	if _, err := svc.CreateMessage(ctx, vendorFilters, vendor, CreateMessageInput{
		CaseID: caseID, Body: "vendor question", SenderContext: "vendor", SenderUserID: vendor.UserID,
	}); err != nil {
		t.Fatalf("create vendor message: %v", err)
	}
	if _, err := svc.CreateMessage(ctx, internalFilters, internal, CreateMessageInput{
		CaseID: caseID, Body: "internal-only note", SenderContext: "internal", SenderUserID: internal.UserID, IsInternalNote: true,
	}); err != nil {
		t.Fatalf("create internal note: %v", err)
	}

	vendorView, err := svc.GetMessages(ctx, vendorFilters, vendor, caseID)
	if err != nil {
		t.Fatalf("GetMessages(vendor): %v", err)
	}
	if len(vendorView) != 1 {
		t.Fatalf("expected vendor to see 1 message, got %d", len(vendorView))
	}

	internalView, err := svc.GetMessages(ctx, internalFilters, internal, caseID)
	if err != nil {
		t.Fatalf("GetMessages(internal): %v", err)
	}
	if len(internalView) != 2 {
		t.Fatalf("expected internal to see 2 messages, got %d", len(internalView))
	}
}
