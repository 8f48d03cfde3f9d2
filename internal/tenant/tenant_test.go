package tenant

import (
	"context"
	"testing"

	"aibos-vmp/core/internal/testutil"
)

func newTestService(t *testing.T, prefix string) *Service {
	t.Helper()
	client := testutil.OpenEntPostgres(t, prefix)
	return NewService(client, 12, 24*7)
}

func TestCreateTenant_ReservesSharedSuffix(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, "tenant_create")
	ctx := context.Background()

	tn, err := svc.CreateTenant(ctx, CreateTenantInput{Name: "Acme Corp"})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}

	if tn.ClientID[:3] != "TC-" || tn.VendorID[:3] != "TV-" || tn.ID[:4] != "TNT-" {
		t.Fatalf("unexpected prefixes: id=%s client=%s vendor=%s", tn.ID, tn.ClientID, tn.VendorID)
	}
	if tn.ClientID[3:] != tn.VendorID[3:] || tn.ClientID[3:] != tn.ID[4:] {
		t.Fatalf("expected shared suffix across all three ids: %s %s %s", tn.ID, tn.ClientID, tn.VendorID)
	}
	if tn.Status != "active" || tn.OnboardingStatus != "pending" {
		t.Fatalf("unexpected defaults: status=%s onboarding=%s", tn.Status, tn.OnboardingStatus)
	}
}

func TestCreateUser_RequiresPasswordXorExternalAuthID(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, "tenant_user_xor")
	ctx := context.Background()

	tn, err := svc.CreateTenant(ctx, CreateTenantInput{Name: "Acme Corp"})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}

	if _, err := svc.CreateUser(ctx, CreateUserInput{TenantID: tn.ID, Email: "a@example.com"}); err == nil {
		t.Fatal("expected error when neither password nor externalAuthId is set")
	}
	if _, err := svc.CreateUser(ctx, CreateUserInput{
		TenantID:       tn.ID,
		Email:          "a@example.com",
		Password:       "p@ssw0rdX",
		ExternalAuthID: "oauth|123",
	}); err == nil {
		t.Fatal("expected error when both password and externalAuthId are set")
	}

	u, err := svc.CreateUser(ctx, CreateUserInput{TenantID: tn.ID, Email: "Owner@Example.com", Password: "p@ssw0rdX", Role: "owner"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Email != "owner@example.com" {
		t.Errorf("expected email lowercased, got %q", u.Email)
	}
}

func TestCreateUser_DuplicateEmailIsConflict(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, "tenant_user_dup")
	ctx := context.Background()

	tn, err := svc.CreateTenant(ctx, CreateTenantInput{Name: "Acme Corp"})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if _, err := svc.CreateUser(ctx, CreateUserInput{TenantID: tn.ID, Email: "dup@example.com", Password: "p@ssw0rdX"}); err != nil {
		t.Fatalf("first CreateUser: %v", err)
	}
	if _, err := svc.CreateUser(ctx, CreateUserInput{TenantID: tn.ID, Email: "dup@example.com", Password: "p@ssw0rdX"}); err == nil {
		t.Fatal("expected duplicate email to fail")
	}
}

func TestCreateRelationship_AtMostOneActivePerPair(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, "tenant_rel_unique")
	ctx := context.Background()

	client, err := svc.CreateTenant(ctx, CreateTenantInput{Name: "Client Co"})
	if err != nil {
		t.Fatalf("CreateTenant client: %v", err)
	}
	vendor, err := svc.CreateTenant(ctx, CreateTenantInput{Name: "Vendor Co"})
	if err != nil {
		t.Fatalf("CreateTenant vendor: %v", err)
	}

	if _, err := svc.CreateRelationship(ctx, client.ClientID, vendor.VendorID); err != nil {
		t.Fatalf("first CreateRelationship: %v", err)
	}
	if _, err := svc.CreateRelationship(ctx, client.ClientID, vendor.VendorID); err == nil {
		t.Fatal("expected second active relationship for the same pair to fail")
	}
}

func TestCreateInvite_IdempotentForPendingInvite(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, "tenant_invite_idem")
	ctx := context.Background()

	tn, err := svc.CreateTenant(ctx, CreateTenantInput{Name: "Client Co"})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}

	first, err := svc.CreateInvite(ctx, tn.ID, "Supplier@Foo.test")
	if err != nil {
		t.Fatalf("first CreateInvite: %v", err)
	}
	second, err := svc.CreateInvite(ctx, tn.ID, "supplier@foo.test")
	if err != nil {
		t.Fatalf("second CreateInvite: %v", err)
	}
	if first.Token != second.Token {
		t.Errorf("expected idempotent token reuse, got %s vs %s", first.Token, second.Token)
	}
}
