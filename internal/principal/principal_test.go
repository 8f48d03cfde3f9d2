package principal

import (
	"context"
	"testing"
	"time"

	"aibos-vmp/core/internal/api/middleware"
	"aibos-vmp/core/internal/idgen"
	"aibos-vmp/core/internal/testutil"
)

func TestWithActiveContext(t *testing.T) {
	p := &Principal{
		UserID:          "USR-1234ABCD",
		TenantID:        "TNT-ACME0001",
		ActiveContext:   ContextClient,
		ActiveContextID: "TC-ACME0001",
	}

	switched := p.WithActiveContext(ContextVendor, "TV-ACME0001")

	if switched.ActiveContext != ContextVendor {
		t.Errorf("ActiveContext = %v, want %v", switched.ActiveContext, ContextVendor)
	}
	if switched.ActiveContextID != "TV-ACME0001" {
		t.Errorf("ActiveContextID = %v, want TV-ACME0001", switched.ActiveContextID)
	}
	if p.ActiveContext != ContextClient {
		t.Errorf("original principal must be unmodified, got %v", p.ActiveContext)
	}
}

func TestContext_RoundTrip(t *testing.T) {
	p := &Principal{UserID: "USR-1"}
	ctx := IntoContext(context.Background(), p)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected principal in context")
	}
	if got.UserID != "USR-1" {
		t.Errorf("UserID = %q, want USR-1", got.UserID)
	}
}

func TestContext_Missing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Fatal("expected no principal in empty context")
	}
}

func testJWTConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey: []byte("principal-test-signing-key-0123456789"),
		Issuer:     "aibos-vmp",
		ExpiresIn:  time.Hour,
	}
}

func TestResolve_DefaultsToClientContext(t *testing.T) {
	t.Parallel()
	client := testutil.OpenEntPostgres(t, "principal")
	ctx := context.Background()

	tenantID, clientTenantID, vendorTenantID := idgen.NewTenantIDs("acme")
	if _, err := client.Tenant.Create().
		SetID(tenantID).SetClientID(clientTenantID).SetVendorID(vendorTenantID).
		SetDisplayName("Acme").Save(ctx); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	u, err := client.User.Create().
		SetID(idgen.NewID("USR", "acme")).
		SetTenantID(tenantID).
		SetEmail("owner@acme.example").
		SetRole("owner").
		Save(ctx)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	jwtCfg := testJWTConfig()
	token, _, err := middleware.GenerateToken(jwtCfg, u.ID, u.Email, []string{"owner"}, nil)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	resolver := NewResolver(client, jwtCfg)
	p, err := resolver.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.ActiveContext != ContextClient {
		t.Fatalf("expected default ContextClient, got %v", p.ActiveContext)
	}
	if p.ActiveContextID != clientTenantID {
		t.Fatalf("expected ActiveContextID %s, got %s", clientTenantID, p.ActiveContextID)
	}
}

func TestResolve_SessionOverridesActiveContext(t *testing.T) {
	t.Parallel()
	client := testutil.OpenEntPostgres(t, "principal")
	ctx := context.Background()

	tenantID, clientTenantID, vendorTenantID := idgen.NewTenantIDs("globex")
	if _, err := client.Tenant.Create().
		SetID(tenantID).SetClientID(clientTenantID).SetVendorID(vendorTenantID).
		SetDisplayName("Globex").Save(ctx); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	u, err := client.User.Create().
		SetID(idgen.NewID("USR", "globex")).
		SetTenantID(tenantID).
		SetEmail("owner@globex.example").
		SetRole("owner").
		Save(ctx)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	jwtCfg := testJWTConfig()
	token, _, err := middleware.GenerateToken(jwtCfg, u.ID, u.Email, []string{"owner"}, nil)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := jwtCfg.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if _, err := client.Session.Create().
		SetID(claims.ID).
		SetUserID(u.ID).
		SetExpiresAt(time.Now().Add(time.Hour)).
		SetActiveContext("vendor").
		SetActiveContextID(vendorTenantID).
		Save(ctx); err != nil {
		t.Fatalf("create session: %v", err)
	}

	resolver := NewResolver(client, jwtCfg)
	p, err := resolver.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.ActiveContext != ContextVendor {
		t.Fatalf("expected session override to switch to ContextVendor, got %v", p.ActiveContext)
	}
	if p.ActiveContextID != vendorTenantID {
		t.Fatalf("expected ActiveContextID %s, got %s", vendorTenantID, p.ActiveContextID)
	}
}
