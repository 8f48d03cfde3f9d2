// Package main provides data seeding for the Vendor Management Platform.
//
// Database and River migrations are expected to be executed before seeding.
// This command only performs an idempotent data bootstrap: the built-in
// internal ops tenant plus its default platform-admin user.
//
// Import Path (ADR-0016): aibos-vmp/core/cmd/seed
package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/ent/user"
	"aibos-vmp/core/internal/config"
	"aibos-vmp/core/internal/idgen"
	"aibos-vmp/core/internal/infrastructure"
	"aibos-vmp/core/internal/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	client := db.EntClient

	logger.Info("Starting data seeding...")

	tenantID, err := seedPlatformTenant(ctx, client)
	if err != nil {
		return fmt.Errorf("seed platform tenant: %w", err)
	}

	if err := seedPlatformAdmin(ctx, client, tenantID, cfg.Security.KDFWorkFactor); err != nil {
		return fmt.Errorf("seed platform admin: %w", err)
	}

	logger.Info("Data seeding completed successfully")
	return nil
}

const platformTenantID = "TNT-PLATFORM0"

// seedPlatformTenant creates the internal ops tenant that owns every
// role="internal" user (spec 4.A: internal users have no client/vendor
// relationship of their own, only a scope restricting which tenants'
// cases they can see).
func seedPlatformTenant(ctx context.Context, client *ent.Client) (string, error) {
	existing, err := client.Tenant.Get(ctx, platformTenantID)
	if err == nil {
		return existing.ID, nil
	}
	if !ent.IsNotFound(err) {
		return "", fmt.Errorf("lookup platform tenant: %w", err)
	}

	_, clientCode, vendorCode := idgen.NewTenantIDs("platform")

	created, err := client.Tenant.Create().
		SetID(platformTenantID).
		SetClientID(clientCode).
		SetVendorID(vendorCode).
		SetDisplayName("Platform Operations").
		SetStatus("active").
		SetOnboardingStatus("complete").
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			logger.Info("Platform tenant already exists, skipping")
			return platformTenantID, nil
		}
		return "", err
	}

	logger.Info("Seeded platform tenant", zap.String("tenant_id", created.ID))
	return created.ID, nil
}

// seedPlatformAdmin creates the default super-scoped internal admin
// (email platform-admin@localhost, force password reset expected on first
// login via the normal invite/reset flow — there is none here, so the
// seeded password is a placeholder operators must rotate immediately).
func seedPlatformAdmin(ctx context.Context, client *ent.Client, tenantID string, kdfWorkFactor int) error {
	const adminID = "USR-PLATFORMADM"

	hashBytes, err := bcrypt.GenerateFromPassword([]byte("changeme"), kdfWorkFactor)
	if err != nil {
		return fmt.Errorf("hash default admin password: %w", err)
	}
	hash := string(hashBytes)

	_, err = client.User.Create().
		SetID(adminID).
		SetTenantID(tenantID).
		SetEmail("platform-admin@localhost").
		SetDisplayName("Platform Administrator").
		SetPasswordHash(hash).
		SetRole(user.RoleInternal).
		SetScopeType(user.ScopeTypeSuper).
		SetActive(true).
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			logger.Info("Default platform admin already exists, skipping")
			return nil
		}
		return fmt.Errorf("create platform admin: %w", err)
	}

	logger.Info("Seeded default platform admin",
		zap.String("email", "platform-admin@localhost"),
		zap.String("scope", string(user.ScopeTypeSuper)),
	)
	return nil
}
