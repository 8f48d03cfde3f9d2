package jobs

import (
	"context"
	"testing"
	"time"

	"aibos-vmp/core/ent"
	entnotification "aibos-vmp/core/ent/notification"
	"aibos-vmp/core/internal/idgen"
	"aibos-vmp/core/internal/testutil"
)

func seedNotificationUser(t *testing.T, ctx context.Context, client *ent.Client) *ent.User {
	t.Helper()
	tenantID, clientID, vendorID := idgen.NewTenantIDs("jobs")
	if _, err := client.Tenant.Create().
		SetID(tenantID).SetClientID(clientID).SetVendorID(vendorID).
		SetDisplayName("Jobs Test Tenant").Save(ctx); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	u, err := client.User.Create().
		SetID(idgen.NewID("USR", "jobs")).
		SetTenantID(tenantID).
		SetEmail("jobs-test@example.com").
		Save(ctx)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestNotificationCleanupWorker_DeletesOnlyExpiredRows(t *testing.T) {
	t.Parallel()
	client := testutil.OpenEntPostgres(t, "jobs_cleanup")
	ctx := context.Background()
	u := seedNotificationUser(t, ctx, client)

	old, err := client.Notification.Create().
		SetID(idgen.NewID("NTF", "old")).
		SetUserID(u.ID).
		SetTenantID(u.TenantID).
		SetType("case_assigned").
		SetTitle("Old notification").
		SetBody("stale").
		SetIsRead(true).
		SetCreatedAt(time.Now().UTC().Add(-100 * 24 * time.Hour)).
		Save(ctx)
	if err != nil {
		t.Fatalf("create old notification: %v", err)
	}

	fresh, err := client.Notification.Create().
		SetID(idgen.NewID("NTF", "fresh")).
		SetUserID(u.ID).
		SetTenantID(u.TenantID).
		SetType("case_assigned").
		SetTitle("Fresh notification").
		SetBody("recent").
		SetIsRead(false).
		Save(ctx)
	if err != nil {
		t.Fatalf("create fresh notification: %v", err)
	}

	worker := NewNotificationCleanupWorker(client, 90*24*time.Hour)
	if err := worker.Work(ctx, nil); err != nil {
		t.Fatalf("Work: %v", err)
	}

	_, err = client.Notification.Get(ctx, old.ID)
	if !ent.IsNotFound(err) {
		t.Fatalf("expected old notification to be deleted, got err=%v", err)
	}

	stillThere, err := client.Notification.Query().Where(entnotification.IDEQ(fresh.ID)).Only(ctx)
	if err != nil {
		t.Fatalf("expected fresh notification to survive cleanup: %v", err)
	}
	if stillThere.ID != fresh.ID {
		t.Fatalf("unexpected row returned for fresh notification")
	}
}

func TestNewNotificationCleanupWorker_DefaultsNonPositiveRetention(t *testing.T) {
	t.Parallel()
	worker := NewNotificationCleanupWorker(nil, 0)
	if worker.retention != DefaultNotificationRetention {
		t.Fatalf("expected default retention %s, got %s", DefaultNotificationRetention, worker.retention)
	}
}
