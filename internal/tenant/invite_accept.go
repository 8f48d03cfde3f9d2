package tenant

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/ent/caserecord"
	entinvite "aibos-vmp/core/ent/invite"
	"aibos-vmp/core/ent/predicate"
	"aibos-vmp/core/ent/relationship"
	enttenant "aibos-vmp/core/ent/tenant"
	"aibos-vmp/core/internal/idgen"
	"aibos-vmp/core/internal/notification"
	apperrors "aibos-vmp/core/internal/pkg/errors"
)

// AcceptInviteVendorData is the vendor tenant's profile, supplied at
// acceptance.
type AcceptInviteVendorData struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// AcceptInviteUserData is the owner user created for the new vendor tenant.
type AcceptInviteUserData struct {
	Email    string
	Password string
}

// AcceptInviteResult is the outcome of a successful AcceptInvite.
type AcceptInviteResult struct {
	VendorTenant *ent.Tenant
	OwnerUser    *ent.User
	Relationship *ent.Relationship
}

// AcceptInvite validates and consumes a pending invite token, creating the
// vendor tenant, its owner user, and the resulting active relationship in
// one transaction (spec 4.F: all-or-nothing). The resulting notification to
// the inviting tenant is emitted after commit, best-effort.
func (s *Service) AcceptInvite(ctx context.Context, token string, vendorData AcceptInviteVendorData, userData AcceptInviteUserData, triggers *notification.Triggers) (*AcceptInviteResult, error) {
	var result AcceptInviteResult
	var invitingTenantID string

	txErr := withTx(ctx, s.client, func(tx *ent.Tx) error {
		inv, err := tx.Invite.Query().Where(entinvite.TokenEQ(token)).Only(ctx)
		if err != nil {
			if ent.IsNotFound(err) {
				return apperrors.NotFound(apperrors.CodeNotFound, "invite not found")
			}
			return apperrors.Internalf("load invite: %v", err)
		}
		if inv.Status == entinvite.StatusAccepted {
			return apperrors.InviteAlreadyUsed()
		}
		if inv.Status != entinvite.StatusPending {
			return apperrors.Validation(apperrors.CodeInviteAlreadyUsed, "invite is not pending")
		}
		if s.clock.Now().After(inv.ExpiresAt) {
			return apperrors.InviteExpired()
		}
		invitingTenantID = inv.InvitingTenantID

		vendorTenantID, clientID, vendorID := idgen.NewTenantIDs(vendorData.Name)
		vendorTenant, err := tx.Tenant.Create().
			SetID(vendorTenantID).
			SetClientID(clientID).
			SetVendorID(vendorID).
			SetDisplayName(vendorData.Name).
			SetNillableEmail(optionalString(vendorData.Email)).
			SetNillablePhone(optionalString(vendorData.Phone)).
			SetNillableAddress(optionalString(vendorData.Address)).
			SetStatus(enttenant.StatusActive).
			SetOnboardingStatus(enttenant.OnboardingStatusComplete).
			Save(ctx)
		if err != nil {
			return apperrors.Internalf("create vendor tenant: %v", err)
		}

		hashBytes, err := bcrypt.GenerateFromPassword([]byte(userData.Password), s.kdfWorkFactor)
		if err != nil {
			return apperrors.Internalf("hash owner password: %v", err)
		}
		hash := string(hashBytes)
		ownerUser, err := tx.User.Create().
			SetID(idgen.NewID("USR", userData.Email)).
			SetTenantID(vendorTenant.ID).
			SetEmail(normalizeEmail(userData.Email)).
			SetPasswordHash(hash).
			SetRole("owner").
			SetActive(true).
			Save(ctx)
		if err != nil {
			return apperrors.Internalf("create vendor owner user: %v", err)
		}

		rel, err := tx.Relationship.Create().
			SetID(idgen.NewID("REL", inv.InvitingClientID+vendorTenant.VendorID)).
			SetClientID(inv.InvitingClientID).
			SetVendorID(vendorTenant.VendorID).
			SetStatus(relationship.StatusActive).
			Save(ctx)
		if err != nil {
			return apperrors.Internalf("create relationship: %v", err)
		}

		if _, err := tx.Invite.UpdateOne(inv).SetStatus(entinvite.StatusAccepted).Save(ctx); err != nil {
			return apperrors.Internalf("mark invite accepted: %v", err)
		}

		result = AcceptInviteResult{VendorTenant: vendorTenant, OwnerUser: ownerUser, Relationship: rel}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if triggers != nil {
		triggers.OnVendorInviteAccepted(ctx, invitingTenantID, result.VendorTenant.DisplayName, result.Relationship.ID)
	}

	return &result, nil
}

// TenantContext summarizes one relationship from the viewer's perspective.
type TenantContext struct {
	RelationshipID      string
	CounterpartTenantID string
	CounterpartName     string
	Status              string
	ActiveCaseCount     int
}

// TenantContexts is the result of GetTenantContexts: which role(s) tenantID
// plays and the relationships attached to each.
type TenantContexts struct {
	AsClient []TenantContext
	AsVendor []TenantContext
}

// GetTenantContexts returns, for tenantID, the relationships where it acts
// as client and where it acts as vendor (spec 4.F), denormalized with the
// counterpart's display name and open-case count.
func (s *Service) GetTenantContexts(ctx context.Context, tenantID string) (*TenantContexts, error) {
	t, err := s.client.Tenant.Get(ctx, tenantID)
	if err != nil {
		return nil, notFoundOrInternal(err, "tenant")
	}

	asClient, err := s.summarize(ctx, relationship.ClientIDEQ(t.ClientID), counterpartIsVendor)
	if err != nil {
		return nil, err
	}
	asVendor, err := s.summarize(ctx, relationship.VendorIDEQ(t.VendorID), counterpartIsClient)
	if err != nil {
		return nil, err
	}

	return &TenantContexts{AsClient: asClient, AsVendor: asVendor}, nil
}

func counterpartIsVendor(r *ent.Relationship) string { return r.VendorID }
func counterpartIsClient(r *ent.Relationship) string { return r.ClientID }

func (s *Service) summarize(ctx context.Context, pred predicate.Relationship, counterpart func(*ent.Relationship) string) ([]TenantContext, error) {
	rows, err := s.client.Relationship.Query().Where(pred).All(ctx)
	if err != nil {
		return nil, apperrors.Internalf("query relationships: %v", err)
	}

	out := make([]TenantContext, 0, len(rows))
	for _, r := range rows {
		cpID := counterpart(r)
		var cpName string
		cpTenant, err := s.client.Tenant.Query().
			Where(counterpartTenantFilter(cpID)).
			Only(ctx)
		if err == nil {
			cpName = cpTenant.DisplayName
		}

		openCases, err := s.client.CaseRecord.Query().
			Where(
				caserecord.ClientIDEQ(r.ClientID),
				caserecord.VendorIDEQ(r.VendorID),
				caserecord.StatusNEQ(caserecord.StatusResolved),
			).
			Count(ctx)
		if err != nil {
			openCases = 0
		}

		out = append(out, TenantContext{
			RelationshipID:      r.ID,
			CounterpartTenantID: cpID,
			CounterpartName:     cpName,
			Status:              string(r.Status),
			ActiveCaseCount:     openCases,
		})
	}
	return out, nil
}

// counterpartTenantFilter matches a tenant by either its clientId or
// vendorId, since cpID may be a TC- or TV- value depending on which side of
// the relationship is being summarized.
func counterpartTenantFilter(cpID string) predicate.Tenant {
	return enttenant.Or(enttenant.ClientIDEQ(cpID), enttenant.VendorIDEQ(cpID))
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// withTx executes fn within a transaction, grounded on the teacher's
// create_vm.go helper of the same name.
func withTx(ctx context.Context, client *ent.Client, fn func(tx *ent.Tx) error) error {
	tx, err := client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w: rolling back: %v", err, rerr)
		}
		return err
	}
	return tx.Commit()
}
