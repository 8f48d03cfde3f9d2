// Package tenant implements tenant, user, relationship, and invite
// lifecycle operations (spec 4.F).
//
// Import path: aibos-vmp/core/internal/tenant
package tenant

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/ent/invite"
	"aibos-vmp/core/ent/relationship"
	"aibos-vmp/core/ent/tenant"
	"aibos-vmp/core/ent/user"
	"aibos-vmp/core/internal/idgen"
	apperrors "aibos-vmp/core/internal/pkg/errors"
)

// Service implements spec 4.F's tenant/user/relationship/invite operations.
type Service struct {
	client        *ent.Client
	clock         idgen.Clock
	kdfWorkFactor int
	inviteTTLHrs  int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the Service's clock, for deterministic tests.
func WithClock(c idgen.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// NewService constructs a Service. kdfWorkFactor is the bcrypt cost
// (config.Security.KDFWorkFactor, >=12); inviteTTLHours is
// config.Invite.TTLHours.
func NewService(client *ent.Client, kdfWorkFactor, inviteTTLHours int, opts ...Option) *Service {
	s := &Service{
		client:        client,
		clock:         idgen.SystemClock{},
		kdfWorkFactor: kdfWorkFactor,
		inviteTTLHrs:  inviteTTLHours,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTenantInput is the input to CreateTenant.
type CreateTenantInput struct {
	Name     string
	Email    string
	Phone    string
	Address  string
	Settings map[string]interface{}
}

// CreateTenant reserves a (tenantId, clientId, vendorId) triple and inserts
// the tenant row (spec 4.F).
func (s *Service) CreateTenant(ctx context.Context, in CreateTenantInput) (*ent.Tenant, error) {
	if in.Name == "" {
		return nil, apperrors.Validation(apperrors.CodeValidationFailed, "name is required")
	}

	tenantID, clientID, vendorID := idgen.NewTenantIDs(in.Name)

	create := s.client.Tenant.Create().
		SetID(tenantID).
		SetClientID(clientID).
		SetVendorID(vendorID).
		SetDisplayName(in.Name).
		SetStatus(tenant.StatusActive).
		SetOnboardingStatus(tenant.OnboardingStatusPending)

	if in.Email != "" {
		create = create.SetEmail(in.Email)
	}
	if in.Phone != "" {
		create = create.SetPhone(in.Phone)
	}
	if in.Address != "" {
		create = create.SetAddress(in.Address)
	}
	if in.Settings != nil {
		create = create.SetSettings(in.Settings)
	}

	row, err := create.Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, apperrors.Conflictf("tenant id collision, retry: %v", err)
		}
		return nil, apperrors.Internalf("create tenant: %v", err)
	}
	return row, nil
}

// CreateUserInput is the input to CreateUser.
type CreateUserInput struct {
	TenantID       string
	Email          string
	Password       string
	ExternalAuthID string
	Role           string
	DisplayName    string
}

// CreateUser inserts a user. Exactly one of Password/ExternalAuthID must be
// set (spec 4.F).
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*ent.User, error) {
	if (in.Password == "") == (in.ExternalAuthID == "") {
		return nil, apperrors.Validation(apperrors.CodeValidationFailed, "exactly one of password or externalAuthId is required")
	}
	if in.Email == "" {
		return nil, apperrors.Validation(apperrors.CodeValidationFailed, "email is required")
	}
	if in.Role == "" {
		in.Role = "member"
	}

	create := s.client.User.Create().
		SetID(idgen.NewID("USR", in.Email)).
		SetTenantID(in.TenantID).
		SetEmail(normalizeEmail(in.Email)).
		SetRole(user.Role(in.Role)).
		SetActive(true)

	if in.DisplayName != "" {
		create = create.SetDisplayName(in.DisplayName)
	}

	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.kdfWorkFactor)
		if err != nil {
			return nil, apperrors.Internalf("hash password: %v", err)
		}
		create = create.SetPasswordHash(string(hash))
	} else {
		create = create.SetExternalAuthID(in.ExternalAuthID)
	}

	row, err := create.Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, apperrors.DuplicateEmail(in.Email)
		}
		return nil, apperrors.Internalf("create user: %v", err)
	}
	return row, nil
}

// CreateRelationship inserts an active relationship between a client and
// vendor tenant (spec 4.F).
func (s *Service) CreateRelationship(ctx context.Context, clientID, vendorID string) (*ent.Relationship, error) {
	if !hasPrefix(clientID, "TC-") {
		return nil, apperrors.Validation(apperrors.CodeInvalidTenantID, "clientId must have prefix TC-")
	}
	if !hasPrefix(vendorID, "TV-") {
		return nil, apperrors.Validation(apperrors.CodeInvalidTenantID, "vendorId must have prefix TV-")
	}

	clientTenant, err := s.client.Tenant.Query().Where(tenant.ClientIDEQ(clientID)).Only(ctx)
	if err != nil {
		return nil, notFoundOrInternal(err, "client tenant")
	}
	vendorTenant, err := s.client.Tenant.Query().Where(tenant.VendorIDEQ(vendorID)).Only(ctx)
	if err != nil {
		return nil, notFoundOrInternal(err, "vendor tenant")
	}
	if clientTenant.ID == vendorTenant.ID {
		return nil, apperrors.Validation(apperrors.CodeValidationFailed, "clientId and vendorId must resolve to distinct tenants")
	}
	if clientTenant.Status != tenant.StatusActive || vendorTenant.Status != tenant.StatusActive {
		return nil, apperrors.TenantInactive(clientTenant.ID)
	}

	row, err := s.client.Relationship.Create().
		SetID(idgen.NewID("REL", clientID+vendorID)).
		SetClientID(clientID).
		SetVendorID(vendorID).
		SetStatus(relationship.StatusActive).
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, apperrors.Conflictf("active relationship already exists for (%s, %s)", clientID, vendorID)
		}
		return nil, apperrors.Internalf("create relationship: %v", err)
	}
	return row, nil
}

// CreateInvite issues a vendor invite, reusing the existing token if an
// unrevoked pending invite already exists for the same (tenant, email)
// pair (spec 4.F idempotency rule).
func (s *Service) CreateInvite(ctx context.Context, invitingTenantID, inviteeEmail string) (*ent.Invite, error) {
	email := normalizeEmail(inviteeEmail)

	existing, err := s.client.Invite.Query().
		Where(
			invite.InvitingTenantIDEQ(invitingTenantID),
			invite.InviteeEmailEQ(email),
			invite.StatusEQ(invite.StatusPending),
		).
		Only(ctx)
	if err == nil {
		return existing, nil
	}
	if !ent.IsNotFound(err) {
		return nil, apperrors.Internalf("query existing invite: %v", err)
	}

	invitingTenant, err := s.client.Tenant.Get(ctx, invitingTenantID)
	if err != nil {
		return nil, notFoundOrInternal(err, "inviting tenant")
	}

	token, err := idgen.RandomToken(32)
	if err != nil {
		return nil, apperrors.Internalf("generate invite token: %v", err)
	}

	row, err := s.client.Invite.Create().
		SetID(idgen.NewID("INV", email)).
		SetToken(token).
		SetInvitingTenantID(invitingTenantID).
		SetInvitingClientID(invitingTenant.ClientID).
		SetInviteeEmail(email).
		SetStatus(invite.StatusPending).
		SetExpiresAt(s.clock.Now().Add(time.Duration(s.inviteTTLHrs) * time.Hour)).
		Save(ctx)
	if err != nil {
		return nil, apperrors.Internalf("create invite: %v", err)
	}
	return row, nil
}

func normalizeEmail(email string) string {
	return lowerASCII(email)
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func notFoundOrInternal(err error, what string) error {
	if ent.IsNotFound(err) {
		return apperrors.NotFoundf("%s not found", what)
	}
	return apperrors.Internalf("load %s: %v", what, err)
}
