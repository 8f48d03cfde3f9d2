package tenant

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/ent/user"
	apperrors "aibos-vmp/core/internal/pkg/errors"
)

// Authenticate validates email+password against the stored bcrypt hash
// (spec 4.K Login). External-auth-only users (no password_hash) always
// fail password login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*ent.User, error) {
	u, err := s.client.User.Query().
		Where(user.EmailEQ(normalizeEmail(email))).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.Unauthenticated(apperrors.CodeAuthFailed, "invalid email or password")
		}
		return nil, apperrors.Internalf("load user for login: %v", err)
	}
	if !u.Active {
		return nil, apperrors.Forbidden(apperrors.CodeTenantInactive, "user account is disabled")
	}
	if u.PasswordHash == nil {
		return nil, apperrors.Unauthenticated(apperrors.CodeAuthFailed, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthenticated(apperrors.CodeAuthFailed, "invalid email or password")
	}
	return u, nil
}
