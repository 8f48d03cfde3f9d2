package middleware

import (
	"context"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/ent/session"
)

// EntSessionRevocationChecker implements TokenRevocationChecker against the
// Session entity: one row per minted token, keyed by jti. A session that
// does not exist is treated as not revoked rather than an error, since
// GenerateToken mints the jti before its Session row is created.
type EntSessionRevocationChecker struct {
	client *ent.Client
}

// NewEntSessionRevocationChecker constructs an EntSessionRevocationChecker.
func NewEntSessionRevocationChecker(client *ent.Client) *EntSessionRevocationChecker {
	return &EntSessionRevocationChecker{client: client}
}

// IsRevoked reports whether tokenID's Session row carries a RevokedAt.
func (c *EntSessionRevocationChecker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	s, err := c.client.Session.Query().
		Where(session.IDEQ(tokenID)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return s.RevokedAt != nil, nil
}

var _ TokenRevocationChecker = (*EntSessionRevocationChecker)(nil)
