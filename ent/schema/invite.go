package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Invite holds the schema definition for the Invite entity.
//
// Token is a 256-bit CSPRNG value, hex-encoded, usable at most once before
// expiresAt. Acceptance is handled transactionally by internal/tenant.
type Invite struct {
	ent.Schema
}

// Mixin of the Invite.
func (Invite) Mixin() []ent.Mixin {
	return []ent.Mixin{
		TimeMixin{},
	}
}

// Fields of the Invite.
func (Invite) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("token").
			Unique().
			Immutable().
			Sensitive().
			Comment("64 hex chars, 32 bytes of crypto/rand"),
		field.String("inviting_tenant_id").
			Immutable(),
		field.String("inviting_client_id").
			Immutable(),
		field.String("invitee_email").
			NotEmpty().
			MaxLen(255),
		field.String("vendor_name").
			Optional(),
		field.JSON("company_ids", []string{}).
			Optional(),
		field.Enum("status").
			Values("pending", "accepted", "expired", "revoked").
			Default("pending"),
		field.Time("expires_at"),
	}
}

// Edges of the Invite.
func (Invite) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("tenant", Tenant.Type).
			Ref("sent_invites").
			Field("inviting_tenant_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Invite.
func (Invite) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("token").Unique(),
		index.Fields("inviting_tenant_id", "invitee_email", "status"),
	}
}
