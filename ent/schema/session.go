package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Session holds the schema definition for the Session entity.
//
// Supplemental to spec.md's distillation (§6 names a sessions table prefix
// without detailing it): backs the JWT TokenRevocationChecker contract
// carried over from the teacher's middleware/jwt.go almost unchanged, a
// session row per minted token looked up by jti on every request. Also
// carries the active client/vendor context a non-internal user switched to,
// since that choice must survive across requests sharing one token.
type Session struct {
	ent.Schema
}

// Mixin of the Session.
func (Session) Mixin() []ent.Mixin {
	return []ent.Mixin{
		AuditMixin{},
	}
}

// Fields of the Session.
func (Session) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable().
			Comment("the JWT jti"),
		field.String("user_id").
			Immutable(),
		field.Time("expires_at").
			Immutable(),
		field.Time("revoked_at").
			Optional().
			Nillable(),
		field.String("active_context").
			Optional().
			Nillable().
			Comment("client or vendor; overrides the principal's default active context for non-internal users (spec 4.K SwitchContext)"),
		field.String("active_context_id").
			Optional().
			Nillable().
			Comment("the tenant's own TC-/TV- id matching active_context"),
	}
}

// Edges of the Session.
func (Session) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("user", User.Type).
			Ref("sessions").
			Field("user_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Session.
func (Session) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id"),
		index.Fields("expires_at"),
	}
}
