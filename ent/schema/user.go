package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// User holds the schema definition for the User entity.
//
// A User belongs to exactly one Tenant. Internal users additionally carry a
// Scope restricting which companies they may see; non-internal users derive
// scope implicitly from their tenant.
type User struct {
	ent.Schema
}

// Mixin of the User.
func (User) Mixin() []ent.Mixin {
	return []ent.Mixin{
		TimeMixin{},
		SoftDeleteMixin{},
	}
}

// Fields of the User.
func (User) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable().
			Comment("prefix USR-"),
		field.String("tenant_id").
			Immutable(),
		field.String("email").
			NotEmpty().
			MaxLen(255).
			Comment("case-insensitive unique across all tenants, stored lowercase"),
		field.String("display_name").
			Optional(),
		field.String("password_hash").
			Optional().
			Nillable().
			Sensitive(),
		field.String("external_auth_id").
			Optional().
			Nillable(),
		field.Enum("role").
			Values("owner", "admin", "member", "internal").
			Default("member"),
		field.Enum("scope_type").
			Values("super", "group", "company").
			Optional().
			Nillable().
			Comment("set only for role=internal"),
		field.String("scope_group_id").
			Optional().
			Nillable(),
		field.String("scope_company_id").
			Optional().
			Nillable(),
		field.Bool("active").
			Default(true),
	}
}

// Edges of the User.
func (User) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("tenant", Tenant.Type).
			Ref("users").
			Field("tenant_id").
			Unique().
			Required().
			Immutable(),
		edge.To("notifications", Notification.Type),
		edge.To("sessions", Session.Type),
	}
}

// Indexes of the User.
func (User) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("email").Unique(),
		index.Fields("tenant_id"),
	}
}
