package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Tenant holds the schema definition for the Tenant entity.
//
// A tenant is a single organizational principal. It reserves three IDs at
// creation time (tenantId, clientId, vendorId) sharing one suffix code, and
// plays either role depending on which relationship is being viewed.
type Tenant struct {
	ent.Schema
}

// Mixin of the Tenant.
func (Tenant) Mixin() []ent.Mixin {
	return []ent.Mixin{
		TimeMixin{},
		SoftDeleteMixin{},
	}
}

// Fields of the Tenant.
func (Tenant) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable().
			Comment("canonical tenantId, prefix TNT-"),
		field.String("client_id").
			Unique().
			Immutable().
			Comment("prefix TC-, shares suffix with id"),
		field.String("vendor_id").
			Unique().
			Immutable().
			Comment("prefix TV-, shares suffix with id"),
		field.String("display_name").
			NotEmpty().
			MaxLen(255),
		field.String("email").
			Optional(),
		field.String("phone").
			Optional(),
		field.String("address").
			Optional(),
		field.JSON("settings", map[string]interface{}{}).
			Optional(),
		field.Enum("status").
			Values("active", "suspended", "terminated").
			Default("active"),
		field.Enum("onboarding_status").
			Values("pending", "complete").
			Default("pending"),
	}
}

// Edges of the Tenant.
func (Tenant) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("users", User.Type),
		edge.To("sent_invites", Invite.Type),
	}
}

// Indexes of the Tenant.
func (Tenant) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("client_id").Unique(),
		index.Fields("vendor_id").Unique(),
		index.Fields("status"),
	}
}
