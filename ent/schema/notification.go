package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Notification holds the schema definition for the Notification entity.
//
// In-app inbox only; email delivery is out of scope. Priority is escalated
// to critical for types beginning with payment_/invoice_ by
// internal/notification at creation time, not by a DB trigger.
type Notification struct {
	ent.Schema
}

// Mixin of the Notification.
func (Notification) Mixin() []ent.Mixin {
	return []ent.Mixin{
		AuditMixin{},
	}
}

// Fields of the Notification.
func (Notification) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("user_id").
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("type").
			NotEmpty().
			Immutable().
			Comment("e.g. vendor_invite_accepted, payment_query_opened, invoice_exception"),
		field.Enum("priority").
			Values("critical", "normal").
			Default("normal").
			Immutable(),
		field.String("title").
			NotEmpty().
			MaxLen(255).
			Immutable(),
		field.String("body").
			NotEmpty().
			MaxLen(2048).
			Immutable(),
		field.String("reference_type").
			Optional().
			Nillable().
			Immutable(),
		field.String("reference_id").
			Optional().
			Nillable().
			Immutable(),
		field.String("action_url").
			Optional().
			Nillable().
			Immutable(),
		field.Bool("is_read").
			Default(false),
		field.Time("read_at").
			Optional().
			Nillable(),
	}
}

// Edges of the Notification.
func (Notification) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("user", User.Type).
			Ref("notifications").
			Field("user_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Notification.
func (Notification) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "is_read"),
		index.Fields("user_id", "created_at"),
		index.Fields("created_at"),
	}
}
