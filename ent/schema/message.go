package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Message holds the schema definition for the Message entity.
//
// Messages are read back ordered by createdAt, with no further tie-break
// key; id is a MSG- prefixed id with a random suffix and carries no order.
// Internal notes (isInternalNote=true) are invisible to vendor contexts.
type Message struct {
	ent.Schema
}

// Mixin of the Message.
func (Message) Mixin() []ent.Mixin {
	return []ent.Mixin{
		AuditMixin{},
	}
}

// Fields of the Message.
func (Message) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("case_id").
			Immutable(),
		field.Enum("sender_context").
			Values("vendor", "internal", "system", "ai").
			Immutable(),
		field.String("sender_user_id").
			Optional().
			Nillable().
			Immutable(),
		field.Enum("channel").
			Values("portal", "whatsapp", "email", "slack").
			Default("portal").
			Immutable(),
		field.String("body").
			NotEmpty().
			MaxLen(16384).
			Immutable(),
		field.Bool("is_internal_note").
			Default(false).
			Immutable(),
		field.JSON("metadata", map[string]interface{}{}).
			Optional().
			Immutable(),
	}
}

// Edges of the Message.
func (Message) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("case", CaseRecord.Type).
			Ref("messages").
			Field("case_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Message.
func (Message) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("case_id", "created_at"),
	}
}
