package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// DecisionLogEntry holds the schema definition for the DecisionLogEntry
// entity — the append-only per-case audit of human decisions.
type DecisionLogEntry struct {
	ent.Schema
}

// Mixin of the DecisionLogEntry.
func (DecisionLogEntry) Mixin() []ent.Mixin {
	return []ent.Mixin{
		AuditMixin{},
	}
}

// Fields of the DecisionLogEntry.
func (DecisionLogEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("case_id").
			Immutable(),
		field.Enum("decision_type").
			Values("verify", "reject", "reassign", "status_update", "escalate", "approve", "close").
			Immutable(),
		field.String("who").
			NotEmpty().
			Immutable().
			Comment("userId of the acting principal"),
		field.String("what").
			NotEmpty().
			Immutable(),
		field.String("why").
			Optional().
			Nillable().
			Immutable(),
	}
}

// Edges of the DecisionLogEntry.
func (DecisionLogEntry) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("case", CaseRecord.Type).
			Ref("decision_log").
			Field("case_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the DecisionLogEntry.
func (DecisionLogEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("case_id", "created_at"),
	}
}
