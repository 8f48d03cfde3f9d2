package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ChecklistStep holds the schema definition for the ChecklistStep entity.
//
// The initial set of steps for a case is populated by internal/caseengine's
// EnsureChecklist from a fixed table keyed by caseType.
type ChecklistStep struct {
	ent.Schema
}

// Mixin of the ChecklistStep.
func (ChecklistStep) Mixin() []ent.Mixin {
	return []ent.Mixin{
		TimeMixin{},
	}
}

// Fields of the ChecklistStep.
func (ChecklistStep) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("case_id").
			Immutable(),
		field.String("label").
			NotEmpty().
			MaxLen(255),
		field.String("required_evidence_type").
			Optional().
			Nillable(),
		field.Enum("status").
			Values("pending", "submitted", "verified", "rejected", "waived").
			Default("pending"),
		field.String("waived_reason").
			Optional().
			Nillable(),
		field.Int("sort_order").
			Default(0),
	}
}

// Edges of the ChecklistStep.
func (ChecklistStep) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("case", CaseRecord.Type).
			Ref("checklist_steps").
			Field("case_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ChecklistStep.
func (ChecklistStep) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("case_id", "status"),
	}
}
