package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CaseRecord holds the schema definition for the Case entity.
//
// Named CaseRecord rather than Case: ent derives a per-type subpackage name
// (ent/case) from the lowercased type name, and "case" is a Go keyword and
// cannot be a package identifier.
//
// Every interaction between a client and vendor tenant — disputes,
// onboarding, invoice exceptions, bank-detail changes, payment queries —
// flows through a typed case. "Everything is a case": new workflows extend
// the checklist rules table in internal/caseengine, never this schema.
type CaseRecord struct {
	ent.Schema
}

// Mixin of the CaseRecord.
func (CaseRecord) Mixin() []ent.Mixin {
	return []ent.Mixin{
		TimeMixin{},
		SoftDeleteMixin{},
	}
}

// Fields of the CaseRecord.
func (CaseRecord) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable().
			Comment("prefix CASE-"),
		field.String("client_id").
			Immutable(),
		field.String("vendor_id").
			Immutable(),
		field.Enum("case_type").
			Values("general", "invoice", "payment", "onboarding", "contract", "compliance", "bank_change").
			Immutable(),
		field.Enum("status").
			Values("open", "waiting_supplier", "waiting_internal", "resolved", "blocked").
			Default("open"),
		field.Enum("priority").
			Values("low", "normal", "high", "urgent").
			Default("normal"),
		field.Enum("owner_team").
			Values("procurement", "ap", "finance").
			Default("procurement"),
		field.String("company_id").
			Optional().
			Nillable(),
		field.String("group_id").
			Optional().
			Nillable(),
		field.Time("sla_due_at").
			Optional().
			Nillable(),
		field.Int("escalation_level").
			Default(0),
		field.String("invoice_ref").
			Optional().
			Nillable(),
		field.String("payment_ref").
			Optional().
			Nillable(),
		field.Float("disputed_amount").
			Optional().
			Nillable(),
		field.String("disputed_currency").
			Optional().
			Nillable(),
		field.String("subject").
			NotEmpty().
			MaxLen(255),
		field.String("description").
			Optional().
			MaxLen(8192),
		field.String("assigned_to").
			Optional().
			Nillable(),
		field.JSON("metadata", map[string]interface{}{}).
			Optional(),
	}
}

// Edges of the CaseRecord.
func (CaseRecord) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("checklist_steps", ChecklistStep.Type),
		edge.To("evidence", Evidence.Type),
		edge.To("messages", Message.Type),
		edge.To("decision_log", DecisionLogEntry.Type),
	}
}

// Indexes of the CaseRecord.
func (CaseRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("client_id", "status"),
		index.Fields("vendor_id", "status"),
		index.Fields("company_id"),
		index.Fields("status", "priority"),
	}
}
